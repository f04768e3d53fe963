package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Limits      LimitConfig               `json:"limits"`
	LLM         ProviderConfig            `json:"llm"`
	Database    string                    `json:"database"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

type BasicConfig struct {
	ServerAddress     string `json:"server_address"`
	UploadDir         string `json:"upload_dir"`
	MaxFileSize       int64  `json:"max_file_size"`
	MaxFilesPerUpload int    `json:"max_files_per_upload"`
}

type LimitConfig struct {
	MaxTokensPerRequest int    `json:"max_tokens_per_request"`
	RateLimitRequests   int    `json:"rate_limit_requests"`
	RateLimitWindowMs   int64  `json:"rate_limit_window_ms"`
	RateLimitBackend    string `json:"rate_limit_backend"`
}

type ProviderConfig struct {
	Provider       string `json:"provider"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxAttempts    int    `json:"max_attempts"`
	RetryBaseMs    int64  `json:"retry_base_ms"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

const (
	DefaultServerAddress       = ":8090"
	DefaultUploadDir           = "./data/uploads"
	DefaultMaxFileSize         = 10 << 20
	DefaultMaxFilesPerUpload   = 10
	DefaultMaxTokensPerRequest = 4000
	DefaultRateLimitRequests   = 100
	DefaultRateLimitWindowMs   = 900000
	DefaultProvider            = "openai"
	DefaultLLMTimeoutSeconds   = 60
	DefaultLLMMaxAttempts      = 3
	DefaultLLMRetryBaseMs      = 1000
	DefaultDatabase            = "sqlite3"
	DefaultSQLitePath          = "./data/docchat.db"
)

// Default returns a configuration populated with built-in defaults only.
func Default() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress:     DefaultServerAddress,
			UploadDir:         DefaultUploadDir,
			MaxFileSize:       DefaultMaxFileSize,
			MaxFilesPerUpload: DefaultMaxFilesPerUpload,
		},
		Limits: LimitConfig{
			MaxTokensPerRequest: DefaultMaxTokensPerRequest,
			RateLimitRequests:   DefaultRateLimitRequests,
			RateLimitWindowMs:   DefaultRateLimitWindowMs,
			RateLimitBackend:    "memory",
		},
		LLM: ProviderConfig{
			Provider:       DefaultProvider,
			TimeoutSeconds: DefaultLLMTimeoutSeconds,
			MaxAttempts:    DefaultLLMMaxAttempts,
			RetryBaseMs:    DefaultLLMRetryBaseMs,
		},
		Database: DefaultDatabase,
		Databases: map[string]DatabaseConfig{
			DefaultDatabase: {DSN: DefaultSQLitePath},
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379},
	}
}

// Load builds the configuration: defaults, then the optional JSON file at path
// (config.json when empty and present), then .env and process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "config.json"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if err := cfg.loadFile(absPath); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(absPath string) error {
	file, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	// relative paths in the file are resolved against the file's directory
	base := filepath.Dir(absPath)
	if c.BasicConfig.UploadDir != "" && !filepath.IsAbs(c.BasicConfig.UploadDir) {
		c.BasicConfig.UploadDir = filepath.Join(base, c.BasicConfig.UploadDir)
	}
	if dbCfg, ok := c.Databases["sqlite3"]; ok && dbCfg.DSN != "" && dbCfg.DSN != ":memory:" && !filepath.IsAbs(dbCfg.DSN) {
		dbCfg.DSN = filepath.Join(base, dbCfg.DSN)
		c.Databases["sqlite3"] = dbCfg
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BasicConfig.ServerAddress = getEnv("SERVER_ADDRESS", c.BasicConfig.ServerAddress)
	c.BasicConfig.UploadDir = getEnv("UPLOAD_DIR", c.BasicConfig.UploadDir)
	c.BasicConfig.MaxFileSize = getEnvAsInt64("MAX_FILE_SIZE", c.BasicConfig.MaxFileSize)
	c.BasicConfig.MaxFilesPerUpload = getEnvAsInt("MAX_FILES_PER_UPLOAD", c.BasicConfig.MaxFilesPerUpload)

	c.Limits.MaxTokensPerRequest = getEnvAsInt("MAX_TOKENS_PER_REQUEST", c.Limits.MaxTokensPerRequest)
	c.Limits.RateLimitRequests = getEnvAsInt("RATE_LIMIT_REQUESTS", c.Limits.RateLimitRequests)
	c.Limits.RateLimitWindowMs = getEnvAsInt64("RATE_LIMIT_WINDOW_MS", c.Limits.RateLimitWindowMs)
	c.Limits.RateLimitBackend = strings.ToLower(getEnv("RATE_LIMIT_BACKEND", c.Limits.RateLimitBackend))

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.APIKey = getEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.TimeoutSeconds = getEnvAsInt("LLM_TIMEOUT_SECONDS", c.LLM.TimeoutSeconds)
	c.LLM.MaxAttempts = getEnvAsInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.RetryBaseMs = getEnvAsInt64("LLM_RETRY_BASE_MS", c.LLM.RetryBaseMs)

	c.Database = strings.ToLower(getEnv("DOCCHAT_DB", c.Database))
	if dsn, ok := os.LookupEnv("DATABASE_DSN"); ok {
		if c.Databases == nil {
			c.Databases = make(map[string]DatabaseConfig)
		}
		dbCfg := c.Databases[c.Database]
		dbCfg.DSN = dsn
		c.Databases[c.Database] = dbCfg
	}

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvAsInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.BasicConfig.UploadDir == "" {
		return errors.New("upload_dir must be configured")
	}
	if c.BasicConfig.MaxFileSize <= 0 {
		return errors.New("max_file_size must be positive")
	}
	if c.BasicConfig.MaxFilesPerUpload <= 0 {
		return errors.New("max_files_per_upload must be positive")
	}
	if c.Limits.MaxTokensPerRequest <= 0 {
		return errors.New("max_tokens_per_request must be positive")
	}
	if c.Limits.RateLimitRequests <= 0 || c.Limits.RateLimitWindowMs <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	switch c.Limits.RateLimitBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported rate limit backend: %s", c.Limits.RateLimitBackend)
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("llm max_attempts must be positive")
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}
