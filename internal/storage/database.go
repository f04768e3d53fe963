package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"docchat/internal/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the configured database and verifies the connection.
func Open(dbType string, cfg *config.Config) (*sqlx.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sqlx.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		if !strings.Contains(dbCfg.DSN, ":memory:") && !strings.HasPrefix(dbCfg.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(dbCfg.DSN), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err = sqlx.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		if strings.Contains(dbCfg.DSN, ":memory:") {
			// every connection would otherwise get its own empty database
			db.SetMaxOpenConns(1)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn, err := mysqlDSN(dbCfg)
		if err != nil {
			return nil, err
		}
		db, err = sqlx.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	case "postgres", "postgresql":
		dsn := dbCfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.DBName,
				dbCfg.Params,
			)
		}
		db, err = sqlx.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// mysqlDSN builds the mysql DSN from parts when none is given and always
// enables parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(dbCfg config.DatabaseConfig) (string, error) {
	dsn := dbCfg.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			dbCfg.Username,
			dbCfg.Password,
			dbCfg.Host,
			dbCfg.Port,
			dbCfg.DBName,
		)
		if dbCfg.Params != "" {
			dsn += "?" + dbCfg.Params
		}
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// Migrate ensures the upload tables are present.
func Migrate(db *sqlx.DB) error {
	driver := db.DriverName()
	var stmts []string
	switch driver {
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploads (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				display_name TEXT NOT NULL,
				stored_name TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes INTEGER NOT NULL,
				token_count INTEGER NOT NULL,
				summary TEXT NOT NULL,
				extracted_text TEXT NOT NULL,
				uploaded_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_uploads_owner ON uploads(owner_id)`,
			`CREATE TABLE IF NOT EXISTS upload_chunks (
				upload_id TEXT NOT NULL,
				chunk_index INTEGER NOT NULL,
				content TEXT NOT NULL,
				PRIMARY KEY (upload_id, chunk_index),
				FOREIGN KEY(upload_id) REFERENCES uploads(id) ON DELETE CASCADE
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploads (
				id VARCHAR(64) NOT NULL,
				owner_id VARCHAR(255) NOT NULL,
				display_name VARCHAR(255) NOT NULL,
				stored_name VARCHAR(255) NOT NULL,
				mime_type VARCHAR(255) NOT NULL,
				size_bytes BIGINT NOT NULL,
				token_count INT NOT NULL,
				summary TEXT NOT NULL,
				extracted_text LONGTEXT NOT NULL,
				uploaded_at DATETIME NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_uploads_owner (owner_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS upload_chunks (
				upload_id VARCHAR(64) NOT NULL,
				chunk_index INT NOT NULL,
				content MEDIUMTEXT NOT NULL,
				PRIMARY KEY (upload_id, chunk_index),
				CONSTRAINT fk_upload_chunks_upload FOREIGN KEY (upload_id) REFERENCES uploads(id) ON DELETE CASCADE
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	case "postgres":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploads (
				id TEXT PRIMARY KEY,
				owner_id TEXT NOT NULL,
				display_name TEXT NOT NULL,
				stored_name TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes BIGINT NOT NULL,
				token_count INTEGER NOT NULL,
				summary TEXT NOT NULL,
				extracted_text TEXT NOT NULL,
				uploaded_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_uploads_owner ON uploads(owner_id)`,
			`CREATE TABLE IF NOT EXISTS upload_chunks (
				upload_id TEXT NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
				chunk_index INTEGER NOT NULL,
				content TEXT NOT NULL,
				PRIMARY KEY (upload_id, chunk_index)
			)`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
