package ai

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"docchat/internal/models"
	"docchat/internal/service/digest"
	"docchat/internal/service/prompt"
)

const (
	DefaultMaxTokens   = 1000
	DefaultTemperature = float32(0.7)
)

// GatewayConfig bounds each chat request.
type GatewayConfig struct {
	// MaxTokensPerRequest is the ceiling on the estimated prompt size.
	MaxTokensPerRequest int
	MaxAttempts         int
	RetryBase           time.Duration
	// Timeout applies to each attempt separately; zero disables it.
	Timeout time.Duration
}

// ChatOptions are per-request model parameters.
type ChatOptions struct {
	MaxTokens   int
	Temperature *float32
}

// Gateway sends a grounded prompt to the chat model with bounded retries.
type Gateway struct {
	model model.BaseChatModel
	cfg   GatewayConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway wires a chat model into a gateway. chatModel may be nil when no
// credential is configured; Chat then fails with ErrMissingCredential.
func NewGateway(chatModel model.BaseChatModel, cfg GatewayConfig) *Gateway {
	if cfg.MaxTokensPerRequest <= 0 {
		cfg.MaxTokensPerRequest = 4000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase < 0 {
		cfg.RetryBase = 0
	}
	return &Gateway{model: chatModel, cfg: cfg, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Chat answers userPrompt using files as context. Every supplied file is
// reported in FilesReferenced whether or not the answer cites it.
func (g *Gateway) Chat(ctx context.Context, userPrompt string, files []models.IngestedFile, opts ChatOptions) (*models.ChatExchange, error) {
	contextText := prompt.BuildContext(files)
	systemPrompt := prompt.BuildSystemPrompt(contextText)

	estimated := digest.EstimateTokens(systemPrompt + userPrompt)
	if estimated > g.cfg.MaxTokensPerRequest {
		return nil, &TokenLimitExceededError{Estimated: estimated, Limit: g.cfg.MaxTokensPerRequest}
	}
	if g.model == nil {
		return nil, ErrMissingCredential
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	var (
		reply    *schema.Message
		lastErr  error
		attempts int
	)
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		reply, lastErr = g.generate(ctx, messages, maxTokens, temperature)
		if lastErr == nil {
			break
		}
		log.Printf("llm attempt %d/%d failed: %v", attempt, g.cfg.MaxAttempts, lastErr)
		if attempt == g.cfg.MaxAttempts {
			break
		}
		if err := g.sleep(ctx, time.Duration(attempt)*g.cfg.RetryBase); err != nil {
			lastErr = err
			break
		}
	}
	if lastErr != nil {
		return nil, &LLMCallFailedError{Attempts: attempts, Err: lastErr}
	}

	tokensUsed := estimated
	if reply.ResponseMeta != nil && reply.ResponseMeta.Usage != nil && reply.ResponseMeta.Usage.TotalTokens > 0 {
		tokensUsed = reply.ResponseMeta.Usage.TotalTokens
	}
	referenced := make([]string, 0, len(files))
	for _, f := range files {
		referenced = append(referenced, f.DisplayName)
	}
	debugLog("llm reply after %d attempt(s): %d tokens, %d files in context", attempts, tokensUsed, len(files))

	return &models.ChatExchange{
		Prompt:          userPrompt,
		ContextText:     contextText,
		FilesReferenced: referenced,
		TokensUsed:      tokensUsed,
		Response:        reply.Content,
	}, nil
}

func (g *Gateway) generate(ctx context.Context, messages []*schema.Message, maxTokens int, temperature float32) (*schema.Message, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	reply, err := g.model.Generate(ctx, messages,
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(temperature),
	)
	if err != nil {
		return nil, err
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		return nil, errEmptyResponse
	}
	return reply, nil
}
