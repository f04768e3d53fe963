package chat

import (
	"context"
	"errors"
	"strings"

	"docchat/internal/models"
	"docchat/internal/ratelimit"
	"docchat/internal/service/ai"
)

var (
	ErrMissingUserID = errors.New("userId is required")
	ErrMissingPrompt = errors.New("prompt is required")
)

// Request is one chat turn. Zero MaxTokens and nil Temperature select the
// gateway defaults.
type Request struct {
	UserID      string
	Prompt      string
	MaxTokens   int
	Temperature *float32
}

type FileLister interface {
	List(ownerID string) []models.IngestedFile
}

type Responder interface {
	Chat(ctx context.Context, prompt string, files []models.IngestedFile, opts ai.ChatOptions) (*models.ChatExchange, error)
}

// Service admits a request, gathers the user's files and asks the gateway.
type Service struct {
	limiter ratelimit.Limiter
	files   FileLister
	gateway Responder
}

func NewService(limiter ratelimit.Limiter, files FileLister, gateway Responder) *Service {
	return &Service{limiter: limiter, files: files, gateway: gateway}
}

func (s *Service) Chat(ctx context.Context, req Request) (*models.ChatExchange, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrMissingUserID
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrMissingPrompt
	}
	if !s.limiter.Admit(ctx, req.UserID) {
		return nil, ratelimit.ErrRateLimitExceeded
	}
	files := s.files.List(req.UserID)
	return s.gateway.Chat(ctx, req.Prompt, files, ai.ChatOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
}
