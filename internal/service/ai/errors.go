package ai

import (
	"errors"
	"fmt"
)

// ErrMissingCredential means no provider API key is configured.
var ErrMissingCredential = errors.New("llm provider credential not configured")

var errEmptyResponse = errors.New("llm returned an empty response")

// TokenLimitExceededError rejects a request before any network call.
type TokenLimitExceededError struct {
	Estimated int
	Limit     int
}

func (e *TokenLimitExceededError) Error() string {
	return fmt.Sprintf("estimated %d tokens exceeds the limit of %d", e.Estimated, e.Limit)
}

// LLMCallFailedError is returned once every attempt has failed.
type LLMCallFailedError struct {
	Attempts int
	Err      error
}

func (e *LLMCallFailedError) Error() string {
	return fmt.Sprintf("llm call failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *LLMCallFailedError) Unwrap() error { return e.Err }
