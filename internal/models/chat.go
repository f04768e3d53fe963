package models

// ChatExchange is the ephemeral result of one chat request. It is never persisted.
type ChatExchange struct {
	Prompt          string   `json:"prompt"`
	ContextText     string   `json:"-"`
	FilesReferenced []string `json:"filesReferenced"`
	TokensUsed      int      `json:"tokensUsed"`
	Response        string   `json:"response"`
}
