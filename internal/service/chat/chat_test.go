package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/internal/ratelimit"
	"docchat/internal/registry"
	"docchat/internal/service/ai"
	"docchat/internal/service/digest"
)

type recordingModel struct {
	inputs [][]*schema.Message
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.inputs = append(m.inputs, input)
	return schema.AssistantMessage("answer", nil), nil
}

func (m *recordingModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newChatService(limit int, chatModel model.BaseChatModel) (*Service, *registry.Registry) {
	reg := registry.New(nil)
	gw := ai.NewGateway(chatModel, ai.GatewayConfig{MaxTokensPerRequest: 4000, MaxAttempts: 3})
	return NewService(ratelimit.NewMemory(limit, time.Minute), reg, gw), reg
}

func TestChatIncludesUploadedSummary(t *testing.T) {
	m := &recordingModel{}
	svc, reg := newChatService(10, m)
	text := "Hello\nWorld"
	reg.Store("u1", models.IngestedFile{
		DisplayName:   "hello.txt",
		ExtractedText: text,
		Summary:       digest.Summarize(text),
		TokenCount:    digest.EstimateTokens(text),
	})
	reg.Store("u2", models.IngestedFile{DisplayName: "other.txt", Summary: "not yours"})

	res, err := svc.Chat(context.Background(), Request{UserID: "u1", Prompt: "what is in my file?"})
	require.NoError(t, err)
	require.Equal(t, "answer", res.Response)
	require.Equal(t, []string{"hello.txt"}, res.FilesReferenced)
	require.Contains(t, res.ContextText, "Summary: Hello World")
	require.Len(t, m.inputs, 1)
	require.Contains(t, m.inputs[0][0].Content, "Summary: Hello World")
	require.NotContains(t, m.inputs[0][0].Content, "not yours")
}

func TestChatValidation(t *testing.T) {
	svc, _ := newChatService(10, &recordingModel{})
	_, err := svc.Chat(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrMissingUserID)
	_, err = svc.Chat(context.Background(), Request{UserID: "u1", Prompt: "  "})
	require.ErrorIs(t, err, ErrMissingPrompt)
}

func TestChatRateLimited(t *testing.T) {
	m := &recordingModel{}
	svc, _ := newChatService(1, m)
	_, err := svc.Chat(context.Background(), Request{UserID: "u1", Prompt: "one"})
	require.NoError(t, err)
	_, err = svc.Chat(context.Background(), Request{UserID: "u1", Prompt: "two"})
	require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	require.Len(t, m.inputs, 1)
}

func TestChatMissingCredential(t *testing.T) {
	svc, _ := newChatService(10, nil)
	_, err := svc.Chat(context.Background(), Request{UserID: "u1", Prompt: "q"})
	require.ErrorIs(t, err, ai.ErrMissingCredential)
}
