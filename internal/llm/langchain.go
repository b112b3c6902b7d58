package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// LangChain exposes a ChatModel as a langchaingo llms.Model so it can drive
// langchaingo agents and chains.
type LangChain struct {
	model       ChatModel
	temperature float64
}

func NewLangChain(model ChatModel, temperature float64) *LangChain {
	return &LangChain{model: model, temperature: temperature}
}

var _ llms.Model = (*LangChain)(nil)

func (l *LangChain) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{Temperature: l.temperature}
	for _, opt := range options {
		opt(&opts)
	}

	req := Request{
		Stop:        opts.StopWords,
		Temperature: opts.Temperature,
		MaxTokens:   int64(opts.MaxTokens),
	}
	for _, message := range messages {
		text := messageText(message)
		switch message.Role {
		case llms.ChatMessageTypeSystem:
			if req.System != "" {
				req.System += "\n"
			}
			req.System += text
		case llms.ChatMessageTypeAI:
			req.Messages = append(req.Messages, Message{Role: RoleAssistant, Content: text})
		default:
			req.Messages = append(req.Messages, Message{Role: RoleUser, Content: text})
		}
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one non-system message is required")
	}

	resp, err := l.model.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content: resp.Content,
			GenerationInfo: map[string]any{
				"model":         resp.Model,
				"input_tokens":  resp.Usage.InputTokens,
				"output_tokens": resp.Usage.OutputTokens,
			},
		}},
	}, nil
}

func (l *LangChain) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}

func messageText(message llms.MessageContent) string {
	var b strings.Builder
	for _, part := range message.Parts {
		if text, ok := part.(llms.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}
