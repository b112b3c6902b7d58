// Package llm provides the chat model clients used by the generator and the
// text-to-SQL agent.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/querystudio/querystudio/internal/config"
)

var ErrMissingCredentials = errors.New("model and API key must be provided either as arguments or in the environment")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Request struct {
	System      string
	Messages    []Message
	Stop        []string
	Temperature float64
	MaxTokens   int64
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// ChatModel is a single-turn or multi-turn chat completion endpoint.
type ChatModel interface {
	Chat(ctx context.Context, req Request) (Response, error)
}

// Complete sends prompt as a single user message and returns the text reply.
func Complete(ctx context.Context, model ChatModel, prompt string, temperature float64) (string, error) {
	resp, err := model.Chat(ctx, Request{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// New builds the chat model selected by cfg.Provider.
func New(cfg config.ModelConfig) (ChatModel, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		if strings.TrimSpace(cfg.Name) == "" || strings.TrimSpace(cfg.APIKey) == "" {
			return nil, ErrMissingCredentials
		}
		return NewAnthropic(AnthropicConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Name,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	case config.ProviderOpenAI:
		if strings.TrimSpace(cfg.Name) == "" || strings.TrimSpace(cfg.APIKey) == "" {
			return nil, ErrMissingCredentials
		}
		return NewOpenAI(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Name,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// StripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag, and trims whitespace.
func StripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], " \t{[(") {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
