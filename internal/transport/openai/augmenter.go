package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const hydePrompt = "请为以下用户问题生成一个假设的电影推荐回答（只需要写电影相关内容，不要写推荐理由）：\n\n用户问题: %s\n\n假设回答:"

// AugmenterConfig holds the chat model settings for query augmentation.
type AugmenterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Augmenter writes a short hypothetical film description for a query (HyDE).
type Augmenter struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
	timeout     time.Duration
	logger      *zap.Logger
}

// NewAugmenter creates a chat-completions backed augmenter.
func NewAugmenter(cfg *AugmenterConfig) *Augmenter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Augmenter{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Augment returns the generated description with the prompt echo stripped.
func (a *Augmenter) Augment(ctx context.Context, query string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(hydePrompt, query)
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		TopP:        a.topP,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	text := resp.Choices[0].Message.Content
	if _, after, ok := strings.Cut(text, prompt); ok {
		text = after
	}
	return strings.TrimSpace(text), nil
}
