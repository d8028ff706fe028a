// Package genai provides the generative fallback responder using the OpenAI
// chat completion API.
package genai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// systemPrompt fixes the responder's persona: a polite Japanese support
// assistant for the toyutoyu service that stays on topic and never asks for
// credentials in chat.
const systemPrompt = `あなたは「とゆとゆ」というウェブサービスの公式LINEサポートアシスタントです。
丁寧な日本語で、簡潔に回答してください。
サービスの使い方に関する一般的な質問に答えてください。
パスワードやメールアドレスなどの認証情報をチャットで尋ねたり、入力を促したりしないでください。
わからないことは正直にわからないと伝え、サポート窓口への問い合わせを案内してください。`

// Client wraps the OpenAI chat completion service.
type Client struct {
	apiKey string
	model  openai.ChatModel
	openai openai.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the OpenAI API key. Without one the client is disabled and
// Generate returns an error.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = openai.ChatModel(model)
		}
	}
}

// New creates a Client. It never fails; a keyless client simply reports
// Enabled() == false so the conversation handler can fall back to canned
// usage instructions.
func New(opts ...Option) *Client {
	c := &Client{model: DefaultModel}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey != "" {
		c.openai = openai.NewClient(option.WithAPIKey(c.apiKey))
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Generate produces a free-text reply to the user's message. Any API failure
// propagates; the caller is responsible for converting it into a user-safe
// message.
func (c *Client) Generate(ctx context.Context, userText string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("genai: no API key configured")
	}

	resp, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userText),
		},
	})
	if err != nil {
		return "", fmt.Errorf("genai: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("genai: no choices returned")
	}

	slog.Debug("Client.Generate: completion succeeded", "model", c.model, "input_length", len(userText))
	return resp.Choices[0].Message.Content, nil
}
