package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider calls Claude models through the Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates an Anthropic provider.
func NewAnthropicProvider(apiKey string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey), anthropicoption.WithMaxRetries(0)),
	}, nil
}

// Name returns the catalog provider id.
func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Type returns the client stack.
func (p *AnthropicProvider) Type() string { return "anthropic-messages" }

// Generate sends one user message and concatenates the text blocks of the reply.
func (p *AnthropicProvider) Generate(ctx context.Context, c Completion) (*Result, error) {
	prompt := c.Prompt
	if c.JSON {
		prompt += "\n\nRespond with a single JSON value and nothing else."
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.ModelKey),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(c.Temperature),
		Messages: []anthropic.MessageParam{{
			Content: []anthropic.ContentBlockParamUnion{{
				OfText: &anthropic.TextBlockParam{Text: prompt},
			}},
			Role: anthropic.MessageParamRoleUser,
		}},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: ProviderAnthropic, Code: strconv.Itoa(apiErr.StatusCode), Message: "messages request failed", Cause: err}
		}
		return nil, &ProviderError{Provider: ProviderAnthropic, Message: "messages request failed", Cause: err}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if msg.StopReason == "refusal" {
		return nil, &ProviderError{Provider: ProviderAnthropic, Code: CodeBlocked, Message: "model refused the request"}
	}

	return &Result{
		Text: sb.String(),
		Usage: Usage{
			InputTokens:       int(msg.Usage.InputTokens + msg.Usage.CacheReadInputTokens),
			OutputTokens:      int(msg.Usage.OutputTokens),
			CachedInputTokens: int(msg.Usage.CacheReadInputTokens),
		},
		Truncated: msg.StopReason == anthropic.StopReasonMaxTokens,
	}, nil
}
