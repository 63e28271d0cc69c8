package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiProvider calls Google Gemini through the generative-ai-go client.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the catalog provider id.
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Type returns the client stack.
func (p *GeminiProvider) Type() string { return "generative-ai-go" }

// Generate runs one GenerateContent call.
func (p *GeminiProvider) Generate(ctx context.Context, c Completion) (*Result, error) {
	model := p.client.GenerativeModel(c.ModelKey)
	model.SetTemperature(float32(c.Temperature))
	if c.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.MaxTokens))
	}
	if c.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(c.Prompt))
	if err != nil {
		return nil, geminiError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return nil, &ProviderError{Provider: ProviderGemini, Code: CodeBlocked, Message: "prompt blocked: " + resp.PromptFeedback.BlockReason.String()}
	}

	text, finish, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	result := &Result{Text: text, Truncated: finish == genai.FinishReasonMaxTokens}
	if md := resp.UsageMetadata; md != nil {
		result.Usage = Usage{
			InputTokens:       int(md.PromptTokenCount),
			OutputTokens:      int(md.CandidatesTokenCount),
			CachedInputTokens: int(md.CachedContentTokenCount),
		}
	}
	return result, nil
}

// Close releases resources held by the client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, genai.FinishReason, error) {
	if len(resp.Candidates) == 0 {
		return "", genai.FinishReasonUnspecified, &ProviderError{Provider: ProviderGemini, Code: CodeEmptyResponse, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety || candidate.FinishReason == genai.FinishReasonRecitation {
		return "", candidate.FinishReason, &ProviderError{Provider: ProviderGemini, Code: CodeBlocked, Message: "response blocked: " + candidate.FinishReason.String()}
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", candidate.FinishReason, &ProviderError{Provider: ProviderGemini, Code: CodeEmptyResponse, Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", candidate.FinishReason, &ProviderError{Provider: ProviderGemini, Code: CodeEmptyResponse, Message: "no text parts in response"}
	}

	return strings.Join(parts, ""), candidate.FinishReason, nil
}

func geminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &ProviderError{Provider: ProviderGemini, Code: strconv.Itoa(gerr.Code), Message: "failed to generate content", Cause: err}
	}
	return &ProviderError{Provider: ProviderGemini, Message: "failed to generate content", Cause: err}
}
