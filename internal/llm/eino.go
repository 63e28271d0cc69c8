package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"
	"github.com/getkin/kin-openapi/openapi3"
	"google.golang.org/genai"
)

// EinoProvider calls Gemini through an eino chat model backed by the
// google.golang.org/genai client. One chat model is built per model key.
type EinoProvider struct {
	client *genai.Client

	mu     sync.Mutex
	models map[string]einomodel.BaseChatModel
}

// NewEinoProvider creates a genai-backed eino provider.
func NewEinoProvider(ctx context.Context, apiKey string) (*EinoProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating genai client: %w", err)
	}
	return &EinoProvider{client: client, models: make(map[string]einomodel.BaseChatModel)}, nil
}

// Name returns the catalog provider id.
func (p *EinoProvider) Name() string { return ProviderGenAI }

// Type returns the client stack.
func (p *EinoProvider) Type() string { return "eino-genai" }

// Generate sends the prompt as a single user message.
func (p *EinoProvider) Generate(ctx context.Context, c Completion) (*Result, error) {
	cm, err := p.chatModel(ctx, c.ModelKey)
	if err != nil {
		return nil, err
	}

	out, err := cm.Generate(ctx, []*schema.Message{schema.UserMessage(c.Prompt)}, generateOptions(c)...)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: ProviderGenAI, Code: strconv.Itoa(apiErr.Code), Message: "generate failed", Cause: err}
		}
		return nil, &ProviderError{Provider: ProviderGenAI, Message: "generate failed", Cause: err}
	}
	if out == nil {
		return nil, &ProviderError{Provider: ProviderGenAI, Code: CodeEmptyResponse, Message: "no message in response"}
	}

	result := &Result{Text: out.Content}
	if out.ResponseMeta != nil {
		result.Truncated = out.ResponseMeta.FinishReason == string(genai.FinishReasonMaxTokens)
		if u := out.ResponseMeta.Usage; u != nil {
			result.Usage = Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
		}
	}
	return result, nil
}

// generateOptions maps a completion onto eino call options. JSON completions
// request the application/json response type, which the gemini chat model
// only sets when a response schema is given; the permissive JSON schema takes
// precedence over the OpenAPI one.
func generateOptions(c Completion) []einomodel.Option {
	opts := []einomodel.Option{einomodel.WithTemperature(float32(c.Temperature))}
	if c.MaxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(c.MaxTokens))
	}
	if c.JSON {
		opts = append(opts,
			gemini.WithResponseSchema(&openapi3.Schema{Type: openapi3.TypeObject}),
			gemini.WithResponseJSONSchema(&jsonschema.Schema{Type: "object"}),
		)
	}
	return opts
}

func (p *EinoProvider) chatModel(ctx context.Context, key string) (einomodel.BaseChatModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cm, ok := p.models[key]; ok {
		return cm, nil
	}
	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: p.client,
		Model:  key,
	})
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGenAI, Code: CodeInvalidModel, Message: "error creating chat model " + key, Cause: err}
	}
	p.models[key] = cm
	return cm, nil
}
