// Package llm issues single LLM calls on behalf of the generation pipeline:
// it dispatches to a provider by the catalog model's provider id, applies a
// per-call timeout, computes cost and records usage. It never retries.
package llm

import "time"

// Provider ids, matching types.Model.Provider in the catalog.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderGenAI     = "genai"
)

// DefaultCallTimeout bounds a single provider call when no timeout is configured.
const DefaultCallTimeout = 60 * time.Second

// Config controls the Gateway.
type Config struct {
	// CallTimeout bounds every provider call independently.
	CallTimeout time.Duration
	// Recorder, if set, receives a ledger row for every call.
	Recorder UsageRecorder
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{CallTimeout: DefaultCallTimeout}
}

// WithRecorder returns a copy of c with r as the usage recorder.
func (c Config) WithRecorder(r UsageRecorder) Config {
	c.Recorder = r
	return c
}
