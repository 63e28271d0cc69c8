package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/jonathan/resume-studio/internal/cache"
	"github.com/jonathan/resume-studio/internal/config"
	"github.com/jonathan/resume-studio/internal/db"
	"github.com/jonathan/resume-studio/internal/generation"
	"github.com/jonathan/resume-studio/internal/humanizer"
	"github.com/jonathan/resume-studio/internal/llm"
	"github.com/jonathan/resume-studio/internal/logx"
	"github.com/jonathan/resume-studio/internal/routing"
	"github.com/jonathan/resume-studio/internal/scoring"
)

// app holds the wired services shared by the commands.
type app struct {
	db        *db.DB
	store     routing.Store
	resolver  *routing.Resolver
	gateway   *llm.Gateway
	generator *generation.Generator
	scorer    *scoring.Scorer
	humanizer *humanizer.Humanizer
	redis     *redis.Client
	closers   []io.Closer
}

// openCatalog connects the routing catalog: PostgreSQL when DATABASE_URL is
// set, otherwise an empty in-memory catalog where every scenario falls back.
func openCatalog(ctx context.Context, c *config.Config) (*app, error) {
	a := &app{}
	if c.DatabaseURL == "" {
		logx.Warn().Msg("DATABASE_URL not set; using an empty in-memory routing catalog")
		a.store = routing.NewMemoryCatalog()
	} else {
		database, err := db.Connect(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.db = database
		a.store = database
	}
	a.resolver = routing.NewResolver(a.store)
	return a, nil
}

// buildApp wires the catalog, LLM providers, signal cache and orchestrators.
func buildApp(ctx context.Context, c *config.Config) (*app, error) {
	a, err := openCatalog(ctx, c)
	if err != nil {
		return nil, err
	}

	providers, err := a.providers(ctx, c)
	if err != nil {
		a.Close()
		return nil, err
	}

	gwConfig := llm.Config{CallTimeout: c.LLMCallTimeout}
	if a.db != nil {
		gwConfig = gwConfig.WithRecorder(a.db)
	}
	a.gateway = llm.NewGateway(gwConfig, providers...)

	var signals scoring.SignalStore = cache.Noop{}
	if c.RedisURL != "" {
		var rc cache.Config
		if err := envconfig.Process("", &rc); err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid redis configuration: %w", err)
		}
		client, err := rc.NewClient(ctx)
		if err != nil {
			logx.Warn().Err(err).Msg("signal cache disabled")
		} else {
			a.redis = client
			signals = cache.NewRedisSignalCache(client, c.SignalCacheTTL)
		}
	}

	raw, err := config.LoadRuntimeConfig(c.RuntimeConfigPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	fallback := c.FallbackModel()
	a.humanizer = humanizer.New(a.gateway, a.resolver, fallback, humanizer.ResolveConfig(raw))
	a.generator = generation.NewGenerator(a.gateway, a.resolver, generation.Options{
		FallbackModel: fallback,
		Humanizer:     a.humanizer,
	})
	a.scorer = scoring.NewScorer(a.gateway, a.resolver, scoring.Options{
		AttemptBudget: c.DetailScoreAttempts,
		FallbackModel: fallback,
		Signals:       signals,
	})

	logx.Info().Strs("providers", a.gateway.Providers()).Bool("ledger", a.db != nil).Bool("signal_cache", a.redis != nil).Msg("services wired")
	return a, nil
}

func (a *app) providers(ctx context.Context, c *config.Config) ([]llm.Provider, error) {
	var out []llm.Provider
	if c.GeminiAPIKey != "" {
		p, err := llm.NewGeminiProvider(ctx, c.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p)
		out = append(out, p)
	}
	if c.AnthropicAPIKey != "" {
		p, err := llm.NewAnthropicProvider(c.AnthropicAPIKey)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if c.GenAIAPIKey != "" {
		p, err := llm.NewEinoProvider(ctx, c.GenAIAPIKey)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no LLM provider configured: set GEMINI_API_KEY, ANTHROPIC_API_KEY or GENAI_API_KEY")
	}
	return out, nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logx.Warn().Err(err).Msg("failed to close provider")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// readJSONFile decodes a JSON file into v.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput writes v to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, v any) error {
	if path == "" {
		return writeJSON(w, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	return writeJSON(f, v)
}
