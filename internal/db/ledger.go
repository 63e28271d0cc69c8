package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-studio/internal/types"
)

// -----------------------------------------------------------------------------
// LLM call ledger
// -----------------------------------------------------------------------------

// RecordLLMCall appends one call to the ledger.
func (db *DB) RecordLLMCall(ctx context.Context, rec types.LLMCallRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO llm_calls (id, scenario, role, user_id, provider, provider_type, model,
		                        input_tokens, output_tokens, cached_input_tokens, cost, duration_ms,
		                        success, error_code, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID, rec.Scenario, string(rec.Role), nullUUID(rec.UserID), rec.Provider, rec.ProviderType, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CachedInputTokens, rec.Cost, rec.DurationMs,
		rec.Success, nullString(rec.ErrorCode), nullString(rec.ErrorMessage), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record llm call: %w", err)
	}
	return nil
}

// ScenarioUsage aggregates ledger rows for one scenario.
type ScenarioUsage struct {
	Scenario     types.ScenarioKey `json:"scenario"`
	Calls        int               `json:"calls"`
	Failures     int               `json:"failures"`
	InputTokens  int64             `json:"input_tokens"`
	OutputTokens int64             `json:"output_tokens"`
	Cost         float64           `json:"cost"`
}

// UsageByScenario sums calls, tokens and cost per scenario since the given time.
func (db *DB) UsageByScenario(ctx context.Context, since time.Time) ([]ScenarioUsage, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT scenario,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE NOT success),
		        COALESCE(SUM(input_tokens), 0),
		        COALESCE(SUM(output_tokens), 0),
		        COALESCE(SUM(cost), 0)::double precision
		 FROM llm_calls
		 WHERE created_at >= $1
		 GROUP BY scenario
		 ORDER BY scenario`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate llm usage: %w", err)
	}
	defer rows.Close()

	usage := []ScenarioUsage{}
	for rows.Next() {
		var u ScenarioUsage
		if err := rows.Scan(&u.Scenario, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan llm usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
