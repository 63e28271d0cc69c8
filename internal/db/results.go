package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-studio/internal/types"
)

// -----------------------------------------------------------------------------
// Generation results
// -----------------------------------------------------------------------------

// ErrGenerationOwner is returned when a save would replace another user's generation.
var ErrGenerationOwner = errors.New("generation belongs to another user")

// SaveGeneration stores a generation result, replacing an earlier result with
// the same ID when it has the same owner.
func (db *DB) SaveGeneration(ctx context.Context, req types.Requester, g *types.GenerationResult) error {
	content, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal generation: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`INSERT INTO generations (id, user_id, role, score_version, match_score_before,
		                          match_score_after, scoring_fallback_used, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     score_version = EXCLUDED.score_version,
		     match_score_before = EXCLUDED.match_score_before,
		     match_score_after = EXCLUDED.match_score_after,
		     scoring_fallback_used = EXCLUDED.scoring_fallback_used,
		     content = EXCLUDED.content,
		     updated_at = NOW()
		 WHERE generations.user_id IS NOT DISTINCT FROM EXCLUDED.user_id`,
		g.ID, nullUUID(req.UserID), string(req.Role), g.ScoreBreakdown.Version, g.MatchScoreBefore,
		g.MatchScoreAfter, g.ScoringFallbackUsed, content, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGenerationOwner
	}
	return nil
}

// GetGeneration retrieves a generation result by ID, or nil if it does not exist.
func (db *DB) GetGeneration(ctx context.Context, id uuid.UUID) (*types.GenerationResult, error) {
	var (
		content []byte
		owner   *uuid.UUID
	)
	err := db.pool.QueryRow(ctx, `SELECT content, user_id FROM generations WHERE id = $1`, id).Scan(&content, &owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	var g types.GenerationResult
	if err := json.Unmarshal(content, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	if owner != nil {
		g.UserID = *owner
	}
	return &g, nil
}

// SaveScoreDetails stores a detailed score result, optionally linked to a
// generation, and returns its ID.
func (db *DB) SaveScoreDetails(ctx context.Context, generationID uuid.UUID, res *types.DetailedScoreResult) (uuid.UUID, error) {
	details, err := json.Marshal(res.Details)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal score details: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO score_details (generation_id, vacancy_hash, version, score_before,
		                            score_after, attempts_used, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		nullUUID(generationID), res.Details.VacancyHash, res.Details.Version, res.Details.ScoreBefore,
		res.Details.ScoreAfter, res.Usage.AttemptsUsed, details,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save score details: %w", err)
	}
	return id, nil
}

// LatestScoreDetails returns the most recent details stored for a generation,
// or nil when there are none.
func (db *DB) LatestScoreDetails(ctx context.Context, generationID uuid.UUID) (*types.ScoreDetails, error) {
	var details []byte
	err := db.pool.QueryRow(ctx,
		`SELECT details FROM score_details
		 WHERE generation_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		generationID,
	).Scan(&details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get score details: %w", err)
	}

	var d types.ScoreDetails
	if err := json.Unmarshal(details, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score details: %w", err)
	}
	return &d, nil
}
