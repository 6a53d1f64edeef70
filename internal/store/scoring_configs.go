package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/spigell/lead-responder/internal/leads"
)

type scoringConfigRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Weights     string         `db:"weights"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

const scoringConfigColumns = `id, name, description, weights, is_active, created_at, updated_at`

func (r scoringConfigRow) config() (leads.ScoringConfig, error) {
	c := leads.ScoringConfig{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		IsActive:    r.IsActive,
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Weights), &c.Weights); err != nil {
		return c, fmt.Errorf("decode scoring config %q weights: %w", r.Name, err)
	}
	return c, nil
}

// ActiveScoringConfig returns the most recently updated active config.
func (r repo) ActiveScoringConfig(ctx context.Context) (leads.ScoringConfig, error) {
	var row scoringConfigRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT `+scoringConfigColumns+` FROM scoring_configs WHERE is_active = 1 ORDER BY updated_at DESC, id DESC LIMIT 1`)
	if err != nil {
		return leads.ScoringConfig{}, notFound(err)
	}
	return row.config()
}

// SaveScoringConfig upserts the config by name. Saving an active config
// deactivates every other one.
func (r repo) SaveScoringConfig(ctx context.Context, c *leads.ScoringConfig) error {
	weights, err := json.Marshal(c.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	now := r.now()
	if c.IsActive {
		if _, err := r.q.ExecContext(ctx,
			`UPDATE scoring_configs SET is_active = 0, updated_at = ? WHERE is_active = 1 AND name <> ?`,
			formatTime(now), c.Name,
		); err != nil {
			return fmt.Errorf("deactivate scoring configs: %w", err)
		}
	}

	var existing scoringConfigRow
	err = sqlx.GetContext(ctx, r.q, &existing, `SELECT `+scoringConfigColumns+` FROM scoring_configs WHERE name = ?`, c.Name)
	switch {
	case err == nil:
		if _, err := r.q.ExecContext(ctx,
			`UPDATE scoring_configs SET description = ?, weights = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			nullable(c.Description), string(weights), c.IsActive, formatTime(now), existing.ID,
		); err != nil {
			return fmt.Errorf("update scoring config: %w", err)
		}
		c.ID = existing.ID
		c.CreatedAt = parseTime(existing.CreatedAt)
	case errors.Is(err, sql.ErrNoRows):
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO scoring_configs (name, description, weights, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			c.Name, nullable(c.Description), string(weights), c.IsActive, formatTime(now), formatTime(now),
		)
		if err != nil {
			if isUnique(err) {
				return fmt.Errorf("scoring config %q: %w", c.Name, ErrDuplicate)
			}
			return fmt.Errorf("insert scoring config: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert scoring config: %w", err)
		}
		c.CreatedAt = now
	default:
		return fmt.Errorf("load scoring config: %w", err)
	}

	c.UpdatedAt = now
	return nil
}
