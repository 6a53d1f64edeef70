package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/scoring"
	"github.com/spigell/lead-responder/internal/store"
)

type ScoreResult struct {
	LeadID int64 `json:"lead_id"`
	scoring.Breakdown
}

// ScoreLead scores the lead with the active weights and records the result.
func (s *Service) ScoreLead(ctx context.Context, id int64) (*ScoreResult, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lead %d: %w", id, err)
	}

	w, err := s.weights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scoring weights: %w", err)
	}

	result := scoring.NewEngine(w).Calculate(lead)

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateLeadScore(ctx, id, result.TotalScore); err != nil {
			return err
		}
		activity := leads.NewActivity(id, leads.ActivityScore,
			fmt.Sprintf("Lead scored: %.1f/100", result.TotalScore),
			map[string]any{
				"score":     result.TotalScore,
				"breakdown": result.Breakdown,
				"factors":   result.Factors,
			},
		)
		return tx.AppendActivity(ctx, &activity)
	})
	if err != nil {
		return nil, fmt.Errorf("save score: %w", err)
	}

	s.logger.Info("lead scored",
		zap.Int64("lead_id", id),
		zap.Float64("score", result.TotalScore),
	)

	return &ScoreResult{LeadID: id, Breakdown: result}, nil
}
