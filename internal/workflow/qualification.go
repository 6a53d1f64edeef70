package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/store"
)

// QualificationOutcome is a validated verdict together with its effect on the funnel.
type QualificationOutcome struct {
	LeadID int64 `json:"lead_id"`
	*ai.QualificationResult
	Stage        leads.Stage `json:"stage"`
	StageChanged bool        `json:"stage_changed"`
}

// QualifyLead asks the model for a verdict. Nothing is written unless the
// response passed validation; a qualified verdict moves a New lead to Qualified.
func (s *Service) QualifyLead(ctx context.Context, id int64) (*QualificationOutcome, error) {
	if s.qualifier == nil {
		return nil, ErrAIUnavailable
	}

	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lead %d: %w", id, err)
	}

	result, err := s.qualifier.Qualify(ctx, lead)
	if err != nil {
		return nil, err
	}

	out := &QualificationOutcome{LeadID: id, QualificationResult: result}
	model := s.qualifier.Model()

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		// re-read inside the transaction, the stage may have moved during the model call
		current, err := tx.GetLead(ctx, id)
		if err != nil {
			return err
		}

		activity := leads.NewActivity(id, leads.ActivityQualification,
			fmt.Sprintf("Lead qualified by Grok: %s (%d%% confidence)", result.Verdict, result.Confidence),
			map[string]any{
				"verdict":    result.Verdict,
				"confidence": result.Confidence,
				"reasoning":  result.Reasoning,
				"factors":    result.Factors,
				"model":      model,
			},
		)
		if err := tx.AppendActivity(ctx, &activity); err != nil {
			return err
		}

		out.Stage = current.Stage
		if result.Verdict != ai.VerdictQualified {
			return nil
		}

		next, advance := leads.AdvanceOnQualification(current.Stage)
		if !advance {
			return nil
		}
		if err := tx.UpdateLeadStage(ctx, id, next); err != nil {
			return err
		}

		change := leads.NewActivity(id, leads.ActivityStageChange,
			fmt.Sprintf("Stage updated: %s → %s (triggered by Grok qualification)", current.Stage, next),
			map[string]any{
				"old_stage":  current.Stage,
				"new_stage":  next,
				"trigger":    string(leads.ActivityQualification),
				"verdict":    result.Verdict,
				"confidence": result.Confidence,
			},
		)
		if err := tx.AppendActivity(ctx, &change); err != nil {
			return err
		}

		out.Stage = next
		out.StageChanged = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save qualification: %w", err)
	}

	s.logger.Info("lead qualified",
		zap.Int64("lead_id", id),
		zap.String("verdict", string(result.Verdict)),
		zap.Int("confidence", result.Confidence),
		zap.Bool("stage_changed", out.StageChanged),
	)

	return out, nil
}

type OutreachOutcome struct {
	LeadID int64 `json:"lead_id"`
	*ai.OutreachResult
}

// GenerateOutreach drafts a personalized email and logs it on the lead.
func (s *Service) GenerateOutreach(ctx context.Context, id int64, extra string) (*OutreachOutcome, error) {
	if s.qualifier == nil {
		return nil, ErrAIUnavailable
	}

	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lead %d: %w", id, err)
	}

	result, err := s.qualifier.GenerateOutreach(ctx, lead, extra)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"subject":  result.Subject,
		"body":     result.Body,
		"variants": result.Variants,
		"model":    s.qualifier.Model(),
	}
	if extra != "" {
		data["context"] = extra
	}

	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		activity := leads.NewActivity(id, leads.ActivityOutreach, "Outreach message generated by Grok", data)
		return tx.AppendActivity(ctx, &activity)
	})
	if err != nil {
		return nil, fmt.Errorf("save outreach: %w", err)
	}

	s.logger.Info("outreach generated",
		zap.Int64("lead_id", id),
		zap.Int("variants", len(result.Variants)),
	)

	return &OutreachOutcome{LeadID: id, OutreachResult: result}, nil
}
