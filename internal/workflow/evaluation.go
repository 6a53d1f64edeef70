package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/evaluation"
	"github.com/spigell/lead-responder/internal/store"
)

// RunEvaluation records a run, executes the harness over the configured
// fixtures (restricted to includeNames when given) and stores the outcome.
// A harness failure marks the run failed and is returned.
func (s *Service) RunEvaluation(ctx context.Context, includeNames []string) (*store.EvaluationRun, error) {
	if s.evaluator == nil {
		return nil, ErrAIUnavailable
	}

	run, err := s.store.CreateEvaluationRun(ctx)
	if err != nil {
		return nil, err
	}

	fixtures := evaluation.Filter(s.fixtures, includeNames)
	s.logger.Info("evaluation started",
		zap.Int64("run_id", run.ID),
		zap.Int("fixtures", len(fixtures)),
	)

	report, runErr := s.evaluator.Run(ctx, fixtures)

	// the caller may be gone once the harness returns, the outcome is still recorded
	saveCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := s.store.FailEvaluationRun(saveCtx, run.ID, runErr.Error()); err != nil {
			s.logger.Error("failed to mark evaluation run as failed", zap.Int64("run_id", run.ID), zap.Error(err))
		}
		return nil, fmt.Errorf("evaluation run %d: %w", run.ID, runErr)
	}

	if err := s.store.CompleteEvaluationRun(saveCtx, run.ID, report); err != nil {
		return nil, err
	}

	s.logger.Info("evaluation completed",
		zap.Int64("run_id", run.ID),
		zap.Int("passed", report.PassedTests),
		zap.Int("failed", report.FailedTests),
		zap.Int("errors", report.ErrorTests),
		zap.Float64("pass_rate", report.PassRate),
	)

	stored, err := s.store.GetEvaluationRun(saveCtx, run.ID)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Service) EvaluationRun(ctx context.Context, id int64) (store.EvaluationRun, error) {
	return s.store.GetEvaluationRun(ctx, id)
}

func (s *Service) EvaluationRuns(ctx context.Context, limit, offset int) ([]store.EvaluationRun, error) {
	return s.store.ListEvaluationRuns(ctx, limit, offset)
}
