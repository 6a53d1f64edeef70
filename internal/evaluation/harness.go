// Package evaluation measures qualification quality against labelled fixtures.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/ai/qualifier"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/utils"
)

// DefaultDelay separates consecutive qualification calls.
const DefaultDelay = 500 * time.Millisecond

type Qualifier interface {
	Qualify(ctx context.Context, lead leads.Lead) (*ai.QualificationResult, error)
}

type Harness struct {
	qualifier Qualifier
	logger    *zap.Logger
	delay     time.Duration
	wait      func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

type Option func(*Harness)

// WithDelay sets the pause between fixture calls. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(h *Harness) {
		if d >= 0 {
			h.delay = d
		}
	}
}

func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harness) {
		if wait != nil {
			h.wait = wait
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Harness) {
		if now != nil {
			h.now = now
		}
	}
}

func New(q Qualifier, logger *zap.Logger, opts ...Option) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Harness{
		qualifier: q,
		logger:    logger,
		delay:     DefaultDelay,
		wait:      utils.WaitFor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run qualifies every fixture in order. Per-fixture failures become error
// outcomes; only context cancellation stops the run early, in which case the
// report covers the fixtures attempted so far.
func (h *Harness) Run(ctx context.Context, fixtures []Fixture) (*Report, error) {
	if h.qualifier == nil {
		return nil, errors.New("qualifier is required")
	}

	started := h.now()
	outcomes := make([]Outcome, 0, len(fixtures))
	completeness := make([]float64, 0, len(fixtures))

	h.logger.Info("starting evaluation", zap.Int("fixtures", len(fixtures)), zap.Duration("delay", h.delay))

	for i, fixture := range fixtures {
		if i > 0 {
			if err := h.wait(ctx, h.delay); err != nil {
				return buildReport(started, outcomes, completeness), err
			}
		}

		h.logger.Info("evaluating fixture",
			zap.Int("index", i+1),
			zap.Int("total", len(fixtures)),
			zap.String("lead", fixture.Lead.Name),
		)

		result, err := h.qualifier.Qualify(ctx, fixture.Lead)
		outcome := evaluate(fixture, result, err)
		outcomes = append(outcomes, outcome)
		completeness = append(completeness, qualifier.PromptCompleteness(fixture.Lead))

		if err != nil {
			h.logger.Warn("fixture errored",
				zap.String("lead", fixture.Lead.Name),
				zap.String("kind", string(outcome.ErrorKind)),
				zap.Error(err),
			)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return buildReport(started, outcomes, completeness), ctxErr
		}
	}

	report := buildReport(started, outcomes, completeness)

	h.logger.Info("evaluation completed",
		zap.Int("total", report.TotalTests),
		zap.Int("passed", report.PassedTests),
		zap.Int("failed", report.FailedTests),
		zap.Int("errors", report.ErrorTests),
		zap.Float64("pass_rate", report.PassRate),
	)

	return report, nil
}

func evaluate(f Fixture, result *ai.QualificationResult, err error) Outcome {
	out := Outcome{
		LeadID:                  f.Lead.Name,
		ExpectedVerdict:         f.ExpectedVerdict,
		ExpectedConfidenceRange: f.ExpectedConfidenceRange,
		SchemaErrors:            []string{},
	}

	if err == nil && result == nil {
		err = errors.New("qualifier returned no result")
	}

	if err != nil {
		out.Status = StatusError
		out.ErrorKind = classify(err)
		out.ActualVerdict = "error"
		out.ActualConfidence = 0
		out.Error = err.Error()
		out.SchemaErrors = []string{err.Error()}
		if out.ErrorKind == ErrorUnexpected {
			out.Reasoning = fmt.Sprintf("Unexpected error: %v", err)
		} else {
			out.Reasoning = fmt.Sprintf("Qualification error: %v", err)
		}
		return out
	}

	out.ActualVerdict = string(result.Verdict)
	out.ActualConfidence = result.Confidence
	out.Reasoning = result.Reasoning
	out.SchemaValid = true
	out.VerdictMatch = result.Verdict == f.ExpectedVerdict
	out.ConfidenceInRange = f.InRange(result.Confidence)

	if out.VerdictMatch && out.ConfidenceInRange {
		out.Status = StatusPassed
	} else {
		out.Status = StatusFailed
	}

	return out
}

func classify(err error) ErrorKind {
	var te *ai.TransportError
	var se *ai.SchemaError
	switch {
	case errors.As(err, &se):
		return ErrorSchema
	case errors.As(err, &te):
		return ErrorTransport
	default:
		return ErrorUnexpected
	}
}
