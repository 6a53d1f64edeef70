// Package workflow ties scoring, qualification and evaluation to persistence.
// Every state change happens in a single transaction together with the
// activity entries that describe it.
package workflow

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/evaluation"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/scoring"
	"github.com/spigell/lead-responder/internal/store"
)

// ErrAIUnavailable is returned by AI-backed operations when no provider is configured.
var ErrAIUnavailable = errors.New("ai provider is not configured")

// LeadQualifier is the model-facing side of the service.
type LeadQualifier interface {
	Qualify(ctx context.Context, lead leads.Lead) (*ai.QualificationResult, error)
	GenerateOutreach(ctx context.Context, lead leads.Lead, extra string) (*ai.OutreachResult, error)
	Model() string
}

// Evaluator runs a fixture set and reports on it.
type Evaluator interface {
	Run(ctx context.Context, fixtures []evaluation.Fixture) (*evaluation.Report, error)
}

type Service struct {
	store     *store.Store
	qualifier LeadQualifier
	evaluator Evaluator
	fixtures  []evaluation.Fixture
	logger    *zap.Logger

	harnessOpts []evaluation.Option
}

type Option func(*Service)

// WithQualifier enables qualification and outreach. Unless WithEvaluator is
// also given, evaluations run through a harness built on the same qualifier.
func WithQualifier(q LeadQualifier) Option {
	return func(s *Service) {
		s.qualifier = q
	}
}

func WithEvaluator(e Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

// WithFixtures replaces the built-in evaluation fixtures.
func WithFixtures(fixtures []evaluation.Fixture) Option {
	return func(s *Service) {
		if len(fixtures) > 0 {
			s.fixtures = fixtures
		}
	}
}

// WithHarnessOptions configures the harness built around the qualifier.
func WithHarnessOptions(opts ...evaluation.Option) Option {
	return func(s *Service) {
		s.harnessOpts = append(s.harnessOpts, opts...)
	}
}

func New(st *store.Store, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:    st,
		fixtures: evaluation.DefaultFixtures(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.evaluator == nil && s.qualifier != nil {
		s.evaluator = evaluation.New(s.qualifier, logger, s.harnessOpts...)
	}

	return s
}

// Model names the configured AI model, or an empty string.
func (s *Service) Model() string {
	if s.qualifier == nil {
		return ""
	}
	return s.qualifier.Model()
}

// weights resolves the active scoring weights. It must not be called inside a
// transaction: the store serves one connection at a time.
func (s *Service) weights(ctx context.Context) (scoring.Weights, error) {
	cfg, err := s.store.ActiveScoringConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return scoring.DefaultWeights(), nil
	}
	if err != nil {
		return scoring.Weights{}, err
	}

	w, err := scoring.WeightsFromFloats(cfg.Weights)
	if err != nil {
		s.logger.Warn("stored scoring config is invalid, using defaults",
			zap.String("config", cfg.Name),
			zap.Error(err),
		)
		return scoring.DefaultWeights(), nil
	}
	return w, nil
}

// ScoringConfig returns the active configuration, synthesizing the defaults
// when none has been saved yet.
func (s *Service) ScoringConfig(ctx context.Context) (leads.ScoringConfig, error) {
	cfg, err := s.store.ActiveScoringConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return leads.ScoringConfig{
			Name:        DefaultConfigName,
			Description: "Built-in weights",
			Weights:     scoring.DefaultWeights().Map(),
			IsActive:    true,
		}, nil
	}
	return cfg, err
}

// DefaultConfigName is used when a scoring config is saved without a name.
const DefaultConfigName = "default"

// UpdateScoringConfig validates the raw weights and stores them, normalized,
// as the active configuration.
func (s *Service) UpdateScoringConfig(ctx context.Context, name, description string, raw map[string]any) (leads.ScoringConfig, error) {
	w, err := scoring.WeightsFromMap(raw)
	if err != nil {
		return leads.ScoringConfig{}, err
	}
	if name == "" {
		name = DefaultConfigName
	}

	cfg := leads.ScoringConfig{
		Name:        name,
		Description: description,
		Weights:     w.Map(),
		IsActive:    true,
	}
	err = s.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.SaveScoringConfig(ctx, &cfg)
	})
	if err != nil {
		return leads.ScoringConfig{}, err
	}

	s.logger.Info("scoring config updated", zap.String("config", name), zap.Any("weights", cfg.Weights))
	return cfg, nil
}
