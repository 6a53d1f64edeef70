package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/ai/gemini"
	"github.com/spigell/lead-responder/internal/ai/qualifier"
	"github.com/spigell/lead-responder/internal/ai/xai"
	"github.com/spigell/lead-responder/internal/evaluation"
	"github.com/spigell/lead-responder/internal/logger"
	"github.com/spigell/lead-responder/internal/secrets"
	"github.com/spigell/lead-responder/internal/store"
	"github.com/spigell/lead-responder/internal/workflow"
)

const (
	providerXAI    = "xai"
	providerGemini = "gemini"
	providerNone   = "none"
)

var errNoProvider = errors.New("ai provider is disabled")

// env holds everything a command needs. Close must be called when done.
type env struct {
	cfg    *Config
	logger *zap.Logger
	store  *store.Store
	svc    *workflow.Service
}

// setup builds the logger, opens the store and wires the workflow. When
// requireAI is set a missing provider credential is an error, otherwise the
// service runs without AI and AI operations report ErrAIUnavailable.
func setup(ctx context.Context, requireAI bool) (*env, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	log.Debug("starting",
		zap.String(logger.FieldVersion, version),
		zap.String(logger.FieldDatabase, config.Database.Path),
		zap.String(logger.FieldProvider, config.AI.Provider),
	)

	st, err := store.Open(ctx, config.Database.Path, log.Named("store"))
	if err != nil {
		return nil, err
	}

	opts := []workflow.Option{
		workflow.WithHarnessOptions(evaluation.WithDelay(config.Evaluation.Delay)),
	}

	if path := strings.TrimSpace(config.Evaluation.FixturesFile); path != "" {
		fixtures, err := evaluation.LoadFixtures(path)
		if err != nil {
			st.Close()
			return nil, err
		}
		opts = append(opts, workflow.WithFixtures(fixtures))
	}

	sender, err := newSender(ctx, config.AI)
	switch {
	case err == nil:
		qlog := logger.ForComponent(log, "qualifier", config.AI.Provider, sender.Model())
		q := qualifier.New(sender, qlog,
			qualifier.WithMaxRetries(config.AI.MaxRetries),
			qualifier.WithBackoffUnit(config.AI.Backoff),
			qualifier.WithMaxLogLength(config.AI.MaxLogLength),
		)
		opts = append(opts, workflow.WithQualifier(q))
	case requireAI:
		st.Close()
		return nil, err
	default:
		log.Warn("running without an ai provider", zap.Error(err))
	}

	return &env{
		cfg:    config,
		logger: log,
		store:  st,
		svc:    workflow.New(st, log.Named("workflow"), opts...),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// newSender builds the model transport for the configured provider.
func newSender(ctx context.Context, cfg AIConfig) (ai.Sender, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	var envKeys []string
	switch provider {
	case providerXAI:
		envKeys = []string{"XAI_API_KEY", "GROK_API_KEY"}
	case providerGemini:
		envKeys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case providerNone, "":
		return nil, errNoProvider
	default:
		return nil, fmt.Errorf("unknown ai provider %q (expected %s, %s or %s)", cfg.Provider, providerXAI, providerGemini, providerNone)
	}

	key, err := secrets.Load(secrets.Source{
		Name:  provider + " api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   envKeys,
	})
	if err != nil {
		return nil, err
	}

	if provider == providerGemini {
		g, err := gemini.NewGenerator(ctx, key, cfg.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	c, err := xai.New(key, cfg.BaseURL, cfg.Model)
	if err != nil {
		return nil, err
	}
	return c, nil
}
