// Package qualifier turns leads into prompts, calls a remote model with
// exponential backoff and validates the structured answers it returns.
package qualifier

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/lead-responder/internal/ai"
	"github.com/spigell/lead-responder/internal/leads"
	"github.com/spigell/lead-responder/internal/utils"
)

const (
	defaultMaxRetries   = 3
	defaultBackoffUnit  = time.Second
	defaultMaxLogLength = 200
)

// Client qualifies leads and drafts outreach through a Sender.
type Client struct {
	sender      ai.Sender
	logger      *zap.Logger
	maxRetries  int
	backoffUnit time.Duration
	maxLogLen   int
	wait        func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithMaxRetries sets the total number of attempts per call.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoffUnit sets the base of the 2^attempt backoff.
func WithBackoffUnit(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoffUnit = d
		}
	}
}

func WithMaxLogLength(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxLogLen = n
		}
	}
}

// WithWait replaces the backoff wait, mostly for tests.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if wait != nil {
			c.wait = wait
		}
	}
}

func New(sender ai.Sender, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		sender:      sender,
		logger:      logger,
		maxRetries:  defaultMaxRetries,
		backoffUnit: defaultBackoffUnit,
		maxLogLen:   defaultMaxLogLength,
		wait:        utils.WaitFor,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Model returns the identifier of the underlying model.
func (c *Client) Model() string {
	if c == nil || c.sender == nil {
		return ""
	}
	return c.sender.Model()
}

// Qualify asks the model for a verdict on the lead.
func (c *Client) Qualify(ctx context.Context, lead leads.Lead) (*ai.QualificationResult, error) {
	raw, err := c.call(ctx, "qualify", lead, buildQualificationPrompt(lead))
	if err != nil {
		return nil, err
	}

	result, err := parseQualification(raw)
	if err != nil {
		c.logger.Warn("qualification response rejected", zap.Int64("lead_id", lead.ID), zap.Error(err))
		return nil, err
	}

	c.logger.Info("lead qualified",
		zap.Int64("lead_id", lead.ID),
		zap.String("verdict", string(result.Verdict)),
		zap.Int("confidence", result.Confidence),
	)

	return result, nil
}

// GenerateOutreach drafts an outreach email, optionally steered by extra context.
func (c *Client) GenerateOutreach(ctx context.Context, lead leads.Lead, extra string) (*ai.OutreachResult, error) {
	raw, err := c.call(ctx, "outreach", lead, buildOutreachPrompt(lead, extra))
	if err != nil {
		return nil, err
	}

	result, err := parseOutreach(raw)
	if err != nil {
		c.logger.Warn("outreach response rejected", zap.Int64("lead_id", lead.ID), zap.Error(err))
		return nil, err
	}

	return result, nil
}

// call sends the prompt, retrying transport failures with exponential backoff.
func (c *Client) call(ctx context.Context, operation string, lead leads.Lead, prompt string) (string, error) {
	if c.sender == nil {
		return "", &ai.TransportError{Attempts: 0, Err: errors.New("model sender is not configured")}
	}

	c.logger.Debug("model request",
		zap.String("operation", operation),
		zap.Int64("lead_id", lead.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.Preview(prompt, c.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", &ai.TransportError{Attempts: attempt, Err: joinCause(err, lastErr)}
		}

		raw, err := c.sender.Send(ctx, prompt)
		if err == nil {
			c.logger.Debug("model response",
				zap.String("operation", operation),
				zap.Int64("lead_id", lead.ID),
				zap.Int("attempt", attempt+1),
				zap.Int("response_length", utf8.RuneCountInString(raw)),
				zap.String("response_preview", utils.Preview(raw, c.maxLogLen)),
			)
			return raw, nil
		}

		lastErr = err
		if attempt == c.maxRetries-1 {
			break
		}

		delay := utils.Backoff(c.backoffUnit, attempt)
		c.logger.Warn("model call failed, retrying",
			zap.String("operation", operation),
			zap.Int64("lead_id", lead.ID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		if err := c.wait(ctx, delay); err != nil {
			return "", &ai.TransportError{Attempts: attempt + 1, Err: joinCause(err, lastErr)}
		}
	}

	c.logger.Error("model call failed",
		zap.String("operation", operation),
		zap.Int64("lead_id", lead.ID),
		zap.Int("attempts", c.maxRetries),
		zap.Error(lastErr),
	)

	return "", &ai.TransportError{Attempts: c.maxRetries, Err: lastErr}
}

func joinCause(ctxErr, last error) error {
	if last == nil {
		return ctxErr
	}
	return fmt.Errorf("%w (last error: %w)", ctxErr, last)
}
