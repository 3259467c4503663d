package extract

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// CallerConfig controls retry behavior for reasoning-service calls.
type CallerConfig struct {
	// MaxAttempts bounds the rate-limit retry loop.
	MaxAttempts int
	// BackoffBaseSec feeds the wait formula base^attempt + base seconds.
	BackoffBaseSec int
}

// Caller serializes calls to the reasoning service. The service enforces
// an aggregate token-rate budget shared across all callers, so exactly
// one request may be in flight at a time; everything else queues behind
// the gate.
type Caller struct {
	model  llms.Model
	gate   chan struct{}
	cfg    CallerConfig
	logger *zap.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCaller wraps a model with the single-flight gate and bounded
// rate-limit backoff.
func NewCaller(model llms.Model, cfg CallerConfig, logger *zap.Logger) *Caller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBaseSec <= 0 {
		cfg.BackoffBaseSec = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Caller{
		model:  model,
		gate:   make(chan struct{}, 1),
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Generate sends one system+user exchange and returns the raw text of
// the first choice. On a rate-limit signal it backs off and retries up
// to MaxAttempts before propagating; any other error propagates
// immediately.
func (c *Caller) Generate(ctx context.Context, system, user string) (string, error) {
	select {
	case c.gate <- struct{}{}:
	case <-ctx.Done():
		return "", fmt.Errorf("reasoning call slot wait canceled: %w", ctx.Err())
	}
	defer func() { <-c.gate }()

	content := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(system)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(user)}},
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		response, err := c.model.GenerateContent(ctx, content, llms.WithTemperature(0))
		if err == nil {
			if len(response.Choices) == 0 {
				return "", nil
			}
			return response.Choices[0].Content, nil
		}
		lastErr = err
		if !isRateLimited(err) || attempt == c.cfg.MaxAttempts-1 {
			break
		}
		wait := c.backoff(attempt)
		c.logger.Warn("reasoning service rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("reasoning call: %w", lastErr)
}

// backoff returns base^attempt + base seconds, matching the service's
// token-budget refill cadence.
func (c *Caller) backoff(attempt int) time.Duration {
	base := float64(c.cfg.BackoffBaseSec)
	return time.Duration(math.Pow(base, float64(attempt))+base) * time.Second
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
