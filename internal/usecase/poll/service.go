package poll

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the pause between watch cycles.
const DefaultInterval = 60 * time.Second

// Loop repeats a full check-and-render cycle on a fixed interval.
type Loop struct {
	checker  Checker
	renderer Renderer
	out      io.Writer
	interval time.Duration
	logger   *zap.Logger
}

// New creates a watch loop writing to out.
func New(checker Checker, renderer Renderer, out io.Writer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		checker:  checker,
		renderer: renderer,
		out:      out,
		interval: DefaultInterval,
		logger:   logger,
	}
}

// WithInterval sets the cycle interval. Non-positive values are ignored.
func (l *Loop) WithInterval(d time.Duration) *Loop {
	if d > 0 {
		l.interval = d
	}
	return l
}

// Interval returns the configured interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Run executes the first cycle immediately, then one per tick, until ctx is done.
// A cycle interrupted by cancellation is not rendered.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	if err := l.Once(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Once(ctx); err != nil {
				return err
			}
		}
	}
}

// Once runs a single cycle. Only write failures are returned.
func (l *Loop) Once(ctx context.Context) error {
	results := l.checker.CheckAll(ctx)
	if ctx.Err() != nil {
		l.logger.Debug("Cycle interrupted, skipping render")
		return nil
	}
	if err := l.renderer.Render(l.out, results); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
