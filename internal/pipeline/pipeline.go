package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/tve/cwop-relay/internal/domain"
	"github.com/tve/cwop-relay/internal/observability"
)

// Extractor yields cleaned feed lines. It returns io.EOF when the feed ends.
type Extractor interface {
	Extract(ctx context.Context) (string, error)
}

// Relayer delivers one matched feed line.
type Relayer interface {
	Relay(ctx context.Context, line string) domain.Outcome
}

// Pipeline orchestrates the read-filter-relay loop.
type Pipeline struct {
	extractor Extractor
	relayer   Relayer
	console   io.Writer
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline. Every feed line is echoed to console.
func New(e Extractor, r Relayer, console io.Writer, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		relayer:   r,
		console:   console,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil while the feed is being read.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("feed is not connected")
	}
	return nil
}

// Run reads the feed until it closes or ctx is cancelled. Each matching line
// is relayed before the next line is read. Feed closure is a normal return;
// there is no reconnect.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.ready.Store(true)
	p.metrics.FeedConnected.Set(1)
	defer func() {
		p.ready.Store(false)
		p.metrics.FeedConnected.Set(0)
	}()

	for {
		line, err := p.extractor.Extract(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("feed closed")
				return nil
			}
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			return fmt.Errorf("extract: %w", err)
		}

		p.handle(ctx, line)
	}
}

func (p *Pipeline) handle(ctx context.Context, line string) {
	p.metrics.FeedLines.Inc()
	fmt.Fprintln(p.console, line) //nolint:errcheck // console echo is best effort

	if !domain.IsWeatherReport(line) {
		return
	}
	p.metrics.FeedMatched.Inc()

	out := p.relayer.Relay(ctx, line)
	p.logger.Debug("relay finished", "status", out.Status, "server", out.Server, "attempts", len(out.Attempts))
}
