package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/tve/cwop-relay/internal/adapter/cwop"
	"github.com/tve/cwop-relay/internal/domain"
	"github.com/tve/cwop-relay/internal/observability"
)

// Sender posts one payload to one CWOP server.
type Sender interface {
	Post(ctx context.Context, server string, payload []byte) (cwop.Response, error)
}

// Appender records a formatted log entry locally.
type Appender interface {
	Append(entry string) error
}

// Publisher receives an audit copy of each report. Optional.
type Publisher interface {
	Publish(ctx context.Context, msg domain.Message, loggedAt time.Time) error
}

// Poster formats matched feed lines as CWOP messages and delivers each one to
// the first server in the list that accepts it.
type Poster struct {
	station   domain.Station
	servers   []string
	sender    Sender
	log       Appender
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewPoster creates a Poster. servers is copied; its order is the failover
// order. publisher may be nil.
func NewPoster(station domain.Station, servers []string, sender Sender, log Appender, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Poster {
	return &Poster{
		station:   station,
		servers:   append([]string(nil), servers...),
		sender:    sender,
		log:       log,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Relay logs the report for line and tries each server in order until one
// answers HTTP 200. Failures are logged and never returned.
func (p *Poster) Relay(ctx context.Context, line string) domain.Outcome {
	msg := domain.NewMessage(p.station, line)
	now := domain.Now()

	if err := p.log.Append(msg.LogEntry(now)); err != nil {
		p.logger.Error("audit log append failed", "error", err)
		p.metrics.AuditLogErrors.Inc()
	}
	p.publish(ctx, msg, now)

	payload := msg.Payload()
	outcome := domain.Outcome{Status: domain.Exhausted}

	for i, server := range p.servers {
		attempt, accepted := p.try(ctx, i+1, server, payload)
		outcome.Attempts = append(outcome.Attempts, attempt)
		if accepted {
			outcome.Status = domain.Delivered
			outcome.Server = server
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if outcome.Status == domain.Delivered {
		p.metrics.RelayDelivered.Inc()
	} else {
		p.metrics.RelayExhausted.Inc()
		p.logger.Warn("report not accepted by any CWOP server", "servers", len(p.servers), "attempts", len(outcome.Attempts))
	}
	return outcome
}

func (p *Poster) try(ctx context.Context, n int, server string, payload []byte) (domain.Attempt, bool) {
	start := time.Now()
	resp, err := p.sender.Post(ctx, server, payload)
	attempt := domain.Attempt{Server: server, Err: err, Duration: time.Since(start)}
	p.metrics.RelayAttemptDuration.Observe(attempt.Duration.Seconds())

	if err != nil {
		p.logger.Warn("failed to post to CWOP", "server", server, "attempt", n, "error", err)
		p.metrics.RelayAttempts.WithLabelValues(server, "error").Inc()
		return attempt, false
	}

	attempt.StatusCode = resp.StatusCode
	p.logger.Info("response from CWOP", "server", server, "attempt", n, "status", resp.StatusCode, "message", resp.Message)

	if resp.StatusCode != 200 {
		p.metrics.RelayAttempts.WithLabelValues(server, "rejected").Inc()
		return attempt, false
	}

	if resp.Body != "" {
		p.logger.Info("CWOP accepted report", "server", server, "body", resp.Body)
	}
	p.metrics.RelayAttempts.WithLabelValues(server, "accepted").Inc()
	return attempt, true
}

func (p *Poster) publish(ctx context.Context, msg domain.Message, at time.Time) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, msg, at); err != nil {
		p.logger.Warn("audit publish failed", "error", err)
		p.metrics.AuditPublished.WithLabelValues("error").Inc()
		return
	}
	p.metrics.AuditPublished.WithLabelValues("ok").Inc()
}
