package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/tve/cwop-relay/internal/config"
	"github.com/tve/cwop-relay/internal/domain"
)

// Writer publishes a copy of every relayed report to a Kafka topic.
// It implements relay.Publisher.
type Writer struct {
	writer  *kafkago.Writer
	station string
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured audit topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAuditTopic,
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &Writer{writer: w, station: cfg.Callsign, logger: logger}
}

// Publish writes the report, without its CRLF, keyed by station callsign.
func (w *Writer) Publish(ctx context.Context, msg domain.Message, loggedAt time.Time) error {
	if err := w.writer.WriteMessages(ctx, serializeToMessage(w.station, msg, loggedAt)); err != nil {
		return fmt.Errorf("publish audit report: %w", err)
	}
	w.logger.Debug("audit report published", "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage maps a CWOP report onto a Kafka message.
func serializeToMessage(station string, msg domain.Message, loggedAt time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(station),
		Value: []byte(strings.TrimRight(msg.Report, "\r\n")),
		Time:  loggedAt,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(station)},
			{Key: "logged_at", Value: []byte(loggedAt.Format(time.RFC3339))},
		},
	}
}
