package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hours2days/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const eventType = "hours2days.run_report"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ReportWriter publishes run reports to a Kafka topic.
type ReportWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewReportWriter creates a Kafka producer for the report topic.
func NewReportWriter(brokers []string, topic string, logger *slog.Logger) *ReportWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &ReportWriter{writer: w, logger: logger}
}

// Publish serializes the report and writes it keyed by run ID.
func (w *ReportWriter) Publish(ctx context.Context, report *domain.RunReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run report: %w", err)
	}
	w.logger.Debug("run report published", "run_id", report.RunID)
	return nil
}

func (w *ReportWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RunReport into a Kafka message.
func serializeToMessage(report *domain.RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "finished_at", Value: []byte(report.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
