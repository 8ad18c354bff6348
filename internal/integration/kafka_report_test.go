//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/hours2days/internal/adapter/kafka"
	"github.com/couchcryptid/hours2days/internal/domain"
	"github.com/google/go-cmp/cmp"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	kafkaImage      = "confluentinc/confluent-local:7.5.0"
	testReportTopic = "test-run-reports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("hours2days-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestReportWriter publishes a run report and reads it back from the topic.
func TestReportWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	finished := time.Date(2023, time.February, 19, 10, 5, 0, 0, time.UTC)
	report := &domain.RunReport{
		RunID:      "3b0c6a44-0e4b-4f7f-9c3a-6f0f8a1d2e11",
		StartedAt:  finished.Add(-3 * time.Minute),
		FinishedAt: finished,
		Year:       2023,
		DayOfYear:  50,
		Families: map[domain.ContentType]*domain.FamilyStats{
			domain.Observation: {Groups: 2, Complete: 1, InProgress: 1, Merged: 1, Uploaded: 1, RemoteDeleted: 24},
			domain.GPSNav:      {Groups: 1, Abandoned: 1, RemoteDeleted: 10},
			domain.GlonassNav:  {},
		},
		Unfinished: []domain.UnfinishedDay{
			{Key: domain.GroupKey{Station: "ABCD", DayOfYear: 49}, Type: domain.GPSNav, Parts: 10},
		},
		Failures: []domain.GroupFailure{},
		Disk:     &domain.DiskUsage{Path: "/var/lib/hours2days", Total: 100, Used: 42, UsedPercent: 42},
	}

	writer := kafka.NewReportWriter([]string{broker}, testReportTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.Publish(ctx, report))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testReportTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, report.RunID, string(msg.Key))
	assert.Equal(t, "hours2days.run_report", headers["event_type"])
	assert.Equal(t, "2023-02-19T10:05:00Z", headers["finished_at"])

	var got domain.RunReport
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	if diff := cmp.Diff(*report, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
