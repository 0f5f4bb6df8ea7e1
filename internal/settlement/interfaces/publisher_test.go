package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cng-console/internal/settlement/application"
)

type failingPublisher struct{ err error }

func (p failingPublisher) PublishPeriodCommitted(ctx context.Context, event application.PeriodCommitted) error {
	_ = ctx
	_ = event
	return p.err
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLoggingPublisher(log.New(&buf, "", 0))
	err := publisher.PublishPeriodCommitted(context.Background(), application.PeriodCommitted{
		Period:     "2024-02",
		StationIDs: []string{"st-1", "st-2"},
		Inserted:   2,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "period=2024-02 stations=2 inserted=2")
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	multi := MultiPublisher{NewLoggingPublisher(log.New(&buf, "", 0)), nil, failingPublisher{err: boom}}

	err := multi.PublishPeriodCommitted(context.Background(), application.PeriodCommitted{Period: "2024-02"})
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, buf.String())

	assert.NoError(t, MultiPublisher{}.PublishPeriodCommitted(context.Background(), application.PeriodCommitted{}))
}

func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	subject := "settlement.period.committed.test"
	sub, err := conn.SubscribeSync(subject)
	require.NoError(t, err)

	publisher := NewNATSPublisherWithConn(conn, subject)
	event := application.PeriodCommitted{Period: "2024-02", StationIDs: []string{"st-1"}, Inserted: 1, OccurredAt: time.Now().UTC()}
	require.NoError(t, publisher.PublishPeriodCommitted(context.Background(), event))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	var got application.PeriodCommitted
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, event.Period, got.Period)
	assert.Equal(t, event.StationIDs, got.StationIDs)
}
