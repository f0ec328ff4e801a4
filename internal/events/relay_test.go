package events

import (
	"context"
	"errors"
	"testing"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type capturingPublisher struct {
	published []models.OutboxEvent
	failAfter int // fail once this many events have been accepted; 0 disables
}

func (p *capturingPublisher) Publish(_ context.Context, event models.OutboxEvent) error {
	if p.failAfter > 0 && len(p.published) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func newTestRelay(t *testing.T, pub Publisher) (*Relay, repositories.OutboxRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.Migrate(db))

	outbox := repositories.NewOutboxRepository(db)
	return NewRelay(outbox, pub, zap.NewNop().Sugar()), outbox
}

func appendEvent(t *testing.T, outbox repositories.OutboxRepository, aggregateID string) {
	t.Helper()
	require.NoError(t, outbox.Append(&models.OutboxEvent{
		AggregateType: "transaction",
		AggregateID:   aggregateID,
		EventType:     models.EventTransactionCompleted,
		Payload:       models.JSON{"reference": aggregateID},
	}))
}

func TestDrain_PublishesInOrder(t *testing.T) {
	pub := &capturingPublisher{}
	relay, outbox := newTestRelay(t, pub)

	appendEvent(t, outbox, "TXN-1")
	appendEvent(t, outbox, "TXN-2")
	appendEvent(t, outbox, "TXN-3")

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.published, 3)
	assert.Equal(t, "TXN-1", pub.published[0].AggregateID)
	assert.Equal(t, "TXN-3", pub.published[2].AggregateID)

	// Everything is marked; a second drain is a no-op.
	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	remaining, err := outbox.FetchUnprocessed(10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDrain_FailureStopsBatchAndRetries(t *testing.T) {
	pub := &capturingPublisher{failAfter: 1}
	relay, outbox := newTestRelay(t, pub)

	appendEvent(t, outbox, "TXN-1")
	appendEvent(t, outbox, "TXN-2")
	appendEvent(t, outbox, "TXN-3")

	n, err := relay.Drain(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	// Only the published prefix is marked processed.
	remaining, err := outbox.FetchUnprocessed(10)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "TXN-2", remaining[0].AggregateID)

	// The broker recovers and the rest goes out in order.
	pub.failAfter = 0
	n, err = relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.published, 3)
	assert.Equal(t, "TXN-2", pub.published[1].AggregateID)
}

func TestDrain_EmptyOutbox(t *testing.T) {
	pub := &capturingPublisher{}
	relay, _ := newTestRelay(t, pub)

	n, err := relay.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, pub.published)
}
