package storage_test

import (
	"context"
	"testing"
	"time"

	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (*storage.RoomBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return storage.NewRoomBus(rdb, zerolog.Nop()), mr
}

func TestRoomBus_PublishSubscribe(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeFn, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer closeFn()

	sent := models.RoomEvent{
		Event:       models.EventMessage,
		ComplaintID: "c-1",
		Message:     &models.Message{ID: "m-1", ComplaintID: "c-1", Author: "ann@example.com", Text: "hello"},
	}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Event, got.Event)
		assert.Equal(t, "c-1", got.ComplaintID)
		require.NotNil(t, got.Message)
		assert.Equal(t, "hello", got.Message.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("room event was not delivered")
	}
}

func TestRoomBus_PreservesPublishOrder(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, closeFn, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer closeFn()

	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		require.NoError(t, bus.Publish(ctx, models.RoomEvent{
			Event:       models.EventMessage,
			ComplaintID: "c-7",
			Message:     &models.Message{Text: text},
		}))
	}

	for _, want := range texts {
		select {
		case got := <-events:
			assert.Equal(t, want, got.Message.Text)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing event %q", want)
		}
	}
}

func TestRoomBus_ChannelClosesWithContext(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	events, closeFn, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer closeFn()

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}

func TestRoomBus_SubscribeFailsWhenRedisDown(t *testing.T) {
	bus, mr := newTestBus(t)
	mr.Close()

	_, _, err := bus.Subscribe(context.Background())
	assert.Error(t, err)
}
