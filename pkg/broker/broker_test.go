package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *RedisBroker {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisBroker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	msgs, cancel, err := b.Subscribe(ctx, "timeline:public")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, b.Publish(ctx, "timeline:public", []byte(`{"event":"update"}`)))

	select {
	case got := <-msgs:
		require.Equal(t, `{"event":"update"}`, string(got))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestRedisBroker_SetEx(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	require.NoError(t, b.SetEx(ctx, "subscribed:timeline:public", "1", 1080*time.Second))
}

func TestRedisBroker_CancelStopsDelivery(t *testing.T) {
	b := newTestBroker(t)
	ctx := context.Background()

	msgs, cancel, err := b.Subscribe(ctx, "timeline:public")
	require.NoError(t, err)
	cancel()

	_, ok := <-msgs
	require.False(t, ok, "channel should be closed after cancel")
}
