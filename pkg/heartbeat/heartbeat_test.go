package heartbeat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingBroker struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	panic("not used")
}

func (r *recordingBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return nil
}

func (r *recordingBroker) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, key)
	return nil
}

func (r *recordingBroker) Close() error { return nil }

func (r *recordingBroker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestStart_WritesImmediatelyForEveryChannel(t *testing.T) {
	rb := &recordingBroker{}
	stop := Start(context.Background(), rb, []string{"timeline:public", "timeline:home:7"})
	defer stop()

	require.Equal(t, 2, rb.count())
	rb.mu.Lock()
	require.Contains(t, rb.calls, "subscribed:timeline:public")
	require.Contains(t, rb.calls, "subscribed:timeline:home:7")
	rb.mu.Unlock()
}

func TestStart_StopCancelsFutureWrites(t *testing.T) {
	rb := &recordingBroker{}
	stop := Start(context.Background(), rb, []string{"timeline:public"})
	initial := rb.count()
	stop()
	stop() // must be safe to call twice

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, initial, rb.count())
}
