package sse

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/driftline/streamgate/pkg/pubsub"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/driftline/streamgate/pkg/visibility"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string]chan []byte)}
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []byte, 8)
	f.subs[channel] = ch
	return ch, func() {}, nil
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	ch, ok := f.subs[channel]
	f.mu.Unlock()
	if ok {
		ch <- payload
	}
	return nil
}

func (f *fakeBroker) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}

func (f *fakeBroker) Close() error { return nil }

type allowAllFilter struct{}

func (allowAllFilter) Decide(ctx context.Context, viewer visibility.Viewer, opts visibility.Options, event string, rawPayload []byte) (bool, error) {
	return true, nil
}

func TestServe_WritesPrimingCommentAndEvent(t *testing.T) {
	fb := newFakeBroker()
	adapter := pubsub.New(fb, nil, nil)
	sess := session.New(adapter, nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, rec, fb, sess, allowAllFilter{}, visibility.Viewer{Anonymous: true},
			[]string{"timeline:public"}, visibility.Options{NeedsFiltering: true}, nil)
	}()

	// give the subscribe goroutine a moment to register before publishing
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, fb.Publish(ctx, "timeline:public", []byte(`{"event":"update","payload":{"id":"1"}}`)))
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, ":)\n"))
	require.Contains(t, body, "event: update\n")
	require.Contains(t, body, `data: {"id":"1"}`)
	require.Equal(t, 0, sess.Len())
}

func TestDataBytes_StringPayloadPassedThroughUnquoted(t *testing.T) {
	require.Equal(t, []byte("123"), dataBytes([]byte(`"123"`)))
}

func TestDataBytes_ObjectPayloadSerializedAsIs(t *testing.T) {
	require.Equal(t, []byte(`{"id":"1"}`), dataBytes([]byte(`{"id":"1"}`)))
}

func TestServe_DeleteEventPassesStringPayloadThroughUnquoted(t *testing.T) {
	fb := newFakeBroker()
	adapter := pubsub.New(fb, nil, nil)
	sess := session.New(adapter, nil)
	rec := httptest.NewRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, rec, fb, sess, allowAllFilter{}, visibility.Viewer{Anonymous: true},
			[]string{"timeline:public"}, visibility.Options{NeedsFiltering: true}, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, fb.Publish(ctx, "timeline:public", []byte(`{"event":"delete","payload":"123"}`)))
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	body := rec.Body.String()
	require.Contains(t, body, "event: delete\n")
	require.Contains(t, body, "data: 123\n\n")
	require.NotContains(t, body, `data: "123"`)
}
