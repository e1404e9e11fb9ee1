package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/driftline/streamgate/pkg/heartbeat"
	"github.com/driftline/streamgate/pkg/pubsub"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/gorilla/websocket"
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
func (f *fakeBroker) Publish(ctx context.Context, channel string, payload []byte) error { return nil }
func (f *fakeBroker) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (f *fakeBroker) Close() error { return nil }

var upgrader = websocket.Upgrader{}

func TestConn_InitialSubscribeAndSubsequentControlFrame(t *testing.T) {
	fb := newFakeBroker()
	adapter := pubsub.New(fb, nil, nil)

	var subscribeCalls []string
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		sess := session.New(adapter, nil)
		subscribe := func(ctx context.Context, streamName string, params Params, out chan<- OutboundFrame) (string, error) {
			mu.Lock()
			subscribeCalls = append(subscribeCalls, streamName)
			mu.Unlock()
			return sess.Subscribe(ctx, []string{"timeline:" + streamName}, func([]byte) {}, func(chs []string) heartbeat.Stopper {
				return func() {}
			})
		}

		conn := NewConn(wsConn, sess, nil, subscribe)
		conn.Serve(r.Context(), "public", Params{})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "subscribe", "stream": "user"}))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, subscribeCalls, "public")
	require.Contains(t, subscribeCalls, "user")
}
