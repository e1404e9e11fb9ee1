// Package ws implements the WebSocket Transport Adapter: a JSON-framed
// stream with an inbound control protocol for subscribing/unsubscribing
// additional streams mid-connection, and an auto-ping keepalive.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const pingInterval = 30 * time.Second

// Params is the set of stream parameters a control frame may carry.
type Params struct {
	Tag  string
	List string
}

// OutboundFrame is the shape written to the client for a delivered event,
// per the default WS frame format: {stream, event, payload}.
type OutboundFrame struct {
	Stream  []string        `json:"stream"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// controlFrame is the shape of an inbound subscribe/unsubscribe message.
type controlFrame struct {
	Type   string `json:"type"`
	Stream string `json:"stream"`
	Tag    string `json:"tag"`
	List   string `json:"list"`
}

// Subscriber resolves streamName/params against the Stream Resolver,
// attaches the resulting channels through the Session Manager, and wires
// delivery back through out. It returns the session's channel-set key,
// used to find the matching entry again on a later unsubscribe frame.
type Subscriber func(ctx context.Context, streamName string, params Params, out chan<- OutboundFrame) (key string, err error)

// Conn drives one WebSocket connection to completion. It knows nothing
// about auth or stream resolution: callers provide a Subscriber closure
// that already has the viewer context and Session Manager bound.
type Conn struct {
	wsConn *websocket.Conn
	sess   *session.Session
	log    *logging.Logger

	subscribe Subscriber

	mu   sync.Mutex
	keys map[string]string // "streamName\x1ftag\x1flist" -> session key
}

// NewConn wraps an already-upgraded *websocket.Conn.
func NewConn(wsConn *websocket.Conn, sess *session.Session, log *logging.Logger, subscribe Subscriber) *Conn {
	return &Conn{wsConn: wsConn, sess: sess, log: log, subscribe: subscribe, keys: make(map[string]string)}
}

// Serve runs the read and write pumps until either side closes or
// errors, then tears down every subscription the session holds.
// initialStream, when non-empty, is resolved as though it arrived as the
// first control frame — the stream inferred from the handshake URL's
// ?stream=&tag=&list= parameters.
func (c *Conn) Serve(ctx context.Context, initialStream string, initialParams Params) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan OutboundFrame, 64)

	if initialStream != "" {
		if err := c.doSubscribe(ctx, initialStream, initialParams, out); err != nil && c.log != nil {
			c.log.ComponentWarn(logging.ComponentTransport, "initial subscribe rejected", zap.String("stream", initialStream), zap.Error(err))
		}
	}

	go func() {
		defer cancel()
		c.readPump(ctx, out)
	}()
	go func() {
		defer cancel()
		c.writePump(ctx, out)
	}()

	<-ctx.Done()
	c.wsConn.Close()
	c.sess.Close()
}

func (c *Conn) readPump(ctx context.Context, out chan<- OutboundFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var frame controlFrame
		if err := c.wsConn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				if c.log != nil {
					c.log.ComponentWarn(logging.ComponentTransport, "websocket read error", zap.Error(err))
				}
			}
			return
		}

		params := Params{Tag: frame.Tag, List: frame.List}

		switch frame.Type {
		case "subscribe":
			if err := c.doSubscribe(ctx, frame.Stream, params, out); err != nil && c.log != nil {
				c.log.ComponentWarn(logging.ComponentTransport, "subscribe rejected", zap.String("stream", frame.Stream), zap.Error(err))
			}
		case "unsubscribe":
			c.doUnsubscribe(frame.Stream, params)
		default:
			// unknown control type: silently ignored
		}
	}
}

func (c *Conn) writePump(ctx context.Context, out <-chan OutboundFrame) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-out:
			if err := c.wsConn.WriteJSON(frame); err != nil {
				return
			}
			ticker.Reset(pingInterval)
		case <-ticker.C:
			if err := c.wsConn.WriteControl(websocket.PingMessage, nil, time.Time{}); err != nil {
				return
			}
		}
	}
}

func (c *Conn) doSubscribe(ctx context.Context, streamName string, params Params, out chan<- OutboundFrame) error {
	key, err := c.subscribe(ctx, streamName, params, out)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.keys[controlKey(streamName, params)] = key
	c.mu.Unlock()
	return nil
}

func (c *Conn) doUnsubscribe(streamName string, params Params) {
	ck := controlKey(streamName, params)
	c.mu.Lock()
	key, ok := c.keys[ck]
	if ok {
		delete(c.keys, ck)
	}
	c.mu.Unlock()
	if ok {
		c.sess.Unsubscribe(key)
	}
}

func controlKey(streamName string, params Params) string {
	return streamName + "\x1f" + params.Tag + "\x1f" + params.List
}
