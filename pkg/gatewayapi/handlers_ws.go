package gatewayapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/driftline/streamgate/pkg/apierror"
	"github.com/driftline/streamgate/pkg/auth"
	"github.com/driftline/streamgate/pkg/heartbeat"
	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/driftline/streamgate/pkg/stream"
	"github.com/driftline/streamgate/pkg/transport/ws"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocketHandler applies the same auth policy used for SSE at handshake
// time (verifyClient-equivalent), then upgrades and hands off to ws.Conn.
func (g *Gateway) websocketHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	streamName := q.Get("stream")
	if list := q.Get("list"); list != "" {
		streamName = "list"
	}

	token, _ := auth.ExtractToken(r)
	viewer, err := g.resolveViewer(r.Context(), token, streamName)
	if err != nil {
		var werr *apierror.WithCode
		if errors.As(err, &werr) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if g.log != nil {
			g.log.ComponentWarn(logging.ComponentTransport, "websocket upgrade failed", zap.Error(err))
		}
		return
	}

	sess := session.New(g.adapter, g.metrics)

	subscribe := func(ctx context.Context, streamName string, params ws.Params, out chan<- ws.OutboundFrame) (string, error) {
		res, err := g.streams.Resolve(ctx, viewer, streamName, stream.Params{Tag: params.Tag, ListID: params.List})
		if err != nil {
			return "", err
		}

		label := []string{streamName}
		if params.List != "" {
			label = []string{streamName, params.List}
		} else if params.Tag != "" {
			label = []string{streamName, params.Tag}
		}

		listener := func(raw []byte) {
			var evt struct {
				Event   string          `json:"event"`
				Payload json.RawMessage `json:"payload"`
			}
			if err := json.Unmarshal(raw, &evt); err != nil {
				return
			}
			allow, err := g.filter.Decide(ctx, toViewer(viewer), res.Options, evt.Event, evt.Payload)
			if err != nil || !allow {
				return
			}
			select {
			case out <- ws.OutboundFrame{Stream: label, Event: evt.Event, Payload: evt.Payload}:
			default:
			}
		}

		return sess.Subscribe(ctx, res.ChannelIDs, listener, func(chs []string) heartbeat.Stopper {
			return heartbeat.Start(ctx, g.bus, chs)
		})
	}

	conn := ws.NewConn(wsConn, sess, g.log, subscribe)

	initialParams := ws.Params{Tag: q.Get("tag"), List: q.Get("list")}
	conn.Serve(r.Context(), streamName, initialParams)
}
