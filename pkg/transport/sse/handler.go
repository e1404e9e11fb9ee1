// Package sse implements the SSE Transport Adapter: an HTTP long-response
// that frames delivered events as event:/data: lines and keeps
// intermediaries from closing the connection with a periodic comment.
package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/driftline/streamgate/pkg/broker"
	"github.com/driftline/streamgate/pkg/heartbeat"
	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/driftline/streamgate/pkg/visibility"
	"go.uber.org/zap"
)

const transportHeartbeatInterval = 15 * time.Second

// writeFlusher is the http.ResponseWriter capability this handler needs.
type writeFlusher interface {
	http.ResponseWriter
	http.Flusher
}

// Decider is the visibility.Filter capability the handler needs.
type Decider interface {
	Decide(ctx context.Context, viewer visibility.Viewer, opts visibility.Options, event string, rawPayload []byte) (bool, error)
}

// Event is the decoded shape of an upstream message, used only to read
// the "event" discriminator before re-framing the raw payload.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Serve drives one SSE connection to completion: it subscribes channels
// through sess, filters every delivered message through filter, writes
// SSE frames, and unsubscribes everything on client disconnect.
//
// channels/opts come from the Stream Resolver; viewer from the Auth
// Resolver. The call blocks until the client disconnects or ctx is done.
func Serve(
	ctx context.Context,
	w http.ResponseWriter,
	bus broker.Broker,
	sess *session.Session,
	filter Decider,
	viewer visibility.Viewer,
	channels []string,
	opts visibility.Options,
	log *logging.Logger,
) error {
	wf, ok := w.(writeFlusher)
	if !ok {
		return errNotFlusher
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.WriteHeader(http.StatusOK)

	writeComment(wf, ":)")

	out := make(chan Event, 32)

	listener := func(raw []byte) {
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			if log != nil {
				log.ComponentError(logging.ComponentTransport, "malformed upstream message, dropping", zap.Error(err))
			}
			return
		}

		allow, err := filter.Decide(ctx, viewer, opts, evt.Event, evt.Payload)
		if err != nil || !allow {
			return
		}

		select {
		case out <- evt:
		default:
			if log != nil {
				log.ComponentWarn(logging.ComponentTransport, "dropping message, client outbound queue full")
			}
		}
	}

	_, err := sess.Subscribe(ctx, channels, listener, func(chs []string) heartbeat.Stopper {
		return heartbeat.Start(ctx, bus, chs)
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	ticker := time.NewTicker(transportHeartbeatInterval)
	defer ticker.Stop()

	notify, hasNotify := w.(http.CloseNotifier) //nolint:staticcheck // fallback path; ctx.Done() covers normal shutdown
	var clientGone <-chan bool
	if hasNotify {
		clientGone = notify.CloseNotify()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-clientGone:
			return nil
		case <-ticker.C:
			writeComment(wf, ":thump")
		case evt := <-out:
			writeEvent(wf, evt.Event, evt.Payload)
		}
	}
}

func writeComment(wf writeFlusher, text string) {
	wf.Write([]byte(text + "\n"))
	wf.Flush()
}

// writeEvent frames payload per the object|string split the gateway's
// payloads use: objects (e.g. a status or notification) are serialized
// as-is, but a string payload (e.g. a delete event's bare status id) is
// passed through unquoted rather than written as a quoted JSON string.
func writeEvent(wf writeFlusher, event string, payload json.RawMessage) {
	wf.Write([]byte("event: " + event + "\n"))
	wf.Write([]byte("data: "))
	wf.Write(dataBytes(payload))
	wf.Write([]byte("\n\n"))
	wf.Flush()
}

func dataBytes(payload json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(payload, &s); err == nil {
		return []byte(s)
	}
	return payload
}

var errNotFlusher = &staticErr{"response writer does not support flushing"}

type staticErr struct{ msg string }

func (e *staticErr) Error() string { return e.msg }
