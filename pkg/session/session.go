// Package session implements the Session Manager: per connection, it
// owns the set of active channel-set subscriptions and guarantees they
// are all released on close.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/driftline/streamgate/pkg/heartbeat"
	"github.com/driftline/streamgate/pkg/metrics"
	"github.com/driftline/streamgate/pkg/pubsub"
)

// entry is what a session remembers about one subscribed channel-set:
// which listener id it registered on each channel, and the stopper for
// its heartbeat.
type entry struct {
	channels      []string
	listenerIDs   map[string]pubsub.ListenerID
	stopHeartbeat heartbeat.Stopper
}

// Session owns every upstream subscription opened on behalf of one
// client connection (one SSE request or one WebSocket connection).
type Session struct {
	adapter *pubsub.Adapter
	metrics *metrics.Registry

	mu     sync.Mutex
	subs   map[string]*entry
	closed bool
}

// New constructs an empty Session over adapter and counts it in
// SessionsActive. reg may be nil.
func New(adapter *pubsub.Adapter, reg *metrics.Registry) *Session {
	if reg != nil {
		reg.SessionsActive.Inc()
	}
	return &Session{adapter: adapter, metrics: reg, subs: make(map[string]*entry)}
}

// Key computes the stable channel-set key the Session Manager uses to
// deduplicate subscribe calls: the sorted channel ids joined with the
// ASCII unit separator (0x1f).
func Key(channels []string) string {
	sorted := append([]string(nil), channels...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}

// Subscribe registers fn against every channel in channels, idempotently:
// a second Subscribe call with an identical channel set is a no-op and
// returns the existing key. startHeartbeat is called with the resolved
// channel set once, only on the first subscribe for this key.
func (s *Session) Subscribe(ctx context.Context, channels []string, fn pubsub.Listener, startHeartbeat func(channels []string) heartbeat.Stopper) (string, error) {
	key := Key(channels)

	s.mu.Lock()
	if _, exists := s.subs[key]; exists {
		s.mu.Unlock()
		return key, nil
	}
	s.mu.Unlock()

	ids := make(map[string]pubsub.ListenerID, len(channels))
	for _, ch := range channels {
		id, err := s.adapter.Subscribe(ctx, ch, fn)
		if err != nil {
			for doneCh, doneID := range ids {
				s.adapter.Unsubscribe(doneCh, doneID)
			}
			return "", err
		}
		ids[ch] = id
	}

	stop := startHeartbeat(channels)

	s.mu.Lock()
	s.subs[key] = &entry{channels: channels, listenerIDs: ids, stopHeartbeat: stop}
	s.mu.Unlock()

	return key, nil
}

// Unsubscribe tears down the channel-set identified by key: every
// channel is released from the Upstream Bus Adapter and the heartbeat is
// stopped. A key not present is a no-op.
func (s *Session) Unsubscribe(key string) {
	s.mu.Lock()
	e, ok := s.subs[key]
	if ok {
		delete(s.subs, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.teardown(e)
}

// Close releases every subscription this session holds. Safe to call
// multiple times.
func (s *Session) Close() {
	s.mu.Lock()
	all := s.subs
	s.subs = make(map[string]*entry)
	wasClosed := s.closed
	s.closed = true
	s.mu.Unlock()

	for _, e := range all {
		s.teardown(e)
	}

	if !wasClosed && s.metrics != nil {
		s.metrics.SessionsActive.Dec()
	}
}

func (s *Session) teardown(e *entry) {
	for ch, id := range e.listenerIDs {
		s.adapter.Unsubscribe(ch, id)
	}
	if e.stopHeartbeat != nil {
		e.stopHeartbeat()
	}
}

// Len reports how many distinct channel-sets this session holds. Used by
// tests.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
