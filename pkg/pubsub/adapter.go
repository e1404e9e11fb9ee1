// Package pubsub is the Upstream Bus Adapter: it turns many local
// listeners into one physical upstream subscription per channel, keeping
// a (channel -> set of listeners) table keyed by ListenerID so the first
// subscriber opens the upstream subscription and the last one closes it.
package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftline/streamgate/pkg/broker"
	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/metrics"
	"go.uber.org/zap"
)

type channelState struct {
	listeners map[ListenerID]Listener
	cancel    func()
}

// Adapter is the single point of contact with the upstream broker. The
// first Subscribe for a channel triggers a physical subscription; the
// last matching Unsubscribe tears it down. Callers never see the
// underlying broker directly.
type Adapter struct {
	broker  broker.Broker
	log     *logging.Logger
	metrics *metrics.Registry

	mu       sync.Mutex
	channels map[string]*channelState
}

// New builds an Adapter over b. reg may be nil.
func New(b broker.Broker, log *logging.Logger, reg *metrics.Registry) *Adapter {
	return &Adapter{
		broker:   b,
		log:      log,
		metrics:  reg,
		channels: make(map[string]*channelState),
	}
}

// Subscribe registers fn against channel, opening the physical upstream
// subscription if this is the first listener for it. The returned
// ListenerID must be passed to Unsubscribe to remove this specific
// listener; it survives other listeners coming and going on the same
// channel.
func (a *Adapter) Subscribe(ctx context.Context, channel string, fn Listener) (ListenerID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cs, ok := a.channels[channel]
	if !ok {
		msgs, cancel, err := a.broker.Subscribe(ctx, channel)
		if err != nil {
			return ListenerID{}, fmt.Errorf("pubsub: subscribe %q: %w", channel, err)
		}

		cs = &channelState{listeners: make(map[ListenerID]Listener)}
		cs.cancel = cancel
		a.channels[channel] = cs

		if a.metrics != nil {
			a.metrics.ChannelsSubscribed.Inc()
			a.metrics.UpstreamSubscribes.Inc()
		}
		if a.log != nil {
			a.log.ComponentInfo(logging.ComponentPubSub, "opened upstream subscription", zap.String("channel", channel))
		}

		go a.pump(channel, msgs)
	}

	id := newListenerID()
	cs.listeners[id] = fn
	return id, nil
}

// Unsubscribe removes the listener identified by id from channel. Once the
// last listener on a channel is removed, the physical upstream
// subscription is torn down.
func (a *Adapter) Unsubscribe(channel string, id ListenerID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cs, ok := a.channels[channel]
	if !ok {
		return
	}
	delete(cs.listeners, id)
	if len(cs.listeners) == 0 {
		cs.cancel()
		delete(a.channels, channel)
		if a.metrics != nil {
			a.metrics.ChannelsSubscribed.Dec()
		}
		if a.log != nil {
			a.log.ComponentInfo(logging.ComponentPubSub, "closed upstream subscription", zap.String("channel", channel))
		}
	}
}

// pump forwards messages from the broker to the current listener set.
// It takes a fresh snapshot of the listener map for every message so an
// Unsubscribe that runs concurrently with dispatch never panics on a
// stale closure and never skips a listener that was present when the
// message arrived.
func (a *Adapter) pump(channel string, msgs <-chan []byte) {
	for payload := range msgs {
		a.dispatch(channel, payload)
	}
}

func (a *Adapter) dispatch(channel string, payload []byte) {
	a.mu.Lock()
	cs, ok := a.channels[channel]
	var snapshot []Listener
	if ok {
		snapshot = make([]Listener, 0, len(cs.listeners))
		for _, fn := range cs.listeners {
			snapshot = append(snapshot, fn)
		}
	}
	a.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range snapshot {
		fn(payload)
	}
	if a.metrics != nil {
		a.metrics.MessagesDispatched.WithLabelValues(channel).Add(float64(len(snapshot)))
	}
}

// Subscribers reports how many listeners are currently attached to
// channel. Used by tests and diagnostics; not on the hot path.
func (a *Adapter) Subscribers(channel string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	cs, ok := a.channels[channel]
	if !ok {
		return 0
	}
	return len(cs.listeners)
}

// Close tears down every live upstream subscription. Intended for
// process shutdown only.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for channel, cs := range a.channels {
		cs.cancel()
		delete(a.channels, channel)
	}
}
