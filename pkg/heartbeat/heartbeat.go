// Package heartbeat keeps the upstream pub/sub system informed that a
// channel-set still has live local subscribers, so producers know to
// keep publishing to it.
package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/driftline/streamgate/pkg/broker"
)

const (
	// Interval is how often the marker key is refreshed.
	Interval = 360 * time.Second
	// TTL is three intervals: one missed write is tolerated, two is not.
	TTL = 3 * Interval
)

// Stopper cancels a running heartbeat.
type Stopper func()

// Start writes the marker key for every channel in channels immediately,
// then again every Interval until the returned Stopper is called or ctx
// is done. The Stopper is called on session teardown; calling it more
// than once is safe, and calls after the first do nothing.
func Start(ctx context.Context, b broker.Broker, channels []string) Stopper {
	stop := make(chan struct{})

	write := func() {
		for _, ch := range channels {
			_ = b.SetEx(ctx, markerKey(ch), "1", TTL)
		}
	}
	write()

	ticker := time.NewTicker(Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				write()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}

func markerKey(channel string) string {
	return "subscribed:" + channel
}
