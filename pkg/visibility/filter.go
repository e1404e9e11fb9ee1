// Package visibility implements the Visibility Filter: the per-event
// decision of whether a delivered message should reach a given viewer.
package visibility

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/metrics"
	"go.uber.org/zap"
)

// Viewer is the subset of an account context the filter needs.
type Viewer struct {
	Anonymous          bool
	AccountID          int64
	ChosenLanguages    []string
	AllowNotifications bool
}

// Options are the per-subscription flags set by the Stream Resolver.
type Options struct {
	NeedsFiltering   bool
	NotificationOnly bool
}

// Store is the DB access the filter needs for block/mute/domain checks.
type Store interface {
	BlockedOrMuted(ctx context.Context, viewerID int64, targets []int64, authorID int64) (bool, error)
	DomainBlocked(ctx context.Context, viewerID int64, domain string) (bool, error)
}

// Filter decides whether a viewer should receive a given event payload.
type Filter struct {
	store   Store
	log     *logging.Logger
	metrics *metrics.Registry
}

// New builds a Filter. reg may be nil.
func New(store Store, log *logging.Logger, reg *metrics.Registry) *Filter {
	return &Filter{store: store, log: log, metrics: reg}
}

func (f *Filter) drop(reason string) (bool, error) {
	if f.metrics != nil {
		f.metrics.FilterDrops.WithLabelValues(reason).Inc()
	}
	return false, nil
}

func (f *Filter) dropErr(reason string, err error) (bool, error) {
	if f.metrics != nil {
		f.metrics.FilterDrops.WithLabelValues(reason).Inc()
	}
	return false, err
}

// Decide reports whether event (with raw payload bytes) should be
// delivered to viewer on a subscription configured with opts. A false
// return with a nil error means "drop, this was a normal filtering
// decision." A non-nil error also means drop (fail closed) but indicates
// the decision could not be fully verified and should be logged.
func (f *Filter) Decide(ctx context.Context, viewer Viewer, opts Options, event string, rawPayload []byte) (bool, error) {
	if opts.NotificationOnly && event != "notification" {
		return f.drop("notification_only")
	}
	if event == "notification" && !viewer.AllowNotifications {
		return f.drop("notifications_disallowed")
	}
	if !opts.NeedsFiltering || event != "update" {
		return true, nil
	}

	var payload StatusPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		if f.log != nil {
			f.log.ComponentError(logging.ComponentFilter, "malformed status payload, dropping", zap.Error(err))
		}
		return f.drop("malformed_payload")
	}

	if len(viewer.ChosenLanguages) > 0 && payload.Language != nil && !containsString(viewer.ChosenLanguages, *payload.Language) {
		return f.drop("language")
	}

	if viewer.Anonymous {
		return true, nil
	}

	authorID, err := strconv.ParseInt(payload.Account.ID, 10, 64)
	if err != nil {
		if f.log != nil {
			f.log.ComponentError(logging.ComponentFilter, "malformed author id, dropping", zap.Error(err))
		}
		return f.drop("malformed_payload")
	}

	targets := make([]int64, 0, len(payload.Mentions)+1)
	targets = append(targets, authorID)
	for _, m := range payload.Mentions {
		id, err := strconv.ParseInt(m.ID, 10, 64)
		if err != nil {
			continue
		}
		targets = append(targets, id)
	}

	hit, err := f.store.BlockedOrMuted(ctx, viewer.AccountID, targets, authorID)
	if err != nil {
		if f.log != nil {
			f.log.ComponentError(logging.ComponentFilter, "block/mute check failed, dropping", zap.Error(err))
		}
		return f.dropErr("store_error", err)
	}
	if hit {
		return f.drop("blocked_or_muted")
	}

	if domain := payload.Domain(); domain != "" {
		blocked, err := f.store.DomainBlocked(ctx, viewer.AccountID, domain)
		if err != nil {
			if f.log != nil {
				f.log.ComponentError(logging.ComponentFilter, "domain block check failed, dropping", zap.Error(err))
			}
			return f.dropErr("store_error", err)
		}
		if blocked {
			return f.drop("domain_blocked")
		}
	}

	return true, nil
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
