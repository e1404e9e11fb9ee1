// Package gatewayapi wires the Auth Resolver, Stream Resolver, Visibility
// Filter, Upstream Bus Adapter, Session Manager and transport adapters
// together behind an HTTP router.
package gatewayapi

import (
	"context"

	"github.com/driftline/streamgate/pkg/auth"
	"github.com/driftline/streamgate/pkg/broker"
	"github.com/driftline/streamgate/pkg/logging"
	"github.com/driftline/streamgate/pkg/metrics"
	"github.com/driftline/streamgate/pkg/pubsub"
	"github.com/driftline/streamgate/pkg/store"
	"github.com/driftline/streamgate/pkg/stream"
	"github.com/driftline/streamgate/pkg/visibility"
)

// Config holds the deploy-time knobs that change request handling, as
// opposed to wiring (which components are built and how).
type Config struct {
	AlwaysRequireAuth     bool
	LimitedFederationMode bool
	WhitelistMode         bool
	AuthorizedFetch       bool
}

// Gateway holds every component the HTTP handlers dispatch to.
type Gateway struct {
	cfg Config

	store    *store.Store
	bus      broker.Broker
	adapter  *pubsub.Adapter
	resolver *auth.Resolver
	streams  *stream.Resolver
	filter   *visibility.Filter
	log      *logging.Logger
	metrics  *metrics.Registry
}

// New builds a Gateway from already-constructed components.
func New(cfg Config, s *store.Store, bus broker.Broker, adapter *pubsub.Adapter, resolver *auth.Resolver, streams *stream.Resolver, filter *visibility.Filter, log *logging.Logger, reg *metrics.Registry) *Gateway {
	return &Gateway{
		cfg:      cfg,
		store:    s,
		bus:      bus,
		adapter:  adapter,
		resolver: resolver,
		streams:  streams,
		filter:   filter,
		log:      log,
		metrics:  reg,
	}
}

// Close tears down every live upstream subscription. Called on process
// shutdown.
func (g *Gateway) Close() {
	g.adapter.Close()
	_ = g.bus.Close()
}

func (g *Gateway) requiredScopes(streamName string) []string {
	return stream.RequiredScopes(streamName)
}

func (g *Gateway) authRequired(streamName string) bool {
	if g.cfg.AlwaysRequireAuth {
		return true
	}
	if !stream.IsPublicStream(streamName) {
		return true
	}
	// "public" streams become required when the instance runs in one of
	// these federation-restricting modes.
	return g.cfg.LimitedFederationMode || g.cfg.WhitelistMode || g.cfg.AuthorizedFetch
}

func (g *Gateway) resolveViewer(ctx context.Context, token, streamName string) (*auth.AccountCtx, error) {
	return g.resolver.Resolve(ctx, token, g.authRequired(streamName), g.requiredScopes(streamName))
}

func toViewer(a *auth.AccountCtx) visibility.Viewer {
	if a.Anonymous {
		return visibility.Viewer{Anonymous: true}
	}
	return visibility.Viewer{
		AccountID:          a.AccountID,
		ChosenLanguages:    a.ChosenLanguages,
		AllowNotifications: a.AllowNotifications,
	}
}
