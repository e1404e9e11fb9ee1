package gatewayapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes returns the http.Handler with every streaming endpoint, the
// WebSocket endpoint, and /metrics mounted behind the gateway's
// middleware stack.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/v1/streaming/health", g.healthHandler)
	r.Get("/api/v1/streaming/user", g.userHandler)
	r.Get("/api/v1/streaming/user/notification", g.userNotificationHandler)
	r.Get("/api/v1/streaming/public", g.publicHandler)
	r.Get("/api/v1/streaming/public/local", g.publicLocalHandler)
	r.Get("/api/v1/streaming/public/remote", g.publicRemoteHandler)
	r.Get("/api/v1/streaming/direct", g.directHandler)
	r.Get("/api/v1/streaming/hashtag", g.hashtagHandler)
	r.Get("/api/v1/streaming/hashtag/local", g.hashtagLocalHandler)
	r.Get("/api/v1/streaming/list", g.listHandler)

	r.Get("/", g.websocketHandler)

	r.Handle("/metrics", promhttp.HandlerFor(g.metrics.Gatherer, promhttp.HandlerOpts{}))

	return g.withMiddleware(r)
}
