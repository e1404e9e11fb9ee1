package gatewayapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/driftline/streamgate/pkg/apierror"
	"github.com/driftline/streamgate/pkg/auth"
	"github.com/driftline/streamgate/pkg/session"
	"github.com/driftline/streamgate/pkg/stream"
	"github.com/driftline/streamgate/pkg/transport/sse"
)

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func isMediaOnly(r *http.Request) bool {
	v := r.URL.Query().Get("only_media")
	return v == "1" || v == "true"
}

// streamSSE authenticates, resolves streamName/params, and serves the SSE
// connection. It is the shared body behind every /api/v1/streaming/* path.
func (g *Gateway) streamSSE(w http.ResponseWriter, r *http.Request, streamName string, params stream.Params) {
	ctx := r.Context()

	token, _ := auth.ExtractToken(r)
	viewer, err := g.resolveViewer(ctx, token, streamName)
	if err != nil {
		g.writeAuthOrStreamError(w, err)
		return
	}

	res, err := g.streams.Resolve(ctx, viewer, streamName, params)
	if err != nil {
		g.writeAuthOrStreamError(w, err)
		return
	}

	sess := session.New(g.adapter, g.metrics)
	err = sse.Serve(ctx, w, g.bus, sess, g.filter, toViewer(viewer), res.ChannelIDs, res.Options, g.log)
	if err != nil {
		sess.Close()
	}
}

func (g *Gateway) userHandler(w http.ResponseWriter, r *http.Request) {
	g.streamSSE(w, r, "user", stream.Params{})
}

func (g *Gateway) userNotificationHandler(w http.ResponseWriter, r *http.Request) {
	g.streamSSE(w, r, "user:notification", stream.Params{})
}

func (g *Gateway) publicHandler(w http.ResponseWriter, r *http.Request) {
	name := "public"
	if isMediaOnly(r) {
		name += ":media"
	}
	g.streamSSE(w, r, name, stream.Params{})
}

func (g *Gateway) publicLocalHandler(w http.ResponseWriter, r *http.Request) {
	name := "public:local"
	if isMediaOnly(r) {
		name += ":media"
	}
	g.streamSSE(w, r, name, stream.Params{})
}

func (g *Gateway) publicRemoteHandler(w http.ResponseWriter, r *http.Request) {
	name := "public:remote"
	if isMediaOnly(r) {
		name += ":media"
	}
	g.streamSSE(w, r, name, stream.Params{})
}

func (g *Gateway) directHandler(w http.ResponseWriter, r *http.Request) {
	g.streamSSE(w, r, "direct", stream.Params{})
}

func (g *Gateway) hashtagHandler(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(r.URL.Query().Get("tag"))
	g.streamSSE(w, r, "hashtag", stream.Params{Tag: tag})
}

func (g *Gateway) hashtagLocalHandler(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(r.URL.Query().Get("tag"))
	g.streamSSE(w, r, "hashtag:local", stream.Params{Tag: tag})
}

func (g *Gateway) listHandler(w http.ResponseWriter, r *http.Request) {
	listID := r.URL.Query().Get("list")
	g.streamSSE(w, r, "list", stream.Params{ListID: listID})
}

func (g *Gateway) writeAuthOrStreamError(w http.ResponseWriter, err error) {
	var werr *apierror.WithCode
	if errors.As(err, &werr) {
		writeError(w, werr.Status, werr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
}
