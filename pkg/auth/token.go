package auth

import (
	"net/http"
	"strings"
)

// ExtractToken finds the bearer token on an incoming request, trying in
// order: the Authorization header, the access_token query parameter, and
// finally the Sec-WebSocket-Protocol header (for WS clients that cannot
// set arbitrary headers during the handshake). Returns ok=false if none
// of the three carried a token.
func ExtractToken(r *http.Request) (token string, ok bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, found := strings.CutPrefix(h, "Bearer "); found && t != "" {
			return t, true
		}
	}

	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}

	if h := r.Header.Get("Sec-WebSocket-Protocol"); h != "" {
		for _, part := range strings.Split(h, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				return part, true
			}
		}
	}

	return "", false
}
