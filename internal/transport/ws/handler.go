package ws

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// TokenParser resolves a bearer token to a profile id.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// originPatterns turns origins into the host patterns the handshake
// matches the Origin header against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// ServeWS upgrades authenticated requests to a signaling connection. Browsers
// cannot set headers on the handshake, so the bearer token rides in ?token=.
func ServeWS(hub *Hub, tokens TokenParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		profileID, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(hub.opts.AllowedOrigins),
		})
		if err != nil {
			hub.log.Warn().Err(err).Msg("websocket accept failed")
			return
		}

		client := NewClient(hub, conn, profileID)
		if !hub.add(client) {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		go client.WritePump()
		client.ReadPump(r.Context())
	}
}
