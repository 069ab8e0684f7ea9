package handler

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	"kidneystone/internal/config"
	"kidneystone/internal/logger"
)

// NewUpgrader returns an upgrader accepting the configured origins. Requests
// without an Origin header and same-origin requests are always accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := slices.Contains(allowedOrigins, "*")

	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || slices.Contains(allowedOrigins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// ViewerHub registers live viewers.
type ViewerHub interface {
	Register(client *websocket.Conn)
	Unregister(client *websocket.Conn)
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the hub to receive analysis summaries.
func ViewWebsocketHandler(cfg *config.Config, hub ViewerHub, logger *logger.Logger) http.HandlerFunc {
	upgrader := NewUpgrader(cfg.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warning("WebSocket upgrade from %q refused: %v", r.Header.Get("Origin"), err)
			return
		}

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
