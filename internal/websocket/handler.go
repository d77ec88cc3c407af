package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/ShiShiBits1/GrowthQuest/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and subscribes it to the
// actor's family updates.
func HandleWebSocket(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.FromContext(r.Context())
		if !ok || actor.FamilyID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: allowedOrigins,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(hub, conn, actor)
		client.Run(r.Context())
	}
}
