package ws

import (
	"net/http"

	"codenames/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades GET /ws/:room and spawns the session endpoint.
// Any non-empty room name is a valid lobby; rooms come into existence
// on the first join.
func HandleWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Param("room")
		if room == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "room required"})
			return
		}

		allowedOrigin := hub.cfg.AllowedOrigin
		upgrader := websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "room", room, "error", err)
			return
		}

		client := NewClient(hub, conn, room)
		go client.Run()
	}
}
