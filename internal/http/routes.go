package http

import (
	"codenames/internal/http/handlers"
	"codenames/internal/http/middleware"
	"codenames/internal/store"
	"codenames/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the full HTTP surface: health probes and the
// websocket upgrade. Everything else flows through the hub.
func RegisterRoutes(r *gin.Engine, hub *ws.Hub, st store.Store, version string) {
	r.Use(middleware.CountRequests())

	healthHandler := handlers.NewHealthHandler(st, version)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/ws/:room", ws.HandleWS(hub))
}
