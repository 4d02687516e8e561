package events

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes wires the events WebSocket endpoint to the router.
func RegisterRoutes(router chi.Router, hub *Hub) {
	router.Method(http.MethodGet, "/v1/events", http.HandlerFunc(hub.ServeWS))
}
