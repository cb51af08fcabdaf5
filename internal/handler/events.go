package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"plantdoctor/internal/logger"
	hub "plantdoctor/internal/service/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventsWebsocketHandler attaches a browser session to the hub so it receives
// progress and warning events for its uploads.
func EventsWebsocketHandler(events *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := r.URL.Query().Get("session")
		if session == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		events.Register(session, connection)
		defer events.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Session %s disconnected normally", session)
				} else {
					logger.Warning("Session %s disconnected: %v", session, err)
				}
				break
			}
		}
	}
}
