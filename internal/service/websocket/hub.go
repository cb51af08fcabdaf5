package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"plantdoctor/internal/logger"
)

// Event types pushed to the page.
const (
	EventDetecting = "detecting"
	EventEnriching = "enriching"
	EventDone      = "done"
	EventWarning   = "warning"
)

// Event is one JSON message sent to a browser session.
type Event struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Disease string `json:"disease,omitempty"`
}

type subscription struct {
	session string
	conn    *websocket.Conn
}

type envelope struct {
	session string
	payload []byte
}

// HubService fans events out to the websocket connections of a session.
type HubService struct {
	clients    map[*websocket.Conn]string // connection -> session id
	broadcast  chan envelope
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan envelope, 64),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.conn] = sub.session
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected for session %s. Total: %d", sub.session, total)

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", total)

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for conn, session := range h.clients {
				if session != msg.session {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					h.logger.Error("Error sending message: %v", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register attaches conn to session. After Run has returned the connection is closed.
func (h *HubService) Register(session string, conn *websocket.Conn) {
	select {
	case h.register <- subscription{session: session, conn: conn}:
	case <-h.done:
		conn.Close()
	}
}

func (h *HubService) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Publish queues ev for the connections of session. Events for a session with
// no open connection, or sent while the queue is full, are dropped.
func (h *HubService) Publish(session string, ev Event) {
	if session == "" || h.GetClientCount(session) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}

	select {
	case h.broadcast <- envelope{session: session, payload: payload}:
	default:
		h.logger.Warning("Event queue full, dropping %s event for session %s", ev.Type, session)
	}
}

// GetClientCount returns the number of open connections for session.
func (h *HubService) GetClientCount(session string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	n := 0
	for _, s := range h.clients {
		if s == session {
			n++
		}
	}
	return n
}
