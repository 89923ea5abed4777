package mirror

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"

	log "log/slog"

	ws "github.com/gorilla/websocket"
)

//go:embed index.html
var indexPage []byte

const historyLimit = 100

// Hub fans transcript messages out to connected clients and forwards
// their commands to the daemon via OnInbound.
type Hub struct {
	// OnInbound receives client messages. Called from per-connection
	// goroutines; must be safe for concurrent use.
	OnInbound func(Inbound)

	upgrader ws.Upgrader

	mu      sync.Mutex
	clients map[*ws.Conn]bool
	history []Message
}

func NewHub() *Hub {
	return &Hub{
		upgrader: ws.Upgrader{
			// The mirror is a localhost convenience; skip origin checks.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: map[*ws.Conn]bool{},
	}
}

// ListenAndServe serves the chat page on / and the websocket on /ws.
// Blocks; run it on its own goroutine.
func (h *Hub) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexPage)
	})
	mux.HandleFunc("/ws", h.handleWS)
	return http.ListenAndServe(addr, mux)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("mirror upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	// Replay the transcript so a fresh client sees the whole chat.
	for _, m := range h.history {
		h.writeLocked(conn, m)
	}
	h.mu.Unlock()

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *ws.Conn) {
	defer h.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			log.Debug("mirror bad inbound", "err", err)
			continue
		}
		if h.OnInbound != nil {
			h.OnInbound(in)
		}
	}
}

// Broadcast appends m to the transcript and sends it to every client.
func (h *Hub) Broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, m)
	if len(h.history) > historyLimit {
		h.history = h.history[len(h.history)-historyLimit:]
	}
	for conn := range h.clients {
		h.writeLocked(conn, m)
	}
}

func (h *Hub) writeLocked(conn *ws.Conn, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) drop(conn *ws.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients, conn)
}
