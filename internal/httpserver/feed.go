package httpserver

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const feedWriteTimeout = 5 * time.Second

// Hub fans newly created orders out to connected admin websockets.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewHub builds a Hub accepting handshakes from origins. An empty list
// accepts any origin.
func NewHub(origins []string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

// OrderCreated pushes o to every subscriber. Subscribers that fail to
// receive it are dropped.
func (h *Hub) OrderCreated(o domain.Order) {
	data, err := json.Marshal(o)
	if err != nil {
		h.logger.Printf("feed: marshal order id=%s error=%v", o.ID, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("feed: drop subscriber remote=%s error=%v", conn.RemoteAddr(), err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// Subscribers reports the number of connected admins.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("feed: upgrade error=%v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// the feed is push-only; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}
