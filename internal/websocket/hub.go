// Package websocket pushes every board state to connected viewers.  Each
// viewer gets the current state on connect and then one message per change.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/metrics"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// Event is the message written to viewers.
type Event struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      model.RootState `json:"data"`
}

// Client is one viewer connection.
type Client struct {
	ID   string
	Send chan []byte
}

// Hub tracks viewers.  All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	all     map[*Client]struct{}
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewHub(m *metrics.Metrics, log *zap.Logger) *Hub {
	return &Hub{all: make(map[*Client]struct{}), metrics: m, log: log}
}

// Register adds a client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
	h.metrics.Viewers(len(h.all))
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	delete(h.all, client)
	close(client.Send)
	h.metrics.Viewers(len(h.all))
}

// Broadcast sends s to every viewer.  Viewers whose buffer is full miss this
// state; the next one supersedes it anyway.
func (h *Hub) Broadcast(s model.RootState) {
	if h.ClientCount() == 0 {
		return
	}
	data, err := encode(s)
	if err != nil {
		h.log.Error("websocket: failed to marshal state", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.all {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func encode(s model.RootState) ([]byte, error) {
	return json.Marshal(Event{Type: "state", Timestamp: time.Now().UTC(), Data: s})
}

// ---------------------------------------------------------------------------
// Handler: Echo HTTP handler for viewer connections
// ---------------------------------------------------------------------------

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers are authenticated by token, not origin
	},
}

// Observer runs fn against the current state with commits held off.
// service.Board.Observe satisfies it.
type Observer func(fn func(model.RootState))

// Handler upgrades viewer connections.
type Handler struct {
	hub     *Hub
	observe Observer
}

// NewHandler binds the hub; observe supplies the state sent on connect.
func NewHandler(hub *Hub, observe Observer) *Handler {
	return &Handler{hub: hub, observe: observe}
}

// Connect upgrades the request, sends the current state, and starts the
// read and write pumps.
func (wh *Handler) Connect(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
	// Queue the snapshot and join the hub in one step: every later commit
	// is broadcast after it.
	wh.observe(func(s model.RootState) {
		if data, err := encode(s); err == nil {
			client.Send <- data
		}
		wh.hub.Register(client)
	})

	go wh.writePump(client, ws)
	go wh.readPump(client, ws)
	return nil
}

// readPump only watches for close and pong frames; viewers never send
// commands over the socket.
func (wh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wh.hub.Unregister(client)
		ws.Close()
	}()
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (wh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()
	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
