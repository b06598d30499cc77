package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/tictactoe-relay/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound frames buffered per client before it is dropped as too slow.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope is one protocol frame in either direction
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type delivery struct {
	to      string
	payload []byte
}

// Client is one participant's connection
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	id      string
	service service.GameService
}

// ID returns the participant ID assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// Hub maintains the set of connected participants and routes frames to them
type Hub struct {
	// Connected clients by participant ID
	clients map[string]*Client
	mu      sync.RWMutex

	// Outbound frames addressed to one participant
	deliver chan *delivery

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done   chan struct{}
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		deliver:    make(chan *delivery, sendBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.deliver:
			h.deliverFrame(d)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// ServeWS upgrades the request and attaches a new participant driving svc
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, svc service.GameService) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		id:      uuid.NewString(),
		service: svc,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Send queues an event for one participant. Unknown participants are ignored.
func (h *Hub) Send(participantID, event string, data any) {
	payload, err := json.Marshal(outboundFrame{Event: event, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal frame", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case h.deliver <- &delivery{to: participantID, payload: payload}:
	case <-h.done:
	}
}

// Connected reports whether a participant currently has a live connection.
func (h *Hub) Connected(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[participantID]
	return ok
}

// Count returns the number of connected participants
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// registerClient adds a client to the connection set
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("participant connected",
		zap.String("participant", client.id),
		zap.Int("connected", total),
	)
}

// unregisterClient removes a client and closes its send queue
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	removed := ok && current == client
	if removed {
		delete(h.clients, client.id)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if removed {
		h.logger.Info("participant disconnected",
			zap.String("participant", client.id),
			zap.Int("connected", total),
		)
	}
}

// deliverFrame hands a frame to its recipient's write pump
func (h *Hub) deliverFrame(d *delivery) {
	h.mu.RLock()
	client, ok := h.clients[d.to]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- d.payload:
	default:
		// Client's send channel is full, drop it
		h.logger.Warn("dropping slow participant", zap.String("participant", client.id))
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.send)
	}
}
