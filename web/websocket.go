package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"matchbet/events"
)

// WSMessage is the envelope pushed to browsers over the websocket.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Client is one connected websocket peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus events out to every connected websocket client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *WSMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway fronts a local simulation; origin checks are handled by
	// the CORS layer on the REST side.
	CheckOrigin: func(*http.Request) bool { return true },
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SubscribeTo registers the hub on every bus event type so each internal
// event becomes one outbound push.
func (h *Hub) SubscribeTo(bus *events.Bus) {
	forward := func(_ context.Context, ev events.Event) {
		h.Broadcast(&WSMessage{Type: string(ev.Type()), Data: ev})
	}
	for _, t := range []events.EventType{
		events.EventTypeClockTick,
		events.EventTypeScoreChange,
		events.EventTypeOddsUpdate,
		events.EventTypeCommentary,
		events.EventTypePauseStateChange,
		events.EventTypeResumeCountdown,
		events.EventTypeOpportunityChange,
		events.EventTypeBetPlaced,
		events.EventTypeBetSettled,
		events.EventTypeBalanceChange,
		events.EventTypePowerUpAwarded,
		events.EventTypePowerUpApplied,
		events.EventTypeMatchFinished,
	} {
		bus.Subscribe(t, forward)
	}
}

// Run owns the client set. It must be started once, before ServeWS accepts
// connections.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.WithField("clients", total).Debug("Websocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.WithField("clients", total).Debug("Websocket client unregistered")

		case message := <-h.broadcast:
			payload, err := json.Marshal(message)
			if err != nil {
				log.WithError(err).Error("Failed to marshal websocket message")
				continue
			}
			h.mu.RLock()
			stale := make([]*Client, 0)
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					stale = append(stale, client)
				}
			}
			h.mu.RUnlock()
			// Drop clients whose send buffer is full rather than blocking
			// the broadcast loop.
			if len(stale) > 0 {
				h.mu.Lock()
				for _, client := range stale {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(message *WSMessage) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("Websocket broadcast buffer full, dropping message")
	}
}

// ServeWS upgrades an HTTP request to a websocket connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("Websocket upgrade failed")
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames so close handshakes are processed. The
// gateway accepts no client commands over the socket.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("Websocket read error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
