// Package realtime pushes order change notifications to every connected
// client. A client's optimistic local state is expected to be confirmed or
// overwritten by the next event for the same order id; the broadcast after a
// committed write is the authoritative word.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"fixtrack/backend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Order event types
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
	EventOrderDeleted = "order.deleted"
)

// OrderEvent is the wire payload for order change notifications.
type OrderEvent struct {
	Event string       `json:"event"`
	Order *model.Order `json:"order"`
}

const clientSendBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one connected websocket peer. Peers only listen; the read side
// exists to detect disconnects.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans committed order events out to every connected client.
type Hub struct {
	mu         sync.Mutex
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run is the dispatch loop; it owns the client set.
func (h *Hub) Run() {
	for {
		select {
		case cl := <-h.register:
			h.mu.Lock()
			h.clients[cl] = struct{}{}
			h.mu.Unlock()
			log.Debug().Msg("realtime: client connected")

		case cl := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[cl]; ok {
				h.drop(cl)
				log.Debug().Msg("realtime: client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for cl := range h.clients {
				select {
				case cl.send <- message:
				default:
					// Slow consumer: cut it loose instead of blocking everyone.
					h.drop(cl)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes a client; callers hold the lock.
func (h *Hub) drop(cl *client) {
	delete(h.clients, cl)
	close(cl.send)
}

// BroadcastOrder serializes an order event and queues it for every client.
// Dropping the payload on marshal failure is acceptable: the order row is
// already durable and clients re-sync on reconnect.
func (h *Hub) BroadcastOrder(event string, order *model.Order) {
	payload, err := json.Marshal(OrderEvent{Event: event, Order: order})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("realtime: failed to marshal order event")
		return
	}
	h.broadcast <- payload
}

func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	for {
		// Reading only keeps the connection alive; clients never push state.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("realtime: read error")
			}
			return
		}
	}
}

// ServeWs authenticates the peer via a query-string token and upgrades the
// connection. Browsers cannot set headers on websocket dials, hence the query
// parameter.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	claims, ok := parseQueryToken(c, secret)
	if !ok {
		return
	}

	role, _ := claims["role"].(string)
	if !model.ValidRole(role) {
		log.Warn().Str("role", role).Msg("realtime: connection rejected, unknown role")
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("realtime: websocket upgrade failed")
		return
	}

	cl := &client{hub: hub, conn: conn, send: make(chan []byte, clientSendBuffer)}
	hub.register <- cl
	go cl.writePump()
	go cl.readPump()
}

func parseQueryToken(c *gin.Context, secret []byte) (jwt.MapClaims, bool) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Warn().Msg("realtime: connection rejected, missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		log.Warn().Err(err).Msg("realtime: connection rejected, invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		log.Warn().Msg("realtime: connection rejected, invalid claims")
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}
	return claims, true
}
