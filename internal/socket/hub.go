// server/internal/socket/hub.go
package socket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultWriteWait bounds a single write to a client.
const DefaultWriteWait = 10 * time.Second

type client struct {
	userID     string
	conn       *websocket.Conn
	facilityID string
	writeMu    sync.Mutex // gorilla connections allow one concurrent writer
}

func (c *client) write(message []byte, wait time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub tracks connected users and the facility each one belongs to.
type Hub struct {
	clients   map[string]*client // keyed by userID
	mu        sync.RWMutex
	writeWait time.Duration
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*client),
		writeWait: DefaultWriteWait,
		logger:    logger.Named("ws-hub"),
	}
}

// Register adds a connection. A previous connection of the same user is closed.
func (h *Hub) Register(userID, facilityID string, conn *websocket.Conn) {
	h.mu.Lock()
	previous := h.clients[userID]
	h.clients[userID] = &client{userID: userID, conn: conn, facilityID: facilityID}
	h.mu.Unlock()

	if previous != nil && previous.conn != conn {
		previous.conn.Close()
	}
	h.logger.Info("websocket client registered", zap.String("user_id", userID), zap.String("facility_id", facilityID))
}

// Unregister removes userID only if conn is still the registered connection.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[userID]; ok && c.conn == conn {
		delete(h.clients, userID)
		h.logger.Info("websocket client unregistered", zap.String("user_id", userID))
	}
}

// drop closes a connection whose write failed; its reader then exits and unregisters.
func (h *Hub) drop(c *client, err error) {
	h.logger.Warn("dropping websocket client after failed write",
		zap.String("user_id", c.userID),
		zap.String("facility_id", c.facilityID),
		zap.Error(err),
	)
	h.Unregister(c.userID, c.conn)
	c.conn.Close()
}

// Send delivers message to one user. An offline user is not an error.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.RLock()
	c, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		h.logger.Debug("websocket client not connected", zap.String("user_id", userID))
		return nil
	}
	if err := c.write(message, h.writeWait); err != nil {
		h.drop(c, err)
		return err
	}
	return nil
}

// SendToFacility delivers message to every connected user of facilityID and
// returns how many connections accepted it.
func (h *Hub) SendToFacility(facilityID string, message []byte) (int, error) {
	h.mu.RLock()
	targets := make([]*client, 0)
	for _, c := range h.clients {
		if c.facilityID == facilityID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	var firstErr error
	for _, c := range targets {
		if err := c.write(message, h.writeWait); err != nil {
			h.drop(c, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sent++
	}
	return sent, firstErr
}

func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
