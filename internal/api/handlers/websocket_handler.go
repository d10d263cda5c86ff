// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"pharma-redistribution-api-server/internal/api/middleware"
	"pharma-redistribution-api-server/internal/auth"
	"pharma-redistribution-api-server/internal/socket"
	"pharma-redistribution-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Maximum time to wait for the next message or ping from the client.
const pongWait = 30 * time.Second

type WebSocketHandler struct {
	Hub      *socket.Hub
	Tokens   *auth.TokenManager
	Users    store.UserDirectory
	Logger   *zap.Logger
	Upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *socket.Hub, tokens *auth.TokenManager, users store.UserDirectory, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		Hub:    hub,
		Tokens: tokens,
		Users:  users,
		Logger: logger.Named("ws"),
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// ServeWs upgrades an authenticated request and subscribes the user to the
// notifications of their facility. Browsers cannot set headers on a websocket
// handshake, so the token comes in the query string.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is required"})
		return
	}

	actor, status, msg := middleware.ResolveActor(c, h.Tokens, h.Users, tokenString)
	if status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if actor.FacilityID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not attached to a facility"})
		return
	}

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	h.Hub.Register(actor.UserID, actor.FacilityID, conn)
	defer func() {
		h.Hub.Unregister(actor.UserID, conn)
		conn.Close()
	}()

	// A custom ping handler replaces gorilla's default pong reply, so send it here.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Info("websocket closed unexpectedly", zap.String("user_id", actor.UserID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
