package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shoplive/backend/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client is a single WebSocket connection. Its identity lives in the bound
// session; the pumps only move frames.
type Client struct {
	session *Session
	conn    *websocket.Conn
	send    chan WSMessage
	coord   *Coordinator
	cfg     config.RealtimeConfig
	logger  *zap.Logger
}

// IdentityValidator resolves a handshake token into a fixed identity.
type IdentityValidator func(token string) (userID, username, role string, err error)

// ServeWs upgrades the connection, binds identity from the handshake token,
// and runs the client loop. Identity fields in later event payloads are
// never trusted.
func ServeWs(coord *Coordinator, logger *zap.Logger, validate IdentityValidator, cfg config.RealtimeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
			return
		}
		userID, username, role, err := validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			session: NewSession(uuid.New().String(), userID, username, role),
			conn:    conn,
			send:    make(chan WSMessage, cfg.SendBufferSize),
			coord:   coord,
			cfg:     cfg,
			logger:  logger,
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.coord.HandleDisconnect(c)
		_ = c.conn.Close()
	}()

	pongWait := time.Duration(c.cfg.PongWaitSec) * time.Second
	c.conn.SetReadLimit(c.cfg.ReadLimitBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.coord.HandleEvent(c, msg.Event, msg.Data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(time.Duration(c.cfg.PingIntervalSec) * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliver queues a message for the write pump. Delivery is best-effort: a
// full buffer drops the message rather than stalling the room.
func (c *Client) deliver(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping message",
			zap.String("connection_id", c.session.ConnectionID),
			zap.String("event", msg.Event))
	}
}

func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("marshal event payload", zap.String("event", event), zap.Error(err))
		return
	}
	c.deliver(WSMessage{Event: event, Data: data})
}

// sendError emits the scoped error event to this connection only.
func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}
