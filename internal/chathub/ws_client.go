package chathub

import (
	"context"
	"encoding/json"
	"time"

	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingPeriod   = (config.PongWait * 9) / 10
	eventTimeout = 10 * time.Second
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	connID   string
	identity auth.Identity
	author   string

	Conn *websocket.Conn
	Hub  *ManagerService
	Send chan models.RoomEvent

	log zerolog.Logger
}

// NewWebSocketClient wraps an upgraded connection for an authenticated caller.
func NewWebSocketClient(conn *websocket.Conn, hub *ManagerService, identity auth.Identity, author string) *WebSocketClient {
	connID := uuid.NewString()
	return &WebSocketClient{
		connID:   connID,
		identity: identity,
		author:   author,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.RoomEvent, config.ClientSendBuffer),
		log:      hub.log.With().Str("conn_id", connID).Str("account_id", identity.AccountID).Logger(),
	}
}

func (c *WebSocketClient) GetConnID() string                       { return c.connID }
func (c *WebSocketClient) GetIdentity() auth.Identity              { return c.identity }
func (c *WebSocketClient) GetAuthor() string                       { return c.author }
func (c *WebSocketClient) GetSendChannel() chan<- models.RoomEvent { return c.Send }

// Run starts the pumps for the connection.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel, which stops writePump.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump decodes frames and hands them to the hub one at a time, so a
// connection's own sends are handled in the order it wrote them.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(config.MaxFrameSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(config.PongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var evt models.ClientEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.log.Debug().Err(err).Msg("undecodable frame")
			c.Hub.sendTo(c, models.RoomEvent{Event: models.EventError, Error: "invalid event payload"})
			continue
		}

		ctx, cancel := context.WithTimeout(c.Hub.Context(), eventTimeout)
		c.Hub.HandleEvent(ctx, c, evt)
		cancel()
	}
}

// writePump writes queued events to the socket and keeps it alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(evt); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
