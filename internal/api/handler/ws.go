package handler

import (
	"net/http"
	"slices"

	"complaintdesk/backend/internal/api/middleware"
	"complaintdesk/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(h.AllowedOrigins) == 0 || slices.Contains(h.AllowedOrigins, origin)
		},
	}
}

// ServeWebSocket authenticates the caller and upgrades the connection. The
// token comes from the Authorization header or the "token" query parameter.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	identity, err := h.Tokens.Verify(middleware.BearerToken(c, true))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Messages are stamped with the sender's email.
	acc, err := h.Accounts.Get(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := chathub.NewWebSocketClient(conn, h.Hub, identity, acc.Email)
	h.Hub.Register(client)
	client.Run()
}
