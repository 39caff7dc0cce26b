// Package handler exposes the services over HTTP and the websocket upgrade.
package handler

import (
	"net/http"
	"strconv"

	"complaintdesk/backend/internal/account"
	"complaintdesk/backend/internal/api/middleware"
	"complaintdesk/backend/internal/apperr"
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/chathub"
	"complaintdesk/backend/internal/complaint"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler holds the services the routes call into.
type Handler struct {
	Accounts   *account.Service
	Complaints *complaint.Service
	Hub        *chathub.ManagerService
	Tokens     *auth.Tokens

	// AllowedOrigins limits websocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	log zerolog.Logger
}

func NewHandler(accounts *account.Service, complaints *complaint.Service, hub *chathub.ManagerService, tokens *auth.Tokens, log zerolog.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		Complaints: complaints,
		Hub:        hub,
		Tokens:     tokens,
		log:        log.With().Str("component", "http").Logger(),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", middleware.OptionalAuth(h.Tokens), h.RegisterAccount)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", middleware.RequireAuth(h.Tokens), h.Me)

	complaints := r.Group("/complaints", middleware.RequireAuth(h.Tokens))
	complaints.POST("", middleware.Authorize(auth.OpCreateComplaint), h.CreateComplaint)
	complaints.GET("", middleware.Authorize(auth.OpListComplaints), h.ListComplaints)
	complaints.GET("/:id", middleware.Authorize(auth.OpGetComplaint), h.GetComplaint)
	complaints.GET("/:id/messages", middleware.Authorize(auth.OpListMessages), h.ListMessages)
	complaints.PUT("/:id", middleware.Authorize(auth.OpUpdateStatus), h.UpdateStatus)
	complaints.PUT("/:id/assign", middleware.Authorize(auth.OpAssignComplaint), h.AssignComplaint)

	admin := r.Group("/admin", middleware.RequireAuth(h.Tokens))
	admin.GET("/users", middleware.Authorize(auth.OpListAccounts), h.ListUsers)
	admin.PUT("/users/:id/role", middleware.Authorize(auth.OpSetRole), h.SetUserRole)
	admin.GET("/transactions", middleware.Authorize(auth.OpListTransactions), h.ListTransactions)

	r.GET("/ws", h.ServeWebSocket)
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": h.Hub.Connections()})
}

// respondError writes err as {"error": msg} with the matching status. Store
// failures are logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	if apperr.Is(err, apperr.KindStore) {
		h.log.Error().
			Err(err).
			Str("route", c.FullPath()).
			Str("request_id", c.Writer.Header().Get(middleware.RequestIDHeader)).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.PublicMessage(err)})
}

// caller returns the identity set by RequireAuth. Routes without it are a
// wiring bug, answered as unauthenticated.
func (h *Handler) caller(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		h.respondError(c, apperr.Unauthenticated("unauthorized"))
	}
	return id, ok
}

// bind decodes the JSON body into dst, reporting malformed bodies as
// validation errors.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
