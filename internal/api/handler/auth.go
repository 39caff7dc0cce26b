package handler

import (
	"net/http"

	"complaintdesk/backend/internal/account"
	"complaintdesk/backend/internal/api/middleware"
	"complaintdesk/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterAccount creates an account. Anonymous callers get a "user" account; an
// admin token is needed to create agents or admins.
func (h *Handler) RegisterAccount(c *gin.Context) {
	var in account.RegisterInput
	if !h.bind(c, &in) {
		return
	}

	var caller *auth.Identity
	if id, ok := middleware.Identity(c); ok {
		caller = &id
	}
	created, err := h.Accounts.Register(c.Request.Context(), in, caller)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "account created", "user": created})
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var in account.LoginInput
	if !h.bind(c, &in) {
		return
	}

	token, acc, err := h.Accounts.Login(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": acc})
}

// Me returns the caller's account.
func (h *Handler) Me(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	acc, err := h.Accounts.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}
