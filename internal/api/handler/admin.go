package handler

import (
	"net/http"

	"complaintdesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type setRoleRequest struct {
	Role models.Role `json:"role"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	accounts, err := h.Accounts.List(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *Handler) SetUserRole(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	var req setRoleRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.Accounts.SetRole(c.Request.Context(), id, c.Param("id"), req.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListTransactions returns the audit log, optionally for one ?complaintId=.
func (h *Handler) ListTransactions(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	txs, err := h.Complaints.Transactions(c.Request.Context(), id, c.Query("complaintId"), queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
