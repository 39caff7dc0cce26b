package handler

import (
	"net/http"

	"complaintdesk/backend/internal/complaint"

	"github.com/gin-gonic/gin"
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	AgentID string `json:"agentId"`
}

func (h *Handler) CreateComplaint(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	var in complaint.CreateInput
	if !h.bind(c, &in) {
		return
	}

	created, err := h.Complaints.Create(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListComplaints supports ?status=, ?tag=, ?limit= and ?offset=.
func (h *Handler) ListComplaints(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	list, err := h.Complaints.ListForCaller(c.Request.Context(), id, complaint.ListFilter{
		Status: c.Query("status"),
		Tag:    c.Query("tag"),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	found, err := h.Complaints.GetByID(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	messages, err := h.Complaints.Messages(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// UpdateStatus handles PUT /complaints/:id with {"status": "..."}.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) AssignComplaint(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	var req assignRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.Complaints.Assign(c.Request.Context(), c.Param("id"), req.AgentID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
