package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtly/scheduler/internal/auth"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/bulk"
	"github.com/courtly/scheduler/internal/pkg/response"
)

type Handler struct {
	orchestrator *bulk.Orchestrator
}

func NewHandler(orchestrator *bulk.Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

func (h *Handler) Create(c *gin.Context) {
	var body BulkBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := bulk.Request{
		Request:           body.ToDomain(),
		UserID:            auth.GetUserID(c),
		IgnoreUnavailable: body.IgnoreUnavailable,
	}
	if auth.IsAdmin(c) {
		req.Status = booking.StatusConfirmed
		if body.UserID != "" {
			req.UserID = body.UserID
		}
	} else if body.UserID != "" && body.UserID != req.UserID {
		response.Error(c, booking.ErrPermissionDenied)
		return
	}

	report, err := h.orchestrator.Book(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBulkBookingResponse(report))
}
