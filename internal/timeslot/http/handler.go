package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/request"
	"github.com/courtly/scheduler/internal/pkg/response"
	"github.com/courtly/scheduler/internal/timeslot"
)

type Handler struct {
	service timeslot.Service
}

func NewHandler(service timeslot.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateTimeSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	slot, err := h.service.AddSlot(c.Request.Context(), timeslot.AddRequest{
		CourtID:   body.CourtID,
		DayOfWeek: time.Weekday(*body.DayOfWeek),
		Window:    interval.Interval{Start: *body.StartTime, End: *body.EndTime},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewTimeSlotResponse(slot))
}

func (h *Handler) List(c *gin.Context) {
	var req ListTimeSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	filter := timeslot.Filter{ActiveOnly: req.ActiveOnly}
	if req.CourtID != "" {
		filter.CourtIDs = []string{req.CourtID}
	}
	if req.DayOfWeek != nil {
		day := time.Weekday(*req.DayOfWeek)
		filter.DayOfWeek = &day
	}

	slots, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]TimeSlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewTimeSlotResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Match(c *gin.Context) {
	var req MatchTimeSlotRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	window, err := interval.Parse(req.StartTime, req.EndTime)
	if err != nil {
		response.BadRequest(c, "invalid time window", err)
		return
	}

	slot, err := h.service.FindMatchingSlot(c.Request.Context(), req.CourtID, time.Weekday(*req.DayOfWeek), window)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTimeSlotResponse(slot))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	slot, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewTimeSlotResponse(slot))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	removal, err := h.service.DeactivateSlot(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RemoveTimeSlotResponse{ID: uri.ID, Removal: removal})
}
