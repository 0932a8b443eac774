package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtly/scheduler/internal/auth"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/pkg/request"
	"github.com/courtly/scheduler/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func actor(c *gin.Context) booking.Actor {
	return booking.Actor{UserID: auth.GetUserID(c), IsAdmin: auth.IsAdmin(c)}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	from, to, err := req.Dates()
	if err != nil {
		response.BadRequest(c, "invalid date range", err)
		return
	}

	// Admins may see everyone's bookings; others only their own.
	a := actor(c)
	userID := a.UserID
	if a.IsAdmin {
		userID = req.UserID
	}

	filter := booking.Filter{
		UserID:    userID,
		CourtID:   req.CourtID,
		Status:    req.Status,
		From:      from,
		To:        to,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortOrder: req.SortOrder,
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewBookingResponses(bookings), req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	a := actor(c)
	req := booking.CreateRequest{
		CourtID:     body.CourtID,
		TimeSlotID:  body.TimeSlotID,
		BookingDate: body.BookingDate,
		UserID:      a.UserID,
	}
	// Admin bookings skip the payment flow and start confirmed.
	if a.IsAdmin {
		req.Status = booking.StatusConfirmed
		if body.UserID != "" {
			req.UserID = body.UserID
		}
	} else if body.UserID != "" && body.UserID != a.UserID {
		response.Error(c, booking.ErrPermissionDenied)
		return
	}

	b, err := h.service.CreateSingle(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	a := actor(c)
	if !a.IsAdmin && a.UserID != b.UserID {
		response.Error(c, booking.ErrPermissionDenied)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), uri.ID, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), uri.ID, booking.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}
	var body UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.UpdatePaymentStatus(c.Request.Context(), uri.ID, booking.PaymentStatus(body.PaymentStatus))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}
