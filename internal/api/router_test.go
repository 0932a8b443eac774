package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtly/scheduler/internal/app"
	availabilityHttp "github.com/courtly/scheduler/internal/availability/http"
	bookingHttp "github.com/courtly/scheduler/internal/booking/http"
	bulkHttp "github.com/courtly/scheduler/internal/bulk/http"
	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/pkg/response"
	timeslotHttp "github.com/courtly/scheduler/internal/timeslot/http"
)

var now = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

type testServer struct {
	container  *app.Container
	adminToken string
	userToken  string
	otherToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := app.NewContainer(app.Config{
		JWTSecret: "test-secret",
		JWTTTL:    30 * time.Minute,
		Clock:     func() time.Time { return now },
	})

	admin, err := c.JWTManager.GenerateAccessToken("admin-1", true)
	require.NoError(t, err)
	user, err := c.JWTManager.GenerateAccessToken("user-1", false)
	require.NoError(t, err)
	other, err := c.JWTManager.GenerateAccessToken("user-2", false)
	require.NoError(t, err)

	return &testServer{container: c, adminToken: admin, userToken: user, otherToken: other}
}

func (s *testServer) executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.container.Router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createCourt(t *testing.T, name string, price int64) *court.Court {
	t.Helper()
	c := &court.Court{VenueID: "venue-1", Name: name, SportType: "badminton", PricePerHour: price, IsActive: true}
	require.NoError(t, s.container.Courts.Create(context.Background(), c))
	return c
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.executeRequest("GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.executeRequest("GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scheduler_resolve_duration_seconds")
}

func TestSchedulingFlow(t *testing.T) {
	s := newTestServer(t)
	c := s.createCourt(t, "Court C", 20)

	var slotID, bookingID string

	// ==== Catalog ====
	t.Run("Only admins publish slots", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "day_of_week": 1, "start_time": "18:00", "end_time": "19:00"}

		w := s.executeRequest("POST", "/v1/timeslots", body, s.userToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.executeRequest("POST", "/v1/timeslots", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = s.executeRequest("POST", "/v1/timeslots", body, s.adminToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		slot := decode[timeslotHttp.TimeSlotResponse](t, w)
		assert.Equal(t, 1, slot.DayOfWeek)
		assert.Equal(t, "18:00", slot.StartTime.String())
		slotID = slot.ID
	})

	t.Run("Overlapping slot reports the existing window", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "day_of_week": 1, "start_time": "18:30", "end_time": "19:30"}
		w := s.executeRequest("POST", "/v1/timeslots", body, s.adminToken)
		assert.Equal(t, http.StatusConflict, w.Code)

		resp := decode[response.ErrorResponse](t, w)
		assert.Equal(t, "slot_conflict", string(resp.Kind))
		details, ok := resp.Details.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "18:00", details["start_time"])
		assert.Equal(t, "19:00", details["end_time"])
	})

	t.Run("Adjacent slot is accepted", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "day_of_week": 1, "start_time": "19:00", "end_time": "20:00"}
		w := s.executeRequest("POST", "/v1/timeslots", body, s.adminToken)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Malformed time is rejected", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "day_of_week": 1, "start_time": "9:60", "end_time": "10:00"}
		w := s.executeRequest("POST", "/v1/timeslots", body, s.adminToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing bounds are rejected", func(t *testing.T) {
		for _, body := range []gin.H{
			{"court_id": c.ID, "day_of_week": 2, "end_time": "10:00"},
			{"court_id": c.ID, "day_of_week": 2, "start_time": "09:00"},
		} {
			w := s.executeRequest("POST", "/v1/timeslots", body, s.adminToken)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "validation", string(decode[response.ErrorResponse](t, w).Kind))
		}

		w := s.executeRequest("GET", "/v1/timeslots?court_id="+c.ID+"&day_of_week=2", nil, s.userToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"items":[]}`, w.Body.String())
	})

	t.Run("Exact match lookup", func(t *testing.T) {
		w := s.executeRequest("GET", "/v1/timeslots/match?court_id="+c.ID+"&day_of_week=1&start_time=18:00&end_time=19:00", nil, s.userToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, slotID, decode[timeslotHttp.TimeSlotResponse](t, w).ID)

		w = s.executeRequest("GET", "/v1/timeslots/match?court_id="+c.ID+"&day_of_week=1&start_time=18:00&end_time=18:30", nil, s.userToken)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "slot_not_configured", string(decode[response.ErrorResponse](t, w).Kind))
	})

	// ==== Availability ====
	resolveBody := gin.H{
		"court_ids":  []string{c.ID},
		"from_date":  "2026-10-26",
		"to_date":    "2026-11-02",
		"days":       []int{1},
		"time_slots": []gin.H{{"start": "18:00", "end": "19:00"}, {"start": "20:00", "end": "21:00"}},
	}

	t.Run("Resolve classifies each candidate", func(t *testing.T) {
		w := s.executeRequest("POST", "/v1/availability/resolve", resolveBody, s.userToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[availabilityHttp.ResolveResponse](t, w)
		assert.Equal(t, 4, resp.Total)
		assert.Equal(t, 2, resp.Available)
		require.Len(t, resp.Candidates, 4)
		assert.Equal(t, "2026-10-26", resp.Candidates[0].Date.String())
		assert.Equal(t, "available", resp.Candidates[0].Classification)
		assert.Equal(t, slotID, resp.Candidates[0].TimeSlotID)
		assert.Equal(t, "slot_not_configured", resp.Candidates[1].Classification)
	})

	t.Run("Resolve rejects patterns without both bounds", func(t *testing.T) {
		for _, pattern := range []gin.H{{"end": "19:00"}, {"start": "18:00"}} {
			body := gin.H{
				"court_ids":  []string{c.ID},
				"from_date":  "2026-10-26",
				"to_date":    "2026-10-26",
				"days":       []int{1},
				"time_slots": []gin.H{pattern},
			}
			w := s.executeRequest("POST", "/v1/availability/resolve", body, s.userToken)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		}
	})

	t.Run("Resolve rejects spans over the limit", func(t *testing.T) {
		body := gin.H{
			"court_ids":  []string{c.ID},
			"from_date":  "2026-10-26",
			"to_date":    "2027-10-26",
			"days":       []int{1},
			"time_slots": []gin.H{{"start": "18:00", "end": "19:00"}},
		}
		w := s.executeRequest("POST", "/v1/availability/resolve", body, s.userToken)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "request_too_large", string(decode[response.ErrorResponse](t, w).Kind))
	})

	// ==== Single booking ====
	t.Run("Create single booking", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "time_slot_id": slotID, "booking_date": "2026-10-26"}
		w := s.executeRequest("POST", "/v1/bookings", body, s.userToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		b := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "pending", b.Status)
		assert.Equal(t, "pending", b.PaymentStatus)
		assert.Equal(t, int64(20), b.TotalAmount)
		assert.Equal(t, "user-1", b.UserID)
		bookingID = b.ID
	})

	t.Run("Second booking of the same key conflicts", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "time_slot_id": slotID, "booking_date": "2026-10-26"}
		w := s.executeRequest("POST", "/v1/bookings", body, s.otherToken)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "slot_already_booked", string(decode[response.ErrorResponse](t, w).Kind))
	})

	t.Run("Past dates are rejected", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "time_slot_id": slotID, "booking_date": "2026-10-12"}
		w := s.executeRequest("POST", "/v1/bookings", body, s.userToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Booking is visible to its owner only", func(t *testing.T) {
		w := s.executeRequest("GET", "/v1/bookings/"+bookingID, nil, s.userToken)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.executeRequest("GET", "/v1/bookings/"+bookingID, nil, s.otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.executeRequest("GET", "/v1/bookings/"+bookingID, nil, s.adminToken)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	// ==== Bulk ====
	t.Run("Strict bulk aborts with every problem listed", func(t *testing.T) {
		w := s.executeRequest("POST", "/v1/bookings/bulk", resolveBody, s.otherToken)
		assert.Equal(t, http.StatusConflict, w.Code)

		resp := decode[response.ErrorResponse](t, w)
		assert.Equal(t, "unavailable", string(resp.Kind))
		details, ok := resp.Details.(map[string]any)
		require.True(t, ok)
		problems, ok := details["problems"].([]any)
		require.True(t, ok)
		// 26th: booked 18:00 plus unconfigured 20:00; 2nd: unconfigured 20:00
		assert.Len(t, problems, 3)
	})

	t.Run("Best-effort bulk books what it can", func(t *testing.T) {
		body := gin.H{}
		for k, v := range resolveBody {
			body[k] = v
		}
		body["ignore_unavailable"] = true

		w := s.executeRequest("POST", "/v1/bookings/bulk", body, s.otherToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := decode[bulkHttp.BulkBookingResponse](t, w)
		assert.Equal(t, 4, resp.TotalRequested)
		assert.Equal(t, 1, resp.TotalCreated)
		require.Len(t, resp.Created, 1)
		assert.Equal(t, "2026-11-02", resp.Created[0].BookingDate.String())
		assert.Equal(t, "user-2", resp.Created[0].UserID)
		require.Len(t, resp.Skipped, 3)
		assert.Equal(t, "conflict", resp.Skipped[0].Reason)
		assert.Equal(t, "slot_not_configured", resp.Skipped[1].Reason)
	})

	t.Run("Non-admins cannot bulk book for someone else", func(t *testing.T) {
		body := gin.H{}
		for k, v := range resolveBody {
			body[k] = v
		}
		body["user_id"] = "user-1"
		w := s.executeRequest("POST", "/v1/bookings/bulk", body, s.otherToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	// ==== Lifecycle ====
	t.Run("Admin records payment and confirms", func(t *testing.T) {
		w := s.executeRequest("PATCH", "/v1/bookings/"+bookingID+"/payment-status", gin.H{"payment_status": "paid"}, s.userToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.executeRequest("PATCH", "/v1/bookings/"+bookingID+"/payment-status", gin.H{"payment_status": "paid"}, s.adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "paid", decode[bookingHttp.BookingResponse](t, w).PaymentStatus)

		w = s.executeRequest("PATCH", "/v1/bookings/"+bookingID+"/status", gin.H{"status": "confirmed"}, s.adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "confirmed", decode[bookingHttp.BookingResponse](t, w).Status)
	})

	t.Run("Paid booking cancellation needs an admin", func(t *testing.T) {
		w := s.executeRequest("POST", "/v1/bookings/"+bookingID+"/cancel", nil, s.userToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.executeRequest("POST", "/v1/bookings/"+bookingID+"/cancel", nil, s.adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "cancelled", decode[bookingHttp.BookingResponse](t, w).Status)
	})

	t.Run("Cancelled key can be booked again", func(t *testing.T) {
		body := gin.H{"court_id": c.ID, "time_slot_id": slotID, "booking_date": "2026-10-26"}
		w := s.executeRequest("POST", "/v1/bookings", body, s.otherToken)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("List shows only the caller's bookings", func(t *testing.T) {
		w := s.executeRequest("GET", "/v1/bookings", nil, s.otherToken)
		require.Equal(t, http.StatusOK, w.Code)
		page := decode[response.PageResponse[bookingHttp.BookingResponse]](t, w)
		assert.Equal(t, 2, page.Total)
		for _, b := range page.Items {
			assert.Equal(t, "user-2", b.UserID)
		}

		w = s.executeRequest("GET", "/v1/bookings?user_id=user-1", nil, s.adminToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, decode[response.PageResponse[bookingHttp.BookingResponse]](t, w).Total)
	})

	// ==== Catalog removal ====
	t.Run("Removing a referenced slot deactivates it", func(t *testing.T) {
		w := s.executeRequest("DELETE", "/v1/timeslots/"+slotID, nil, s.adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "deactivated", string(decode[timeslotHttp.RemoveTimeSlotResponse](t, w).Removal))

		w = s.executeRequest("GET", "/v1/timeslots?court_id="+c.ID+"&active_only=true", nil, s.userToken)
		require.Equal(t, http.StatusOK, w.Code)
		var list struct {
			Items []timeslotHttp.TimeSlotResponse `json:"items"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, "19:00", list.Items[0].StartTime.String())
	})
}
