package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	booked := New(http.StatusConflict, KindSlotAlreadyBooked, "slot already booked")
	wrapped := fmt.Errorf("create booking: %w", booked)

	assert.Equal(t, KindSlotAlreadyBooked, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, booked))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindSlotAlreadyBooked, true},
		{KindBatchConflict, true},
		{KindSlotConflict, false},
		{KindValidation, false},
		{KindSlotNotConfigured, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("outer: %w", New(http.StatusConflict, tt.kind, "x"))
			assert.Equal(t, tt.want, IsRetryable(err))
		})
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("pg down")
	err := Wrap(cause, http.StatusServiceUnavailable, KindUnavailable, "store unavailable")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store unavailable", err.Error())

	notFound := New(http.StatusNotFound, KindNotFound, "booking not found")
	rebuilt := fmt.Errorf("get: %w", Wrap(cause, http.StatusNotFound, KindNotFound, "booking not found"))
	assert.ErrorIs(t, rebuilt, notFound)
	assert.ErrorIs(t, rebuilt, cause)
	assert.NotErrorIs(t, rebuilt, New(http.StatusNotFound, KindNotFound, "court not found"))
}
