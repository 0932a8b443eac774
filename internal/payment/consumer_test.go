package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/pkg/logger"
)

type mockLedger struct{ mock.Mock }

func (m *mockLedger) UpdatePaymentStatus(ctx context.Context, id string, next booking.PaymentStatus) (*booking.Booking, error) {
	args := m.Called(ctx, id, next)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

const bookingID = "6f1c2a4e-8d0b-4b7e-9c5a-2f3d4e5a6b7c"

func TestHandle(t *testing.T) {
	body := []byte(`{"event":"payment.paid","version":1,"data":{"payment_id":"p1","booking_id":"` + bookingID + `","amount":20}}`)

	tests := []struct {
		name  string
		key   string
		body  []byte
		err   error
		calls bool
		want  Outcome
	}{
		{"applied", KeyPaid, body, nil, true, Ack},
		{"unknown key", "payment.created", body, nil, false, Ack},
		{"bad json", KeyPaid, []byte("{"), nil, false, Drop},
		{"no booking id", KeyPaid, []byte(`{"data":{"payment_id":"p1"}}`), nil, false, Ack},
		{"malformed booking id", KeyPaid, []byte(`{"data":{"payment_id":"p1","booking_id":"abc"}}`), nil, false, Drop},
		{"illegal transition", KeyPaid, body, &booking.TransitionError{From: "refunded", To: "paid"}, true, Ack},
		{"unknown booking", KeyPaid, body, booking.ErrNotFound, true, Ack},
		{"concurrent change", KeyPaid, body, booking.ErrStatusChanged, true, Requeue},
		{"store down", KeyPaid, body, errors.New("connection refused"), true, Requeue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &mockLedger{}
			if tc.calls {
				ledger.On("UpdatePaymentStatus", mock.Anything, bookingID, booking.PaymentPaid).Return(&booking.Booking{ID: bookingID}, tc.err)
			}
			c := NewConsumer(nil, ledger, logger.Discard())

			assert.Equal(t, tc.want, c.Handle(context.Background(), tc.key, tc.body))
			if tc.calls {
				ledger.AssertExpectations(t)
			} else {
				ledger.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestKeysMapToPaymentStatuses(t *testing.T) {
	for _, k := range Keys() {
		s, ok := keyStatus[k]
		assert.True(t, ok, k)
		assert.True(t, s.Valid())
	}
}
