package model

import "testing"

func TestEvent_SetSeatsTaken(t *testing.T) {
	tests := []struct {
		capacity, taken int
		remaining       int
		full            bool
	}{
		{capacity: 30, taken: 0, remaining: 30},
		{capacity: 30, taken: 29, remaining: 1},
		{capacity: 30, taken: 30, remaining: 0, full: true},
		// Capacity lowered below the seats already held.
		{capacity: 10, taken: 12, remaining: 0, full: true},
	}
	for _, tt := range tests {
		e := Event{Capacity: tt.capacity}
		e.SetSeatsTaken(tt.taken)
		if e.SeatsTaken != tt.taken || e.SeatsLeft != tt.remaining || e.Remaining() != tt.remaining {
			t.Errorf("capacity %d taken %d: remaining = %d/%d, want %d", tt.capacity, tt.taken, e.SeatsLeft, e.Remaining(), tt.remaining)
		}
		if e.IsFull() != tt.full {
			t.Errorf("capacity %d taken %d: IsFull = %v", tt.capacity, tt.taken, e.IsFull())
		}
	}
}

func TestPaymentStatus_Valid(t *testing.T) {
	for _, s := range []PaymentStatus{StatusPending, StatusPaid, StatusFailed, StatusCancelled, StatusRefunded} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []PaymentStatus{"", "archived", "PAID"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
