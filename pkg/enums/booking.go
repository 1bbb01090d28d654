package enums

import "fmt"

// BookingStatus tracks a trial booking through its delivery lifecycle.
type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "pending"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusOutForDelivery BookingStatus = "out_for_delivery"
	BookingStatusDelivered      BookingStatus = "delivered"
	BookingStatusCompleted      BookingStatus = "completed"
	BookingStatusCancelled      BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusOutForDelivery,
	BookingStatusDelivered,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

// bookingTransitions describes the allowed forward moves per status.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:        {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:      {BookingStatusOutForDelivery, BookingStatusCancelled},
	BookingStatusOutForDelivery: {BookingStatusDelivered, BookingStatusCancelled},
	BookingStatusDelivered:      {BookingStatusCompleted},
	BookingStatusCompleted:      {},
	BookingStatusCancelled:      {},
}

// String implements fmt.Stringer.
func (s BookingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BookingStatus.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, candidate := range bookingTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
