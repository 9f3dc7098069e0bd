package enums

import "fmt"

// DeliveryStatus tracks one daily delivery slot.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusPickedUp  DeliveryStatus = "picked_up"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusCancelled DeliveryStatus = "cancelled"
	DeliveryStatusSkipped   DeliveryStatus = "skipped"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusPickedUp,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
	DeliveryStatusSkipped,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsAdministrativelyClosed reports whether the slot was taken out of the
// delivery flow without being delivered. Such slots do not block order
// auto-completion.
func (d DeliveryStatus) IsAdministrativelyClosed() bool {
	return d == DeliveryStatusCancelled || d == DeliveryStatusSkipped
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
