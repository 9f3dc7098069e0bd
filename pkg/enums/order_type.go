package enums

import "fmt"

// OrderType selects the subscription window of an order.
type OrderType string

const (
	OrderTypeFifteenDays OrderType = "15_days"
	OrderTypeThirtyDays  OrderType = "30_days"
	OrderTypeToday       OrderType = "today"
)

var validOrderTypes = []OrderType{
	OrderTypeFifteenDays,
	OrderTypeThirtyDays,
	OrderTypeToday,
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// DurationDays returns the calendar-day span added to the start date when
// deriving the end date.
func (o OrderType) DurationDays() int {
	switch o {
	case OrderTypeThirtyDays:
		return 30
	case OrderTypeToday:
		return 0
	default:
		return 15
	}
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
