// Package schedule derives the daily delivery calendar for an order.
package schedule

import (
	"time"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
)

// Plan is the resolved delivery window of an order. The window is anchored at
// the requested start date; deliveries may begin later (see ResolveStartDate),
// so Dates can be empty when the first deliverable day falls past EndDate. An
// empty plan is valid; rejecting it is the caller's policy call.
type Plan struct {
	StartDate time.Time
	EndDate   time.Time
	// Dates lists every delivery day from the first deliverable day through
	// EndDate, Sundays excluded, in ascending order.
	Dates []time.Time
}

// truncate drops the time-of-day portion, keeping the location.
func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ResolveStartDate normalizes a requested start to the first concrete
// delivery day. When the requested month is the current month, deliveries
// begin tomorrow; any other month begins on its first day.
func ResolveStartDate(now, requested time.Time) time.Time {
	today := truncate(now)
	if requested.Year() == today.Year() && requested.Month() == today.Month() {
		return today.AddDate(0, 0, 1)
	}
	return time.Date(requested.Year(), requested.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Build computes the delivery plan for an order. The window always spans
// startDate through startDate plus the plan duration, while deliveries are
// generated from firstDelivery through the end of the window. Sundays carry
// no deliveries.
func Build(startDate, firstDelivery time.Time, orderType enums.OrderType) (*Plan, error) {
	if !orderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}

	start := truncate(startDate)
	end := start.AddDate(0, 0, orderType.DurationDays())

	var dates []time.Time
	for d := truncate(firstDelivery); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		dates = append(dates, d)
	}

	return &Plan{StartDate: start, EndDate: end, Dates: dates}, nil
}

// BuildFrom resolves the first delivery day against now and builds the plan
// in one step. This is the path order creation uses.
func BuildFrom(now, requested time.Time, orderType enums.OrderType) (*Plan, error) {
	return Build(requested, ResolveStartDate(now, requested), orderType)
}
