package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// Summary reports courier coverage across open orders plus the slot counts
// for one delivery day.
type Summary struct {
	Date          time.Time                      `json:"date"`
	TotalOrders   int64                          `json:"totalOrders"`
	Assigned      int64                          `json:"assigned"`
	Unassigned    int64                          `json:"unassigned"`
	SlotsByStatus map[enums.DeliveryStatus]int64 `json:"slotsByStatus"`
	CourierLoads  []CourierLoad                  `json:"courierLoads"`
}

// SchoolSummary is the courier coverage for one school's open orders. It is
// embedded in order-creation and assignment responses so callers see the
// school's dispatch load without a second request.
type SchoolSummary struct {
	SchoolID        uuid.UUID `json:"schoolId"`
	TotalCount      int64     `json:"totalCount"`
	AssignedCount   int64     `json:"assignedCount"`
	UnassignedCount int64     `json:"unassignedCount"`
}

// CourierLoad is one courier's share of the open orders.
type CourierLoad struct {
	CourierID   uuid.UUID `json:"courierId"`
	CourierName string    `json:"courierName"`
	OrderCount  int64     `json:"orderCount"`
}
