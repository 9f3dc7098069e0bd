package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

// Tracking events appended to an order's timeline.
const (
	EventOrderCreated      = "order_created"
	EventOrderPaused       = "order_paused"
	EventOrderResumed      = "order_resumed"
	EventOrderCancelled    = "order_cancelled"
	EventOrderCompleted    = "order_completed"
	EventCourierAssigned   = "courier_assigned"
	EventDeliveryPickedUp  = "delivery_picked_up"
	EventDeliveryDelivered = "delivery_delivered"
	EventDeliveryCancelled = "delivery_cancelled"
	EventDeliverySkipped   = "delivery_skipped"
)

// MaterializeInput carries everything needed to turn a priced checkout into a
// live order with its delivery schedule. PaymentStatus defaults to paid, which
// is what the reservation flow wants; the direct-create path passes pending.
type MaterializeInput struct {
	ParentID            uuid.UUID
	ParentAddressID     *uuid.UUID
	SchoolID            uuid.UUID
	OrderType           enums.OrderType
	RequestedStart      time.Time
	DeliveryAddress     string
	DeliveryTime        *string
	NoOfBoxes           int
	SpecialInstructions *string
	DietaryRestrictions *string
	LunchBoxType        *string
	DistanceKM          decimal.Decimal
	BaseAmount          decimal.Decimal
	DistanceCharge      decimal.Decimal
	TotalAmount         decimal.Decimal
	Currency            string
	PaymentStatus       enums.PaymentStatus
	PaymentMethod       *string
	ActorID             uuid.UUID
}

// UpdateStatusInput requests an order lifecycle transition.
type UpdateStatusInput struct {
	OrderID   uuid.UUID
	Target    enums.OrderStatus
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// AssignCourierInput assigns a courier to an order.
type AssignCourierInput struct {
	OrderID   uuid.UUID
	CourierID uuid.UUID
	ActorID   uuid.UUID
}

// TransitionDeliveryInput requests a daily slot transition.
type TransitionDeliveryInput struct {
	OrderID   uuid.UUID
	Date      time.Time
	Target    enums.DeliveryStatus
	Note      *string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// OrderDetail bundles an order with its schedule and timeline.
type OrderDetail struct {
	Order      models.Order
	Deliveries []models.DailyDelivery
	Tracking   []models.TrackingEntry
}

// ListFilter narrows admin order listings.
type ListFilter struct {
	Status *enums.OrderStatus
	Date   *time.Time
}

// OrderList is a page of orders.
type OrderList struct {
	Orders []models.Order
	Page   pagination.Page
}

// CourierDelivery is one slot on a courier's day sheet, joined with the order
// fields the courier needs on the road.
type CourierDelivery struct {
	Delivery        models.DailyDelivery
	OrderID         uuid.UUID
	OrderNumber     string
	SchoolID        uuid.UUID
	DeliveryAddress string
}
