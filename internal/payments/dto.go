package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

// EventPaymentRefunded lands on the order timeline when an admin reverses a
// captured payment.
const EventPaymentRefunded = "payment_refunded"

// ReserveInput stages a checkout before the gateway collects payment.
type ReserveInput struct {
	ParentID        uuid.UUID
	AddressID       uuid.UUID
	SchoolID        uuid.UUID
	OrderType       enums.OrderType
	RequestedStart  time.Time
	NoOfBoxes       int
	DeliveryTime    *string
	BaseAmount      decimal.Decimal
	RazorpayOrderID string
}

// ReserveResult returns the staged reservation with its price breakdown.
type ReserveResult struct {
	Reservation    models.PaymentReservation
	DistanceKM     decimal.Decimal
	BaseAmount     decimal.Decimal
	DistanceCharge decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ConfirmInput carries the gateway callback data that finalizes a reservation.
type ConfirmInput struct {
	ParentID          uuid.UUID
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
}

// ConfirmResult returns the materialized order and its transaction.
type ConfirmResult struct {
	Order       models.Order
	Transaction models.Transaction
}

// DirectCreateInput creates an order without a gateway checkout. Payment
// stays pending and is settled out of band.
type DirectCreateInput struct {
	ParentID            uuid.UUID
	AddressID           uuid.UUID
	SchoolID            uuid.UUID
	OrderType           enums.OrderType
	RequestedStart      time.Time
	NoOfBoxes           int
	DeliveryTime        *string
	SpecialInstructions *string
	DietaryRestrictions *string
	LunchBoxType        *string
	BaseAmount          decimal.Decimal
	PaymentMethod       string
}

// RefundInput reverses a completed transaction. A nil Amount refunds in full.
type RefundInput struct {
	TransactionID uuid.UUID
	Amount        *decimal.Decimal
	Reason        *string
	ActorID       uuid.UUID
}

// TransactionList is a page of a parent's transactions.
type TransactionList struct {
	Transactions []models.Transaction
	Page         pagination.Page
}
