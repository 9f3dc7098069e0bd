package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// Transaction records a payment gateway movement tied to a reservation and,
// once materialized, to an order. Refund metadata is filled in when an admin
// reverses the payment.
type Transaction struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	ParentID          uuid.UUID               `gorm:"column:parent_id;type:uuid;not null;index"`
	ReservationID     *uuid.UUID              `gorm:"column:reservation_id;type:uuid"`
	RazorpayOrderID   *string                 `gorm:"column:razorpay_order_id"`
	RazorpayPaymentID *string                 `gorm:"column:razorpay_payment_id"`
	Signature         *string                 `gorm:"column:signature"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;not null;default:'INR'"`
	Status            enums.TransactionStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod     *string                 `gorm:"column:payment_method"`
	Description       *string                 `gorm:"column:description"`
	FailureReason     *string                 `gorm:"column:failure_reason"`
	CompletedAt       *time.Time              `gorm:"column:completed_at"`
	RefundID          *string                 `gorm:"column:refund_id"`
	RefundAmount      *decimal.Decimal        `gorm:"column:refund_amount;type:numeric(12,2)"`
	RefundedAt        *time.Time              `gorm:"column:refunded_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
