package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// PaymentReservation stages a checkout before the gateway confirms payment.
// The order itself is only materialized on confirmation; until then the staged
// columns carry everything needed to build it.
type PaymentReservation struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	RazorpayOrderID      string                  `gorm:"column:razorpay_order_id;not null;uniqueIndex:uq_payment_reservations_rzp_order"`
	ParentID             uuid.UUID               `gorm:"column:parent_id;type:uuid;not null"`
	Status               enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'pending';index:idx_payment_reservations_status_expiry"`
	Amount               decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency             string                  `gorm:"column:currency;not null;default:'INR'"`
	StagedSchoolID       uuid.UUID               `gorm:"column:staged_school_id;type:uuid;not null"`
	StagedAddressID      uuid.UUID               `gorm:"column:staged_address_id;type:uuid;not null"`
	StagedOrderType      enums.OrderType         `gorm:"column:staged_order_type;type:text;not null"`
	StagedStartDate      time.Time               `gorm:"column:staged_start_date;type:date;not null"`
	StagedAddress        string                  `gorm:"column:staged_address;not null"`
	StagedNoOfBoxes      int                     `gorm:"column:staged_no_of_boxes;not null;default:1"`
	StagedDeliveryTime   *string                 `gorm:"column:staged_delivery_time"`
	StagedDistanceKM     decimal.Decimal         `gorm:"column:staged_distance_km;type:numeric(8,2);not null"`
	StagedBaseAmount     decimal.Decimal         `gorm:"column:staged_base_amount;type:numeric(12,2);not null"`
	StagedDistanceCharge decimal.Decimal         `gorm:"column:staged_distance_charge;type:numeric(12,2);not null"`
	ExpiresAt            time.Time               `gorm:"column:expires_at;not null;index:idx_payment_reservations_status_expiry"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PaymentReservation) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
