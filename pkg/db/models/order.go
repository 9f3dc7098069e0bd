package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// Order is a lunchbox subscription covering a date range. The version column
// backs optimistic concurrency checks on slot and status mutations.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber     string              `gorm:"column:order_number;not null;uniqueIndex:uq_orders_order_number"`
	ParentID        uuid.UUID           `gorm:"column:parent_id;type:uuid;not null;index"`
	ParentAddressID *uuid.UUID          `gorm:"column:parent_address_id;type:uuid"`
	SchoolID        uuid.UUID           `gorm:"column:school_id;type:uuid;not null"`
	// SchoolUniqueID is denormalized from the school registration and checked
	// against it on every write.
	SchoolUniqueID string              `gorm:"column:school_unique_id;not null"`
	CourierID      *uuid.UUID          `gorm:"column:courier_id;type:uuid;index:idx_orders_courier_status"`
	OrderType      enums.OrderType     `gorm:"column:order_type;type:text;not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'active';index:idx_orders_courier_status"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod  *string             `gorm:"column:payment_method"`
	StartDate      time.Time           `gorm:"column:start_date;type:date;not null"`
	EndDate        time.Time           `gorm:"column:end_date;type:date;not null"`
	// DeliveryTime is the requested drop-off slot in "HH:MM".
	DeliveryTime        *string         `gorm:"column:delivery_time"`
	NoOfBoxes           int             `gorm:"column:no_of_boxes;not null;default:1"`
	DeliveryAddress     string          `gorm:"column:delivery_address;not null"`
	SpecialInstructions *string         `gorm:"column:special_instructions"`
	DietaryRestrictions *string         `gorm:"column:dietary_restrictions"`
	LunchBoxType        *string         `gorm:"column:lunch_box_type"`
	DistanceKM          decimal.Decimal `gorm:"column:distance_km;type:numeric(8,2);not null"`
	BaseAmount          decimal.Decimal `gorm:"column:base_amount;type:numeric(12,2);not null"`
	DistanceCharge      decimal.Decimal `gorm:"column:distance_charge;type:numeric(12,2);not null"`
	TotalAmount         decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency            string          `gorm:"column:currency;not null;default:'INR'"`
	Version             int64           `gorm:"column:version;not null;default:0"`
	Deliveries          []DailyDelivery `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
