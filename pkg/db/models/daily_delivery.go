package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// DailyDelivery is one delivery slot of an order's schedule. The (order, date)
// pair is unique so a day can never be scheduled twice.
type DailyDelivery struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_daily_deliveries_order_date"`
	DeliveryDate time.Time            `gorm:"column:delivery_date;type:date;not null;uniqueIndex:uq_daily_deliveries_order_date"`
	Status       enums.DeliveryStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PickupTime   *time.Time           `gorm:"column:pickup_time"`
	DeliveryTime *time.Time           `gorm:"column:delivery_time"`
	DeliveredBy  *uuid.UUID           `gorm:"column:delivered_by;type:uuid"`
	Notes        *string              `gorm:"column:notes"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *DailyDelivery) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
