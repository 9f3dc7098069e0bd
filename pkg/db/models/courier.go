package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Courier is a delivery rider that orders get assigned to.
type Courier struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Name          string    `gorm:"column:name;not null"`
	Phone         *string   `gorm:"column:phone"`
	VehicleType   *string   `gorm:"column:vehicle_type"`
	VehicleNumber *string   `gorm:"column:vehicle_number"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Courier) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
