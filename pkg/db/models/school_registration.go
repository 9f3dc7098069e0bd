package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchoolRegistration is a school enrolled as a delivery destination. UniqueID
// is the human-facing school code denormalized onto orders.
type SchoolRegistration struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	UniqueID    string     `gorm:"column:unique_id;not null;uniqueIndex"`
	Name        string     `gorm:"column:name;not null"`
	AddressLine string     `gorm:"column:address_line;not null"`
	Latitude    *float64   `gorm:"column:latitude"`
	Longitude   *float64   `gorm:"column:longitude"`
	ContactName *string    `gorm:"column:contact_name"`
	Phone       *string    `gorm:"column:phone"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *SchoolRegistration) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
