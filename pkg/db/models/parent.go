package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Parent is the customer placing lunchbox orders for a child.
type Parent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Phone     *string         `gorm:"column:phone"`
	Addresses []ParentAddress `gorm:"foreignKey:ParentID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Parent) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ParentAddress is a saved pickup address. Coordinates are filled in lazily by
// the geocoder and stay nil when resolution fails.
type ParentAddress struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ParentID    uuid.UUID `gorm:"column:parent_id;type:uuid;not null;index"`
	Label       *string   `gorm:"column:label"`
	AddressLine string    `gorm:"column:address_line;not null"`
	Latitude    *float64  `gorm:"column:latitude"`
	Longitude   *float64  `gorm:"column:longitude"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *ParentAddress) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
