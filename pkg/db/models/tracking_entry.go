package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// TrackingEntry is an append-only audit record of an order lifecycle event.
type TrackingEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ActorID   *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	ActorRole enums.ActorRole `gorm:"column:actor_role;type:text;not null"`
	Event     string          `gorm:"column:event;not null"`
	Detail    *string         `gorm:"column:detail"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *TrackingEntry) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
