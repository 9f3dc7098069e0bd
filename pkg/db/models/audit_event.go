package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// AuditEvent records operational actions that are not tied to a single order,
// such as bootstrap provisioning.
type AuditEvent struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ActorID   *uuid.UUID      `gorm:"column:actor_id;type:uuid"`
	ActorRole enums.ActorRole `gorm:"column:actor_role;type:text;not null"`
	Event     string          `gorm:"column:event;not null"`
	Detail    *string         `gorm:"column:detail"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditEvent) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
