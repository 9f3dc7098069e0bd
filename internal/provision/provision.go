// Package provision seeds the bootstrap admin account. It runs as an explicit
// step (cmd/migrate provision) and is safe to invoke repeatedly.
package provision

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgdb "github.com/mealroute/lunchbox-backend/pkg/db"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/security"
)

const eventAdminProvisioned = "admin_provisioned"

// Result reports what the provisioning run did.
type Result struct {
	Created bool
	UserID  string
}

// EnsureAdmin creates the admin user named by cfg when it does not exist yet.
// The unique email constraint backstops concurrent runs.
func EnsureAdmin(ctx context.Context, db *gorm.DB, cfg config.ProvisionConfig, logg *logger.Logger) (*Result, error) {
	if cfg.AdminEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin email required")
	}
	if cfg.AdminPassword == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin password required")
	}

	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		logg.Info(logg.WithField(ctx, "email", cfg.AdminEmail), "admin already provisioned")
		return &Result{Created: false, UserID: existing.ID.String()}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up admin user")
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hash admin password")
	}

	user := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         enums.ActorRoleAdmin,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		detail := fmt.Sprintf("admin user %s created", cfg.AdminEmail)
		audit := models.AuditEvent{
			ActorRole: enums.ActorRoleSystem,
			Event:     eventAdminProvisioned,
			Detail:    &detail,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err) {
			// Another run won the race; treat as already provisioned.
			logg.Info(logg.WithField(ctx, "email", cfg.AdminEmail), "admin provisioned concurrently")
			return &Result{Created: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create admin user")
	}

	logg.Info(logg.WithField(ctx, "email", cfg.AdminEmail), "admin user provisioned")
	return &Result{Created: true, UserID: user.ID.String()}, nil
}
