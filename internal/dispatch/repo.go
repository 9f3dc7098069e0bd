package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
)

// openStatuses are the order states that still need courier coverage.
var openStatuses = []enums.OrderStatus{enums.OrderStatusActive, enums.OrderStatusPaused}

// Repository aggregates assignment counts straight from the orders tables.
type Repository interface {
	CountOpenOrders(ctx context.Context) (total, assigned int64, err error)
	CountOpenOrdersForSchool(ctx context.Context, schoolID uuid.UUID) (total, assigned int64, err error)
	CountSlotsByStatusOnDate(ctx context.Context, date time.Time) (map[enums.DeliveryStatus]int64, error)
	CourierLoads(ctx context.Context) ([]CourierLoad, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountOpenOrders(ctx context.Context) (int64, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status IN ?", openStatuses).
		Count(&total).Error
	if err != nil {
		return 0, 0, err
	}

	var assigned int64
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status IN ? AND courier_id IS NOT NULL", openStatuses).
		Count(&assigned).Error
	if err != nil {
		return 0, 0, err
	}
	return total, assigned, nil
}

func (r *repository) CountOpenOrdersForSchool(ctx context.Context, schoolID uuid.UUID) (int64, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("school_id = ? AND status IN ?", schoolID, openStatuses).
		Count(&total).Error
	if err != nil {
		return 0, 0, err
	}

	var assigned int64
	err = r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("school_id = ? AND status IN ? AND courier_id IS NOT NULL", schoolID, openStatuses).
		Count(&assigned).Error
	if err != nil {
		return 0, 0, err
	}
	return total, assigned, nil
}

func (r *repository) CountSlotsByStatusOnDate(ctx context.Context, date time.Time) (map[enums.DeliveryStatus]int64, error) {
	var rows []struct {
		Status enums.DeliveryStatus `gorm:"column:status"`
		Count  int64                `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.DailyDelivery{}).
		Select("status, COUNT(*) AS count").
		Where("delivery_date = ?", date).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) CourierLoads(ctx context.Context) ([]CourierLoad, error) {
	var rows []struct {
		CourierID   uuid.UUID `gorm:"column:courier_id"`
		CourierName string    `gorm:"column:courier_name"`
		OrderCount  int64     `gorm:"column:order_count"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.courier_id, couriers.name AS courier_name, COUNT(*) AS order_count").
		Joins("JOIN couriers ON couriers.id = orders.courier_id").
		Where("orders.status IN ?", openStatuses).
		Group("orders.courier_id, couriers.name").
		Order("order_count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	loads := make([]CourierLoad, 0, len(rows))
	for _, row := range rows {
		loads = append(loads, CourierLoad{
			CourierID:   row.CourierID,
			CourierName: row.CourierName,
			OrderCount:  row.OrderCount,
		})
	}
	return loads, nil
}
