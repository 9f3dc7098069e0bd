package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) CreateDeliveries(ctx context.Context, deliveries []models.DailyDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&deliveries).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.DailyDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

func (r *repository) CreateTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrdersByParent(ctx context.Context, parentID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("parent_id = ?", parentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) ListOrdersBySchool(ctx context.Context, schoolID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("school_id = ?", schoolID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Date != nil {
		query = query.Where("start_date <= ? AND end_date >= ?", *filter.Date, *filter.Date)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *repository) CountActiveOrdersByCourier(ctx context.Context, courierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("courier_id = ? AND status IN ?", courierID, []enums.OrderStatus{enums.OrderStatusActive, enums.OrderStatusPaused}).
		Count(&count).Error
	return count, err
}

func (r *repository) FindDelivery(ctx context.Context, orderID uuid.UUID, date time.Time) (*models.DailyDelivery, error) {
	var delivery models.DailyDelivery
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND delivery_date = ?", orderID, date).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) ListDeliveriesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DailyDelivery, error) {
	var deliveries []models.DailyDelivery
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("delivery_date ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repository) ListCourierDeliveriesOnDate(ctx context.Context, courierID uuid.UUID, date time.Time) ([]CourierDelivery, error) {
	var rows []struct {
		models.DailyDelivery
		JoinOrderID     uuid.UUID `gorm:"column:join_order_id"`
		OrderNumber     string    `gorm:"column:order_number"`
		SchoolID        uuid.UUID `gorm:"column:school_id"`
		DeliveryAddress string    `gorm:"column:delivery_address"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.DailyDelivery{}).
		Select("daily_deliveries.*, orders.id AS join_order_id, orders.order_number, orders.school_id, orders.delivery_address").
		Joins("JOIN orders ON orders.id = daily_deliveries.order_id").
		Where("orders.courier_id = ? AND daily_deliveries.delivery_date = ?", courierID, date).
		Order("daily_deliveries.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]CourierDelivery, 0, len(rows))
	for _, row := range rows {
		out = append(out, CourierDelivery{
			Delivery:        row.DailyDelivery,
			OrderID:         row.JoinOrderID,
			OrderNumber:     row.OrderNumber,
			SchoolID:        row.SchoolID,
			DeliveryAddress: row.DeliveryAddress,
		})
	}
	return out, nil
}

func (r *repository) CountOpenDeliveries(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DailyDelivery{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.DeliveryStatus{enums.DeliveryStatusPending, enums.DeliveryStatusPickedUp}).
		Count(&count).Error
	return count, err
}

func (r *repository) CancelPendingDeliveries(ctx context.Context, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DailyDelivery{}).
		Where("order_id = ? AND status = ?", orderID, enums.DeliveryStatusPending).
		Updates(map[string]any{"status": enums.DeliveryStatusCancelled})
	return result.RowsAffected, result.Error
}

func (r *repository) UpdateOrderGuarded(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) (bool, error) {
	merged := map[string]any{"version": gorm.Expr("version + 1")}
	for k, v := range updates {
		merged[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, version).
		Updates(merged)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateDeliveryGuarded(ctx context.Context, deliveryID uuid.UUID, from enums.DeliveryStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DailyDelivery{}).
		Where("id = ? AND status = ?", deliveryID, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListTrackingByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEntry, error) {
	var entries []models.TrackingEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindCourierByID(ctx context.Context, id uuid.UUID) (*models.Courier, error) {
	var courier models.Courier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&courier).Error
	if err != nil {
		return nil, err
	}
	return &courier, nil
}

func (r *repository) FindSchoolByID(ctx context.Context, id uuid.UUID) (*models.SchoolRegistration, error) {
	var school models.SchoolRegistration
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&school).Error
	if err != nil {
		return nil, err
	}
	return &school, nil
}
