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

// Repository is the persistence surface for orders and their daily slots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateDeliveries(ctx context.Context, deliveries []models.DailyDelivery) error
	CreateDelivery(ctx context.Context, delivery *models.DailyDelivery) error
	CreateTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error

	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrdersByParent(ctx context.Context, parentID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	ListOrdersBySchool(ctx context.Context, schoolID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, int64, error)
	CountActiveOrdersByCourier(ctx context.Context, courierID uuid.UUID) (int64, error)

	FindDelivery(ctx context.Context, orderID uuid.UUID, date time.Time) (*models.DailyDelivery, error)
	ListDeliveriesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.DailyDelivery, error)
	ListCourierDeliveriesOnDate(ctx context.Context, courierID uuid.UUID, date time.Time) ([]CourierDelivery, error)
	CountOpenDeliveries(ctx context.Context, orderID uuid.UUID) (int64, error)
	CancelPendingDeliveries(ctx context.Context, orderID uuid.UUID) (int64, error)

	// UpdateOrderGuarded applies updates only when the stored version still
	// matches, bumping the version in the same statement. It reports whether
	// a row was updated.
	UpdateOrderGuarded(ctx context.Context, orderID uuid.UUID, version int64, updates map[string]any) (bool, error)
	// UpdateDeliveryGuarded applies updates only when the slot is still in
	// the expected status.
	UpdateDeliveryGuarded(ctx context.Context, deliveryID uuid.UUID, from enums.DeliveryStatus, updates map[string]any) (bool, error)

	ListTrackingByOrder(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEntry, error)

	FindCourierByID(ctx context.Context, id uuid.UUID) (*models.Courier, error)
	FindSchoolByID(ctx context.Context, id uuid.UUID) (*models.SchoolRegistration, error)
}

// Service defines the order lifecycle operations.
type Service interface {
	// Materialize creates an order plus its schedule inside the caller's
	// transaction. Payments drives this on confirmation.
	Materialize(ctx context.Context, tx *gorm.DB, input MaterializeInput) (*models.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListParentOrders(ctx context.Context, parentID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListSchoolOrders(ctx context.Context, schoolID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	AssignCourier(ctx context.Context, input AssignCourierInput) (*models.Order, error)
	TransitionDelivery(ctx context.Context, input TransitionDeliveryInput) (*models.DailyDelivery, error)
	CourierDay(ctx context.Context, courierID uuid.UUID, date time.Time) ([]CourierDelivery, error)
}
