package payments

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

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.PaymentReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindReservationByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.PaymentReservation, error) {
	var reservation models.PaymentReservation
	err := r.db.WithContext(ctx).
		Where("razorpay_order_id = ?", razorpayOrderID).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) CompleteReservationGuarded(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentReservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusPending).
		Updates(map[string]any{"status": enums.ReservationStatusCompleted})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ExpireStaleReservations(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentReservation{}).
		Where("status = ? AND expires_at < ?", enums.ReservationStatusPending, now).
		Updates(map[string]any{"status": enums.ReservationStatusExpired})
	return result.RowsAffected, result.Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactionsByParent(ctx context.Context, parentID uuid.UUID, params pagination.Params) ([]models.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("parent_id = ?", parentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	err := query.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (r *repository) RefundTransactionGuarded(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	merged := map[string]any{"status": enums.TransactionStatusRefunded}
	for k, v := range updates {
		merged[k] = v
	}
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusCompleted).
		Updates(merged)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *repository) CreateTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindParentByID(ctx context.Context, id uuid.UUID) (*models.Parent, error) {
	var parent models.Parent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&parent).Error
	if err != nil {
		return nil, err
	}
	return &parent, nil
}

func (r *repository) FindParentAddress(ctx context.Context, parentID, addressID uuid.UUID) (*models.ParentAddress, error) {
	var address models.ParentAddress
	err := r.db.WithContext(ctx).
		Where("id = ? AND parent_id = ?", addressID, parentID).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) FindSchoolByID(ctx context.Context, id uuid.UUID) (*models.SchoolRegistration, error) {
	var school models.SchoolRegistration
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&school).Error
	if err != nil {
		return nil, err
	}
	return &school, nil
}
