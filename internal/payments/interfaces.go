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

// Repository is the persistence surface for reservations and transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateReservation(ctx context.Context, reservation *models.PaymentReservation) error
	FindReservationByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.PaymentReservation, error)
	// CompleteReservationGuarded flips a reservation from pending to
	// completed. It reports whether the row was still pending.
	CompleteReservationGuarded(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireStaleReservations(ctx context.Context, now time.Time) (int64, error)

	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactionsByParent(ctx context.Context, parentID uuid.UUID, params pagination.Params) ([]models.Transaction, int64, error)
	// RefundTransactionGuarded flips a transaction from completed to refunded
	// with the given refund metadata. It reports whether the row was still in
	// the completed state.
	RefundTransactionGuarded(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)

	UpdateOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus) error
	CreateTrackingEntry(ctx context.Context, entry *models.TrackingEntry) error

	FindParentByID(ctx context.Context, id uuid.UUID) (*models.Parent, error)
	FindParentAddress(ctx context.Context, parentID, addressID uuid.UUID) (*models.ParentAddress, error)
	FindSchoolByID(ctx context.Context, id uuid.UUID) (*models.SchoolRegistration, error)
}

// DistanceEstimator measures the distance between two addresses.
type DistanceEstimator interface {
	EstimateKilometers(ctx context.Context, fromAddress, toAddress string) (float64, error)
}

// Service coordinates payment reservations with order materialization.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error)
	Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error)
	// CreateDirect prices and materializes an order without a gateway
	// checkout, leaving payment pending.
	CreateDirect(ctx context.Context, input DirectCreateInput) (*models.Order, error)
	ListTransactions(ctx context.Context, parentID uuid.UUID, params pagination.Params) (*TransactionList, error)
	GetTransaction(ctx context.Context, parentID, transactionID uuid.UUID) (*models.Transaction, error)
	// Refund reverses a completed transaction and marks the order unpaid.
	Refund(ctx context.Context, input RefundInput) (*models.Transaction, error)
	// ExpireStale closes reservations whose TTL has lapsed and returns how
	// many were expired. The cron worker drives this.
	ExpireStale(ctx context.Context) (int64, error)
}
