package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/pkg/config"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

const testSecret = "rzp_test_secret"

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixedEstimator struct {
	km  float64
	err error
}

func (f fixedEstimator) EstimateKilometers(context.Context, string, string) (float64, error) {
	return f.km, f.err
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Parent{},
		&models.ParentAddress{},
		&models.SchoolRegistration{},
		&models.Order{},
		&models.DailyDelivery{},
		&models.TrackingEntry{},
		&models.Courier{},
		&models.PaymentReservation{},
		&models.Transaction{},
	))
	return conn
}

type fixture struct {
	svc     Service
	repo    Repository
	db      *gorm.DB
	parent  models.Parent
	address models.ParentAddress
	school  models.SchoolRegistration
}

func newFixture(t *testing.T, estimator DistanceEstimator) *fixture {
	t.Helper()
	db := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "payments-test"})

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(db),
		Tx:      gormTxRunner{db: db},
		Logger:  logg,
		Courier: config.CourierConfig{MaxActiveOrders: 25},
		Now:     fixedNow,
	})
	require.NoError(t, err)

	repo := NewRepository(db)
	svc, err := NewService(ServiceParams{
		Repo:      repo,
		Orders:    ordersSvc,
		Tx:        gormTxRunner{db: db},
		Logger:    logg,
		Estimator: estimator,
		Payment:   config.PaymentConfig{RazorpayKeySecret: testSecret, ReservationTTL: 15 * time.Minute},
		Pricing: config.PricingConfig{
			FreeKilometers:   decimal.NewFromInt(5),
			RatePerKilometer: decimal.NewFromInt(5),
			Currency:         "INR",
		},
		Now: fixedNow,
	})
	require.NoError(t, err)

	f := &fixture{svc: svc, repo: repo, db: db}

	f.parent = models.Parent{UserID: uuid.New(), Name: "Asha"}
	require.NoError(t, db.Create(&f.parent).Error)
	f.address = models.ParentAddress{ParentID: f.parent.ID, AddressLine: "12 Test Lane"}
	require.NoError(t, db.Create(&f.address).Error)
	f.school = models.SchoolRegistration{UniqueID: "SCH001", Name: "Green Valley", AddressLine: "School Road"}
	require.NoError(t, db.Create(&f.school).Error)

	return f
}

func (f *fixture) reserveInput() ReserveInput {
	return ReserveInput{
		ParentID:        f.parent.ID,
		AddressID:       f.address.ID,
		SchoolID:        f.school.ID,
		OrderType:       enums.OrderTypeFifteenDays,
		RequestedStart:  time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		BaseAmount:      decimal.NewFromInt(1500),
		RazorpayOrderID: "order_abc",
	}
}

func TestReserveComputesDistanceCharge(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})

	result, err := f.svc.Reserve(context.Background(), f.reserveInput())
	require.NoError(t, err)

	// 7 km, first 5 free, 2 billable at 5 per km.
	assert.True(t, result.DistanceCharge.Equal(decimal.NewFromInt(10)), "got %s", result.DistanceCharge)
	assert.True(t, result.TotalAmount.Equal(decimal.NewFromInt(1510)), "got %s", result.TotalAmount)
	assert.Equal(t, enums.ReservationStatusPending, result.Reservation.Status)
	assert.Equal(t, fixedNow().Add(15*time.Minute), result.Reservation.ExpiresAt.UTC())
}

func TestReserveWithinFreeKilometers(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 3})

	result, err := f.svc.Reserve(context.Background(), f.reserveInput())
	require.NoError(t, err)
	assert.True(t, result.DistanceCharge.IsZero())
	assert.True(t, result.TotalAmount.Equal(decimal.NewFromInt(1500)))
}

func TestReserveEstimatorFailureBillsZeroDistance(t *testing.T) {
	f := newFixture(t, fixedEstimator{err: fmt.Errorf("geocoder down")})

	result, err := f.svc.Reserve(context.Background(), f.reserveInput())
	require.NoError(t, err)
	assert.True(t, result.DistanceKM.IsZero())
	assert.True(t, result.DistanceCharge.IsZero())
}

func TestReserveUsesCachedCoordinates(t *testing.T) {
	f := newFixture(t, fixedEstimator{err: fmt.Errorf("should not be called")})

	// Bangalore city center and Whitefield, roughly 17 km apart.
	lat1, lng1 := 12.9716, 77.5946
	lat2, lng2 := 12.9698, 77.7500
	require.NoError(t, f.db.Model(&models.ParentAddress{}).Where("id = ?", f.address.ID).
		Updates(map[string]any{"latitude": lat1, "longitude": lng1}).Error)
	require.NoError(t, f.db.Model(&models.SchoolRegistration{}).Where("id = ?", f.school.ID).
		Updates(map[string]any{"latitude": lat2, "longitude": lng2}).Error)

	result, err := f.svc.Reserve(context.Background(), f.reserveInput())
	require.NoError(t, err)
	assert.True(t, result.DistanceKM.GreaterThan(decimal.NewFromInt(10)))
	assert.True(t, result.DistanceCharge.GreaterThan(decimal.Zero))
}

func TestReserveDuplicateGatewayOrder(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 3})

	_, err := f.svc.Reserve(context.Background(), f.reserveInput())
	require.NoError(t, err)

	_, err = f.svc.Reserve(context.Background(), f.reserveInput())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestConfirmMaterializesOrder(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	reserved, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	result, err := f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	})
	require.NoError(t, err)

	assert.Equal(t, "LUNCH202403140001", result.Order.OrderNumber)
	assert.Equal(t, enums.OrderStatusActive, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, result.Order.PaymentStatus)
	assert.True(t, result.Order.TotalAmount.Equal(reserved.TotalAmount))
	assert.Equal(t, enums.TransactionStatusCompleted, result.Transaction.Status)

	stored, err := f.repo.FindReservationByRazorpayOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusCompleted, stored.Status)
}

func TestConfirmRejectsBadSignature(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         "deadbeef",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature))

	// Nothing was materialized.
	stored, err := f.repo.FindReservationByRazorpayOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, stored.Status)
}

func TestConfirmUnknownReservation(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})

	_, err := f.svc.Confirm(context.Background(), ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_missing",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_missing", "pay_xyz"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReservationGone))
}

func TestConfirmTwiceIsRejected(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	input := ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	}
	_, err = f.svc.Confirm(ctx, input)
	require.NoError(t, err)

	// The reservation was consumed by the first confirm; a duplicate
	// callback looks the same as one that never existed.
	_, err = f.svc.Confirm(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReservationGone))

	// Only one order came out of the reservation.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConfirmExpiredReservation(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.PaymentReservation{}).
		Where("razorpay_order_id = ?", "order_abc").
		Update("expires_at", fixedNow().Add(-time.Minute)).Error)

	_, err = f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReservationExpired))
}

func TestConfirmWrongParent(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          uuid.New(),
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)

	second := f.reserveInput()
	second.RazorpayOrderID = "order_def"
	_, err = f.svc.Reserve(ctx, second)
	require.NoError(t, err)

	// Push one reservation past its TTL.
	require.NoError(t, f.db.Model(&models.PaymentReservation{}).
		Where("razorpay_order_id = ?", "order_abc").
		Update("expires_at", fixedNow().Add(-time.Minute)).Error)

	expired, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	stale, err := f.repo.FindReservationByRazorpayOrderID(ctx, "order_abc")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusExpired, stale.Status)

	fresh, err := f.repo.FindReservationByRazorpayOrderID(ctx, "order_def")
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationStatusPending, fresh.Status)
}

func TestCreateDirectLeavesPaymentPending(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	order, err := f.svc.CreateDirect(ctx, DirectCreateInput{
		ParentID:       f.parent.ID,
		AddressID:      f.address.ID,
		SchoolID:       f.school.ID,
		OrderType:      enums.OrderTypeFifteenDays,
		RequestedStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		NoOfBoxes:      2,
		BaseAmount:     decimal.NewFromInt(1500),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusActive, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, "cash", *order.PaymentMethod)
	assert.Equal(t, 2, order.NoOfBoxes)
	assert.Equal(t, "SCH001", order.SchoolUniqueID)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1510)))

	list, err := f.svc.ListTransactions(ctx, f.parent.ID, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, enums.TransactionStatusPending, list.Transactions[0].Status)
}

func TestListAndGetTransactions(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)
	result, err := f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	})
	require.NoError(t, err)

	list, err := f.svc.ListTransactions(ctx, f.parent.ID, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)

	txn, err := f.svc.GetTransaction(ctx, f.parent.ID, result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Transaction.ID, txn.ID)

	_, err = f.svc.GetTransaction(ctx, uuid.New(), result.Transaction.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRefundCompletedTransaction(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	_, err := f.svc.Reserve(ctx, f.reserveInput())
	require.NoError(t, err)
	result, err := f.svc.Confirm(ctx, ConfirmInput{
		ParentID:          f.parent.ID,
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: "pay_xyz",
		Signature:         sign(testSecret, "order_abc", "pay_xyz"),
	})
	require.NoError(t, err)

	refunded, err := f.svc.Refund(ctx, RefundInput{
		TransactionID: result.Transaction.ID,
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.TransactionStatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundAmount)
	assert.True(t, refunded.RefundAmount.Equal(result.Transaction.Amount))
	require.NotNil(t, refunded.RefundedAt)

	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.Order.ID).First(&order).Error)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)

	// Refunding again is a no-op.
	again, err := f.svc.Refund(ctx, RefundInput{TransactionID: result.Transaction.ID, ActorID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, refunded.RefundID, again.RefundID)
}

func TestRefundRejectsPendingTransaction(t *testing.T) {
	f := newFixture(t, fixedEstimator{km: 7})
	ctx := context.Background()

	order, err := f.svc.CreateDirect(ctx, DirectCreateInput{
		ParentID:       f.parent.ID,
		AddressID:      f.address.ID,
		SchoolID:       f.school.ID,
		OrderType:      enums.OrderTypeToday,
		RequestedStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		BaseAmount:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	var txn models.Transaction
	require.NoError(t, f.db.Where("order_id = ?", order.ID).First(&txn).Error)

	_, err = f.svc.Refund(ctx, RefundInput{TransactionID: txn.ID, ActorID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
