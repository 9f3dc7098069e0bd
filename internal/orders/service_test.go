package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/pkg/config"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Tx:      gormTxRunner{db: db},
		Logger:  logger.New(logger.Options{ServiceName: "orders-test"}),
		Courier: config.CourierConfig{MaxActiveOrders: 2},
		Now:     fixedNow,
	})
	require.NoError(t, err)
	return svc, repo, db
}

func materializeInput(t *testing.T, db *gorm.DB) MaterializeInput {
	school := seedSchool(t, db)
	return MaterializeInput{
		ParentID:        uuid.New(),
		SchoolID:        school.ID,
		OrderType:       enums.OrderTypeFifteenDays,
		RequestedStart:  time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		DeliveryAddress: "12 Test Lane",
		DistanceKM:      decimal.NewFromInt(7),
		BaseAmount:      decimal.NewFromInt(1500),
		DistanceCharge:  decimal.NewFromInt(10),
		TotalAmount:     decimal.NewFromInt(1510),
		Currency:        "INR",
		ActorID:         uuid.New(),
	}
}

func mustMaterialize(t *testing.T, svc Service, db *gorm.DB, input MaterializeInput) *models.Order {
	t.Helper()
	var order *models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = svc.Materialize(context.Background(), tx, input)
		return err
	})
	require.NoError(t, err)
	return order
}

func TestMaterializeCreatesOrderScheduleAndTracking(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))

	// The window is anchored at the requested start even though deliveries
	// in the current month only begin tomorrow.
	assert.Equal(t, "LUNCH202403140001", order.OrderNumber)
	assert.Equal(t, time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), order.StartDate)
	assert.Equal(t, time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC), order.EndDate)
	assert.Equal(t, enums.OrderStatusActive, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.NotEmpty(t, order.SchoolUniqueID)
	assert.Equal(t, 1, order.NoOfBoxes)

	deliveries, err := repo.ListDeliveriesByOrder(ctx, order.ID)
	require.NoError(t, err)
	// Mar 15 through Mar 29, minus Sundays Mar 17 and Mar 24.
	require.Len(t, deliveries, 13)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), deliveries[0].DeliveryDate)
	for _, d := range deliveries {
		assert.NotEqual(t, time.Sunday, d.DeliveryDate.Weekday())
		assert.Equal(t, enums.DeliveryStatusPending, d.Status)
	}

	tracking, err := repo.ListTrackingByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, tracking, 1)
	assert.Equal(t, EventOrderCreated, tracking[0].Event)
}

func TestMaterializeSequencesOrderNumbers(t *testing.T) {
	svc, _, db := newTestService(t)

	first := mustMaterialize(t, svc, db, materializeInput(t, db))
	second := mustMaterialize(t, svc, db, materializeInput(t, db))

	assert.Equal(t, "LUNCH202403140001", first.OrderNumber)
	assert.Equal(t, "LUNCH202403140002", second.OrderNumber)
}

func TestUpdateStatusPauseResumeCancel(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	actor := uuid.New()

	paused, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusPaused, ActorID: actor, ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaused, paused.Status)

	resumed, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusActive, ActorID: actor, ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusActive, resumed.Status)

	cancelled, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusCancelled, ActorID: actor, ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	deliveries, err := repo.ListDeliveriesByOrder(ctx, order.ID)
	require.NoError(t, err)
	for _, d := range deliveries {
		assert.Equal(t, enums.DeliveryStatusCancelled, d.Status)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))

	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusCancelled, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)

	// Cancelled is terminal. The request is well-formed, the state refuses it.
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusActive, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestUpdateStatusIdempotent(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))

	first, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusPaused, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)

	second, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusPaused, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
}

func seedCourier(t *testing.T, db *gorm.DB, active bool) *models.Courier {
	t.Helper()
	courier := models.Courier{UserID: uuid.New(), Name: "Ravi", IsActive: active}
	require.NoError(t, db.Create(&courier).Error)
	return &courier
}

// assignedCourier seeds an active courier and assigns them to the order.
func assignedCourier(t *testing.T, svc Service, db *gorm.DB, orderID uuid.UUID) *models.Courier {
	t.Helper()
	courier := seedCourier(t, db, true)
	_, err := svc.AssignCourier(context.Background(), AssignCourierInput{
		OrderID: orderID, CourierID: courier.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	return courier
}

func TestAssignCourier(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := seedCourier(t, db, true)

	assigned, err := svc.AssignCourier(ctx, AssignCourierInput{
		OrderID: order.ID, CourierID: courier.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	require.NotNil(t, assigned.CourierID)
	assert.Equal(t, courier.ID, *assigned.CourierID)

	tracking, err := repo.ListTrackingByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, EventCourierAssigned, tracking[len(tracking)-1].Event)
}

func TestAssignCourierOnPausedOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusPaused, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)

	// Assignment does not depend on the order being active.
	courier := seedCourier(t, db, true)
	assigned, err := svc.AssignCourier(ctx, AssignCourierInput{
		OrderID: order.ID, CourierID: courier.ID, ActorID: uuid.New(),
	})
	require.NoError(t, err)
	require.NotNil(t, assigned.CourierID)
	assert.Equal(t, courier.ID, *assigned.CourierID)
	assert.Equal(t, enums.OrderStatusPaused, assigned.Status)
}

func TestAssignCourierCapacityExceeded(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	courier := seedCourier(t, db, true)
	for i := 0; i < 2; i++ {
		order := mustMaterialize(t, svc, db, materializeInput(t, db))
		_, err := svc.AssignCourier(ctx, AssignCourierInput{OrderID: order.ID, CourierID: courier.ID, ActorID: uuid.New()})
		require.NoError(t, err)
	}

	extra := mustMaterialize(t, svc, db, materializeInput(t, db))
	_, err := svc.AssignCourier(ctx, AssignCourierInput{OrderID: extra.ID, CourierID: courier.ID, ActorID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCapacityExceeded))
}

func TestAssignCourierInactive(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := seedCourier(t, db, false)

	_, err := svc.AssignCourier(ctx, AssignCourierInput{OrderID: order.ID, CourierID: courier.ID, ActorID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransitionDeliveryPickupAndDeliver(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := assignedCourier(t, svc, db, order.ID)
	date := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	pickedUp, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: date, Target: enums.DeliveryStatusPickedUp,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPickedUp, pickedUp.Status)
	require.NotNil(t, pickedUp.PickupTime)

	delivered, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: date, Target: enums.DeliveryStatusDelivered,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveryTime)
}

func TestTransitionDeliveryRejectsSkippedStages(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := assignedCourier(t, svc, db, order.ID)

	// delivered straight from pending is not allowed
	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Target:  enums.DeliveryStatusDelivered,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransitionDeliveryRoleChecks(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))

	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: order.StartDate, Target: enums.DeliveryStatusPickedUp,
		ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: order.StartDate, Target: enums.DeliveryStatusSkipped,
		ActorID: uuid.New(), ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestTransitionDeliveryRejectsUnassignedCourier(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	assignedCourier(t, svc, db, order.ID)
	other := seedCourier(t, db, true)

	// A courier who is not on the order cannot see it.
	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Target:  enums.DeliveryStatusPickedUp,
		ActorID: other.ID, ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionDeliveryUnassignedOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := seedCourier(t, db, true)

	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Target:  enums.DeliveryStatusPickedUp,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionDeliveryCreatesMissingSlotInWindow(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := assignedCourier(t, svc, db, order.ID)

	// Sunday Mar 17 carries no pre-scheduled slot, but it sits inside the
	// window, so a slot appears on demand.
	date := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	_, err := repo.FindDelivery(ctx, order.ID, date)
	require.Error(t, err)

	slot, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: date, Target: enums.DeliveryStatusPickedUp,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPickedUp, slot.Status)
	assert.Equal(t, date, slot.DeliveryDate)

	stored, err := repo.FindDelivery(ctx, order.ID, date)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusPickedUp, stored.Status)
}

func TestTransitionDeliveryOutsideWindow(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := assignedCourier(t, svc, db, order.ID)

	// Well past the order's end date.
	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Target:  enums.DeliveryStatusPickedUp,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeOutOfRange))
}

func TestOrderAutoCompletesWhenAllSlotsClose(t *testing.T) {
	svc, repo, db := newTestService(t)
	ctx := context.Background()

	input := materializeInput(t, db)
	input.OrderType = enums.OrderTypeToday
	order := mustMaterialize(t, svc, db, input)

	// A same-day order has no pre-scheduled slots; skipping its single day
	// creates the slot on demand and leaves nothing open.
	admin := uuid.New()
	_, err := svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: order.StartDate, Target: enums.DeliveryStatusSkipped,
		ActorID: admin, ActorRole: enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	reloaded, err := repo.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, reloaded.Status)

	tracking, err := repo.ListTrackingByOrder(ctx, order.ID)
	require.NoError(t, err)
	events := make([]string, 0, len(tracking))
	for _, e := range tracking {
		events = append(events, e.Event)
	}
	assert.Contains(t, events, EventOrderCompleted)
}

func TestTransitionDeliveryOnInactiveOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	order := mustMaterialize(t, svc, db, materializeInput(t, db))
	courier := assignedCourier(t, svc, db, order.ID)
	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID, Target: enums.OrderStatusPaused, ActorID: uuid.New(), ActorRole: enums.ActorRoleParent,
	})
	require.NoError(t, err)

	_, err = svc.TransitionDelivery(ctx, TransitionDeliveryInput{
		OrderID: order.ID, Date: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		Target:  enums.DeliveryStatusPickedUp,
		ActorID: courier.ID, ActorRole: enums.ActorRoleCourier,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListParentOrders(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	input := materializeInput(t, db)
	for i := 0; i < 3; i++ {
		mustMaterialize(t, svc, db, input)
	}

	list, err := svc.ListParentOrders(ctx, input.ParentID, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
	assert.EqualValues(t, 3, list.Page.TotalItems)
	assert.True(t, list.Page.HasNextPage)
}

func TestListSchoolOrders(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	input := materializeInput(t, db)
	mustMaterialize(t, svc, db, input)
	mustMaterialize(t, svc, db, materializeInput(t, db))

	list, err := svc.ListSchoolOrders(ctx, input.SchoolID, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, input.SchoolID, list.Orders[0].SchoolID)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()

	kept := mustMaterialize(t, svc, db, materializeInput(t, db))
	cancelled := mustMaterialize(t, svc, db, materializeInput(t, db))
	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: cancelled.ID, Target: enums.OrderStatusCancelled, ActorID: uuid.New(), ActorRole: enums.ActorRoleAdmin,
	})
	require.NoError(t, err)

	active := enums.OrderStatusActive
	list, err := svc.ListOrders(ctx, ListFilter{Status: &active}, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, kept.ID, list.Orders[0].ID)
}
