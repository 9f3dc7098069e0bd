package dispatch

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

	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Order{},
		&models.DailyDelivery{},
		&models.Courier{},
	))
	return conn
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, courierID *uuid.UUID, seq int) *models.Order {
	t.Helper()
	start := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	order := models.Order{
		OrderNumber:     fmt.Sprintf("LUNCH20240314%04d", seq),
		ParentID:        uuid.New(),
		SchoolID:        uuid.New(),
		CourierID:       courierID,
		OrderType:       enums.OrderTypeFifteenDays,
		Status:          status,
		PaymentStatus:   enums.PaymentStatusPaid,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 15),
		DeliveryAddress: "12 Test Lane",
		DistanceKM:      decimal.Zero,
		BaseAmount:      decimal.NewFromInt(1500),
		DistanceCharge:  decimal.Zero,
		TotalAmount:     decimal.NewFromInt(1500),
		Currency:        "INR",
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}

func TestSummarizeAssignmentCounts(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "dispatch-test"}))
	require.NoError(t, err)

	courier := models.Courier{UserID: uuid.New(), Name: "Ravi", IsActive: true}
	require.NoError(t, db.Create(&courier).Error)

	seedOrder(t, db, enums.OrderStatusActive, &courier.ID, 1)
	seedOrder(t, db, enums.OrderStatusActive, nil, 2)
	seedOrder(t, db, enums.OrderStatusPaused, nil, 3)
	// Terminal orders never count.
	seedOrder(t, db, enums.OrderStatusCompleted, &courier.ID, 4)
	seedOrder(t, db, enums.OrderStatusCancelled, nil, 5)

	summary, err := svc.Summarize(context.Background(), time.Date(2024, time.March, 15, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.EqualValues(t, 3, summary.TotalOrders)
	assert.EqualValues(t, 1, summary.Assigned)
	assert.EqualValues(t, 2, summary.Unassigned)
	// The books must balance.
	assert.Equal(t, summary.TotalOrders, summary.Assigned+summary.Unassigned)

	require.Len(t, summary.CourierLoads, 1)
	assert.Equal(t, courier.ID, summary.CourierLoads[0].CourierID)
	assert.Equal(t, "Ravi", summary.CourierLoads[0].CourierName)
	assert.EqualValues(t, 1, summary.CourierLoads[0].OrderCount)
}

func TestSummarizeSchoolCountsOnlyThatSchool(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "dispatch-test"}))
	require.NoError(t, err)

	courier := models.Courier{UserID: uuid.New(), Name: "Ravi", IsActive: true}
	require.NoError(t, db.Create(&courier).Error)

	mine := seedOrder(t, db, enums.OrderStatusActive, &courier.ID, 1)
	other := seedOrder(t, db, enums.OrderStatusActive, nil, 2)
	unassigned := models.Order{
		OrderNumber:     "LUNCH202403140099",
		ParentID:        uuid.New(),
		SchoolID:        mine.SchoolID,
		OrderType:       enums.OrderTypeToday,
		Status:          enums.OrderStatusActive,
		PaymentStatus:   enums.PaymentStatusPaid,
		StartDate:       mine.StartDate,
		EndDate:         mine.EndDate,
		DeliveryAddress: "12 Test Lane",
		DistanceKM:      decimal.Zero,
		BaseAmount:      decimal.NewFromInt(100),
		DistanceCharge:  decimal.Zero,
		TotalAmount:     decimal.NewFromInt(100),
		Currency:        "INR",
	}
	require.NoError(t, db.Create(&unassigned).Error)

	summary, err := svc.SummarizeSchool(context.Background(), mine.SchoolID)
	require.NoError(t, err)

	assert.Equal(t, mine.SchoolID, summary.SchoolID)
	assert.EqualValues(t, 2, summary.TotalCount)
	assert.EqualValues(t, 1, summary.AssignedCount)
	assert.EqualValues(t, 1, summary.UnassignedCount)

	// The other school's order never leaks in.
	otherSummary, err := svc.SummarizeSchool(context.Background(), other.SchoolID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, otherSummary.TotalCount)
	assert.EqualValues(t, 0, otherSummary.AssignedCount)
}

func TestSummarizeSchoolRequiresID(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "dispatch-test"}))
	require.NoError(t, err)

	_, err = svc.SummarizeSchool(context.Background(), uuid.Nil)
	require.Error(t, err)
}

func TestSummarizeSlotCountsForDay(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "dispatch-test"}))
	require.NoError(t, err)

	order := seedOrder(t, db, enums.OrderStatusActive, nil, 1)
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]models.DailyDelivery{
		{OrderID: order.ID, DeliveryDate: day, Status: enums.DeliveryStatusDelivered},
		{OrderID: uuid.New(), DeliveryDate: day, Status: enums.DeliveryStatusPending},
		{OrderID: uuid.New(), DeliveryDate: day, Status: enums.DeliveryStatusPending},
		{OrderID: order.ID, DeliveryDate: day.AddDate(0, 0, 1), Status: enums.DeliveryStatusPending},
	}).Error)

	summary, err := svc.Summarize(context.Background(), day)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.SlotsByStatus[enums.DeliveryStatusDelivered])
	assert.EqualValues(t, 2, summary.SlotsByStatus[enums.DeliveryStatusPending])
	assert.NotContains(t, summary.SlotsByStatus, enums.DeliveryStatusSkipped)
}

func TestSummarizeEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), logger.New(logger.Options{ServiceName: "dispatch-test"}))
	require.NoError(t, err)

	summary, err := svc.Summarize(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalOrders)
	assert.Zero(t, summary.Assigned)
	assert.Zero(t, summary.Unassigned)
	assert.Empty(t, summary.CourierLoads)
}
