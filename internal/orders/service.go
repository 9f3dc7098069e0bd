package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/internal/ordernumber"
	"github.com/mealroute/lunchbox-backend/internal/schedule"
	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgdb "github.com/mealroute/lunchbox-backend/pkg/db"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// orderTransitions enumerates the legal lifecycle moves.
var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusActive: {enums.OrderStatusPaused, enums.OrderStatusCancelled, enums.OrderStatusCompleted},
	enums.OrderStatusPaused: {enums.OrderStatusActive, enums.OrderStatusCancelled},
}

// deliveryTransitions enumerates the legal slot moves.
var deliveryTransitions = map[enums.DeliveryStatus][]enums.DeliveryStatus{
	enums.DeliveryStatusPending:  {enums.DeliveryStatusPickedUp, enums.DeliveryStatusCancelled, enums.DeliveryStatusSkipped},
	enums.DeliveryStatusPickedUp: {enums.DeliveryStatusDelivered, enums.DeliveryStatusCancelled},
}

func transitionAllowed[T comparable](table map[T][]T, from, to T) bool {
	for _, candidate := range table[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ServiceParams carries the dependencies for the orders service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Logger  *logger.Logger
	Courier config.CourierConfig
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	courier config.CourierConfig
	now     func() time.Time
}

// NewService builds the orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Courier.MaxActiveOrders <= 0 {
		return nil, fmt.Errorf("courier max active orders must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		logg:    params.Logger,
		courier: params.Courier,
		now:     now,
	}, nil
}

func (s *service) Materialize(ctx context.Context, tx *gorm.DB, input MaterializeInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "materialize requires a transaction")
	}
	if input.ParentID == uuid.Nil || input.SchoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent and school are required")
	}
	if input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}

	now := s.now()
	plan, err := schedule.BuildFrom(now, input.RequestedStart, input.OrderType)
	if err != nil {
		return nil, err
	}

	number, err := ordernumber.Next(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	school, err := repo.FindSchoolByID(ctx, input.SchoolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "school not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
	}

	boxes := input.NoOfBoxes
	if boxes <= 0 {
		boxes = 1
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = enums.PaymentStatusPaid
	}
	currency := input.Currency
	if currency == "" {
		currency = "INR"
	}

	order := models.Order{
		OrderNumber:         number,
		ParentID:            input.ParentID,
		ParentAddressID:     input.ParentAddressID,
		SchoolID:            school.ID,
		SchoolUniqueID:      school.UniqueID,
		OrderType:           input.OrderType,
		Status:              enums.OrderStatusActive,
		PaymentStatus:       paymentStatus,
		PaymentMethod:       input.PaymentMethod,
		StartDate:           plan.StartDate,
		EndDate:             plan.EndDate,
		DeliveryTime:        input.DeliveryTime,
		NoOfBoxes:           boxes,
		DeliveryAddress:     input.DeliveryAddress,
		SpecialInstructions: input.SpecialInstructions,
		DietaryRestrictions: input.DietaryRestrictions,
		LunchBoxType:        input.LunchBoxType,
		DistanceKM:          input.DistanceKM,
		BaseAmount:          input.BaseAmount,
		DistanceCharge:      input.DistanceCharge,
		TotalAmount:         input.TotalAmount,
		Currency:            currency,
	}
	if err := repo.CreateOrder(ctx, &order); err != nil {
		if pkgdb.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	deliveries := make([]models.DailyDelivery, 0, len(plan.Dates))
	for _, d := range plan.Dates {
		deliveries = append(deliveries, models.DailyDelivery{
			OrderID:      order.ID,
			DeliveryDate: d,
			Status:       enums.DeliveryStatusPending,
		})
	}
	if err := repo.CreateDeliveries(ctx, deliveries); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery schedule")
	}

	detail := fmt.Sprintf("%d deliveries scheduled", len(deliveries))
	entry := models.TrackingEntry{
		OrderID:   order.ID,
		ActorID:   &input.ActorID,
		ActorRole: enums.ActorRoleParent,
		Event:     EventOrderCreated,
		Detail:    &detail,
	}
	if err := repo.CreateTrackingEntry(ctx, &entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order creation")
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, number), "order materialized")
	return &order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	deliveries, err := s.repo.ListDeliveriesByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery schedule")
	}
	tracking, err := s.repo.ListTrackingByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking timeline")
	}

	return &OrderDetail{Order: *order, Deliveries: deliveries, Tracking: tracking}, nil
}

func (s *service) ListParentOrders(ctx context.Context, parentID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if parentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent id required")
	}

	normalized := params.Normalize()
	orders, total, err := s.repo.ListOrdersByParent(ctx, parentID, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	return &OrderList{
		Orders: orders,
		Page:   pagination.BuildPage(normalized, len(orders), total),
	}, nil
}

func (s *service) ListSchoolOrders(ctx context.Context, schoolID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if schoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}

	normalized := params.Normalize()
	orders, total, err := s.repo.ListOrdersBySchool(ctx, schoolID, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list school orders")
	}

	return &OrderList{
		Orders: orders,
		Page:   pagination.BuildPage(normalized, len(orders), total),
	}, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter, params pagination.Params) (*OrderList, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	normalized := params.Normalize()
	orders, total, err := s.repo.ListOrders(ctx, filter, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	return &OrderList{
		Orders: orders,
		Page:   pagination.BuildPage(normalized, len(orders), total),
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if order.Status == input.Target {
			updated = order
			return nil
		}
		if !transitionAllowed(orderTransitions, order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, input.Target))
		}

		ok, err := repo.UpdateOrderGuarded(ctx, order.ID, order.Version, map[string]any{"status": input.Target})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}

		event := ""
		switch input.Target {
		case enums.OrderStatusPaused:
			event = EventOrderPaused
		case enums.OrderStatusActive:
			event = EventOrderResumed
		case enums.OrderStatusCancelled:
			event = EventOrderCancelled
			if _, err := repo.CancelPendingDeliveries(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel remaining deliveries")
			}
		case enums.OrderStatusCompleted:
			event = EventOrderCompleted
		}

		entry := models.TrackingEntry{
			OrderID:   order.ID,
			ActorID:   &input.ActorID,
			ActorRole: input.ActorRole,
			Event:     event,
		}
		if err := repo.CreateTrackingEntry(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}

		reloaded, err := repo.FindOrderByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, updated.OrderNumber), "order status updated")
	return updated, nil
}

func (s *service) AssignCourier(ctx context.Context, input AssignCourierInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.CourierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order and courier ids required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		// Assignment is independent of order status; only the capacity
		// policy below gates it.
		if order.CourierID != nil && *order.CourierID == input.CourierID {
			updated = order
			return nil
		}

		courier, err := repo.FindCourierByID(ctx, input.CourierID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier")
		}
		if !courier.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "courier is not active")
		}

		active, err := repo.CountActiveOrdersByCourier(ctx, courier.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count courier load")
		}
		if active >= int64(s.courier.MaxActiveOrders) {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "courier is at capacity")
		}

		ok, err := repo.UpdateOrderGuarded(ctx, order.ID, order.Version, map[string]any{"courier_id": courier.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign courier")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
		}

		detail := courier.Name
		entry := models.TrackingEntry{
			OrderID:   order.ID,
			ActorID:   &input.ActorID,
			ActorRole: enums.ActorRoleAdmin,
			Event:     EventCourierAssigned,
			Detail:    &detail,
		}
		if err := repo.CreateTrackingEntry(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record assignment")
		}

		reloaded, err := repo.FindOrderByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, updated.OrderNumber), "courier assigned")
	return updated, nil
}

func slotEvent(target enums.DeliveryStatus) string {
	switch target {
	case enums.DeliveryStatusPickedUp:
		return EventDeliveryPickedUp
	case enums.DeliveryStatusDelivered:
		return EventDeliveryDelivered
	case enums.DeliveryStatusCancelled:
		return EventDeliveryCancelled
	case enums.DeliveryStatusSkipped:
		return EventDeliverySkipped
	default:
		return ""
	}
}

// ensureSlot loads the slot for the given day, creating a pending one on
// demand for dates inside the order window. Anything outside the window is
// off the calendar.
func ensureSlot(ctx context.Context, repo Repository, order *models.Order, date time.Time) (*models.DailyDelivery, error) {
	slot, err := repo.FindDelivery(ctx, order.ID, date)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery slot")
	}
	if date.Before(order.StartDate) || date.After(order.EndDate) {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfRange, "date outside the order delivery window")
	}
	created := models.DailyDelivery{
		OrderID:      order.ID,
		DeliveryDate: date,
		Status:       enums.DeliveryStatusPending,
	}
	if err := repo.CreateDelivery(ctx, &created); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery slot")
	}
	return &created, nil
}

func (s *service) TransitionDelivery(ctx context.Context, input TransitionDeliveryInput) (*models.DailyDelivery, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() || input.Target == enums.DeliveryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target delivery status")
	}

	switch input.Target {
	case enums.DeliveryStatusPickedUp, enums.DeliveryStatusDelivered:
		if input.ActorRole != enums.ActorRoleCourier && input.ActorRole != enums.ActorRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only couriers can progress deliveries")
		}
	case enums.DeliveryStatusCancelled, enums.DeliveryStatusSkipped:
		if input.ActorRole != enums.ActorRoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can close delivery slots")
		}
	}

	date := time.Date(input.Date.Year(), input.Date.Month(), input.Date.Day(), 0, 0, 0, 0, input.Date.Location())

	var updated *models.DailyDelivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not active")
		}
		// Couriers only see orders assigned to them.
		if input.ActorRole == enums.ActorRoleCourier {
			if order.CourierID == nil || *order.CourierID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found or not assigned to you")
			}
		}

		slot, err := ensureSlot(ctx, repo, order, date)
		if err != nil {
			return err
		}

		if slot.Status == input.Target {
			updated = slot
			return nil
		}
		if !transitionAllowed(deliveryTransitions, slot.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move delivery from %s to %s", slot.Status, input.Target))
		}

		now := s.now()
		updates := map[string]any{"status": input.Target}
		switch input.Target {
		case enums.DeliveryStatusPickedUp:
			updates["pickup_time"] = now
		case enums.DeliveryStatusDelivered:
			updates["delivery_time"] = now
			if input.ActorRole == enums.ActorRoleCourier {
				updates["delivered_by"] = input.ActorID
			}
		}
		if input.Note != nil {
			updates["notes"] = *input.Note
		}

		ok, err := repo.UpdateDeliveryGuarded(ctx, slot.ID, slot.Status, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery slot")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery slot was modified concurrently")
		}

		detail := date.Format("2006-01-02")
		entry := models.TrackingEntry{
			OrderID:   order.ID,
			ActorID:   &input.ActorID,
			ActorRole: input.ActorRole,
			Event:     slotEvent(input.Target),
			Detail:    &detail,
		}
		if err := repo.CreateTrackingEntry(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record slot change")
		}

		// Delivering or closing the last open slot completes the order.
		if input.Target == enums.DeliveryStatusDelivered || input.Target.IsAdministrativelyClosed() {
			open, err := repo.CountOpenDeliveries(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open slots")
			}
			if open == 0 {
				ok, err := repo.UpdateOrderGuarded(ctx, order.ID, order.Version, map[string]any{"status": enums.OrderStatusCompleted})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
				}
				if !ok {
					return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
				}
				completion := models.TrackingEntry{
					OrderID:   order.ID,
					ActorRole: enums.ActorRoleSystem,
					Event:     EventOrderCompleted,
				}
				if err := repo.CreateTrackingEntry(ctx, &completion); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record completion")
				}
			}
		}

		reloaded, err := repo.FindDelivery(ctx, order.ID, date)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery slot")
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) CourierDay(ctx context.Context, courierID uuid.UUID, date time.Time) ([]CourierDelivery, error) {
	if courierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	deliveries, err := s.repo.ListCourierDeliveriesOnDate(ctx, courierID, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier deliveries")
	}
	return deliveries, nil
}
