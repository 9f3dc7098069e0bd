package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgdb "github.com/mealroute/lunchbox-backend/pkg/db"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/geo"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

const (
	confirmMaxRetries   = 5
	confirmRetryBackoff = 50 * time.Millisecond
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams carries the dependencies for the payments service.
type ServiceParams struct {
	Repo      Repository
	Orders    orders.Service
	Tx        txRunner
	Logger    *logger.Logger
	Estimator DistanceEstimator
	Payment   config.PaymentConfig
	Pricing   config.PricingConfig
	Now       func() time.Time
}

type service struct {
	repo      Repository
	orders    orders.Service
	tx        txRunner
	logg      *logger.Logger
	estimator DistanceEstimator
	payment   config.PaymentConfig
	pricing   config.PricingConfig
	now       func() time.Time
}

// NewService builds the payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payment.RazorpayKeySecret == "" {
		return nil, fmt.Errorf("razorpay key secret required")
	}
	if params.Payment.ReservationTTL <= 0 {
		return nil, fmt.Errorf("reservation TTL must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		tx:        params.Tx,
		logg:      params.Logger,
		estimator: params.Estimator,
		payment:   params.Payment,
		pricing:   params.Pricing,
		now:       now,
	}, nil
}

// distanceCharge bills everything beyond the free kilometers at the per-km
// rate. Distance never produces a negative charge.
func (s *service) distanceCharge(distanceKM decimal.Decimal) decimal.Decimal {
	billable := distanceKM.Sub(s.pricing.FreeKilometers)
	if billable.IsNegative() {
		return decimal.Zero
	}
	return billable.Mul(s.pricing.RatePerKilometer).Round(2)
}

// estimateDistance measures the pickup-to-school distance. Cached coordinates
// win; otherwise the geocoder resolves both addresses. A failed estimate is a
// zero-distance order, not an error.
func (s *service) estimateDistance(ctx context.Context, address *models.ParentAddress, school *models.SchoolRegistration) decimal.Decimal {
	if address.Latitude != nil && address.Longitude != nil && school.Latitude != nil && school.Longitude != nil {
		km := geo.HaversineKilometers(
			geo.LatLng{Latitude: *address.Latitude, Longitude: *address.Longitude},
			geo.LatLng{Latitude: *school.Latitude, Longitude: *school.Longitude},
		)
		return decimal.NewFromFloat(km).Round(2)
	}

	if s.estimator == nil {
		s.logg.Warn(ctx, "no distance estimator configured, billing zero distance")
		return decimal.Zero
	}

	km, err := s.estimator.EstimateKilometers(ctx, address.AddressLine, school.AddressLine)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "distance estimate failed, billing zero distance")
		return decimal.Zero
	}
	return decimal.NewFromFloat(km).Round(2)
}

func (s *service) Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error) {
	if input.ParentID == uuid.Nil || input.SchoolID == uuid.Nil || input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent, address and school are required")
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if input.RazorpayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "razorpay order id required")
	}
	if input.BaseAmount.IsNegative() || input.BaseAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base amount must be positive")
	}

	if _, err := s.repo.FindParentByID(ctx, input.ParentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent")
	}
	address, err := s.repo.FindParentAddress(ctx, input.ParentID, input.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	school, err := s.repo.FindSchoolByID(ctx, input.SchoolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "school not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
	}

	distance := s.estimateDistance(ctx, address, school)
	charge := s.distanceCharge(distance)
	total := input.BaseAmount.Add(charge)

	boxes := input.NoOfBoxes
	if boxes <= 0 {
		boxes = 1
	}
	reservation := models.PaymentReservation{
		RazorpayOrderID:      input.RazorpayOrderID,
		ParentID:             input.ParentID,
		Status:               enums.ReservationStatusPending,
		Amount:               total,
		Currency:             s.pricing.Currency,
		StagedSchoolID:       input.SchoolID,
		StagedAddressID:      input.AddressID,
		StagedOrderType:      input.OrderType,
		StagedStartDate:      input.RequestedStart,
		StagedAddress:        address.AddressLine,
		StagedNoOfBoxes:      boxes,
		StagedDeliveryTime:   input.DeliveryTime,
		StagedDistanceKM:     distance,
		StagedBaseAmount:     input.BaseAmount,
		StagedDistanceCharge: charge,
		ExpiresAt:            s.now().Add(s.payment.ReservationTTL),
	}
	if err := s.repo.CreateReservation(ctx, &reservation); err != nil {
		if pkgdb.IsUniqueViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "reservation already exists for that gateway order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
	}

	s.logg.Info(s.logg.WithField(ctx, "razorpay_order_id", input.RazorpayOrderID), "payment reservation staged")
	return &ReserveResult{
		Reservation:    reservation,
		DistanceKM:     distance,
		BaseAmount:     input.BaseAmount,
		DistanceCharge: charge,
		TotalAmount:    total,
	}, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmResult, error) {
	if input.ParentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent id required")
	}
	if input.RazorpayOrderID == "" || input.RazorpayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order and payment ids required")
	}
	if !VerifySignature(s.payment.RazorpayKeySecret, input.RazorpayOrderID, input.RazorpayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSignature, "payment signature mismatch")
	}

	var result *ConfirmResult
	backoff := retry.WithMaxRetries(confirmMaxRetries, retry.NewConstant(confirmRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptErr := s.confirmOnce(ctx, input, &result)
		if pkgerrors.IsCode(attemptErr, pkgerrors.CodeConflict) {
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			// Payment is captured at the gateway but the order could not be
			// materialized. Surface for manual reconciliation.
			s.logg.Error(s.logg.WithField(ctx, "razorpay_order_id", input.RazorpayOrderID), "payment confirmed but order not materialized", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeReconciliation, err, "payment captured but order creation kept conflicting")
		}
		return nil, err
	}
	return result, nil
}

func (s *service) confirmOnce(ctx context.Context, input ConfirmInput, out **ConfirmResult) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reservation, err := repo.FindReservationByRazorpayOrderID(ctx, input.RazorpayOrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeReservationGone, "no reservation for that gateway order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}
		if reservation.ParentID != input.ParentID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another parent")
		}
		switch reservation.Status {
		case enums.ReservationStatusCompleted:
			// Duplicate callback for an already-consumed reservation.
			// Terminal, same as a missing reservation.
			return pkgerrors.New(pkgerrors.CodeReservationGone, "reservation already confirmed")
		case enums.ReservationStatusExpired:
			return pkgerrors.New(pkgerrors.CodeReservationExpired, "reservation has expired")
		}
		if reservation.ExpiresAt.Before(s.now()) {
			return pkgerrors.New(pkgerrors.CodeReservationExpired, "reservation has expired")
		}

		method := "razorpay"
		order, err := s.orders.Materialize(ctx, tx, orders.MaterializeInput{
			ParentID:        reservation.ParentID,
			ParentAddressID: &reservation.StagedAddressID,
			SchoolID:        reservation.StagedSchoolID,
			OrderType:       reservation.StagedOrderType,
			RequestedStart:  reservation.StagedStartDate,
			DeliveryAddress: reservation.StagedAddress,
			DeliveryTime:    reservation.StagedDeliveryTime,
			NoOfBoxes:       reservation.StagedNoOfBoxes,
			DistanceKM:      reservation.StagedDistanceKM,
			BaseAmount:      reservation.StagedBaseAmount,
			DistanceCharge:  reservation.StagedDistanceCharge,
			TotalAmount:     reservation.Amount,
			Currency:        reservation.Currency,
			PaymentStatus:   enums.PaymentStatusPaid,
			PaymentMethod:   &method,
			ActorID:         input.ParentID,
		})
		if err != nil {
			return err
		}

		now := s.now()
		rzpOrderID := input.RazorpayOrderID
		rzpPaymentID := input.RazorpayPaymentID
		signature := input.Signature
		txn := models.Transaction{
			OrderID:           &order.ID,
			ParentID:          reservation.ParentID,
			ReservationID:     &reservation.ID,
			RazorpayOrderID:   &rzpOrderID,
			RazorpayPaymentID: &rzpPaymentID,
			Signature:         &signature,
			Amount:            reservation.Amount,
			Currency:          reservation.Currency,
			Status:            enums.TransactionStatusCompleted,
			PaymentMethod:     &method,
			CompletedAt:       &now,
		}
		if err := repo.CreateTransaction(ctx, &txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
		}

		ok, err := repo.CompleteReservationGuarded(ctx, reservation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete reservation")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation was confirmed concurrently")
		}

		*out = &ConfirmResult{Order: *order, Transaction: txn}
		return nil
	})
}

func (s *service) CreateDirect(ctx context.Context, input DirectCreateInput) (*models.Order, error) {
	if input.ParentID == uuid.Nil || input.SchoolID == uuid.Nil || input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent, address and school are required")
	}
	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order type")
	}
	if input.BaseAmount.IsNegative() || input.BaseAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base amount must be positive")
	}

	if _, err := s.repo.FindParentByID(ctx, input.ParentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent")
	}
	address, err := s.repo.FindParentAddress(ctx, input.ParentID, input.AddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	school, err := s.repo.FindSchoolByID(ctx, input.SchoolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "school not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
	}

	distance := s.estimateDistance(ctx, address, school)
	charge := s.distanceCharge(distance)
	total := input.BaseAmount.Add(charge)

	method := input.PaymentMethod
	if method == "" {
		method = "cash"
	}

	var order *models.Order
	backoff := retry.WithMaxRetries(confirmMaxRetries, retry.NewConstant(confirmRetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			created, err := s.orders.Materialize(ctx, tx, orders.MaterializeInput{
				ParentID:            input.ParentID,
				ParentAddressID:     &address.ID,
				SchoolID:            input.SchoolID,
				OrderType:           input.OrderType,
				RequestedStart:      input.RequestedStart,
				DeliveryAddress:     address.AddressLine,
				DeliveryTime:        input.DeliveryTime,
				NoOfBoxes:           input.NoOfBoxes,
				SpecialInstructions: input.SpecialInstructions,
				DietaryRestrictions: input.DietaryRestrictions,
				LunchBoxType:        input.LunchBoxType,
				DistanceKM:          distance,
				BaseAmount:          input.BaseAmount,
				DistanceCharge:      charge,
				TotalAmount:         total,
				Currency:            s.pricing.Currency,
				PaymentStatus:       enums.PaymentStatusPending,
				PaymentMethod:       &method,
				ActorID:             input.ParentID,
			})
			if err != nil {
				return err
			}

			txn := models.Transaction{
				OrderID:       &created.ID,
				ParentID:      input.ParentID,
				Amount:        total,
				Currency:      created.Currency,
				Status:        enums.TransactionStatusPending,
				PaymentMethod: &method,
			}
			if err := s.repo.WithTx(tx).CreateTransaction(ctx, &txn); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
			}

			order = created
			return nil
		})
		if pkgerrors.IsCode(attemptErr, pkgerrors.CodeConflict) {
			return retry.RetryableError(attemptErr)
		}
		return attemptErr
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order created without gateway checkout")
	return order, nil
}

func (s *service) ListTransactions(ctx context.Context, parentID uuid.UUID, params pagination.Params) (*TransactionList, error) {
	if parentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent id required")
	}

	normalized := params.Normalize()
	txns, total, err := s.repo.ListTransactionsByParent(ctx, parentID, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	return &TransactionList{
		Transactions: txns,
		Page:         pagination.BuildPage(normalized, len(txns), total),
	}, nil
}

func (s *service) GetTransaction(ctx context.Context, parentID, transactionID uuid.UUID) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	txn, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	// Admins pass uuid.Nil and see everything.
	if parentID != uuid.Nil && txn.ParentID != parentID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another parent")
	}
	return txn, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Transaction, error) {
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	var refunded *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindTransactionByID(ctx, input.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if txn.Status == enums.TransactionStatusRefunded {
			refunded = txn
			return nil
		}
		if txn.Status != enums.TransactionStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeValidation, "only completed transactions can be refunded")
		}

		amount := txn.Amount
		if input.Amount != nil {
			if input.Amount.IsNegative() || input.Amount.IsZero() || input.Amount.GreaterThan(txn.Amount) {
				return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive and at most the captured amount")
			}
			amount = *input.Amount
		}

		now := s.now()
		refundID := "rfnd_" + uuid.NewString()
		updates := map[string]any{
			"refund_id":     refundID,
			"refund_amount": amount,
			"refunded_at":   now,
		}
		if input.Reason != nil {
			updates["failure_reason"] = *input.Reason
		}
		ok, err := repo.RefundTransactionGuarded(ctx, txn.ID, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refund transaction")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "transaction was modified concurrently")
		}

		if txn.OrderID != nil {
			if err := repo.UpdateOrderPaymentStatus(ctx, *txn.OrderID, enums.PaymentStatusFailed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order unpaid")
			}
			detail := refundID
			entry := models.TrackingEntry{
				OrderID:   *txn.OrderID,
				ActorID:   &input.ActorID,
				ActorRole: enums.ActorRoleAdmin,
				Event:     EventPaymentRefunded,
				Detail:    &detail,
			}
			if err := repo.CreateTrackingEntry(ctx, &entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
			}
		}

		reloaded, err := repo.FindTransactionByID(ctx, txn.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transaction")
		}
		refunded = reloaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "transaction_id", refunded.ID.String()), "transaction refunded")
	return refunded, nil
}

func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireStaleReservations(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale reservations")
	}
	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", expired), "expired stale payment reservations")
	}
	return expired, nil
}
