package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealroute/lunchbox-backend/api/middleware"
	"github.com/mealroute/lunchbox-backend/api/responses"
	"github.com/mealroute/lunchbox-backend/api/validators"
	"github.com/mealroute/lunchbox-backend/internal/dispatch"
	"github.com/mealroute/lunchbox-backend/internal/payments"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

type reservePaymentRequest struct {
	AddressID       string  `json:"address_id" validate:"required,uuid"`
	SchoolID        string  `json:"school_id" validate:"required,uuid"`
	OrderType       string  `json:"order_type" validate:"required,oneof=today 15_days 30_days"`
	StartDate       string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	NoOfBoxes       int     `json:"no_of_boxes" validate:"omitempty,min=1,max=10"`
	DeliveryTime    *string `json:"delivery_time" validate:"omitempty,datetime=15:04"`
	BaseAmount      string  `json:"base_amount" validate:"required"`
	RazorpayOrderID string  `json:"razorpay_order_id" validate:"required,max=100"`
}

// ReservePayment stages a checkout and returns the price breakdown before
// the gateway collects payment.
func ReservePayment(service payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req reservePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := uuid.Parse(req.AddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id"))
			return
		}
		schoolID, err := uuid.Parse(req.SchoolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid school id"))
			return
		}
		orderType, err := enums.ParseOrderType(req.OrderType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order type"))
			return
		}
		startDate, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid start date"))
			return
		}
		baseAmount, err := decimal.NewFromString(req.BaseAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid base amount"))
			return
		}

		result, err := service.Reserve(r.Context(), payments.ReserveInput{
			ParentID:        actorID,
			AddressID:       addressID,
			SchoolID:        schoolID,
			OrderType:       orderType,
			RequestedStart:  startDate,
			NoOfBoxes:       req.NoOfBoxes,
			DeliveryTime:    req.DeliveryTime,
			BaseAmount:      baseAmount,
			RazorpayOrderID: req.RazorpayOrderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"reservation": result.Reservation,
			"pricing": map[string]any{
				"distance_km":     result.DistanceKM,
				"base_amount":     result.BaseAmount,
				"distance_charge": result.DistanceCharge,
				"total_amount":    result.TotalAmount,
			},
		})
	}
}

type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required,max=100"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required,max=100"`
	Signature         string `json:"signature" validate:"required,max=200"`
}

// VerifyPayment checks the gateway signature and materializes the reserved
// order. The response carries the school's assignment counts alongside the
// order and transaction.
func VerifyPayment(service payments.Service, dispatchSvc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := service.Confirm(r.Context(), payments.ConfirmInput{
			ParentID:          actorID,
			RazorpayOrderID:   req.RazorpayOrderID,
			RazorpayPaymentID: req.RazorpayPaymentID,
			Signature:         req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":       result.Order,
			"transaction": result.Transaction,
			"dispatch":    schoolSummary(r, dispatchSvc, logg, result.Order.SchoolID),
		})
	}
}

// ListMyTransactions returns the authenticated parent's transactions.
func ListMyTransactions(service payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := service.ListTransactions(r.Context(), actorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transactions": list.Transactions, "page": list.Page})
	}
}

// GetMyTransaction returns a single transaction owned by the caller.
func GetMyTransaction(service payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		transactionID, err := parseTransactionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := service.GetTransaction(r.Context(), actorID, transactionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

func parseTransactionID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "transactionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	transactionID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id")
	}
	return transactionID, nil
}
