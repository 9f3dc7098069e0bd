package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealroute/lunchbox-backend/api/middleware"
	"github.com/mealroute/lunchbox-backend/api/responses"
	"github.com/mealroute/lunchbox-backend/api/validators"
	"github.com/mealroute/lunchbox-backend/internal/dispatch"
	internalorders "github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/internal/payments"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

// AdminListOrders returns all orders, optionally narrowed by status and by a
// date falling inside the order window.
func AdminListOrders(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter internalorders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseOrderStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			date, parseErr := time.Parse("2006-01-02", raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid date filter"))
				return
			}
			filter.Date = &date
		}

		list, err := service.ListOrders(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list.Orders, "page": list.Page})
	}
}

// AdminGetOrder returns any order with its schedule and timeline.
func AdminGetOrder(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := service.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type assignCourierRequest struct {
	CourierID string `json:"courier_id" validate:"required,uuid"`
}

// AdminAssignCourier puts a courier on an order's open slots and returns the
// school's refreshed assignment counts with the order.
func AdminAssignCourier(service internalorders.Service, dispatchSvc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignCourierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		courierID, err := uuid.Parse(req.CourierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid courier id"))
			return
		}

		order, err := service.AssignCourier(r.Context(), internalorders.AssignCourierInput{
			OrderID:   orderID,
			CourierID: courierID,
			ActorID:   actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order":    order,
			"dispatch": schoolSummary(r, dispatchSvc, logg, order.SchoolID),
		})
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active paused"`
}

// AdminUpdateOrderStatus pauses or resumes an order. Cancellation has its own
// endpoint.
func AdminUpdateOrderStatus(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		role, _ := middleware.ActorRoleFromContext(r.Context())

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := service.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:   orderID,
			Target:    target,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminCancelOrder cancels an order and its remaining slots.
func AdminCancelOrder(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, ok := middleware.ActorIDFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		role, _ := middleware.ActorRoleFromContext(r.Context())

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := service.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:   orderID,
			Target:    enums.OrderStatusCancelled,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrdersSummary reports courier coverage and slot counts for one day.
func AdminOrdersSummary(service dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if service == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		date, err := validators.ParseQueryDate(r, "date", time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := service.Summarize(r.Context(), date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type refundRequest struct {
	Amount *string `json:"amount" validate:"omitempty"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// AdminRefundTransaction reverses a captured payment and marks the order
// unpaid.
func AdminRefundTransaction(service payments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var amount *decimal.Decimal
		if req.Amount != nil && strings.TrimSpace(*req.Amount) != "" {
			parsed, parseErr := decimal.NewFromString(strings.TrimSpace(*req.Amount))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid refund amount"))
				return
			}
			amount = &parsed
		}

		txn, err := service.Refund(r.Context(), payments.RefundInput{
			TransactionID: transactionID,
			Amount:        amount,
			Reason:        req.Reason,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
