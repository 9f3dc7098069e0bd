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
	internalorders "github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/internal/payments"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

type createOrderRequest struct {
	AddressID           string  `json:"address_id" validate:"required,uuid"`
	SchoolID            string  `json:"school_id" validate:"required,uuid"`
	OrderType           string  `json:"order_type" validate:"required,oneof=today 15_days 30_days"`
	StartDate           string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	NoOfBoxes           int     `json:"no_of_boxes" validate:"omitempty,min=1,max=10"`
	DeliveryTime        *string `json:"delivery_time" validate:"omitempty,datetime=15:04"`
	SpecialInstructions *string `json:"special_instructions" validate:"omitempty,max=500"`
	DietaryRestrictions *string `json:"dietary_restrictions" validate:"omitempty,max=500"`
	LunchBoxType        *string `json:"lunch_box_type" validate:"omitempty,max=100"`
	BaseAmount          string  `json:"base_amount" validate:"required"`
	PaymentMethod       string  `json:"payment_method" validate:"omitempty,oneof=cash bank_transfer"`
}

// CreateOrder places an order without a gateway checkout. Payment stays
// pending until settled out of band. The response carries the school's
// assignment counts so the caller sees dispatch load without another call.
func CreateOrder(service payments.Service, dispatchSvc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req createOrderRequest
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

		order, err := service.CreateDirect(r.Context(), payments.DirectCreateInput{
			ParentID:            actorID,
			AddressID:           addressID,
			SchoolID:            schoolID,
			OrderType:           orderType,
			RequestedStart:      startDate,
			NoOfBoxes:           req.NoOfBoxes,
			DeliveryTime:        req.DeliveryTime,
			SpecialInstructions: req.SpecialInstructions,
			DietaryRestrictions: req.DietaryRestrictions,
			LunchBoxType:        req.LunchBoxType,
			BaseAmount:          baseAmount,
			PaymentMethod:       req.PaymentMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"order":    order,
			"dispatch": schoolSummary(r, dispatchSvc, logg, order.SchoolID),
		})
	}
}

// schoolSummary fetches the school's assignment counts for embedding in
// mutation responses. The mutation already committed, so a summary failure
// only logs.
func schoolSummary(r *http.Request, service dispatch.Service, logg *logger.Logger, schoolID uuid.UUID) *dispatch.SchoolSummary {
	if service == nil {
		return nil
	}
	summary, err := service.SummarizeSchool(r.Context(), schoolID)
	if err != nil {
		if logg != nil {
			logg.Error(r.Context(), "school summary unavailable", err)
		}
		return nil
	}
	return summary
}

// ListMyOrders returns the authenticated parent's orders.
func ListMyOrders(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := service.ListParentOrders(r.Context(), actorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": list.Orders, "page": list.Page})
	}
}

// GetMyOrder returns an order with its schedule and timeline. Parents only
// see their own orders.
func GetMyOrder(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		detail, err := service.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if detail.Order.ParentID != actorID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}
