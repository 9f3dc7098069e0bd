package controllers

import (
	"net/http"
	"time"

	"github.com/mealroute/lunchbox-backend/api/middleware"
	"github.com/mealroute/lunchbox-backend/api/responses"
	"github.com/mealroute/lunchbox-backend/api/validators"
	internalorders "github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

// CourierToday returns the authenticated courier's delivery sheet. An
// optional date query selects another day.
func CourierToday(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		date, err := validators.ParseQueryDate(r, "date", time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveries, err := service.CourierDay(r.Context(), actorID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"date": date.Format("2006-01-02"), "deliveries": deliveries})
	}
}

type deliveryTransitionRequest struct {
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status string  `json:"status" validate:"required,oneof=picked_up delivered skipped"`
	Notes  *string `json:"notes" validate:"omitempty,max=500"`
}

// CourierDeliveryTransition moves one daily slot forward on behalf of the
// courier.
func CourierDeliveryTransition(service internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req deliveryTransitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
			return
		}
		target, err := enums.ParseDeliveryStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status"))
			return
		}

		delivery, err := service.TransitionDelivery(r.Context(), internalorders.TransitionDeliveryInput{
			OrderID:   orderID,
			Date:      date,
			Target:    target,
			Note:      req.Notes,
			ActorID:   actorID,
			ActorRole: role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}
