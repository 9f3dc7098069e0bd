package cron

import (
	"context"
	"fmt"

	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

// reservationExpirer is the slice of the payments service this job needs.
type reservationExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// ReservationTTLJobParams configure the reservation expiry job.
type ReservationTTLJobParams struct {
	Logger   *logger.Logger
	Payments reservationExpirer
}

// NewReservationTTLJob closes payment reservations whose TTL lapsed without a
// gateway confirmation, freeing their gateway order IDs for re-checkout.
func NewReservationTTLJob(params ReservationTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &reservationTTLJob{
		logg:     params.Logger,
		payments: params.Payments,
	}, nil
}

type reservationTTLJob struct {
	logg     *logger.Logger
	payments reservationExpirer
}

func (j *reservationTTLJob) Name() string { return "reservation-ttl" }

func (j *reservationTTLJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("reservation ttl sweep: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "rows_expired", expired)
	j.logg.Info(logCtx, "reservation ttl sweep complete")
	return nil
}
