package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
)

// Service produces the admin assignment summary.
type Service interface {
	Summarize(ctx context.Context, date time.Time) (*Summary, error)
	SummarizeSchool(ctx context.Context, schoolID uuid.UUID) (*SchoolSummary, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the dispatch summary service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Summarize(ctx context.Context, date time.Time) (*Summary, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	total, assigned, err := s.repo.CountOpenOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open orders")
	}

	slots, err := s.repo.CountSlotsByStatusOnDate(ctx, day)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count delivery slots")
	}

	loads, err := s.repo.CourierLoads(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate courier loads")
	}

	return &Summary{
		Date:          day,
		TotalOrders:   total,
		Assigned:      assigned,
		Unassigned:    total - assigned,
		SlotsByStatus: slots,
		CourierLoads:  loads,
	}, nil
}

func (s *service) SummarizeSchool(ctx context.Context, schoolID uuid.UUID) (*SchoolSummary, error) {
	if schoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}

	total, assigned, err := s.repo.CountOpenOrdersForSchool(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count school orders")
	}

	return &SchoolSummary{
		SchoolID:        schoolID,
		TotalCount:      total,
		AssignedCount:   assigned,
		UnassignedCount: total - assigned,
	}, nil
}
