package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mealroute/lunchbox-backend/internal/dispatch"
	"github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/internal/payments"
	"github.com/mealroute/lunchbox-backend/pkg/db/models"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/pagination"
)

func withTransactionID(req *http.Request, transactionID uuid.UUID) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("transactionId", transactionID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestAdminListOrdersParsesStatusFilter(t *testing.T) {
	var captured orders.ListFilter
	service := stubOrdersService{
		listFn: func(ctx context.Context, filter orders.ListFilter, params pagination.Params) (*orders.OrderList, error) {
			captured = filter
			return &orders.OrderList{}, nil
		},
	}
	handler := AdminListOrders(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/?status=paused&date=2026-03-16", nil)
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Status == nil || *captured.Status != enums.OrderStatusPaused {
		t.Fatalf("expected paused filter got %+v", captured.Status)
	}
	if captured.Date == nil {
		t.Fatal("expected date filter")
	}
}

func TestAdminListOrdersRejectsUnknownStatus(t *testing.T) {
	handler := AdminListOrders(stubOrdersService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/?status=bogus", nil)
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminCancelOrderTargetsCancelled(t *testing.T) {
	orderID := uuid.New()
	var captured orders.UpdateStatusInput
	service := stubOrdersService{
		updateFn: func(ctx context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
			captured = input
			return &models.Order{Status: enums.OrderStatusCancelled}, nil
		},
	}
	handler := AdminCancelOrder(service, nil)

	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", nil), orderID)
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Target != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled target got %s", captured.Target)
	}
	if captured.OrderID != orderID {
		t.Fatalf("unexpected order id %s", captured.OrderID)
	}
}

func TestAdminAssignCourierEmbedsSchoolSummary(t *testing.T) {
	orderID := uuid.New()
	schoolID := uuid.New()
	courierID := uuid.New()
	var captured orders.AssignCourierInput
	service := stubOrdersService{
		assignFn: func(ctx context.Context, input orders.AssignCourierInput) (*models.Order, error) {
			captured = input
			return &models.Order{SchoolID: schoolID, CourierID: &input.CourierID}, nil
		},
	}
	var summarized uuid.UUID
	dispatchSvc := stubDispatchService{
		summarizeSchoolFn: func(ctx context.Context, id uuid.UUID) (*dispatch.SchoolSummary, error) {
			summarized = id
			return &dispatch.SchoolSummary{SchoolID: id, TotalCount: 2, AssignedCount: 2}, nil
		},
	}
	handler := AdminAssignCourier(service, dispatchSvc, nil)

	body := `{"courier_id":"` + courierID.String() + `"}`
	req := withOrderID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), orderID)
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.OrderID != orderID || captured.CourierID != courierID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if summarized != schoolID {
		t.Fatalf("expected summary for school %s got %s", schoolID, summarized)
	}
}

func TestAdminRefundTransactionParsesAmount(t *testing.T) {
	transactionID := uuid.New()
	adminID := uuid.New()
	var captured payments.RefundInput
	service := stubPaymentsService{
		refundFn: func(ctx context.Context, input payments.RefundInput) (*models.Transaction, error) {
			captured = input
			return &models.Transaction{Status: enums.TransactionStatusRefunded}, nil
		},
	}
	handler := AdminRefundTransaction(service, nil)

	body := `{"amount":"250.00","reason":"duplicate charge"}`
	req := withTransactionID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), transactionID)
	req = asActor(req, adminID, enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.TransactionID != transactionID || captured.ActorID != adminID {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.Amount == nil || !captured.Amount.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("expected amount 250.00 got %+v", captured.Amount)
	}
	if captured.Reason == nil || *captured.Reason != "duplicate charge" {
		t.Fatalf("expected reason to pass through")
	}
}

func TestAdminRefundTransactionFullRefundByDefault(t *testing.T) {
	var captured payments.RefundInput
	service := stubPaymentsService{
		refundFn: func(ctx context.Context, input payments.RefundInput) (*models.Transaction, error) {
			captured = input
			return &models.Transaction{}, nil
		},
	}
	handler := AdminRefundTransaction(service, nil)

	req := withTransactionID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)), uuid.New())
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.Amount != nil {
		t.Fatalf("expected nil amount for full refund got %+v", captured.Amount)
	}
}

func TestAdminRefundTransactionRejectsBadAmount(t *testing.T) {
	handler := AdminRefundTransaction(stubPaymentsService{}, nil)

	req := withTransactionID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"abc"}`)), uuid.New())
	req = asActor(req, uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
