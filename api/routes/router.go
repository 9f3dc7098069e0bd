package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mealroute/lunchbox-backend/api/controllers"
	"github.com/mealroute/lunchbox-backend/api/middleware"
	"github.com/mealroute/lunchbox-backend/internal/dispatch"
	"github.com/mealroute/lunchbox-backend/internal/orders"
	"github.com/mealroute/lunchbox-backend/internal/payments"
	"github.com/mealroute/lunchbox-backend/pkg/config"
	"github.com/mealroute/lunchbox-backend/pkg/db"
	"github.com/mealroute/lunchbox-backend/pkg/enums"
	"github.com/mealroute/lunchbox-backend/pkg/logger"
	pkgredis "github.com/mealroute/lunchbox-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *pkgredis.Client,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	dispatchSvc dispatch.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbClient, redisClient, logg))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleParent))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(paymentsSvc, dispatchSvc, logg))
				r.Get("/", controllers.ListMyOrders(ordersSvc, logg))
				r.Get("/{orderId}", controllers.GetMyOrder(ordersSvc, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/reserve", controllers.ReservePayment(paymentsSvc, logg))
				r.Post("/verify", controllers.VerifyPayment(paymentsSvc, dispatchSvc, logg))
				r.Get("/transactions", controllers.ListMyTransactions(paymentsSvc, logg))
				r.Get("/transactions/{transactionId}", controllers.GetMyTransaction(paymentsSvc, logg))
			})
		})

		r.Route("/courier", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCourier))
			r.Get("/deliveries/today", controllers.CourierToday(ordersSvc, logg))
			r.Post("/orders/{orderId}/deliveries", controllers.CourierDeliveryTransition(ordersSvc, logg))
		})

		r.Route("/school", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleSchool))
			r.Get("/orders", controllers.SchoolOrders(ordersSvc, dispatchSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(ordersSvc, logg))
				r.Get("/summary", controllers.AdminOrdersSummary(dispatchSvc, logg))
				r.Get("/{orderId}", controllers.AdminGetOrder(ordersSvc, logg))
				r.Post("/{orderId}/assign", controllers.AdminAssignCourier(ordersSvc, dispatchSvc, logg))
				r.Post("/{orderId}/status", controllers.AdminUpdateOrderStatus(ordersSvc, logg))
				r.Post("/{orderId}/cancel", controllers.AdminCancelOrder(ordersSvc, logg))
			})

			r.Post("/transactions/{transactionId}/refund", controllers.AdminRefundTransaction(paymentsSvc, logg))
		})
	})

	return r
}
