package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adityaverma/bazaarkart-backend/api/controllers"
	"github.com/adityaverma/bazaarkart-backend/api/middleware"
	checkoutsvc "github.com/adityaverma/bazaarkart-backend/internal/checkout"
	notifsvc "github.com/adityaverma/bazaarkart-backend/internal/notifications"
	ordersvc "github.com/adityaverma/bazaarkart-backend/internal/orders"
	refundsvc "github.com/adityaverma/bazaarkart-backend/internal/refunds"
	walletsvc "github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/config"
	"github.com/adityaverma/bazaarkart-backend/pkg/enums"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Redis  *redis.Client

	Checkout      checkoutsvc.Service
	Orders        ordersvc.Service
	Refunds       refundsvc.Service
	Wallet        walletsvc.Service
	Notifications notifsvc.Service

	// Readiness probes, keyed by dependency name.
	Pingers map[string]controllers.Pinger
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.RateLimitPolicy{
		Name:   "checkout",
		Window: cfg.RateLimit.CheckoutWindow,
		Limit:  cfg.RateLimit.CheckoutLimit,
	}
	refundPolicy := middleware.RateLimitPolicy{
		Name:   "refund",
		Window: cfg.RateLimit.RefundWindow,
		Limit:  cfg.RateLimit.RefundLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.With(middleware.RateLimit(checkoutPolicy, deps.Redis, logg)).
			Post("/v1/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/pay", controllers.OrderPay(deps.Orders, logg))
			r.With(middleware.RateLimit(refundPolicy, deps.Redis, logg)).
				Post("/{orderId}/cancel", controllers.CancelOrder(deps.Refunds, logg))
		})

		r.Route("/v1/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleVendor), logg))
			r.Get("/orders", controllers.VendorOrderList(deps.Orders, logg))
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", controllers.VendorWalletSummary(deps.Wallet, logg))
				r.Get("/transactions", controllers.VendorWalletTransactions(deps.Wallet, logg))
			})
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.VendorNotificationList(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.VendorNotificationMarkRead(deps.Notifications, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
			r.With(middleware.RateLimit(refundPolicy, deps.Redis, logg)).
				Post("/{orderId}/refund", controllers.AdminForceRefund(deps.Refunds, logg))
		})
	})

	return r
}
