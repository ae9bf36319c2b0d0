package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/swiftbasket-backend/api/controllers"
	"github.com/swiftbasket/swiftbasket-backend/api/middleware"
	cartsvc "github.com/swiftbasket/swiftbasket-backend/internal/cart"
	coinsvc "github.com/swiftbasket/swiftbasket-backend/internal/coins"
	ordersvc "github.com/swiftbasket/swiftbasket-backend/internal/orders"
	refundsvc "github.com/swiftbasket/swiftbasket-backend/internal/refunds"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
	"github.com/swiftbasket/swiftbasket-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentClient *payment.Client,
	cartService cartsvc.Service,
	ordersService ordersvc.Service,
	refundsService refundsvc.Service,
	coinsService coinsvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", controllers.PaymentWebhook(ordersService, paymentClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{productId}/{unitId}/{direction}", controllers.CartAdjustItem(cartService, logg))
			r.Delete("/items/{productId}/{unitId}", controllers.CartRemoveItem(cartService, logg))
			r.Get("/summary", controllers.CartSummary(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(refundsService, logg))
			r.Post("/{orderId}/return", controllers.ReturnOrder(refundsService, logg))
		})

		r.Get("/coins", controllers.CoinAccount(coinsService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Patch("/orders/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
		r.Post("/orders/{orderId}/return/decision", controllers.AdminReturnDecision(refundsService, logg))
	})

	return r
}
