package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bazarcheh/bazarcheh-backend/api/controllers"
	"github.com/bazarcheh/bazarcheh-backend/api/middleware"
	"github.com/bazarcheh/bazarcheh-backend/internal/accounts"
	cartsvc "github.com/bazarcheh/bazarcheh-backend/internal/cart"
	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	"github.com/bazarcheh/bazarcheh-backend/internal/orders"
	authsession "github.com/bazarcheh/bazarcheh-backend/pkg/auth/session"
	"github.com/bazarcheh/bazarcheh-backend/pkg/config"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db"
	"github.com/bazarcheh/bazarcheh-backend/pkg/logger"
	"github.com/bazarcheh/bazarcheh-backend/pkg/metrics"
	"github.com/bazarcheh/bazarcheh-backend/pkg/redis"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
)

// Deps carries everything the HTTP surface needs. cmd/api builds one and
// hands it over.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	Sessions        authsession.AccessSessionChecker
	SessionStore    *session.Store
	Accounts        accounts.Service
	Catalog         catalog.Service
	Cart            cartsvc.Service
	Orders          orders.Service
	HTTPMetrics     *metrics.HTTPMetrics
	CheckoutMetrics *metrics.CheckoutMetrics
	MetricsHandler  http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	// Redis-backed middleware only engages with a live client; a nil client
	// leaves the routes unguarded rather than failing every request.
	passthrough := func(next http.Handler) http.Handler { return next }
	limiterFor := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		if deps.Redis == nil {
			return passthrough
		}
		return middleware.AuthRateLimit(policy, deps.Redis, logg)
	}
	idempotency := passthrough
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, cfg.Checkout.IdempotencyTTL, logg)
	}

	loginLimit := limiterFor(middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	))
	registerLimit := limiterFor(middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(registerLimit).
			Post("/register", controllers.AuthRegister(deps.Accounts, logg))
		r.Post("/verify-phone", controllers.AuthVerifyPhone(deps.Accounts, logg))
		r.With(registerLimit).
			Post("/resend-code", controllers.AuthResendCode(deps.Accounts, logg))
		r.With(loginLimit).
			Post("/login", controllers.AuthLogin(deps.Accounts, deps.Cart, deps.SessionStore.SessionID, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Accounts, logg))
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).
			Post("/logout", controllers.AuthLogout(deps.Accounts, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
		r.Get("/products", controllers.ProductList(deps.Catalog, logg))
		r.Get("/products/{slug}", controllers.ProductDetail(deps.Catalog, logg))

		// Cart works for both anonymous sessions and logged-in users.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg))
			r.Get("/cart", controllers.CartView(deps.Cart, deps.SessionStore, logg))
			r.Post("/cart/items", controllers.CartAddItem(deps.Cart, deps.SessionStore, logg))
			r.Patch("/cart/items/{productId}", controllers.CartSetQuantity(deps.Cart, deps.SessionStore, logg))
			r.Delete("/cart/items/{productId}", controllers.CartRemoveItem(deps.Cart, deps.SessionStore, logg))
			r.Delete("/cart", controllers.CartClear(deps.Cart, deps.SessionStore, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
			r.Use(idempotency)

			r.Post("/checkout", controllers.Checkout(deps.Orders, deps.Cart, deps.SessionStore, deps.CheckoutMetrics, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				r.Post("/{orderId}/pay", controllers.OrderPay(deps.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, deps.CheckoutMetrics, logg))
			})
		})
	})

	return r
}
