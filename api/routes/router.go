package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/touchtrial/touchtrial-backend/api/controllers"
	"github.com/touchtrial/touchtrial-backend/api/middleware"
	advisorsvc "github.com/touchtrial/touchtrial-backend/internal/advisor"
	authsvc "github.com/touchtrial/touchtrial-backend/internal/auth"
	bookingsvc "github.com/touchtrial/touchtrial-backend/internal/bookings"
	cartsvc "github.com/touchtrial/touchtrial-backend/internal/cart"
	catalogsvc "github.com/touchtrial/touchtrial-backend/internal/catalog"
	comparesvc "github.com/touchtrial/touchtrial-backend/internal/compare"
	couponsvc "github.com/touchtrial/touchtrial-backend/internal/coupons"
	otpsvc "github.com/touchtrial/touchtrial-backend/internal/otp"
	"github.com/touchtrial/touchtrial-backend/pkg/auth/session"
	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/logger"
	"github.com/touchtrial/touchtrial-backend/pkg/metrics"
	"github.com/touchtrial/touchtrial-backend/pkg/redis"
)

// Services bundles everything the router mounts. Grouping them keeps the
// constructor signature stable as surfaces get added.
type Services struct {
	Auth     authsvc.Service
	Catalog  catalogsvc.Service
	Coupons  couponsvc.Service
	Cart     cartsvc.Service
	Bookings bookingsvc.Service
	Compare  comparesvc.Service
	OTP      otpsvc.Service
	Advisor  advisorsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/phones", func(r chi.Router) {
		r.Get("/", controllers.PhonesList(svcs.Catalog, logg))
		r.Get("/brands", controllers.PhoneBrands(svcs.Catalog, logg))
		r.Get("/{phoneId}", controllers.PhonesGet(svcs.Catalog, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/v1/auth/me", controllers.AuthMe(svcs.Auth, logg))

		r.Route("/v1/otp", func(r chi.Router) {
			r.Post("/send", controllers.OTPSend(svcs.OTP, logg))
			r.Post("/verify", controllers.OTPVerify(svcs.OTP, logg))
		})

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(svcs.Cart, logg))
			r.Post("/items", controllers.CartAddItem(svcs.Cart, logg))
			r.Delete("/items/{phoneId}", controllers.CartRemoveItem(svcs.Cart, logg))
			r.Post("/clear", controllers.CartClear(svcs.Cart, logg))
		})
		r.Route("/v1/coupons", func(r chi.Router) {
			r.Post("/apply", controllers.CartApplyCoupon(svcs.Cart, logg))
			r.Delete("/remove", controllers.CartRemoveCoupon(svcs.Cart, logg))
		})

		r.Route("/v1/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingsCreate(svcs.Bookings, logg))
			r.Get("/", controllers.BookingsList(svcs.Bookings, logg))
			r.Get("/{bookingId}", controllers.BookingsGet(svcs.Bookings, logg))
			r.Post("/{bookingId}/cancel", controllers.BookingsCancel(svcs.Bookings, logg))
		})

		r.Route("/v1/compare", func(r chi.Router) {
			r.Get("/", controllers.CompareGet(svcs.Compare, logg))
			r.Post("/{phoneId}", controllers.CompareAdd(svcs.Compare, logg))
			r.Delete("/{phoneId}", controllers.CompareRemove(svcs.Compare, logg))
			r.Post("/clear", controllers.CompareClear(svcs.Compare, logg))
		})

		r.Route("/v1/advisor", func(r chi.Router) {
			r.Post("/sessions", controllers.AdvisorStartSession(svcs.Advisor, logg))
			r.Route("/sessions/{conversationId}", func(r chi.Router) {
				r.Get("/", controllers.AdvisorGetSession(svcs.Advisor, logg))
				r.Post("/budget", controllers.AdvisorSelectBudget(svcs.Advisor, logg))
				r.Post("/priorities/toggle", controllers.AdvisorTogglePriority(svcs.Advisor, logg))
				r.Post("/priorities/confirm", controllers.AdvisorConfirmPriorities(svcs.Advisor, logg))
				r.Post("/brands/toggle", controllers.AdvisorToggleBrand(svcs.Advisor, logg))
				r.Post("/brands/confirm", controllers.AdvisorConfirmBrands(svcs.Advisor, logg))
				r.Post("/messages", controllers.AdvisorSendMessage(svcs.Advisor, logg))
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/phones", func(r chi.Router) {
			r.Get("/", controllers.AdminPhonesList(svcs.Catalog, logg))
			r.Post("/", controllers.AdminPhonesCreate(svcs.Catalog, logg))
			r.Patch("/{phoneId}", controllers.AdminPhonesUpdate(svcs.Catalog, logg))
			r.Delete("/{phoneId}", controllers.AdminPhonesDeactivate(svcs.Catalog, logg))
		})
		r.Route("/v1/bookings", func(r chi.Router) {
			r.Get("/", controllers.AdminBookingsList(svcs.Bookings, logg))
			r.Patch("/{bookingId}/status", controllers.AdminBookingsUpdateStatus(svcs.Bookings, logg))
		})
		r.Route("/v1/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminCouponsList(svcs.Coupons, logg))
			r.Post("/", controllers.AdminCouponsCreate(svcs.Coupons, logg))
			r.Patch("/{couponId}", controllers.AdminCouponsUpdate(svcs.Coupons, logg))
		})
	})

	return r
}
