package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/touchtrial/touchtrial-backend/api/routes"
	"github.com/touchtrial/touchtrial-backend/internal/advisor"
	"github.com/touchtrial/touchtrial-backend/internal/auth"
	"github.com/touchtrial/touchtrial-backend/internal/bookings"
	"github.com/touchtrial/touchtrial-backend/internal/cart"
	"github.com/touchtrial/touchtrial-backend/internal/catalog"
	"github.com/touchtrial/touchtrial-backend/internal/compare"
	"github.com/touchtrial/touchtrial-backend/internal/coupons"
	"github.com/touchtrial/touchtrial-backend/internal/otp"
	"github.com/touchtrial/touchtrial-backend/internal/users"
	"github.com/touchtrial/touchtrial-backend/pkg/auth/session"
	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/db"
	"github.com/touchtrial/touchtrial-backend/pkg/logger"
	"github.com/touchtrial/touchtrial-backend/pkg/metrics"
	"github.com/touchtrial/touchtrial-backend/pkg/migrate"
	"github.com/touchtrial/touchtrial-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	requireService(logg, "auth", err)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		PhoneRepo: catalog.NewRepository(dbClient.DB()),
	})
	requireService(logg, "catalog", err)

	bookingRepo := bookings.NewRepository(dbClient.DB())

	couponService, err := coupons.NewService(coupons.ServiceParams{
		CouponRepo:  coupons.NewRepository(dbClient.DB()),
		BookingRepo: bookingRepo,
	})
	requireService(logg, "coupons", err)

	cartStore, err := cart.NewRedisStore(redisClient, cart.DefaultTTL)
	requireService(logg, "cart store", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:           cartStore,
		Catalog:         catalogService,
		CouponValidator: couponService,
		Guard:           redisClient,
	})
	requireService(logg, "cart", err)

	bookingService, err := bookings.NewService(bookings.ServiceParams{
		BookingRepo:    bookingRepo,
		CartService:    cartService,
		CouponRedeemer: couponService,
		Transactor:     dbClient,
	})
	requireService(logg, "bookings", err)

	compareStore, err := compare.NewRedisStore(redisClient, compare.DefaultTTL)
	requireService(logg, "compare store", err)

	compareService, err := compare.NewService(compare.ServiceParams{
		Store:   compareStore,
		Catalog: catalogService,
	})
	requireService(logg, "compare", err)

	otpSender, err := otp.NewLogSender(logg)
	requireService(logg, "otp sender", err)

	otpService, err := otp.NewService(otp.ServiceParams{
		Repo:    otp.NewRepository(dbClient.DB()),
		Users:   userRepo,
		Limiter: redisClient,
		Sender:  otpSender,
		Config:  cfg.OTP,
	})
	requireService(logg, "otp", err)

	advisorGateway, err := advisor.NewClient(cfg.Advisor)
	requireService(logg, "advisor gateway", err)

	advisorSessions, err := advisor.NewRedisSessionStore(redisClient, cfg.Advisor.SessionTTL)
	requireService(logg, "advisor session store", err)

	advisorService, err := advisor.NewService(advisor.ServiceParams{
		Gateway:      advisorGateway,
		SessionStore: advisorSessions,
		Guard:        redisClient,
		HistoryLimit: cfg.Advisor.HistoryLimit,
		InFlightTTL:  cfg.Advisor.InFlightTTL,
	})
	requireService(logg, "advisor", err)

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, httpMetrics, metricsHandler, routes.Services{
			Auth:     authService,
			Catalog:  catalogService,
			Coupons:  couponService,
			Cart:     cartService,
			Bookings: bookingService,
			Compare:  compareService,
			OTP:      otpService,
			Advisor:  advisorService,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name+" service", err)
		os.Exit(1)
	}
}
