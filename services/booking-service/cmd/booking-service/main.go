package main

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/bookly/libs/config"
	"github.com/md-rashed-zaman/bookly/libs/httpx"
	otelx "github.com/md-rashed-zaman/bookly/libs/otel"
	"github.com/md-rashed-zaman/bookly/libs/runtime"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/analytics"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/customer"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	be, err := openBackend(ctx, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer be.Close()

	qc, limiter := openCache(logger, be)

	resolver := customer.NewResolver()
	cat := catalog.New(be.store, qc, resolver, m, logger, catalog.Config{
		CacheTTL: config.Seconds("CACHE_TTL_SECONDS", time.Minute),
	})
	engine := booking.NewEngine(be.store, resolver, m, logger, booking.Config{
		SlotStepMinutes: config.Int("SLOT_STEP_MINUTES", 15),
	})
	agg := analytics.NewAggregator(be.analytics, m, logger)
	startEvents(ctx, logger, m, be, agg, service)

	if err := startGrpcServer(ctx, logger, cat); err != nil {
		logger.Error("grpc server init failed", "err", err)
		panic(err)
	}

	sessions := handlers.NewSessions(handlers.SessionConfig{
		Secret:       jwtSecret,
		TTL:          time.Duration(config.Int("SESSION_TTL_HOURS", 24)) * time.Hour,
		SecureCookie: config.Bool("SESSION_COOKIE_SECURE", false),
	})

	mux := runtime.NewBaseMuxWithReady(be.checks...)
	mux.Handle("GET /metrics", promhttp.Handler())
	handlers.Register(mux, handlers.Routes{
		Auth:        handlers.NewAuthHandler(be.store, cat, sessions, logger),
		Public:      handlers.NewPublicHandler(cat, engine, logger),
		Management:  handlers.NewManagementHandler(cat, engine, be.store, agg, sessions, logger),
		Sessions:    sessions,
		PublicLimit: httpx.RateLimit(limiter, logger, true),
	})

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", "Authorization", httpx.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Seconds("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
