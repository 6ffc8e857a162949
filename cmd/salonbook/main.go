package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lumera/salonbook/internal/handlers"
	"github.com/lumera/salonbook/internal/metrics"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/internal/sessions"
	"github.com/lumera/salonbook/internal/storage"
	"github.com/lumera/salonbook/libs/config"
	"github.com/lumera/salonbook/libs/db"
	"github.com/lumera/salonbook/libs/httpx"
	"github.com/lumera/salonbook/libs/kafkax"
	otelx "github.com/lumera/salonbook/libs/otel"
	"github.com/lumera/salonbook/libs/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "salonbook")
	port, err := config.Port("PORT", "8080")
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	loc, err := time.LoadLocation(config.String("SALON_TZ", "UTC"))
	if err != nil {
		logger.Error("invalid SALON_TZ, using UTC", "err", err)
		loc = time.UTC
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	m := metrics.New()
	m.MustRegister(prometheus.DefaultRegisterer)

	outboxRepo := outbox.NewRepository(pool)
	profiles := storage.NewProfileRepository(pool, outboxRepo)
	catalog := storage.NewCatalogRepository(pool)
	appts := storage.NewAppointmentRepository(pool, outboxRepo)
	refresh := sessions.NewRefreshRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
		Metrics:   m,
	})
	go publisher.Run(ctx)

	authHandler := handlers.NewAuthHandler(profiles, refresh, jwtSecret,
		time.Duration(config.Int("ACCESS_TOKEN_TTL_MINUTES", 60))*time.Minute,
		time.Duration(config.Int("REFRESH_TOKEN_TTL_DAYS", 30))*24*time.Hour,
	)
	catalogHandler := handlers.NewCatalogHandler(catalog, logger)
	bookingHandler := handlers.NewBookingHandler(catalog, appts, m, logger, loc)
	apptsHandler := handlers.NewAppointmentsHandler(catalog, appts, m, logger, loc)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.Handler())

	authed := handlers.RequireAuth(jwtSecret)
	optional := handlers.OptionalAuth(jwtSecret)

	mux.HandleFunc("POST /api/v1/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/v1/auth/signin", authHandler.Signin)
	mux.HandleFunc("POST /api/v1/auth/signout", authHandler.Signout)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("GET /api/v1/auth/me", authed(http.HandlerFunc(authHandler.Me)))

	mux.Handle("GET /api/v1/services", optional(http.HandlerFunc(catalogHandler.ListServices)))
	mux.Handle("POST /api/v1/services", authed(http.HandlerFunc(catalogHandler.CreateService)))
	mux.HandleFunc("GET /api/v1/services/{id}", catalogHandler.GetService)
	mux.Handle("PATCH /api/v1/services/{id}", authed(http.HandlerFunc(catalogHandler.UpdateService)))
	mux.HandleFunc("GET /api/v1/services/{id}/staff", catalogHandler.StaffForService)

	mux.Handle("GET /api/v1/staff", optional(http.HandlerFunc(catalogHandler.ListStaff)))
	mux.Handle("POST /api/v1/staff", authed(http.HandlerFunc(catalogHandler.CreateStaff)))
	mux.Handle("PATCH /api/v1/staff/{id}", authed(http.HandlerFunc(catalogHandler.UpdateStaff)))
	mux.HandleFunc("GET /api/v1/staff/{id}/services", catalogHandler.GetAssignedServices)
	mux.Handle("PUT /api/v1/staff/{id}/services", authed(http.HandlerFunc(catalogHandler.PutAssignedServices)))
	mux.HandleFunc("GET /api/v1/staff/{id}/working-hours", catalogHandler.GetWorkingHours)
	mux.Handle("PUT /api/v1/staff/{id}/working-hours", authed(http.HandlerFunc(catalogHandler.PutWorkingHours)))

	mux.HandleFunc("GET /api/v1/booking/slots", bookingHandler.Slots)
	mux.Handle("POST /api/v1/booking/appointments", authed(http.HandlerFunc(bookingHandler.Create)))

	mux.Handle("GET /api/v1/appointments/mine", authed(http.HandlerFunc(apptsHandler.Mine)))
	mux.Handle("POST /api/v1/appointments/{id}/cancel", authed(http.HandlerFunc(apptsHandler.Cancel)))
	mux.Handle("GET /api/v1/appointments/schedule", authed(http.HandlerFunc(apptsHandler.Schedule)))
	mux.Handle("GET /api/v1/appointments", authed(http.HandlerFunc(apptsHandler.AdminList)))
	mux.Handle("PATCH /api/v1/appointments/{id}/status", authed(http.HandlerFunc(apptsHandler.UpdateStatus)))

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithBodyLimit(1 << 20),
	}

	limit := config.Int("RATE_LIMIT", 120)
	window := time.Duration(config.Int("RATE_WINDOW_SECONDS", 60)) * time.Second
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, limit, window, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(limit, window).Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
