package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/adminauth/internal/auth"
	"github.com/BradenHooton/adminauth/internal/background"
	"github.com/BradenHooton/adminauth/internal/config"
	"github.com/BradenHooton/adminauth/internal/database"
	"github.com/BradenHooton/adminauth/internal/handlers"
	middlewareCustom "github.com/BradenHooton/adminauth/internal/middleware"
	"github.com/BradenHooton/adminauth/internal/ratelimit"
	"github.com/BradenHooton/adminauth/internal/repositories"
	"github.com/BradenHooton/adminauth/internal/routes"
	"github.com/BradenHooton/adminauth/internal/services"
	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
	pkghttp "github.com/BradenHooton/adminauth/pkg/http"
	pkglogger "github.com/BradenHooton/adminauth/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.NewConnection(startupCtx, &cfg.Database, logger)
	if err != nil {
		startupCancel()
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(startupCtx); err != nil {
			startupCancel()
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)

	// Rate limit counters
	var counterStore ratelimit.Store
	var memoryStore *ratelimit.MemoryStore
	switch cfg.RateLimit.Backend {
	case config.RateLimitBackendRedis:
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			startupCancel()
			logger.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(startupCtx).Err(); err != nil {
			startupCancel()
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		counterStore = ratelimit.NewRedisStore(client)
	default:
		memoryStore = ratelimit.NewMemoryStore()
		counterStore = memoryStore
	}
	logger.Info("rate limit store ready", slog.String("backend", cfg.RateLimit.Backend))

	rateLimitService := services.NewRateLimitService(counterStore, services.RateLimitConfig{
		Login:         services.RateLimitPolicy(cfg.RateLimit.Login),
		API:           services.RateLimitPolicy(cfg.RateLimit.API),
		PasswordReset: services.RateLimitPolicy(cfg.RateLimit.PasswordReset),
	}, logger)

	// Session tokens
	tokenManager, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		startupCancel()
		logger.Error("failed to initialize token manager", slog.Any("error", err))
		os.Exit(1)
	}
	sessionService := services.NewSessionService(sessionRepo, tokenManager, cfg.Auth.SessionTTL, logger)

	lockoutService := services.NewLockoutService(accountRepo, services.LockoutConfig{
		MaxAttempts:  cfg.Auth.MaxFailedAttempts,
		LockDuration: cfg.Auth.LockDuration,
	}, logger)

	// Security events: audit log, stored copy, optional SES alerts
	var alerts services.AlertNotifier
	if cfg.Alerts.Enabled() {
		notifier, err := services.NewSESAlertNotifier(startupCtx, cfg.Alerts.AWSRegion, cfg.Alerts.FromAddress, cfg.Alerts.Recipient, logger)
		if err != nil {
			startupCancel()
			logger.Error("failed to initialize alert notifier", slog.Any("error", err))
			os.Exit(1)
		}
		alerts = notifier
	}
	eventSink := services.NewSecurityEventSink(eventRepo, pkglogger.NewAuditLogger(logger), alerts, cfg.Auth.EventBufferSize, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Auth.DelayOnSuccess,
	})

	authService := services.NewAuthService(services.AuthServiceDeps{
		Accounts: accountRepo,
		Verifier: pkgauth.NewVerifier(),
		Limiter:  rateLimitService,
		Lockout:  lockoutService,
		Sessions: sessionService,
		Events:   eventSink,
		Timing:   timingDelay,
		Logger:   logger,
	})
	accountService := services.NewAccountService(accountRepo, eventRepo, logger)

	// Bootstrap first admin account if configured
	if err := ensureAdminAccount(startupCtx, accountService, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	startupCancel()

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	routes.RegisterRoutes(router, routes.Deps{
		AuthHandler:   handlers.NewAuthHandler(authService, accountService, ipConfig, logger),
		HealthHandler: handlers.NewHealthHandler(db),
		Sessions:      sessionService,
		TokenReporter: eventSink,
		LimitReporter: eventSink,
		Limiter:       rateLimitService,
		IPConfig:      ipConfig,
	})

	// Start maintenance sweeps
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	var counterSweeper background.CounterSweeper
	if memoryStore != nil {
		counterSweeper = memoryStore
	}
	cleanupManager := background.NewCleanupManager(sessionService, counterSweeper, logger)
	if err := cleanupManager.Start(appCtx, cfg.Auth.SweepSchedule); err != nil {
		logger.Error("failed to start cleanup manager", slog.Any("error", err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	appCancel()
	cleanupManager.Stop()

	// Flush queued security events after the last request finished
	if err := eventSink.Close(shutdownCtx); err != nil {
		logger.Error("failed to drain security events", slog.Any("error", err))
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accounts *services.AccountService, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Admin"
	}

	_, err := accounts.EnsureAdmin(ctx, adminEmail, name, adminPassword)
	return err
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
