// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/quizforge/internal/admin"
	"github.com/carterperez-dev/quizforge/internal/auth"
	"github.com/carterperez-dev/quizforge/internal/config"
	"github.com/carterperez-dev/quizforge/internal/core"
	"github.com/carterperez-dev/quizforge/internal/document"
	"github.com/carterperez-dev/quizforge/internal/email"
	"github.com/carterperez-dev/quizforge/internal/health"
	"github.com/carterperez-dev/quizforge/internal/llm"
	"github.com/carterperez-dev/quizforge/internal/middleware"
	"github.com/carterperez-dev/quizforge/internal/protected"
	"github.com/carterperez-dev/quizforge/internal/question"
	"github.com/carterperez-dev/quizforge/internal/server"
	"github.com/carterperez-dev/quizforge/internal/subscription"
	"github.com/carterperez-dev/quizforge/internal/user"
)

const (
	drainDelay      = 5 * time.Second
	janitorInterval = time.Hour
	apiPrefix       = "/api"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		version, _ := db.MigrationVersion(ctx) //nolint:errcheck // informational
		logger.Info("migrations applied", "version", version)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	tokens, err := auth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.Config{
		SMTP:            cfg.SMTP,
		AppName:         cfg.App.Name,
		FrontendURL:     cfg.App.FrontendURL,
		VerificationTTL: cfg.JWT.VerificationTokenExpire,
		ResetTTL:        cfg.JWT.ResetTokenExpire,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("mailer initialized", "smtp_enabled", mailer.Enabled())

	authRepo := auth.NewRepository(db.DB)

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo, authRepo)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(authRepo, tokens, userSvc, mailer, cfg.JWT, logger)
	authHandler := auth.NewHandler(authSvc, cfg.Cookie)

	subRepo := subscription.NewRepository(db.DB)
	subSvc := subscription.NewService(subRepo, logger)

	blobs, err := document.NewBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", "backend", cfg.Storage.Backend)

	embedder, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		return err
	}

	generator, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		return err
	}
	logger.Info("language models configured",
		"model", cfg.LLM.Model,
		"embedding_model", cfg.LLM.EmbeddingModel,
		"structured_output", cfg.LLM.StructuredOutput,
	)

	docRepo := document.NewRepository(db.DB)
	docSvc := document.NewService(docRepo, blobs, embedder, subSvc, cfg.Documents, logger)
	docHandler := document.NewHandler(docSvc, cfg.Server.MaxUploadSize)

	questionSvc := question.NewService(
		docSvc,
		docSvc,
		generator,
		subSvc,
		question.NewRepository(db.DB),
		question.Options{Structured: cfg.LLM.StructuredOutput},
		logger,
	)
	questionHandler := question.NewHandler(questionSvc)

	adminSvc := admin.NewService(admin.NewRepository(db.DB), userSvc, docSvc, logger)
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Service:     adminSvc,
		DBStats:     db.Stats,
		RedisStats:  redis.PoolStats,
		DBPing:      db.Ping,
		RedisPing:   redis.Ping,
		StoragePing: docSvc.Ping,
	})

	protectedHandler := protected.NewHandler()

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "storage", Checker: health.CheckerFunc(docSvc.Ping)},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Limiter, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.Authenticator(tokens, userSvc)
	optionalAuth := middleware.OptionalAuth(tokens, userSvc)
	planLimiter := middleware.TieredRateLimiter(
		redis.Limiter,
		middleware.DefaultTiers,
		subSvc.ResolvePlan,
	)

	routeLimits := auth.RouteLimits{
		Login: middleware.RouteLimit(redis.Limiter, "login",
			middleware.PerMinute(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginPerMinute)),
		Register: middleware.RouteLimit(redis.Limiter, "register",
			middleware.PerHour(cfg.RateLimit.RegisterPerHour, cfg.RateLimit.RegisterPerHour)),
		PasswordReset: middleware.RouteLimit(redis.Limiter, "password-reset",
			middleware.PerHour(cfg.RateLimit.PasswordResetPerHour, cfg.RateLimit.PasswordResetPerHour)),
	}

	router.Route(apiPrefix, func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, routeLimits)
		userHandler.RegisterRoutes(r, authenticator)
		protectedHandler.RegisterRoutes(r, authenticator, optionalAuth)
		docHandler.RegisterRoutes(r, authenticator)
		questionHandler.RegisterRoutes(r, authenticator, planLimiter)
		adminHandler.RegisterRoutes(r, authenticator)
	})

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go authSvc.RunJanitor(janitorCtx, janitorInterval)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
