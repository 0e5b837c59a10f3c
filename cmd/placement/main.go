package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/gulfplacement/placement/internal/app"
	"github.com/gulfplacement/placement/internal/auth"
	"github.com/gulfplacement/placement/internal/chat"
	"github.com/gulfplacement/placement/internal/dashboard"
	"github.com/gulfplacement/placement/internal/documents"
	"github.com/gulfplacement/placement/internal/observability"
	"github.com/gulfplacement/placement/internal/platform/cache"
	"github.com/gulfplacement/placement/internal/platform/db"
	"github.com/gulfplacement/placement/internal/postings"
	"github.com/gulfplacement/placement/internal/profiles"
	"github.com/gulfplacement/placement/internal/shared"
	"github.com/gulfplacement/placement/internal/users"
	"github.com/gulfplacement/placement/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	signingKey, err := cfg.SigningKey(logger)
	if err != nil {
		logger.Error("resolve signing key", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := db.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}

	var (
		redisClient  *redis.Client
		loginLimiter users.LoginLimiter = users.NopLoginLimiter{}
	)
	redisClient, err = cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, login lockout and dashboard cache disabled", slog.Any("error", err))
	} else {
		loginLimiter = users.NewRedisLoginLimiter(redisClient, cfg.LoginMaxAttempts, cfg.LoginLockout)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	var dashboardCache *dashboard.Cache
	if redisClient != nil {
		dashboardCache = dashboard.NewCache(redisClient, cfg.DashboardCacheTTL, logger)
	}
	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboardCache, logger)

	usersRepo := users.NewRepository(dbpool)
	guard := auth.NewGuard(signingKey, usersRepo,
		auth.WithLifetime(cfg.JWTTTL),
		auth.WithLogger(logger),
		auth.WithFailureRecorder(metrics),
	)
	guardMW := auth.Middleware{Guard: guard, Logger: logger}

	usersService := users.NewService(usersRepo, guard,
		users.WithLoginLimiter(loginLimiter),
		users.WithNotifier(jobClient),
		users.WithAudit(auditLogger),
		users.WithStatsInvalidator(dashboardService),
		users.WithLogger(logger),
	)
	if err := usersService.EnsureDefaultAdmin(ctx, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		logger.Error("bootstrap default admin", slog.Any("error", err))
		os.Exit(1)
	}

	storage, err := documents.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload storage", slog.Any("error", err))
		os.Exit(1)
	}

	profilesService := profiles.NewService(profiles.NewRepository(dbpool), storage, jobClient, auditLogger, logger,
		profiles.WithAccounts(usersService),
		profiles.WithStatsInvalidator(dashboardService),
	)
	documentsService := documents.NewService(documents.NewRepository(dbpool), storage, profilesService, auditLogger, logger, cfg.UploadMaxBytes)
	postingsService := postings.NewService(postings.NewRepository(dbpool), profilesService, jobClient, auditLogger, logger,
		postings.WithStatsInvalidator(dashboardService),
	)
	chatService := chat.NewService(chat.NewRepository(dbpool), usersRepo, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Guard:            guardMW,
		UsersHandler:     users.NewHandler(logger, usersService, guardMW),
		ProfilesHandler:  profiles.NewHandler(logger, profilesService, guardMW),
		DocumentsHandler: documents.NewHandler(logger, documentsService, guardMW),
		PostingsHandler:  postings.NewHandler(logger, postingsService, guardMW),
		ChatHandler:      chat.NewHandler(logger, chatService, guardMW),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, guardMW),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("jwt_alg", signingKey.Algorithm()),
			slog.Duration("token_ttl", guard.TokenLifetime()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
