package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Lesson move validation, room resolution and versioned commits for the weekly timetable
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	defaultPolicy, err := timetable.ParsePolicy(cfg.Moves.DefaultPolicy, timetable.MoveOne)
	if err != nil {
		return fmt.Errorf("DEFAULT_MOVE_POLICY: %w", err)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.ReadinessCheck{}

	var store service.TimetableStore
	if cfg.Persistence.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Persistence.RunMigrations {
			if err := database.Migrate(ctx, db.DB, logr); err != nil {
				return err
			}
		}
		store = repository.NewTimetableRepository(db)
		checks["postgres"] = db.PingContext
	}

	var cacheSvc *service.CacheService
	if cfg.Moves.VerdictCache {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("verdict cache disabled: redis unreachable", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Moves.VerdictCacheTTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	moveSvc := service.NewMoveService(store, cacheSvc, metrics, validate, logr, service.MoveServiceConfig{
		DefaultPolicy: defaultPolicy,
		VerdictTTL:    cfg.Moves.VerdictCacheTTL,
	})

	handlers := routeHandlers{
		timetable: handler.NewTimetableHandler(moveSvc),
		metrics:   handler.NewMetricsHandler(metrics, checks),
	}

	if store != nil {
		auditCfg := service.AuditServiceConfig{
			Workers:    cfg.Audit.Workers,
			Retries:    cfg.Audit.Retries,
			RetryDelay: 5 * time.Second,
		}
		if cfg.Audit.Enabled {
			auditCfg.Cron = cfg.Audit.Cron
		}
		auditSvc := service.NewAuditService(store, metrics, logr, auditCfg)
		if err := auditSvc.Start(ctx); err != nil {
			return err
		}
		defer auditSvc.Stop()

		handlers.schedules = handler.NewScheduleHandler(
			service.NewScheduleService(store, metrics, validate, logr),
			moveSvc,
			auditSvc,
			service.NewExportService(store, logr, nil, nil),
		)
		handlers.drag = handler.NewDragSessionHandler(service.NewDragSessionService(moveSvc, logr, service.DragSessionConfig{
			TTL:               cfg.Drag.SessionTTL,
			ValidationTimeout: cfg.Drag.ValidationTimeout,
		}))
	} else {
		logr.Info("persistence disabled: serving stateless timetable endpoints only")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))

	registerRoutes(r, cfg.APIPrefix, handlers)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "persistence", store != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
