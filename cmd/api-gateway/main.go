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

	"github.com/uvems/uvems-api/internal/handler"
	"github.com/uvems/uvems-api/internal/middleware"
	"github.com/uvems/uvems-api/internal/models"
	"github.com/uvems/uvems-api/internal/optimizer"
	"github.com/uvems/uvems-api/internal/repository"
	"github.com/uvems/uvems-api/internal/service"
	"github.com/uvems/uvems-api/pkg/cache"
	"github.com/uvems/uvems-api/pkg/config"
	"github.com/uvems/uvems-api/pkg/database"
	"github.com/uvems/uvems-api/pkg/logger"
	corsmiddleware "github.com/uvems/uvems-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uvems/uvems-api/pkg/middleware/requestid"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	eventRepo := repository.NewEventRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	runRepo := repository.NewOptimizationRunRepository(db)
	cacheRepo := repository.NewRedisCache(redisClient)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Optimizer.ReportCacheTTL, logr, true)

	optimizerSvc, err := service.NewOptimizerService(
		eventRepo,
		venueRepo,
		equipmentRepo,
		preferenceRepo,
		scheduleRepo,
		runRepo,
		db,
		cacheSvc,
		metricsSvc,
		nil,
		logr,
		service.OptimizerServiceConfig{
			CalendarPath:   cfg.Calendar.Path,
			AcademicYear:   cfg.Calendar.AcademicYear,
			Timezone:       cfg.Calendar.Timezone,
			Params:         optimizerParams(cfg.Optimizer),
			RunTimeout:     cfg.Optimizer.RunTimeout,
			ReportCacheTTL: cfg.Optimizer.ReportCacheTTL,
			QueueWorkers:   cfg.Optimizer.QueueWorkers,
			QueueBuffer:    cfg.Optimizer.QueueBuffer,
		},
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to init optimizer service", "error", err)
	}
	exportSvc := service.NewExportService(runRepo, logr)

	optimizerHandler := handler.NewOptimizerHandler(optimizerSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	if cfg.Optimizer.Enabled {
		optimize := api.Group("/optimize")
		optimize.Use(middleware.RequireRole(models.RoleAdmin))
		optimize.POST("/week", optimizerHandler.OptimizeWeek)
		optimize.POST("/proposals/accept", optimizerHandler.AcceptProposal)
		optimize.GET("/runs", optimizerHandler.ListRuns)
		optimize.GET("/runs/:id", optimizerHandler.GetRun)
		optimize.GET("/runs/:id/export", optimizerHandler.ExportRun)
	} else {
		logr.Sugar().Warnw("optimizer disabled, scheduling endpoints not registered")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	optimizerSvc.Start(ctx)
	defer optimizerSvc.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func optimizerParams(cfg config.OptimizerConfig) optimizer.Params {
	params := optimizer.DefaultParams()
	if cfg.PopulationSize > 0 {
		params.PopulationSize = cfg.PopulationSize
	}
	if cfg.MaxGenerations > 0 {
		params.MaxGenerations = cfg.MaxGenerations
	}
	if cfg.MutationRate > 0 {
		params.MutationRate = cfg.MutationRate
	}
	if cfg.CrossoverRate > 0 {
		params.CrossoverRate = cfg.CrossoverRate
	}
	if cfg.TournamentSize > 1 {
		params.TournamentSize = cfg.TournamentSize
	}
	params.Workers = cfg.EvalWorkers
	return params
}
