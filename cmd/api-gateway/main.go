package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title University Timetable API
// @version 1.0.0
// @description Course timetabling: catalog, greedy scheduler, schedule runs and exports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, proposal cache disabled", "error", err)
			cacheRepo = repository.NewCacheRepository(nil, logr)
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	} else {
		cacheRepo = repository.NewCacheRepository(nil, logr)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	authSvc := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "timetable-api",
	})

	courseRepo := repository.NewCourseRepository(db)
	catalogSvc := service.NewCatalogService(
		repository.NewRoomRepository(db),
		repository.NewTimeslotRepository(db),
		courseRepo,
		repository.NewTeacherRepository(db),
		repository.NewSectionRepository(db),
		db,
		validate,
		logr,
	)

	taSvc := service.NewTAAssignmentService(
		repository.NewResearchScholarRepository(db),
		repository.NewTAAssignmentRepository(db),
		courseRepo,
		db,
		validate,
		logr,
	)

	tieBreak, err := scheduler.ParseTieBreak(cfg.Scheduler.TieBreak)
	if err != nil {
		logr.Sugar().Fatalw("invalid scheduler tie break", "value", cfg.Scheduler.TieBreak, "error", err)
	}
	runRepo := repository.NewScheduleRunRepository(db)
	scheduleSvc := service.NewScheduleGeneratorService(
		catalogSvc,
		scheduler.NewEngine(logr),
		runRepo,
		repository.NewScheduleAssignmentRepository(db),
		db,
		cacheSvc,
		metricsSvc,
		validate,
		logr,
		service.ScheduleGeneratorConfig{
			ProposalTTL:            cfg.Scheduler.ProposalTTL,
			Timeout:                cfg.Scheduler.Timeout,
			MaxSessionsPerDay:      cfg.Scheduler.MaxSessionsPerDay,
			TieBreak:               tieBreak,
			IgnoreStudentConflicts: cfg.Scheduler.IgnoreStudentClashes,
		},
	)

	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Catalog:  handler.NewCatalogHandler(catalogSvc),
		Schedule: handler.NewScheduleGeneratorHandler(scheduleSvc),
		TA:       handler.NewTAAssignmentHandler(taSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"database": db,
			"redis":    handler.PingFunc(cacheRepo.Ping),
		}),
	}

	var queue *jobs.Queue
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("export storage unavailable", "dir", cfg.Exports.StorageDir, "error", err)
		}
		exportRepo := repository.NewExportJobRepository(db)
		worker := service.NewExportWorker(exportRepo, scheduleSvc, store, metricsSvc, logr)
		queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			JobTimeout: cfg.Exports.WorkerTimeout,
			Logger:     logr,
			OnDead:     worker.MarkDead,
		})
		queue.Start(ctx)

		exportSvc := service.NewExportService(
			exportRepo,
			runRepo,
			queue,
			store,
			storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
			metricsSvc,
			validate,
			logr,
			service.ExportConfig{
				APIPrefix:       cfg.APIPrefix,
				ResultTTL:       cfg.Exports.SignedURLTTL,
				CleanupInterval: cfg.Exports.CleanupInterval,
			},
		)
		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)
		handlers.Export = handler.NewExportHandler(exportSvc)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}
