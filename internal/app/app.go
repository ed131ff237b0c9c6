package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/controller"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/pkg/database"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"
	"exam_platform_backend/pkg/security"
	"exam_platform_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user    *repository.UserRepository
	class   *repository.ClassRepository
	exam    *repository.ExamRepository
	attempt *repository.AttemptRepository
}

type services struct {
	auth      *service.AuthService
	class     *service.ClassService
	storage   *service.StorageService
	exam      *service.ExamService
	grading   *service.GradingService
	attempt   *service.AttemptService
	analytics *service.AnalyticsService
}

type controllers struct {
	auth      *controller.AuthController
	class     *controller.ClassController
	exam      *controller.ExamController
	attempt   *controller.AttemptController
	grading   *controller.GradingController
	analytics *controller.AnalyticsController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig pushes a hot-reloaded configuration to every registered
// callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		class:   repository.NewClassRepository(db),
		exam:    repository.NewExamRepository(db),
		attempt: repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	s.auth = service.NewAuthService(repos.user, cfg)
	s.class = service.NewClassService(repos.class, repos.user)
	s.exam = service.NewExamService(repos.exam, repos.attempt, repos.class)
	s.grading = service.NewGradingService(repos.exam, repos.attempt, repos.attempt)
	s.attempt = service.NewAttemptService(repos.exam, repos.attempt, repos.attempt, repos.class, s.grading)
	s.analytics = service.NewAnalyticsService(repos.exam, repos.attempt, repos.attempt, rdb, cfg.Exam.StatsCacheTTL())

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		class:     controller.NewClassController(s.class),
		exam:      controller.NewExamController(s.exam, s.storage),
		attempt:   controller.NewAttemptController(s.attempt, s.analytics),
		grading:   controller.NewGradingController(s.grading),
		analytics: controller.NewAnalyticsController(s.analytics),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the two reconciliation loops: the expiry
// sweep that force-closes overdue attempts, and the scheduler that
// moves exams through their published/active/closed window.
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(a.Config.Exam.SweepInterval())
		for range ticker.C {
			expired, err := s.attempt.ExpireOverdue()
			if err != nil {
				logger.Log.Error("attempt expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				logger.Log.Info("attempt expiry sweep", zap.Int("expired", expired))
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(a.Config.Exam.ScheduleInterval())
		for range ticker.C {
			if err := s.exam.ProcessSchedule(); err != nil {
				logger.Log.Error("exam schedule tick failed", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("exam-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	// settings read per request can be hot-reloaded
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.analytics.CacheTTL = newCfg.Exam.StatsCacheTTL()
	})

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
