package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_sync_backend/internal/config"
	"course_sync_backend/internal/controller"
	"course_sync_backend/internal/localstore"
	"course_sync_backend/internal/middleware"
	"course_sync_backend/internal/repository"
	"course_sync_backend/internal/service"
	"course_sync_backend/pkg/database"
	"course_sync_backend/pkg/logger"
	"course_sync_backend/pkg/monitoring"
	"course_sync_backend/pkg/security"
	"course_sync_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config      *config.Config
	Router      *gin.Engine
	DB          *gorm.DB
	Redis       *redis.Client
	rateLimiter *security.RateLimiter
}

type repositories struct {
	progress *repository.ProgressRepository
	quiz     *repository.QuizAnswerRepository
	chat     *repository.ChatTranscriptRepository
	module   *repository.ModuleRepository
}

type services struct {
	snapshots  *service.SnapshotStore
	progress   *service.ProgressService
	reconciler *service.Reconciler
	quiz       *service.QuizChannel
	chat       *service.ChatChannel
	lifecycle  *service.LifecycleController
}

type controllers struct {
	progress *controller.ProgressController
	channel  *controller.ChannelController
	session  *controller.SessionController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		progress: repository.NewProgressRepository(db),
		quiz:     repository.NewQuizAnswerRepository(db),
		chat:     repository.NewChatTranscriptRepository(db),
		module:   repository.NewModuleRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, kv localstore.Store) *services {
	s := &services{}

	s.snapshots = service.NewSnapshotStore(kv, logger.Log)
	s.progress = service.NewProgressService(s.snapshots, repos.module, logger.Log)
	s.reconciler = service.NewReconciler(s.snapshots, repos.progress, logger.Log)

	archive, err := service.NewArchiveProvider(&cfg.Archive)
	if err != nil {
		logger.Log.Fatal("Failed to initialize transcript archive", zap.Error(err))
	}

	s.quiz = service.NewQuizChannel(kv, repos.quiz, logger.Log)
	s.chat = service.NewChatChannel(kv, repos.chat, archive, logger.Log)
	s.lifecycle = service.NewLifecycleController(s.reconciler, s.quiz, s.chat, logger.Log)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		progress: controller.NewProgressController(s.progress),
		channel:  controller.NewChannelController(s.quiz, s.chat),
		session:  controller.NewSessionController(s.lifecycle),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	a.rateLimiter = security.NewRateLimiter(maxRequests, window)
	router.Use(a.rateLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/health", c.health.Check)
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.POST("/progress/advance", c.progress.Advance)
		api.GET("/progress", c.progress.List)
		api.GET("/progress/:courseId", c.progress.Get)
		api.POST("/progress/reset", c.progress.Reset)

		api.POST("/quiz/answers", c.channel.RecordQuizAnswer)
		api.POST("/chat/messages", c.channel.RecordChatTranscript)

		api.POST("/lifecycle", c.session.Transition)
		api.POST("/session/flush", c.session.Flush)
		api.POST("/session/restore", c.session.Restore)
	}
}

// ReloadConfig 配置热更新回调，只调整可在线变更的部分
func (a *App) ReloadConfig(cfg *config.Config) {
	logger.SetMode(cfg.Server.Mode)

	if a.rateLimiter != nil && cfg.RateLimit.MaxRequests > 0 && cfg.RateLimit.WindowMinutes > 0 {
		a.rateLimiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	}

	logger.Log.Info("Config reloaded", zap.String("mode", cfg.Server.Mode))
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.LocalStore.Type == "redis" || cfg.Redis.Host != "" {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	kv, err := localstore.New(&cfg.LocalStore, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize local store", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, kv)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("course-sync", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
