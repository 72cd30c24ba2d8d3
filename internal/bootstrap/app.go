// Package bootstrap wires configuration, infrastructure, services,
// handlers, the hub, and the background worker into a runnable app.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httphandler "github.com/abhaypanchalprogrammer/HasText/internal/handler/http"
	wshandler "github.com/abhaypanchalprogrammer/HasText/internal/handler/websocket"
	"github.com/abhaypanchalprogrammer/HasText/internal/hub"
	gormpersistence "github.com/abhaypanchalprogrammer/HasText/internal/infra/persistence/gorm"
	redisstate "github.com/abhaypanchalprogrammer/HasText/internal/infra/state/redis"
	"github.com/abhaypanchalprogrammer/HasText/internal/infra/setup"
	"github.com/abhaypanchalprogrammer/HasText/internal/middleware"
	"github.com/abhaypanchalprogrammer/HasText/internal/repository"
	"github.com/abhaypanchalprogrammer/HasText/internal/service"
	"github.com/abhaypanchalprogrammer/HasText/internal/tasks"
	"github.com/abhaypanchalprogrammer/HasText/internal/worker"
)

// App holds the wired components and their lifecycle.
type App struct {
	cfg *Config

	db          *gorm.DB
	redisClient *redis.Client
	asynqClient *asynq.Client

	hub       *hub.Hub
	worker    *worker.WorkerServer
	scheduler *asynq.Scheduler

	httpServer *http.Server
}

// NewApp builds the full dependency graph.
func NewApp(cfg *Config) (*App, error) {
	configureLogging(cfg)

	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisOpt)

	userRepo := gormpersistence.NewGormUserRepository(db)
	roomRepo := gormpersistence.NewGormRoomRepository(db)
	revisionRepo := gormpersistence.NewGormRevisionRepository(db)
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.RedisKeyPrefix)

	authService, err := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	roomService := service.NewRoomService(roomRepo, stateRepo, asynqClient)
	revisionService := service.NewRevisionService(roomRepo, revisionRepo)

	h := hub.NewHub(roomService, stateRepo, redisClient)

	revisionHandler := worker.NewRevisionPersistenceHandler(revisionRepo)
	sweepHandler := worker.NewIdleRoomSweepHandler(roomRepo, stateRepo, h)
	workerServer := worker.NewWorkerServer(redisOpt, revisionHandler, sweepHandler)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: logrus.StandardLogger(),
	})
	sweepPayload, err := tasks.NewRoomSweepTask(nil)
	if err != nil {
		return nil, fmt.Errorf("build sweep task: %w", err)
	}
	if _, err := scheduler.Register("@every 5m", asynq.NewTask(tasks.TypeRoomSweep, sweepPayload), asynq.Queue("low")); err != nil {
		return nil, fmt.Errorf("register sweep schedule: %w", err)
	}

	authHandler := httphandler.NewAuthHandler(authService)
	roomHandler := httphandler.NewRoomHandler(roomService)
	revisionHTTPHandler := httphandler.NewRevisionHandler(revisionService)
	wsHandler := wshandler.NewHandler(h, roomService)

	router := buildRouter(cfg, stateRepo, authHandler, roomHandler, revisionHTTPHandler, wsHandler)

	app := &App{
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
		asynqClient: asynqClient,
		hub:         h,
		worker:      workerServer,
		scheduler:   scheduler,
		httpServer: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // WebSocket connections are long-lived
			IdleTimeout:  60 * time.Second,
		},
	}
	return app, nil
}

func configureLogging(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.AppEnv == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func buildRouter(cfg *Config, stateRepo repository.StateRepository, authHandler *httphandler.AuthHandler, roomHandler *httphandler.RoomHandler, revisionHandler *httphandler.RevisionHandler, wsHandler *wshandler.Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	jwtSecret := []byte(cfg.JWTSecret)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(stateRepo, cfg.RateLimitMax, cfg.RateLimitWindow))
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.Auth(jwtSecret), authHandler.Me)
		}

		rooms := api.Group("/rooms", middleware.Auth(jwtSecret))
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.POST("/join", roomHandler.JoinRoom)
			rooms.GET("", roomHandler.ListRooms)
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.PUT("/:code", roomHandler.SaveRoom)
			rooms.GET("/:code/revisions", revisionHandler.ListRevisions)
		}
	}

	router.GET("/ws/room/:code", middleware.Auth(jwtSecret), wsHandler.ServeRoom)

	return router
}

// LoggerMiddleware logs each request through logrus with latency and status.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
		} else if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Info("Request handled")
		}
	}
}

// CORSMiddleware allows the browser frontend to call the API.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Start brings up the hub, worker, scheduler, and the HTTP server. It blocks
// until the HTTP server exits.
func (a *App) Start() error {
	go a.hub.Run()

	if err := a.worker.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	logrus.WithField("port", a.cfg.ServerPort).Info("HTTP server listening")
	if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown tears the app down in dependency order.
func (a *App) Shutdown() {
	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown error")
	}

	a.hub.StopAllSubscriptions()
	a.scheduler.Shutdown()
	a.worker.Shutdown()

	if err := a.asynqClient.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close asynq client")
	}
	if err := a.redisClient.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close redis client")
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database connection")
		}
	}
	logrus.Info("Shutdown complete")
}
