// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"fanclash-service/internal/config"
	"fanclash-service/internal/db"
	notificationHandler "fanclash-service/internal/handlers/notification"
	paymentHandler "fanclash-service/internal/handlers/payment"
	wsHandler "fanclash-service/internal/handlers/websocket"
	"fanclash-service/internal/middleware"
	"fanclash-service/internal/mpesa"
	"fanclash-service/internal/pkg/cache"
	"fanclash-service/internal/pkg/throttle"
	"fanclash-service/internal/repository/postgres"
	notifyUsecase "fanclash-service/internal/service/notification"
	paymentUsecase "fanclash-service/internal/service/payment"
	"fanclash-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	cancel context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] ✅ Connected successfully")

	// ----- Gateway client -----
	tokenCache := mpesa.NewTokenCache()
	gatewayClient := mpesa.NewClient(s.cfg.Mpesa, tokenCache, logger)

	// ----- Repositories -----
	paymentRepo := postgres.NewPaymentRepository(pool)
	eventRepo := postgres.NewPaymentEventRepository(pool)

	// ----- WebSocket hub -----
	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services (Usecases) -----
	statusCache := cache.NewStatusCache(redisClient, s.cfg.StatusCacheTTL)
	notifService := notifyUsecase.NewNotificationService(eventRepo, logger)
	paymentService := paymentUsecase.NewPaymentService(
		gatewayClient,
		paymentRepo,
		statusCache,
		hub,
		notifService,
		logger,
	)

	// ----- Expiry sweep -----
	sweeper := paymentUsecase.NewSweeper(
		paymentRepo,
		statusCache,
		hub,
		notifService,
		s.cfg.SweepInterval,
		s.cfg.PendingMaxAge,
		logger,
	)
	go sweeper.Run(ctx)

	// ----- Handlers -----
	paymentHandlerInst := paymentHandler.NewPaymentHandler(paymentService)
	callbackHandlerInst := paymentHandler.NewCallbackHandler(paymentService, logger)
	notificationHandlerInst := notificationHandler.NewNotificationHandler(notifService)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	callbackLimiter := throttle.NewLimiter(redisClient, 60, time.Minute)
	callbackGuard := middleware.NewCallbackGuard(s.cfg.Mpesa.CallbackSecret, callbackLimiter, logger)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		PaymentHandler:      paymentHandlerInst,
		CallbackHandler:     callbackHandlerInst,
		NotificationHandler: notificationHandlerInst,
		WSHandler:           wsHandlerInst,
		CallbackGuard:       callbackGuard,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// Shutdown stops the background workers.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}
