package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"sudooom.hukum/internal/api"
	"sudooom.hukum/internal/config"
	"sudooom.hukum/internal/game"
	"sudooom.hukum/internal/health"
	"sudooom.hukum/internal/jwt"
	hukumNats "sudooom.hukum/internal/nats"
	"sudooom.hukum/internal/repository"
	"sudooom.hukum/internal/store"
	"sudooom.hukum/internal/task"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(logger)

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接 NATS
	natsClient, err := hukumNats.NewClient(cfg.NATS, cfg.App.Name)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "addr", cfg.Redis.Addr())

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// 初始化组件
	redisStore := store.NewRedisStore(redisClient, store.Options{
		LockTTL:     cfg.Game.LockTTL,
		LockWait:    cfg.Game.LockWait,
		SnapshotTTL: cfg.Game.SnapshotTTL,
	})
	publisher := hukumNats.NewEventPublisher(natsClient.Conn())
	historyRepo := repository.NewHistoryRepository(db)
	jwtService := jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.AccessExpire, cfg.JWT.Issuer)

	scheduler := task.NewScheduler(cfg.Game.TimerWorkers, cfg.Game.TimerTick)
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	manager := game.NewGameManager(cfg.Game.MaxGames, cfg.Game.EvictTimeout, cfg.Game.EvictInterval)
	gameService := game.NewGameService(
		manager,
		redisStore,
		publisher,
		historyRepo,
		scheduler,
		jwtService,
		game.ServiceConfig{
			Engine:          cfg.EngineConfig(),
			TurnTimeout:     cfg.Game.TurnTimeout,
			DisconnectGrace: cfg.Game.DisconnectGrace,
			ChannelSecret:   cfg.ChannelSecret(),
		},
	)

	// 启动请求订阅者
	subscriber := hukumNats.NewRequestSubscriber(natsClient.Conn(), gameService, hukumNats.SubscriberConfig{
		WorkerCount:   cfg.Subscriber.WorkerCount,
		BufferSize:    cfg.Subscriber.BufferSize,
		HandleTimeout: cfg.NATS.RequestTimeout,
	})
	if err := subscriber.Start(ctx); err != nil {
		logger.Error("Failed to start subscriber", "error", err)
		os.Exit(1)
	}

	// 启动 HTTP API
	router := api.SetupRouter(
		cfg.HTTP.Mode,
		cfg.HTTP.AllowedOrigins,
		jwtService,
		api.NewGameHandler(gameService),
		api.NewHistoryHandler(historyRepo),
	)
	apiServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	go serve(apiServer, "API", logger)

	// 启动健康检查 HTTP 服务
	healthChecker := health.NewChecker(natsClient, redisStore, db)
	healthServer := &http.Server{
		Addr:    cfg.HTTP.HealthAddr,
		Handler: healthChecker.Handler(),
	}
	go serve(healthServer, "Health check", logger)

	logger.Info("Hukum service started", "name", cfg.App.Name)

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", "error", err)
	}
	if err := subscriber.Stop(); err != nil {
		logger.Error("Subscriber stop failed", "error", err)
	}
	scheduler.Stop()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("GameManager shutdown failed", "error", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Health server shutdown failed", "error", err)
	}
	cancel()

	logger.Info("Hukum service stopped")
}

// serve 启动 HTTP 服务直到关闭
func serve(server *http.Server, name string, logger *slog.Logger) {
	logger.Info(name+" server started", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(name+" server failed", "error", err)
	}
}

// parseLevel 解析日志级别，无法识别时使用 info
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}
