package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"folioBuilder/internal/api"
	"folioBuilder/internal/auth"
	"folioBuilder/internal/builder"
	"folioBuilder/internal/config"
	"folioBuilder/internal/database"
	"folioBuilder/internal/draftstore"
	"folioBuilder/internal/metrics"
	"folioBuilder/internal/notify"
	"folioBuilder/internal/portfolio"
	"folioBuilder/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s persistence=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
		cfg.Persistence.Driver,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("database migrated")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var store portfolio.Store
	switch cfg.Persistence.Driver {
	case "redis":
		store = draftstore.NewRedisStore(redisClient, cfg.Persistence.RedisTTL)
	default:
		store = draftstore.NewGormStore(db)
	}
	persister := portfolio.NewPersister(store,
		portfolio.WithLogger(logger),
		portfolio.WithFailureHook(metrics.PersistFailure),
	)
	publisher := notify.NewPublisher(redisClient)
	builderService := builder.NewService(persister,
		builder.WithPublisher(publisher),
		builder.WithLogger(logger),
	)

	authService, err := auth.NewAuthServiceFromFiles(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	// 对象存储不可用时分享导出回落为内联文档
	var objects api.ObjectStore
	if storageClient, err := storage.NewClient(cfg.MinIO); err != nil {
		logger.Warn("storage client unavailable, share exports will be inline", slog.Any("error", err))
	} else {
		objects = storageClient
		log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Dependencies{
		DB:             db,
		Builder:        builderService,
		Auth:           authService,
		Storage:        objects,
		Enqueuer:       asynqClient,
		RateCounter:    redisClient,
		Subscriber:     redisClient,
		Logger:         logger,
		InternalSecret: cfg.Internal.Secret,
		AllowedOrigins: cfg.API.AllowedOrigins,
		ClamdAddr:      cfg.Upload.ClamdAddr,
		UploadMaxBytes: cfg.Upload.MaxBytes,
		UploadMaxDim:   cfg.Upload.MaxDimension,
		Export: api.ExportOptions{
			RateLimitPerHour: cfg.Export.RateLimitPerHour,
			LinkTTL:          cfg.Export.LinkTTL,
		},
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
