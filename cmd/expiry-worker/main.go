package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"cartshare/internal/repository"
	"cartshare/internal/worker"
	"cartshare/pkg/config"
	"cartshare/pkg/logger"
)

const lockKey = "cartshare:expiry-worker:lock"

func main() {
	logg := logger.New(logger.Options{ServiceName: "expiry-worker"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{ServiceName: "expiry-worker", Level: logger.ParseLevel(cfg.App.LogLevel)})

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logg.Error(ctx, "failed to connect to MongoDB", err)
		os.Exit(1)
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(context.Background())
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logg.Error(ctx, "redis connection failed", err)
		os.Exit(1)
	}

	lock, err := worker.NewRedisLock(redisClient, lockKey, 23*time.Hour)
	if err != nil {
		logg.Error(ctx, "failed to build lock", err)
		os.Exit(1)
	}

	repo := repository.NewMongoCartRepository(mongoDB)
	job := worker.NewExpiryJob(repo, lock, cfg.Cart.RetentionWindow(), 24*time.Hour, logg)

	go job.Run(ctx)
	logg.Info(ctx, "expiry worker running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down expiry worker")
	cancel()
}
