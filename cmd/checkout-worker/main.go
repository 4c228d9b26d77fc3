package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"cartshare/internal/cache"
	"cartshare/internal/poller"
	"cartshare/internal/repository"
	"cartshare/pkg/config"
	"cartshare/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-worker"})
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
	logg = logger.New(logger.Options{ServiceName: "checkout-worker", Level: logger.ParseLevel(cfg.App.LogLevel)})

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

	repo := repository.NewMongoCartRepository(mongoDB)
	cartCache := cache.NewRedisCache(redisClient)

	p := poller.New(repo, cartCache, logg, cfg.Kafka.CheckoutTopic, cfg.Kafka.ConsumerGroup, cfg.Kafka.Brokers...)
	defer p.Close()

	go p.Run(ctx)
	logg.Info(ctx, "checkout worker consuming")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down checkout worker")
	cancel()
}
