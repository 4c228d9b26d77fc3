package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cartshare/internal/cache"
	"cartshare/internal/cart"
	"cartshare/internal/events"
	httpapi "cartshare/internal/http"
	"cartshare/internal/identity"
	"cartshare/internal/repository"
	"cartshare/internal/roles"
	"cartshare/internal/session"
	"cartshare/pkg/config"
	"cartshare/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{ServiceName: "api", Level: logger.ParseLevel(cfg.App.LogLevel)})

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logg.Error(ctx, "failed to connect to MongoDB", err)
		os.Exit(1)
	}
	defer func() {
		_ = mongoDB.Client().Disconnect(ctx)
	}()
	if err := repository.EnsureCartIndexes(ctx, mongoDB); err != nil {
		logg.Error(ctx, "failed to create cart indexes", err)
		os.Exit(1)
	}
	logg.Info(ctx, "connected to MongoDB")

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
	logg.Info(ctx, "connected to Redis")

	var verifier identity.Verifier
	var claims identity.ClaimWriter
	if cfg.Firebase.AuthDisabled {
		logg.Warn(ctx, "auth disabled, using static dev identity")
		static := identity.NewStaticProvider(cfg.Firebase.DevUserID)
		verifier, claims = static, static
	} else {
		fb, err := identity.NewFirebaseProvider(ctx, cfg.Firebase.ProjectID)
		if err != nil {
			logg.Error(ctx, "failed to init firebase", err)
			os.Exit(1)
		}
		verifier, claims = fb, fb
	}

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	roleRepo := repository.NewMongoRoleRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	cartCache := cache.NewBreakerCache(cache.NewRedisCache(redisClient))

	persistence := cart.NewPersistence(cartRepo, cartCache, logg)
	fetcher := cart.NewCachedFetcher(cartRepo, cartCache, logg)
	queue := cart.NewWriteQueue(persistence, cfg.Cart.SaveTimeout, logg)
	sessions := session.NewManager(fetcher, persistence, queue, cfg.Cart.SessionIdleTTL, logg)

	publisher := events.NewPublisher(cfg.Kafka.CheckoutTopic, cfg.Kafka.Brokers...)
	defer publisher.Close()

	roleService := roles.NewService(roleRepo, claims, logg)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Cart:    httpapi.NewCartHandler(sessions, publisher, logg, cfg.App.RequestTimeout),
		Catalog: httpapi.NewCatalogHandler(productRepo, cfg.Cart.CatalogPageSize, logg, cfg.App.RequestTimeout),
		Roles:   httpapi.NewRolesHandler(roleService, logg, cfg.App.RequestTimeout),
		Auth:    &httpapi.AuthMiddleware{Verifier: verifier, Roles: roleService, Logg: logg},
		Logg:    logg,
		Timeout: cfg.App.RequestTimeout,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.App.Port),
		Handler: otelhttp.NewHandler(router, "cartshare-api"),
	}

	go func() {
		logg.Info(ctx, fmt.Sprintf("api listening on port %s", cfg.App.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server failed", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down api")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "server shutdown failed", err)
	}
	if err := sessions.Close(shutdownCtx); err != nil {
		logg.Error(ctx, "failed to flush pending cart writes", err)
	}
	logg.Info(ctx, "api stopped")
}
