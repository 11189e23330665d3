package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/PushRelay/controllers"
	"github.com/PushRelay/initializers"
	"github.com/PushRelay/middlewares"
	"github.com/PushRelay/services"
)

func main() {
	cfg, err := initializers.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	initializers.InitLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	store, err := initializers.NewRateLimitStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	metrics := services.NewMetrics()
	limiter, err := initializers.NewLimiter(store, cfg, metrics)
	if err != nil {
		log.Fatal(err)
	}

	gateway, err := initializers.NewPushGateway(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	services.InitRelayService(services.NewRelayDispatcher(gateway, limiter, cfg.AppIDPrefix, metrics))

	router := gin.Default()

	router.GET("/health", controllers.HealthCheck)
	router.GET("/metrics", controllers.GetMetrics)

	push := router.Group("/push")
	push.Use(middlewares.RateLimitMiddleware(rate.Limit(cfg.InboundRate), cfg.InboundBurst, middlewares.ClientIPKey))
	push.Use(middlewares.CheckAuth(cfg.RelaySecret))
	{
		push.POST("/send", controllers.SendPush)
		push.POST("/rateLimits", controllers.GetRateLimits)
	}

	slog.Info("push relay listening",
		slog.String("port", cfg.Port),
		slog.String("gateway", gateway.Name()),
		slog.String("store", cfg.RateLimitStore),
		slog.String("app_id_prefix", cfg.AppIDPrefix))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
