package cmd

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"

	"ticket-console/config"
	"ticket-console/internal/handlers"
	"ticket-console/internal/services"
	"ticket-console/internal/services/upstream"
	_ "ticket-console/migrations"
	"ticket-console/monitoring"
	"ticket-console/security"
	"ticket-console/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	var redisClient *redis.Client

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		logger := app.Logger().With(slog.String("component", "console"))

		client, err := utils.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("redis unavailable, running without shared cache and locks", slog.Any("error", err))
		}
		redisClient = client

		registry := newRegistry(app, cfg, redisClient, logger)
		consoleHandler := handlers.NewConsoleHandler(registry, cfg.AdminCollection, logger)
		limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute, logger)

		// Console endpoints
		consoleHandler.RegisterRoutes(se, limiter.AntiBot(), limiter.MutationLimit())

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(e.Request.Context(), redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
			monitoring.NewMonitor(registry, cfg.MetricsCollectInterval, logger).Start(ctx)
		}

		logger.Info("console routes registered", slog.String("environment", cfg.Environment))

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		cancel()
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				app.Logger().Warn("closing redis failed", slog.Any("error", err))
			}
		}
		return e.Next()
	})

	return app.Start()
}

// newRegistry wires the upstream services, the Redis-backed cache and lock,
// live notifications and the audit trail into the per-event views.
func newRegistry(app core.App, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *services.ViewRegistry {
	client := upstream.NewClient(upstream.Config{
		EventURL:   cfg.EventAPIURL,
		PaymentURL: cfg.PaymentAPIURL,
		CheckInURL: cfg.CheckInAPIURL,
		Token:      cfg.UpstreamToken,
		HMACKey:    cfg.UpstreamHMACKey,
		Timeout:    cfg.UpstreamTimeout,
	}, logger, monitoring.TrackUpstreamCall)

	var notifiers services.MultiNotifier
	if cfg.PubNubEnabled() {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifiers = append(notifiers, services.NewPubNubNotifier(pubnub.NewPubNub(pnConfig), logger))
	}
	if cfg.AMQPURL != "" {
		notifiers = append(notifiers, services.NewAMQPNotifier(cfg.AMQPURL, logger))
	}

	return services.NewViewRegistry(services.Deps{
		Catalog:      services.NewCatalogCache(redisClient, client, cfg.CatalogCacheTTL, logger),
		Transactions: client,
		CheckIns:     client,
		Locker:       services.NewRedisPairLock(redisClient, cfg.CheckInLockTTL, logger),
		Notifier:     notifiers,
		Audit:        services.NewPocketBaseAudit(app),
		Logger:       logger,
		PageSize:     cfg.PageSize,
	})
}
