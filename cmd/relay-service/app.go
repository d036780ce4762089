package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"chatrelay/internal/config"
	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/internal/relay"
	"chatrelay/pkg/bootstrap"
	"chatrelay/pkg/health"
	"chatrelay/pkg/logging"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/middleware"
	"chatrelay/pkg/models"
	"chatrelay/pkg/ratelimit"
)

type App struct {
	*bootstrap.Base
	service    *relay.Service
	authorizer *relay.ChannelAuthorizer
	healthRdb  *redis.Client
	server     *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("relay-service")
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, "relay-service")

	a.initService(ctx)

	if err := a.initAuthorizer(ctx); err != nil {
		return fmt.Errorf("failed to initialize channel authorizer: %w", err)
	}

	metrics.RegisterRelayMetrics()
	if a.Config.Broker.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

// initService builds the publishing path. A broker that cannot be constructed
// does not abort startup: the service stays nil and the HTTP layer answers
// submissions with a configuration error until the broker settings are fixed.
func (a *App) initService(ctx context.Context) {
	if err := a.InitProducer(); err != nil {
		a.Logger.WarnwCtx(ctx, "Broker unavailable, relay running in degraded mode",
			"error", err,
		)
		return
	}

	stamper := models.NewStamper(clockwork.NewRealClock())

	service, err := relay.NewService(a.Producer, stamper, a.Config.Relay.Channel, a.Logger)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Relay misconfigured, running in degraded mode",
			"error", err,
		)
		return
	}
	a.service = service
}

func (a *App) initAuthorizer(ctx context.Context) error {
	auth := a.Config.Relay.Auth
	if auth.Key == "" || auth.Secret == "" {
		a.Logger.InfowCtx(ctx, "Broker auth credentials not set, channel auth endpoint disabled")
		return nil
	}

	authorizer, err := relay.NewChannelAuthorizer(auth.Key, auth.Secret, auth.AllowedChannels)
	if err != nil {
		return err
	}
	a.authorizer = authorizer
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

	if a.Config.Relay.RateLimit.Enabled {
		rlConfig := ratelimit.DefaultConfig()
		rlConfig.RPS = a.Config.Relay.RateLimit.RPS
		rlConfig.Burst = a.Config.Relay.RateLimit.Burst
		if v := a.Config.Relay.RateLimit.CleanupInterval; v > 0 {
			rlConfig.CleanupInterval = time.Duration(v) * time.Second
		}
		if v := a.Config.Relay.RateLimit.MaxAge; v > 0 {
			rlConfig.MaxAge = time.Duration(v) * time.Second
		}
		router.Use(ratelimit.RateLimitMiddleware(rlConfig))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled",
			"rps", rlConfig.RPS,
			"burst", rlConfig.Burst,
		)
	}

	handler := relay.NewHandler(a.service, a.authorizer, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.service == nil {
		healthRegistry.Register(health.CheckerFunc{
			CheckName: "broker_config",
			Fn: func(context.Context) error {
				return fmt.Errorf("broker is not configured")
			},
		})
	}
	switch a.Config.Broker.Type {
	case "redis":
		a.healthRdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", a.Config.Broker.Redis.Host, a.Config.Broker.Redis.Port),
			Password: a.Config.Broker.Redis.Password,
			DB:       a.Config.Broker.Redis.DB,
		})
		healthRegistry.Register(health.NewRedisChecker(a.healthRdb))
	case "kafka":
		healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down relay service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.healthRdb != nil {
			if err := a.healthRdb.Close(); err != nil {
				errs = append(errs, fmt.Errorf("health redis close error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
