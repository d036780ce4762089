package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"chatrelay/internal/config"
	"chatrelay/internal/constants"
	"chatrelay/internal/logger"
	"chatrelay/internal/socket"
	"chatrelay/pkg/bootstrap"
	"chatrelay/pkg/health"
	"chatrelay/pkg/logging"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/middleware"
	"chatrelay/pkg/models"
	"chatrelay/pkg/retry"
)

type App struct {
	*bootstrap.Base
	hub    *socket.Hub
	server *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("socket-service")
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	ctx = logging.WithServiceName(ctx, "socket-service")

	stamper := models.NewStamper(clockwork.NewRealClock())
	a.hub = socket.NewHub(stamper, a.Config.Socket.MaxClients, a.Config.Socket.SendBufferSize, a.Logger)

	if a.Config.Socket.Bridge {
		if err := a.initBridge(ctx); err != nil {
			return fmt.Errorf("failed to initialize broker bridge: %w", err)
		}
	}

	metrics.RegisterSocketMetrics()
	if a.Config.Socket.Bridge && a.Config.Broker.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

// initBridge routes submissions through the broker instead of the local
// fan-out, so messages reach every instance of this service. Broadcasts then
// arrive via the consumer started in Run.
func (a *App) initBridge(ctx context.Context) error {
	if err := a.InitProducer(); err != nil {
		return err
	}
	if err := a.InitConsumer(); err != nil {
		return err
	}

	channel := a.Config.Relay.Channel
	a.hub.SetRelay(func(ctx context.Context, env models.Envelope) error {
		return a.Producer.Publish(ctx, channel, env)
	})

	a.Logger.InfowCtx(ctx, "Broker bridge enabled",
		"broker_type", a.Config.Broker.Type,
		"channel", channel,
	)
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

	handler := socket.NewHandler(a.hub, a.Config.Socket.AllowedOrigins, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.Config.Socket.Bridge && a.Config.Broker.Type == "kafka" {
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
		Addr:        fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:     router,
		ReadTimeout: a.Config.Server.ReadTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.Consumer != nil {
		g.Go(func() error {
			return a.consumeBridge(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

// consumeBridge keeps the broker subscription alive for the lifetime of the
// service, backing off between resubscribe attempts.
func (a *App) consumeBridge(ctx context.Context) error {
	channel := a.Config.Relay.Channel

	err := retry.RetryNotify(ctx, retry.UnboundedPolicy(), func() error {
		err := a.Consumer.Consume(ctx, channel, func(_ context.Context, env models.Envelope) error {
			a.hub.BroadcastEnvelope(env)
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return retry.NewFatalError(ctx.Err())
		}
		return err
	}, func(err error, nextDelay time.Duration) {
		a.Logger.Warnw("Broker subscription lost, resubscribing",
			"error", err,
			"next_attempt_in", nextDelay,
		)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("Shutting down socket service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
