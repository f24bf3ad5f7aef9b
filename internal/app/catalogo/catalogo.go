// Package catalogo assembles and runs the catalog HTTP service: storage,
// cache, broker, payment-provider client, the business services and the
// router, plus graceful shutdown of all of it.
package catalogo

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/linkshop/catalogo/internal/cache"
	"github.com/linkshop/catalogo/internal/config"
	"github.com/linkshop/catalogo/internal/lib/jwt"
	"github.com/linkshop/catalogo/internal/lib/rabbitmq"
	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/migrations"
	"github.com/linkshop/catalogo/internal/paymentprovider"
	authservice "github.com/linkshop/catalogo/internal/services/auth"
	catalogservice "github.com/linkshop/catalogo/internal/services/catalog"
	checkoutservice "github.com/linkshop/catalogo/internal/services/checkout"
	entitlementservice "github.com/linkshop/catalogo/internal/services/entitlement"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// App is the assembled catalog service.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New wires the full application from configuration. The broker is optional:
// when no URL is configured activation events are simply not published.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var amqpConn *amqp.Connection
	var publisher entitlementservice.Publisher
	if cfg.RabbitMQURL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("rabbitmq url is empty, activation notifications disabled")
	}

	providerClient := paymentprovider.NewClient(cfg.Stripe.SecretKey)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.New(db, jwtMaker)
	entitlementService := entitlementservice.New(db, providerClient, publisher, cfg.PremiumAllowlist, logger)
	checkoutService := checkoutservice.New(providerClient, db, checkoutservice.Config{
		PriceAmount:    cfg.PriceAmount,
		PriceCurrency:  cfg.PriceCurrency,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)
	catalogService := catalogservice.New(db, entitlementService, cacheRedis, nil, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, entitlementService, checkoutService, catalogService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", sl.Err(closeErr))
		}
		if a.amqpConn != nil {
			if closeErr := a.amqpConn.Close(); closeErr != nil {
				a.logger.Error("failed to close broker connection", sl.Err(closeErr))
			}
		}
		return err
	}
}
