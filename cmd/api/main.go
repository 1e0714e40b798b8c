package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/promo"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	appMetrics, shutdownMetrics, err := initMetrics(ctx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer shutdownMetrics()

	validator, err := initPromoValidator(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize promo validator: %w", err)
	}
	defer validator.Close()

	store, err := initIdempotencyStore(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize idempotency store: %w", err)
	}
	defer store.Close()

	// Initialize repositories
	txr := repository.NewTransactor(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	reviewRepo := repository.NewReviewRepository(pool, logger)

	// Initialize services
	policy := model.NewTransitionPolicy(cfg.Orders.TransitionMode)
	productService := service.NewProductService(txr, productRepo, userRepo, appMetrics, logger)
	cartService := service.NewCartService(txr, cartRepo, productRepo, userRepo, appMetrics, logger)
	orderService := service.NewOrderService(service.OrderRepositories{
		Tx:       txr,
		Orders:   orderRepo,
		Carts:    cartRepo,
		Products: productRepo,
		Address:  addressRepo,
	}, validator, store, appMetrics, logger)
	lifecycleService := service.NewLifecycleService(txr, orderRepo, productRepo, policy, appMetrics, logger)
	addressService := service.NewAddressService(txr, addressRepo, userRepo, logger)
	reviewService := service.NewReviewService(reviewRepo, productRepo, userRepo, appMetrics, logger)

	// Initialize HTTP handlers and router
	mux := router.New(router.Handlers{
		Products:  handler.NewProductHandler(productService, logger),
		Cart:      handler.NewCartHandler(cartService, logger),
		Orders:    handler.NewOrderHandler(orderService, lifecycleService, logger),
		Addresses: handler.NewAddressHandler(addressService, logger),
		Reviews:   handler.NewReviewHandler(reviewService, logger),
	}, pool, appMetrics, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("transitions", string(policy.Mode())).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// initMetrics exports through OTLP when telemetry is enabled and records into
// a no-op provider otherwise.
func initMetrics(ctx context.Context, cfg config.TelemetryConfig, logger zerolog.Logger) (*metrics.AppMetrics, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("telemetry disabled, metrics are not exported")
		return metrics.Nop(), func() {}, nil
	}

	provider, err := metrics.InitProvider(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	appMetrics, err := metrics.New(otel.Meter(cfg.ServiceName), cfg.ServiceName)
	if err != nil {
		return nil, nil, err
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Dur("interval", cfg.ExportInterval).
		Msg("exporting metrics over OTLP")

	return appMetrics, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown meter provider")
		}
	}, nil
}

// initPromoValidator loads the configured code lists, from S3 with a local
// fallback when S3 is enabled.
func initPromoValidator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (promo.Validator, error) {
	if !cfg.Promo.Enabled() {
		logger.Info().Msg("no promo code files configured, every promo code will be rejected")
		return promo.NewDisabledValidator(), nil
	}

	fileLoader := promo.NewFileLoader(logger)
	var s3Loader promo.Loader

	if cfg.S3.Enabled {
		loader, err := promo.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for promo files (S3 disabled)")
	}

	return promo.NewValidator(ctx, promo.ValidatorConfig{
		FilePaths:     cfg.Promo.FilePaths,
		MinMatchCount: cfg.Promo.MinMatchCount,
	}, promo.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger), logger)
}

func initIdempotencyStore(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (idempotency.Store, error) {
	if cfg.URL == "" {
		logger.Info().Msg("redis not configured, idempotency keys are ignored")
		return idempotency.NewNopStore(), nil
	}
	store, err := idempotency.NewRedisStore(ctx, cfg.URL, cfg.IdempotencyTTL, cfg.PendingTTL, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}
