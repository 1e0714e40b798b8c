package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/handler"
	"storefront/internal/idempotency"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/promo"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	// Concurrency tests need more connections than goroutines.
	pool, err := database.NewPoolFromURL(ctx, connStr, database.PoolOptions{MaxConns: 20, MinConns: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes all rows and resets identities.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE reviews, order_items, orders, cart_items, carts, addresses, products, users RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// App is the service stack wired against a test database.
type App struct {
	Pool      *pgxpool.Pool
	Products  service.ProductService
	Carts     service.CartService
	Orders    service.OrderService
	Lifecycle service.LifecycleService
	Addresses service.AddressService
	Reviews   service.ReviewService
	Handler   http.Handler
}

// AppOption customises NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	mode      model.TransitionMode
	validator promo.Validator
	store     idempotency.Store
}

// WithTransitions selects the order transition mode.
func WithTransitions(mode model.TransitionMode) AppOption {
	return func(o *appOptions) { o.mode = mode }
}

// WithPromoValidator replaces the disabled promo validator.
func WithPromoValidator(v promo.Validator) AppOption {
	return func(o *appOptions) { o.validator = v }
}

// WithIdempotencyStore replaces the no-op idempotency store.
func WithIdempotencyStore(s idempotency.Store) AppOption {
	return func(o *appOptions) { o.store = s }
}

// NewApp wires repositories, services and the HTTP router the way the server does.
func NewApp(t *testing.T, pool *pgxpool.Pool, opts ...AppOption) *App {
	t.Helper()

	o := &appOptions{
		mode:      model.TransitionStrict,
		validator: promo.NewDisabledValidator(),
		store:     idempotency.NewNopStore(),
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := zerolog.Nop()
	appMetrics := metrics.Nop()

	txr := repository.NewTransactor(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	reviewRepo := repository.NewReviewRepository(pool, logger)

	app := &App{
		Pool:     pool,
		Products: service.NewProductService(txr, productRepo, userRepo, appMetrics, logger),
		Carts:    service.NewCartService(txr, cartRepo, productRepo, userRepo, appMetrics, logger),
		Orders: service.NewOrderService(service.OrderRepositories{
			Tx:       txr,
			Orders:   orderRepo,
			Carts:    cartRepo,
			Products: productRepo,
			Address:  addressRepo,
		}, o.validator, o.store, appMetrics, logger),
		Lifecycle: service.NewLifecycleService(txr, orderRepo, productRepo, model.NewTransitionPolicy(o.mode), appMetrics, logger),
		Addresses: service.NewAddressService(txr, addressRepo, userRepo, logger),
		Reviews:   service.NewReviewService(reviewRepo, productRepo, userRepo, appMetrics, logger),
	}

	app.Handler = router.New(router.Handlers{
		Products:  handler.NewProductHandler(app.Products, logger),
		Cart:      handler.NewCartHandler(app.Carts, logger),
		Orders:    handler.NewOrderHandler(app.Orders, app.Lifecycle, logger),
		Addresses: handler.NewAddressHandler(app.Addresses, logger),
		Reviews:   handler.NewReviewHandler(app.Reviews, logger),
	}, pool, appMetrics, testAPIKey, logger)

	return app
}

var userSeq atomic.Int64

// SeedUser inserts a user with the given role.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role model.UserRole) int64 {
	t.Helper()

	n := userSeq.Add(1)
	u := &model.User{Email: fmt.Sprintf("user%d@example.com", n), FirstName: "Test", Role: role}
	require.NoError(t, repository.NewUserRepository(pool, zerolog.Nop()).Create(context.Background(), u))
	return u.ID
}

// SeedProduct lists a product for seller through the product service.
func (a *App) SeedProduct(t *testing.T, sellerID int64, name, price string, discount *int, stock int) *model.Product {
	t.Helper()

	p, err := a.Products.Create(context.Background(), sellerID, &model.ProductRequest{
		Name:               name,
		Price:              decimal.RequireFromString(price),
		DiscountPercentage: discount,
		StockQuantity:      stock,
	})
	require.NoError(t, err)
	return p
}

// SeedAddress adds an address for user through the address service.
func (a *App) SeedAddress(t *testing.T, userID int64) int64 {
	t.Helper()

	addr, err := a.Addresses.Add(context.Background(), userID, &model.AddressRequest{
		Name:    "Home",
		Line1:   "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		PinCode: "560001",
		Phone:   "9876543210",
	})
	require.NoError(t, err)
	return addr.ID
}

// Stock reads a product's stock and availability straight from the table.
func (a *App) Stock(t *testing.T, productID int64) (int, bool) {
	t.Helper()

	var (
		stock     int
		available bool
	)
	err := a.Pool.QueryRow(context.Background(),
		`SELECT stock_quantity, available FROM products WHERE id = $1`, productID).Scan(&stock, &available)
	require.NoError(t, err)
	return stock, available
}

// CountOrders returns the number of orders placed by user.
func (a *App) CountOrders(t *testing.T, userID int64) int {
	t.Helper()

	var n int
	err := a.Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}

func intPtr(v int) *int { return &v }
