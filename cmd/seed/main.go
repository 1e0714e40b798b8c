package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// seed connects with the server's configuration, applies the schema and
// provisions a seller with a small catalogue plus a customer with an address.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("failed to query database name: %w", err)
	}
	logger.Info().Str("database", dbName).Msg("connected")

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	users := repository.NewUserRepository(pool, logger)
	products := repository.NewProductRepository(pool, logger)
	addresses := repository.NewAddressRepository(pool, logger)
	reviews := repository.NewReviewRepository(pool, logger)

	// Suffix keeps repeated runs from colliding on email.
	suffix := uuid.NewString()[:8]

	seller := &model.User{Email: "seller-" + suffix + "@example.com", FirstName: "Sam", Role: model.RoleSeller}
	customer := &model.User{Email: "customer-" + suffix + "@example.com", FirstName: "Cara", Role: model.RoleCustomer}
	for _, u := range []*model.User{seller, customer} {
		if err := users.Create(ctx, u); err != nil {
			return err
		}
	}

	discount := 10
	catalogue := []model.ProductRequest{
		{Name: "Ceramic Mug", Brand: "Kiln", Price: decimal.RequireFromString("12.50"), StockQuantity: 40},
		{Name: "Pour-over Kettle", Brand: "Brew", Price: decimal.RequireFromString("45.00"), DiscountPercentage: &discount, StockQuantity: 8},
		{Name: "Burr Grinder", Brand: "Brew", Price: decimal.RequireFromString("129.99"), StockQuantity: 2},
	}
	var firstProductID int64
	for i := range catalogue {
		p := catalogue[i].ToProduct(seller.ID)
		if err := products.Create(ctx, p); err != nil {
			return err
		}
		if i == 0 {
			firstProductID = p.ID
		}
		logger.Info().Int64("product_id", p.ID).Str("name", p.Name).Msg("product seeded")
	}

	review := (&model.ReviewRequest{Rating: 5, Comment: "Keeps coffee hot"}).ToReview(customer.ID, firstProductID)
	if err := reviews.Create(ctx, review); err != nil {
		return err
	}

	addr := &model.Address{
		UserID: customer.ID, Name: "Home", Line1: "221 Residency Road", City: "Bengaluru",
		State: "KA", PinCode: "560025", Phone: "9800000000", Active: true,
	}
	if err := addresses.Create(ctx, addr); err != nil {
		return err
	}

	logger.Info().
		Int64("seller_id", seller.ID).
		Int64("customer_id", customer.ID).
		Int64("address_id", addr.ID).
		Msg("seed complete")
	return nil
}
