package service

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// productService implements ProductService.
type productService struct {
	tx          repository.Transactor
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	metrics     *metrics.AppMetrics
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	tx repository.Transactor,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	m *metrics.AppMetrics,
	logger zerolog.Logger,
) ProductService {
	return &productService{
		tx:          tx,
		productRepo: productRepo,
		userRepo:    userRepo,
		metrics:     m,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// normalisePage clamps pagination parameters to the supported range.
func normalisePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetAll retrieves all products with pagination.
func (s *productService) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	limit, offset = normalisePage(limit, offset)

	products, err := s.productRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to get all products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if id <= 0 {
		s.logger.Warn().Int64("product_id", id).Msg("invalid product ID")
		return nil, model.NotFound("product", id)
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, model.NotFound("product", id)
	}

	s.metrics.ProductViewed(ctx)

	return product, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (s *productService) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get products by IDs")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("requested", len(ids)).
		Int("found", len(products)).
		Msg("retrieved products by IDs")

	return products, nil
}

// Create adds a product owned by sellerID.
func (s *productService) Create(ctx context.Context, sellerID int64, req *model.ProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, model.ValidationErrors{"body": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		s.logger.Warn().Err(err).Int64("seller_id", sellerID).Msg("invalid product request")
		return nil, err
	}
	if err := ensureUser(ctx, s.userRepo, sellerID); err != nil {
		return nil, err
	}

	product := req.ToProduct(sellerID)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Int64("product_id", product.ID).
		Int64("seller_id", sellerID).
		Int("stock_quantity", product.StockQuantity).
		Msg("product created")

	return product, nil
}

// UpdatePricing changes price and discount. Stock is left alone.
func (s *productService) UpdatePricing(ctx context.Context, sellerID, productID int64, req *model.PricingRequest) (*model.Product, error) {
	if req == nil {
		return nil, model.ValidationErrors{"body": "is required"}.Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if existing == nil {
		return nil, model.NotFound("product", productID)
	}
	if existing.SellerID != sellerID {
		s.logger.Warn().
			Int64("product_id", productID).
			Int64("seller_id", sellerID).
			Msg("seller does not own product")
		return nil, model.Forbidden("product", productID, "you can only update your own products")
	}

	updated, err := s.productRepo.UpdatePricing(ctx, productID, req.Price.Round(2), req.DiscountPercentage)
	if err != nil {
		return nil, fmt.Errorf("failed to update product pricing: %w", err)
	}
	if updated == nil {
		return nil, model.NotFound("product", productID)
	}

	s.logger.Info().
		Int64("product_id", productID).
		Str("price", updated.Price.StringFixed(2)).
		Msg("product pricing updated")

	return updated, nil
}

// Search returns products whose name, brand or description contains keyword.
func (s *productService) Search(ctx context.Context, keyword string, limit, offset int) ([]model.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, model.ValidationErrors{"keyword": "is required"}.Err()
	}
	limit, offset = normalisePage(limit, offset)

	products, err := s.productRepo.Search(ctx, keyword, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("keyword", keyword).Msg("failed to search products")
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	s.logger.Debug().
		Str("keyword", keyword).
		Int("count", len(products)).
		Msg("searched products")

	return products, nil
}

// Delete removes a seller's product. Products that appear in an order are
// kept so order history stays intact.
func (s *productService) Delete(ctx context.Context, sellerID, productID int64) error {
	err := withTx(ctx, s.tx, s.logger, func(tx pgx.Tx) error {
		locked, err := s.productRepo.LockByIDs(ctx, tx, []int64{productID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return model.NotFound("product", productID)
		}
		if locked[0].SellerID != sellerID {
			s.logger.Warn().
				Int64("product_id", productID).
				Int64("seller_id", sellerID).
				Msg("seller does not own product")
			return model.Forbidden("product", productID, "you can only delete your own products")
		}

		ordered, err := s.productRepo.HasOrders(ctx, tx, productID)
		if err != nil {
			return err
		}
		if ordered {
			return model.Conflict(fmt.Sprintf("product %d has been ordered and cannot be deleted", productID))
		}
		return s.productRepo.Delete(ctx, tx, productID)
	})
	if err != nil {
		return err
	}

	s.metrics.ProductDeleted(ctx)
	s.logger.Info().
		Int64("product_id", productID).
		Int64("seller_id", sellerID).
		Msg("product deleted")

	return nil
}
