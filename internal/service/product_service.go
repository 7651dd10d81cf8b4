package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairyhunter13/flash-sale-checkout/internal/model"
	"github.com/fairyhunter13/flash-sale-checkout/pkg/database"
)

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id uuid.UUID) (*model.Product, error)
	AdjustStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, delta int) error
}

// ProductCacheInterface defines the interface for the read-side product cache.
// Get and Set degrade silently; Invalidate reports its error so callers can
// log it, stock changes must never fail on cache trouble.
type ProductCacheInterface interface {
	Get(ctx context.Context, productID uuid.UUID) (*model.Product, bool)
	Set(ctx context.Context, product *model.Product)
	Invalidate(ctx context.Context, productID uuid.UUID) error
}

// ProductService provides read access to products through the cache.
type ProductService struct {
	productRepo ProductRepositoryInterface
	cache       ProductCacheInterface
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo ProductRepositoryInterface, cache ProductCacheInterface) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		cache:       cache,
	}
}

// GetByID retrieves a product, serving from the cache when it can.
// Returns ErrProductNotFound if the product doesn't exist.
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if product, ok := s.cache.Get(ctx, id); ok {
		return product, nil
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	s.cache.Set(ctx, product)
	return product, nil
}
