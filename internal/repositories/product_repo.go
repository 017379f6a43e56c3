package repositories

import (
	"context"
	"errors"

	"prodcat/internal/models"
)

// Sentinel errors returned by repository implementations. The service layer
// classifies them into typed application errors.
var (
	ErrNotFound     = errors.New("product not found")
	ErrDuplicateSKU = errors.New("product with this SKU already exists")
)

// ProductFilter is the composite predicate of the list operation. Zero
// values mean the condition is inactive; all active conditions are
// conjoined. Search matches name OR description, case-insensitively.
type ProductFilter struct {
	Category string
	Type     models.ProductType
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// ProductPage describes sorting and windowing of a page fetch. SortField is
// one of "name", "price", "createdAt".
type ProductPage struct {
	Skip      int64
	Limit     int64
	SortField string
	SortAsc   bool
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) (*models.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int64, error)
	Find(ctx context.Context, filter ProductFilter, page ProductPage) ([]models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
}
