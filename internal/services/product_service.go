package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"prodcat/internal/apperrors"
	"prodcat/internal/models"
	"prodcat/internal/repositories"
	"prodcat/internal/validation"
	"prodcat/pkg/rabbitmq"
)

// Defaults of the list operation.
const (
	DefaultPage    = 1
	DefaultLimit   = 10
	DefaultSort    = "createdAt"
	defaultSortAsc = true
)

// ProductService handles business logic related to products: creation with
// sku uniqueness, visibility rules, partial updates, filtered pagination
// and collection statistics.
type ProductService struct {
	repo     repositories.ProductRepository
	mqClient *rabbitmq.Client // optional, nil disables event publishing
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, mqClient *rabbitmq.Client) *ProductService {
	return &ProductService{
		repo:     repo,
		mqClient: mqClient,
	}
}

// CreateProduct persists a new product after checking sku uniqueness.
// Type defaults to public when omitted.
func (s *ProductService) CreateProduct(ctx context.Context, input models.CreateProductInput) (*models.Product, error) {
	_, err := s.repo.FindBySKU(ctx, input.SKU)
	if err == nil {
		return nil, apperrors.DuplicateSKU(input.SKU)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, s.internal("sku lookup", err)
	}

	product := &models.Product{
		SKU:           input.SKU,
		Name:          input.Name,
		Description:   input.Description,
		Category:      input.Category,
		Type:          input.Type,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Quantity:      *input.Quantity,
	}
	if product.Type == "" {
		product.Type = models.TypePublic
	}

	if err := s.repo.Create(ctx, product); err != nil {
		// The store-level unique index backstops the pre-check under
		// concurrent creates.
		if errors.Is(err, repositories.ErrDuplicateSKU) {
			return nil, apperrors.DuplicateSKU(input.SKU)
		}
		return nil, s.internal("create product", err)
	}

	s.publishEvent(rabbitmq.EventProductCreated, product)
	return product, nil
}

// GetProduct retrieves a single product by its ID. Private products are
// hidden from non-admin callers behind the same NOT_FOUND a missing record
// produces.
func (s *ProductService) GetProduct(ctx context.Context, role models.Role, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product", id)
		}
		return nil, s.internal("get product", err)
	}
	if product.Type == models.TypePrivate && role != models.RoleAdmin {
		return nil, apperrors.NotFound("Product", id)
	}
	return product, nil
}

// UpdateProduct applies a partial update. The sku is immutable; the merged
// record is re-validated against the full invariant set before it is
// written, and updatedAt is refreshed.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input models.UpdateProductInput) (*models.Product, error) {
	if input.SKU != nil {
		return nil, apperrors.Validation("SKU cannot be updated", map[string]string{
			"sku": "SKU cannot be modified",
		})
	}
	if !input.HasUpdatableField() {
		return nil, apperrors.Validation("At least one field is required", nil)
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product", id)
		}
		return nil, s.internal("get product for update", err)
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Type != nil {
		product.Type = *input.Type
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.DiscountPrice != nil {
		product.DiscountPrice = input.DiscountPrice
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	product.UpdatedAt = time.Now().UTC()

	if appErr := validation.Product(product); appErr != nil {
		return nil, appErr
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product", id)
		}
		return nil, s.internal("update product", err)
	}

	s.publishEvent(rabbitmq.EventProductUpdated, product)
	return product, nil
}

// DeleteProduct removes a product and returns a deletion receipt with the
// id and sku of the removed record.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) (*models.DeleteReceipt, error) {
	product, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("Product", id)
		}
		return nil, s.internal("delete product", err)
	}

	receipt := &models.DeleteReceipt{ID: product.ID, SKU: product.SKU}
	s.publishEvent(rabbitmq.EventProductDeleted, receipt)
	return receipt, nil
}

// ListProducts returns one page of products with a pagination envelope.
// Non-admin callers only ever see public products; an admin may filter by
// explicit type. The count and the page fetch run concurrently against the
// same composite filter.
func (s *ProductService) ListProducts(ctx context.Context, role models.Role, query models.ListProductsQuery) (*models.ProductList, error) {
	if role == "" {
		return nil, apperrors.Unauthorized("X-User-Role header is missing or invalid")
	}

	page := DefaultPage
	if query.Page != nil && *query.Page >= 1 {
		page = *query.Page
	}
	limit := DefaultLimit
	if query.Limit != nil && *query.Limit >= 1 {
		limit = *query.Limit
	}
	sortField := query.Sort
	if sortField == "" {
		sortField = DefaultSort
	}
	sortAsc := defaultSortAsc
	if query.Order == "desc" {
		sortAsc = false
	}

	filter := repositories.ProductFilter{
		Category: query.Category,
		Search:   query.Search,
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
	}
	if role != models.RoleAdmin {
		// Visibility rule: a non-admin caller is forced to public products
		// regardless of any requested type filter.
		filter.Type = models.TypePublic
	} else if query.Type != "" {
		filter.Type = models.ProductType(query.Type)
	}

	window := repositories.ProductPage{
		Skip:      int64(page-1) * int64(limit),
		Limit:     int64(limit),
		SortField: sortField,
		SortAsc:   sortAsc,
	}

	// The two reads are independent; a slightly stale total relative to the
	// returned page is acceptable.
	var (
		products []models.Product
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.repo.Find(gctx, filter, window)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.internal("list products", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &models.ProductList{
		Products: products,
		Pagination: models.Pagination{
			CurrentPage:     page,
			TotalPages:      totalPages,
			TotalItems:      total,
			ItemsPerPage:    limit,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}, nil
}

// ProductStats computes aggregate statistics over the whole collection in a
// single pass. Breakdowns keep first-seen key order from the scan.
func (s *ProductService) ProductStats(ctx context.Context) (*models.ProductStats, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, s.internal("load products for stats", err)
	}
	if len(products) == 0 {
		return nil, apperrors.NotFound("Product", "")
	}

	stats := &models.ProductStats{
		TotalProducts:      len(products),
		ProductsByCategory: make([]models.CategoryStats, 0),
		ProductsByType:     make([]models.TypeStats, 0),
	}
	categoryIndex := make(map[string]int)
	typeIndex := make(map[models.ProductType]int)

	for i := range products {
		p := &products[i]
		value := p.Price * float64(p.Quantity)
		stats.TotalInventoryValue += value
		if p.DiscountPrice != nil {
			stats.TotalDiscountedValue += *p.DiscountPrice * float64(p.Quantity)
		}
		if p.Quantity == 0 {
			stats.OutOfStockCount++
		}

		if idx, ok := categoryIndex[p.Category]; ok {
			stats.ProductsByCategory[idx].Count++
			stats.ProductsByCategory[idx].TotalValue += value
		} else {
			categoryIndex[p.Category] = len(stats.ProductsByCategory)
			stats.ProductsByCategory = append(stats.ProductsByCategory, models.CategoryStats{
				Category:   p.Category,
				Count:      1,
				TotalValue: value,
			})
		}

		if idx, ok := typeIndex[p.Type]; ok {
			stats.ProductsByType[idx].Count++
			stats.ProductsByType[idx].TotalValue += value
		} else {
			typeIndex[p.Type] = len(stats.ProductsByType)
			stats.ProductsByType = append(stats.ProductsByType, models.TypeStats{
				Type:       p.Type,
				Count:      1,
				TotalValue: value,
			})
		}
	}

	stats.AveragePrice = stats.TotalInventoryValue / float64(stats.TotalProducts)

	stats.TotalInventoryValue = round2(stats.TotalInventoryValue)
	stats.TotalDiscountedValue = round2(stats.TotalDiscountedValue)
	stats.AveragePrice = round2(stats.AveragePrice)
	for i := range stats.ProductsByCategory {
		stats.ProductsByCategory[i].TotalValue = round2(stats.ProductsByCategory[i].TotalValue)
	}
	for i := range stats.ProductsByType {
		stats.ProductsByType[i].TotalValue = round2(stats.ProductsByType[i].TotalValue)
	}

	return stats, nil
}

// publishEvent publishes a lifecycle event on a best-effort basis. Event
// delivery never fails the originating request.
func (s *ProductService) publishEvent(eventType string, data any) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.PublishProductEvent(eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}

// internal logs the underlying store failure and returns the generic
// internal error; store details never reach the caller.
func (s *ProductService) internal(op string, err error) error {
	log.Printf("Product service %s failed: %v", op, err)
	return apperrors.Internal()
}

// round2 rounds to exactly 2 decimal places using standard rounding.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
