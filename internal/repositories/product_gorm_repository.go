package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"

	"prodcat/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository for
// the SQL drivers (postgres, sqlite). The *gorm.DB must be opened with
// TranslateError enabled so uniqueness violations surface as
// gorm.ErrDuplicatedKey.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// Create inserts a new product. IDs stay in the same 24-hex format the
// document store uses so callers never see a difference between drivers.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a single product by its ID.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// FindBySKU retrieves a single product by its SKU.
func (r *GORMProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product by SKU %s: %w", sku, err)
	}
	return &product, nil
}

// Update saves the merged product record.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("*").Omit("id", "created_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product %s: %w", product.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Updates does not return ErrRecordNotFound when nothing matched,
		// so we check RowsAffected.
		return ErrNotFound
	}
	return nil
}

// Delete removes a product by its ID and returns the removed record.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return product, nil
}

// Count counts the products matching the filter.
func (r *GORMProductRepository) Count(ctx context.Context, filter ProductFilter) (int64, error) {
	var total int64
	tx := applyGORMFilter(r.db.WithContext(ctx).Model(&models.Product{}), filter)
	if err := tx.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

// Find fetches one sorted page of products matching the filter.
func (r *GORMProductRepository) Find(ctx context.Context, filter ProductFilter, page ProductPage) ([]models.Product, error) {
	direction := "ASC"
	if !page.SortAsc {
		direction = "DESC"
	}

	var products []models.Product
	tx := applyGORMFilter(r.db.WithContext(ctx).Model(&models.Product{}), filter).
		// Secondary id sort keeps page windows stable when the sort column
		// has duplicate values.
		Order(sortColumn(page.SortField) + " " + direction).
		Order("id ASC").
		Offset(int(page.Skip)).
		Limit(int(page.Limit))
	if err := tx.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// GetAll retrieves the entire collection in insertion order.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// applyGORMFilter conjoins all active filter conditions onto the query.
// Count and Find share it so both reads see identical criteria.
func applyGORMFilter(tx *gorm.DB, filter ProductFilter) *gorm.DB {
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}
	if filter.Type != "" {
		tx = tx.Where("type = ?", filter.Type)
	}
	if filter.MinPrice != nil {
		tx = tx.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		tx = tx.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		tx = tx.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'", pattern, pattern)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE metacharacters so search terms match literally,
// the same semantics the other stores give them.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// sortColumn maps the API sort field to its SQL column.
func sortColumn(field string) string {
	switch field {
	case "name":
		return "name"
	case "price":
		return "price"
	default:
		return "created_at"
	}
}
