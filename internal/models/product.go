package models

import "time"

// ProductType controls product visibility. Private products are only
// visible to admin callers.
type ProductType string

const (
	TypePublic  ProductType = "public"
	TypePrivate ProductType = "private"
)

// Product represents a catalog entry. The same model is persisted by the
// MongoDB repository (bson tags) and the GORM repositories (gorm tags).
type Product struct {
	ID            string      `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(24)"`
	SKU           string      `json:"sku" bson:"sku" gorm:"uniqueIndex;type:varchar(50)" validate:"required,min=3,max=50,sku"`
	Name          string      `json:"name" bson:"name" validate:"required,min=3,max=200"`
	Description   string      `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=1000"`
	Category      string      `json:"category" bson:"category" gorm:"index" validate:"required,min=2,max=100"`
	Type          ProductType `json:"type" bson:"type" gorm:"index;type:varchar(10)" validate:"required,oneof=public private"`
	Price         float64     `json:"price" bson:"price" validate:"required,gt=0,twodecimal"`
	DiscountPrice *float64    `json:"discountPrice,omitempty" bson:"discountPrice,omitempty" validate:"omitempty,gte=0,twodecimal"`
	Quantity      int         `json:"quantity" bson:"quantity" validate:"gte=0"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// CreateProductInput is the payload for creating a product. Server-assigned
// fields (id, timestamps) are absent; type defaults to public when omitted.
type CreateProductInput struct {
	SKU           string      `json:"sku" validate:"required,min=3,max=50,sku"`
	Name          string      `json:"name" validate:"required,min=3,max=200"`
	Description   string      `json:"description" validate:"omitempty,max=1000"`
	Category      string      `json:"category" validate:"required,min=2,max=100"`
	Type          ProductType `json:"type" validate:"omitempty,oneof=public private"`
	Price         float64     `json:"price" validate:"required,gt=0,twodecimal"`
	DiscountPrice *float64    `json:"discountPrice" validate:"omitempty,gte=0,twodecimal"`
	Quantity      *int        `json:"quantity" validate:"required,gte=0"`
}

// UpdateProductInput is a partial update payload. SKU is declared so an
// attempted mutation can be detected and rejected; it is never applied.
type UpdateProductInput struct {
	SKU           *string      `json:"sku"`
	Name          *string      `json:"name"`
	Description   *string      `json:"description"`
	Category      *string      `json:"category"`
	Type          *ProductType `json:"type"`
	Price         *float64     `json:"price"`
	DiscountPrice *float64     `json:"discountPrice"`
	Quantity      *int         `json:"quantity"`
}

// HasUpdatableField reports whether at least one allowed field is set.
func (in UpdateProductInput) HasUpdatableField() bool {
	return in.Name != nil || in.Description != nil || in.Category != nil ||
		in.Type != nil || in.Price != nil || in.DiscountPrice != nil || in.Quantity != nil
}

// ListProductsQuery carries the query parameters of the list endpoint.
// Nil and zero values mean "not supplied"; defaults are applied by the
// service. Page and limit are pointers so that an explicit 0 is rejected
// by validation instead of silently falling back to the default.
type ListProductsQuery struct {
	Page     *int     `query:"page" validate:"omitempty,gte=1"`
	Limit    *int     `query:"limit" validate:"omitempty,gte=1"`
	Category string   `query:"category" validate:"omitempty,min=2,max=100"`
	Type     string   `query:"type" validate:"omitempty,oneof=public private"`
	Search   string   `query:"search"`
	Sort     string   `query:"sort" validate:"omitempty,oneof=name price createdAt"`
	Order    string   `query:"order" validate:"omitempty,oneof=asc desc"`
	MinPrice *float64 `query:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice *float64 `query:"maxPrice" validate:"omitempty,gte=0"`
}

// Pagination is the envelope attached to list responses.
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// ProductList bundles a page of products with its pagination envelope.
type ProductList struct {
	Products   []Product
	Pagination Pagination
}

// DeleteReceipt is returned by the delete operation instead of the full
// removed record.
type DeleteReceipt struct {
	ID  string `json:"id"`
	SKU string `json:"sku"`
}

// CategoryStats is one entry of the per-category breakdown.
type CategoryStats struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

// TypeStats is one entry of the per-type breakdown.
type TypeStats struct {
	Type       ProductType `json:"type"`
	Count      int         `json:"count"`
	TotalValue float64     `json:"totalValue"`
}

// ProductStats aggregates the whole collection in a single pass. Breakdown
// slices keep first-seen insertion order.
type ProductStats struct {
	TotalProducts        int             `json:"totalProducts"`
	TotalInventoryValue  float64         `json:"totalInventoryValue"`
	TotalDiscountedValue float64         `json:"totalDiscountedValue"`
	AveragePrice         float64         `json:"averagePrice"`
	OutOfStockCount      int             `json:"outOfStockCount"`
	ProductsByCategory   []CategoryStats `json:"productsByCategory"`
	ProductsByType       []TypeStats     `json:"productsByType"`
}
