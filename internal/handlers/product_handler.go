package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"prodcat/internal/apperrors"
	"prodcat/internal/auth"
	"prodcat/internal/middleware"
	"prodcat/internal/models"
	"prodcat/internal/services"
	"prodcat/internal/validation"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes. Write operations and the
// statistics endpoint are admin-only; reads are open to both roles.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, resolver auth.RoleResolver) {
	products := router.Group("/products")

	adminOnly := middleware.RequireRoles(resolver, models.RoleAdmin)
	anyRole := middleware.RequireRoles(resolver, models.RoleAdmin, models.RoleUser)

	products.Post("/", adminOnly, h.HandleCreate)
	products.Get("/", anyRole, h.HandleList)
	// /stats must be registered before /:id so it is not captured as an id.
	products.Get("/stats", adminOnly, h.HandleStats)
	products.Get("/:id", anyRole, h.HandleGet)
	products.Put("/:id", adminOnly, h.HandleUpdate)
	products.Delete("/:id", adminOnly, h.HandleDelete)
}

// HandleCreate handles product creation.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	var input models.CreateProductInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.Validation("Invalid request body", err.Error())
	}
	if appErr := validation.Struct(input); appErr != nil {
		return appErr
	}
	if input.DiscountPrice != nil && *input.DiscountPrice >= input.Price {
		return apperrors.Validation("Validation failed", map[string]string{
			"discountPrice": "Discount Price must be less than the price",
		})
	}

	product, err := h.service.CreateProduct(c.Context(), input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Product created successfully", product)
}

// HandleList handles the paginated, filtered, sorted product listing.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	var query models.ListProductsQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.Validation("Invalid query parameters", err.Error())
	}
	if appErr := validation.Struct(query); appErr != nil {
		return appErr
	}
	if query.MinPrice != nil && query.MaxPrice != nil && *query.MaxPrice <= *query.MinPrice {
		return apperrors.Validation("Validation failed", map[string]string{
			"maxPrice": "maxPrice must be greater than minPrice",
		})
	}

	list, err := h.service.ListProducts(c.Context(), middleware.RoleFromContext(c), query)
	if err != nil {
		return err
	}
	return respondList(c, "Products retrieved successfully", list)
}

// HandleStats handles the aggregate statistics endpoint.
func (h *ProductHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.ProductStats(c.Context())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Statistics retrieved successfully", stats)
}

// HandleGet handles a single product read.
func (h *ProductHandler) HandleGet(c *fiber.Ctx) error {
	id, appErr := parseProductID(c)
	if appErr != nil {
		return appErr
	}

	product, err := h.service.GetProduct(c.Context(), middleware.RoleFromContext(c), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Product retrieved successfully", product)
}

// HandleUpdate handles a partial product update.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, appErr := parseProductID(c)
	if appErr != nil {
		return appErr
	}

	// The sku key is rejected on presence alone, so even "sku": null
	// (which decodes to a nil pointer) cannot slip through.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return apperrors.Validation("Invalid request body", err.Error())
	}
	if _, ok := raw["sku"]; ok {
		return apperrors.Validation("SKU cannot be updated", map[string]string{
			"sku": "SKU cannot be modified",
		})
	}

	var input models.UpdateProductInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.Validation("Invalid request body", err.Error())
	}

	product, err := h.service.UpdateProduct(c.Context(), id, input)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Product updated successfully", product)
}

// HandleDelete handles product deletion.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, appErr := parseProductID(c)
	if appErr != nil {
		return appErr
	}

	receipt, err := h.service.DeleteProduct(c.Context(), id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Product deleted successfully", receipt)
}

type productIDParam struct {
	ID string `validate:"required,len=24,hexadecimal"`
}

// parseProductID validates the :id path parameter as a 24-character
// hexadecimal store identifier.
func parseProductID(c *fiber.Ctx) (string, *apperrors.AppError) {
	id := c.Params("id")
	if appErr := validation.Struct(productIDParam{ID: id}); appErr != nil {
		return "", appErr
	}
	return id, nil
}
