package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prodcat/internal/apperrors"
	"prodcat/internal/models"
	"prodcat/internal/repositories"
	"prodcat/internal/services"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter repositories.ProductFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Find(ctx context.Context, filter repositories.ProductFilter, page repositories.ProductPage) ([]models.Product, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func validCreateInput() models.CreateProductInput {
	return models.CreateProductInput{
		SKU:      "WIDGET-001",
		Name:     "Widget",
		Category: "tools",
		Price:    19.99,
		Quantity: intPtr(5),
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	input := validCreateInput()

	// Test successful creation with type defaulting to public
	mockRepo.On("FindBySKU", mock.Anything, "WIDGET-001").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil).Once()

	product, err := service.CreateProduct(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "WIDGET-001", product.SKU)
	assert.Equal(t, models.TypePublic, product.Type)
	assert.Equal(t, 5, product.Quantity)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct_DuplicateSKU(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	existing := &models.Product{ID: "64a1f0c2e1b2c3d4e5f60718", SKU: "WIDGET-001"}
	mockRepo.On("FindBySKU", mock.Anything, "WIDGET-001").Return(existing, nil).Once()

	product, err := service.CreateProduct(context.Background(), validCreateInput())
	assert.Nil(t, product)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, apperrors.CodeDuplicateSKU, appErr.Code)

	// The conflict must not perform any write.
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	public := &models.Product{ID: "64a1f0c2e1b2c3d4e5f60718", SKU: "PUB-1", Type: models.TypePublic}
	mockRepo.On("GetByID", mock.Anything, public.ID).Return(public, nil).Once()

	product, err := service.GetProduct(context.Background(), models.RoleUser, public.ID)
	require.NoError(t, err)
	assert.Equal(t, public, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProduct_PrivateHiddenFromUser(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	private := &models.Product{ID: "64a1f0c2e1b2c3d4e5f60718", SKU: "PRIV-1", Type: models.TypePrivate}
	missingID := "64a1f0c2e1b2c3d4e5f60719"

	mockRepo.On("GetByID", mock.Anything, private.ID).Return(private, nil).Twice()
	mockRepo.On("GetByID", mock.Anything, missingID).Return(nil, repositories.ErrNotFound).Once()

	// A non-admin reading a private product gets NOT_FOUND...
	_, hiddenErr := service.GetProduct(context.Background(), models.RoleUser, private.ID)
	var hidden *apperrors.AppError
	require.ErrorAs(t, hiddenErr, &hidden)

	// ...indistinguishable in shape from reading a non-existent id.
	_, missingErr := service.GetProduct(context.Background(), models.RoleUser, missingID)
	var missing *apperrors.AppError
	require.ErrorAs(t, missingErr, &missing)

	assert.Equal(t, missing.Status, hidden.Status)
	assert.Equal(t, missing.Code, hidden.Code)
	assert.Equal(t, missing.Message, hidden.Message)

	// An admin sees the private product.
	product, err := service.GetProduct(context.Background(), models.RoleAdmin, private.ID)
	require.NoError(t, err)
	assert.Equal(t, private, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct_SKUImmutable(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	sku := "NEW-SKU"
	_, err := service.UpdateProduct(context.Background(), "64a1f0c2e1b2c3d4e5f60718", models.UpdateProductInput{SKU: &sku})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	// The rejected update must leave the store untouched.
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProductService_UpdateProduct_RequiresField(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	_, err := service.UpdateProduct(context.Background(), "64a1f0c2e1b2c3d4e5f60718", models.UpdateProductInput{})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Equal(t, "At least one field is required", appErr.Message)
}

func TestProductService_UpdateProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	existing := &models.Product{
		ID:        "64a1f0c2e1b2c3d4e5f60718",
		SKU:       "WIDGET-001",
		Name:      "Widget",
		Category:  "tools",
		Type:      models.TypePublic,
		Price:     19.99,
		Quantity:  5,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	before := existing.UpdatedAt

	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()
	mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Product")).Return(nil).Once()

	input := models.UpdateProductInput{
		Price:    floatPtr(24.50),
		Quantity: intPtr(3),
	}
	product, err := service.UpdateProduct(context.Background(), existing.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 24.50, product.Price)
	assert.Equal(t, 3, product.Quantity)
	assert.Equal(t, "WIDGET-001", product.SKU)
	assert.True(t, product.UpdatedAt.After(before))
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct_InvalidMergedRecord(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	existing := &models.Product{
		ID:       "64a1f0c2e1b2c3d4e5f60718",
		SKU:      "WIDGET-001",
		Name:     "Widget",
		Category: "tools",
		Type:     models.TypePublic,
		Price:    19.99,
		Quantity: 5,
	}
	mockRepo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil).Once()

	// Discount above the merged price must fail the full invariant set.
	input := models.UpdateProductInput{DiscountPrice: floatPtr(25.00)}
	_, err := service.UpdateProduct(context.Background(), existing.ID, input)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateProduct_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("GetByID", mock.Anything, "64a1f0c2e1b2c3d4e5f60719").Return(nil, repositories.ErrNotFound).Once()

	name := "Renamed"
	_, err := service.UpdateProduct(context.Background(), "64a1f0c2e1b2c3d4e5f60719", models.UpdateProductInput{Name: &name})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	removed := &models.Product{ID: "64a1f0c2e1b2c3d4e5f60718", SKU: "WIDGET-001", Name: "Widget"}
	mockRepo.On("Delete", mock.Anything, removed.ID).Return(removed, nil).Once()

	receipt, err := service.DeleteProduct(context.Background(), removed.ID)
	require.NoError(t, err)

	// The receipt carries only the id and sku, not the full record.
	assert.Equal(t, &models.DeleteReceipt{ID: removed.ID, SKU: removed.SKU}, receipt)
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteProduct_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("Delete", mock.Anything, "64a1f0c2e1b2c3d4e5f60719").Return(nil, repositories.ErrNotFound).Twice()

	_, err := service.DeleteProduct(context.Background(), "64a1f0c2e1b2c3d4e5f60719")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	// Deleting twice in a row fails the same way the second time.
	_, err = service.DeleteProduct(context.Background(), "64a1f0c2e1b2c3d4e5f60719")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts_MissingRole(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	_, err := service.ListProducts(context.Background(), "", models.ListProductsQuery{})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.Status)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)

	// Authorization failures short-circuit before any query runs.
	mockRepo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
}

func TestProductService_ListProducts_VisibilityRule(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	// A non-admin requesting type=private is still forced to public.
	forcedPublic := repositories.ProductFilter{Type: models.TypePublic}
	window := repositories.ProductPage{Skip: 0, Limit: 10, SortField: "createdAt", SortAsc: true}
	mockRepo.On("Find", mock.Anything, forcedPublic, window).Return([]models.Product{}, nil).Once()
	mockRepo.On("Count", mock.Anything, forcedPublic).Return(int64(0), nil).Once()

	_, err := service.ListProducts(context.Background(), models.RoleUser, models.ListProductsQuery{Type: "private"})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts_AdminTypeFilter(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	wantFilter := repositories.ProductFilter{Type: models.TypePrivate, Category: "tools"}
	window := repositories.ProductPage{Skip: 10, Limit: 10, SortField: "price", SortAsc: false}
	mockRepo.On("Find", mock.Anything, wantFilter, window).Return([]models.Product{}, nil).Once()
	mockRepo.On("Count", mock.Anything, wantFilter).Return(int64(0), nil).Once()

	query := models.ListProductsQuery{
		Page:     intPtr(2),
		Category: "tools",
		Type:     "private",
		Sort:     "price",
		Order:    "desc",
	}
	_, err := service.ListProducts(context.Background(), models.RoleAdmin, query)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProducts_PaginationEnvelope(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	pageItems := []models.Product{
		{ID: "64a1f0c2e1b2c3d4e5f60701", SKU: "A-1", Type: models.TypePublic},
		{ID: "64a1f0c2e1b2c3d4e5f60702", SKU: "A-2", Type: models.TypePublic},
	}
	filter := repositories.ProductFilter{Type: models.TypePublic}
	window := repositories.ProductPage{Skip: 10, Limit: 10, SortField: "createdAt", SortAsc: true}
	mockRepo.On("Find", mock.Anything, filter, window).Return(pageItems, nil).Once()
	mockRepo.On("Count", mock.Anything, filter).Return(int64(25), nil).Once()

	list, err := service.ListProducts(context.Background(), models.RoleUser, models.ListProductsQuery{Page: intPtr(2)})
	require.NoError(t, err)

	assert.Equal(t, pageItems, list.Products)
	assert.Equal(t, models.Pagination{
		CurrentPage:     2,
		TotalPages:      3,
		TotalItems:      25,
		ItemsPerPage:    10,
		HasNextPage:     true,
		HasPreviousPage: true,
	}, list.Pagination)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ProductStats(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	products := []models.Product{
		{SKU: "A", Category: "X", Type: models.TypePublic, Price: 10.00, Quantity: 2, DiscountPrice: floatPtr(8.00)},
		{SKU: "B", Category: "X", Type: models.TypePublic, Price: 5.50, Quantity: 0},
		{SKU: "C", Category: "Y", Type: models.TypePublic, Price: 20.00, Quantity: 1},
	}
	mockRepo.On("GetAll", mock.Anything).Return(products, nil).Once()

	stats, err := service.ProductStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 40.00, stats.TotalInventoryValue)
	assert.Equal(t, 16.00, stats.TotalDiscountedValue)
	assert.Equal(t, 13.33, stats.AveragePrice)
	assert.Equal(t, 1, stats.OutOfStockCount)

	// Breakdowns follow first-seen key order from the scan.
	assert.Equal(t, []models.CategoryStats{
		{Category: "X", Count: 2, TotalValue: 20.00},
		{Category: "Y", Count: 1, TotalValue: 20.00},
	}, stats.ProductsByCategory)
	assert.Equal(t, []models.TypeStats{
		{Type: models.TypePublic, Count: 3, TotalValue: 40.00},
	}, stats.ProductsByType)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ProductStats_EmptyCollection(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil)

	mockRepo.On("GetAll", mock.Anything).Return([]models.Product{}, nil).Once()

	_, err := service.ProductStats(context.Background())

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
	mockRepo.AssertExpectations(t)
}
