package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"shopapi/internal/apperrors"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
	"shopapi/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) List(offset, limit int, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(offset, limit, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Search(term string, offset, limit int) ([]models.Product, int64, error) {
	args := m.Called(term, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) GetByID(id uint) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) ReplaceImages(productID uint, images []models.ProductImage) error {
	args := m.Called(productID, images)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// fakeBackend records stored and deleted keys in memory.
type fakeBackend struct {
	stored   map[string]bool
	deleted  []string
	failNext bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{stored: map[string]bool{}}
}

func (f *fakeBackend) Store(_ context.Context, files []storage.UploadedFile) ([]storage.StoredObject, error) {
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("backend unreachable")
	}
	objects := make([]storage.StoredObject, len(files))
	for i, file := range files {
		key := fmt.Sprintf("stored-%d-%s", i, file.Name)
		f.stored[key] = true
		objects[i] = storage.StoredObject{URL: "http://cdn.test/" + key, Key: key}
	}
	return objects, nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) bool {
	f.deleted = append(f.deleted, key)
	if f.stored[key] {
		delete(f.stored, key)
		return true
	}
	return false
}

func (f *fakeBackend) DeleteMany(ctx context.Context, keys []string) int {
	deleted := 0
	for _, key := range keys {
		if f.Delete(ctx, key) {
			deleted++
		}
	}
	return deleted
}

// capturingPublisher collects published events for assertions.
type capturingPublisher struct {
	events []string
	bodies [][]byte
}

func (p *capturingPublisher) Publish(routingKey string, body []byte) error {
	p.events = append(p.events, routingKey)
	p.bodies = append(p.bodies, body)
	return nil
}

func productInput(name string, price float64) services.ProductInput {
	p := models.NewDecimal(price)
	return services.ProductInput{Name: name, Price: &p}
}

func uploads(names ...string) []storage.UploadedFile {
	files := make([]storage.UploadedFile, len(names))
	for i, name := range names {
		files[i] = storage.UploadedFile{Name: name, ContentType: "image/jpeg", Data: []byte(name)}
	}
	return files
}

func TestProductService_List(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, newFakeBackend(), nil)

	expected := []models.Product{
		{ID: 1, Name: "Laptop", Price: models.NewDecimal(1000)},
		{ID: 2, Name: "Monitor", Price: models.NewDecimal(200)},
	}
	filter := repositories.ProductFilter{Categories: []string{"electronics"}}
	mockRepo.On("List", 10, 10, filter).Return(expected, int64(25), nil).Once()

	result, err := service.List(2, 10, filter)

	assert.NoError(t, err)
	assert.Equal(t, expected, result.Products)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 2, result.CurrentPage)
	assert.Equal(t, int64(25), result.TotalProducts)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListEmptyPage(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, newFakeBackend(), nil)

	mockRepo.On("List", 0, 10, repositories.ProductFilter{}).Return(nil, int64(0), nil).Once()

	result, err := service.List(1, 10, repositories.ProductFilter{})

	assert.NoError(t, err)
	// An empty page serializes as [] with zeroed totals, never as null.
	assert.NotNil(t, result.Products)
	assert.Empty(t, result.Products)
	assert.Equal(t, 0, result.TotalPages)
	assert.Equal(t, int64(0), result.TotalProducts)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Search(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, newFakeBackend(), nil)

	expected := []models.Product{{ID: 1, Name: "Gaming Laptop"}}
	mockRepo.On("Search", "laptop", 0, 10).Return(expected, int64(1), nil).Once()

	result, err := service.Search("laptop", 1, 10)

	assert.NoError(t, err)
	assert.Equal(t, expected, result.Products)
	assert.Equal(t, "laptop", result.SearchTerm)
	assert.Equal(t, 1, result.TotalPages)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetByIDNotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, newFakeBackend(), nil)

	mockRepo.On("GetByID", uint(99)).Return(nil, repositories.ErrNotFound).Once()

	product, err := service.GetByID(99)

	assert.Nil(t, product)
	appErr, ok := apperrors.As(err)
	assert.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "Product with ID 99 not found", appErr.Message)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateWithImages(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	publisher := &capturingPublisher{}
	service := services.NewProductService(mockRepo, backend, publisher)

	var createdImages []models.ProductImage
	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Run(func(args mock.Arguments) {
		p := args.Get(0).(*models.Product)
		p.ID = 1
		createdImages = p.Images
	}).Return(nil).Once()
	mockRepo.On("GetByID", uint(1)).Return(&models.Product{ID: 1, Name: "Desk", Price: models.NewDecimal(199.99)}, nil).Once()

	product, err := service.Create(context.Background(), productInput("Desk", 199.99), uploads("front.jpg", "side.jpg", "back.jpg"))

	assert.NoError(t, err)
	assert.Equal(t, uint(1), product.ID)

	// First upload becomes the primary image, sort order follows position.
	assert.Len(t, createdImages, 3)
	assert.True(t, createdImages[0].IsPrimary)
	assert.False(t, createdImages[1].IsPrimary)
	assert.False(t, createdImages[2].IsPrimary)
	for i, img := range createdImages {
		assert.Equal(t, i, img.SortOrder)
		assert.NotEmpty(t, img.ImageURL)
		assert.NotEmpty(t, img.ImageFilename)
	}

	assert.Equal(t, []string{services.EventProductCreated}, publisher.events)
	var event map[string]interface{}
	assert.NoError(t, json.Unmarshal(publisher.bodies[0], &event))
	assert.Equal(t, "199.99", event["price"])
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateCleansUpFilesOnInsertFailure(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	service := services.NewProductService(mockRepo, backend, nil)

	mockRepo.On("Create", mock.AnythingOfType("*models.Product")).Return(fmt.Errorf("database error")).Once()

	_, err := service.Create(context.Background(), productInput("Desk", 50), uploads("a.jpg", "b.jpg"))

	assert.Error(t, err)
	// No stored file survives a failed insert.
	assert.Empty(t, backend.stored)
	assert.Len(t, backend.deleted, 2)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateStorageUnavailable(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	backend.failNext = true
	service := services.NewProductService(mockRepo, backend, nil)

	_, err := service.Create(context.Background(), productInput("Desk", 50), uploads("a.jpg"))

	appErr, ok := apperrors.As(err)
	assert.True(t, ok)
	assert.Equal(t, 503, appErr.Status)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestProductService_UpdateWithoutFilesKeepsImages(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	service := services.NewProductService(mockRepo, backend, nil)

	existing := &models.Product{
		ID:    1,
		Name:  "Desk",
		Price: models.NewDecimal(199.99),
		Images: []models.ProductImage{
			{ID: 10, ProductID: 1, ImageFilename: "old.jpg", IsPrimary: true},
		},
	}
	mockRepo.On("GetByID", uint(1)).Return(existing, nil).Twice()
	mockRepo.On("Update", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	desc := "Standing desk"
	input := productInput("Desk Pro", 249.99)
	input.Description = &desc

	updated, err := service.Update(context.Background(), 1, input, nil)

	assert.NoError(t, err)
	assert.NotNil(t, updated)
	mockRepo.AssertNotCalled(t, "ReplaceImages")
	assert.Empty(t, backend.deleted)
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateWithFilesReplacesImageSet(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	publisher := &capturingPublisher{}
	service := services.NewProductService(mockRepo, backend, publisher)

	existing := &models.Product{
		ID:    1,
		Name:  "Desk",
		Price: models.NewDecimal(199.99),
		Images: []models.ProductImage{
			{ID: 10, ProductID: 1, ImageFilename: "old-a.jpg"},
			{ID: 11, ProductID: 1, ImageFilename: "old-b.jpg"},
		},
	}
	mockRepo.On("GetByID", uint(1)).Return(existing, nil).Twice()
	mockRepo.On("Update", mock.AnythingOfType("*models.Product")).Return(nil).Once()

	var replacement []models.ProductImage
	mockRepo.On("ReplaceImages", uint(1), mock.AnythingOfType("[]models.ProductImage")).Run(func(args mock.Arguments) {
		replacement = args.Get(1).([]models.ProductImage)
	}).Return(nil).Once()

	_, err := service.Update(context.Background(), 1, productInput("Desk", 199.99), uploads("new.jpg"))

	assert.NoError(t, err)
	assert.Len(t, replacement, 1)
	assert.True(t, replacement[0].IsPrimary)
	// The previous files were removed best-effort.
	assert.Contains(t, backend.deleted, "old-a.jpg")
	assert.Contains(t, backend.deleted, "old-b.jpg")
	assert.Equal(t, []string{services.EventProductUpdated}, publisher.events)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Delete(t *testing.T) {
	mockRepo := new(MockProductRepository)
	backend := newFakeBackend()
	publisher := &capturingPublisher{}
	service := services.NewProductService(mockRepo, backend, publisher)

	existing := &models.Product{
		ID:   1,
		Name: "Desk",
		Images: []models.ProductImage{
			{ID: 10, ProductID: 1, ImageFilename: "a.jpg"},
		},
	}
	mockRepo.On("GetByID", uint(1)).Return(existing, nil).Once()
	mockRepo.On("Delete", uint(1)).Return(nil).Once()

	err := service.Delete(context.Background(), 1)

	assert.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, backend.deleted)
	assert.Equal(t, []string{services.EventProductDeleted}, publisher.events)
	mockRepo.AssertExpectations(t)
}

func TestProductService_DeleteNotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, newFakeBackend(), nil)

	mockRepo.On("GetByID", uint(99)).Return(nil, repositories.ErrNotFound).Once()

	err := service.Delete(context.Background(), 99)

	appErr, ok := apperrors.As(err)
	assert.True(t, ok)
	assert.Equal(t, 404, appErr.Status)
	mockRepo.AssertExpectations(t)
}
