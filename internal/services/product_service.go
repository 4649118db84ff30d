package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"shopapi/internal/apperrors"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/storage"
)

// Product lifecycle event names published to the message queue.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// EventPublisher pushes product lifecycle events to interested consumers.
// Publishing is fire-and-forget; failures are logged, never surfaced.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductInput is the validated create/update payload. Price uses a pointer
// so "absent" and "0.00" stay distinguishable; optional fields likewise.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Price       *models.Decimal `json:"price" validate:"required,gte=0"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Stock       *int            `json:"stock" validate:"omitempty,gte=0"`
	Category    *string         `json:"category" validate:"omitempty,max=50"`
}

// ProductListResult is one page of products plus pagination metadata.
type ProductListResult struct {
	Products      []models.Product  `json:"products"`
	TotalPages    int               `json:"totalPages"`
	CurrentPage   int               `json:"currentPage"`
	TotalProducts int64             `json:"totalProducts"`
	Filters       map[string]string `json:"filters,omitempty"`
	SearchTerm    string            `json:"searchTerm,omitempty"`
}

// ProductService handles business logic related to products, including the
// attached-image lifecycle.
type ProductService struct {
	repo   repositories.ProductRepository
	store  storage.Backend
	events EventPublisher
}

// NewProductService creates a new ProductService. events may be nil when no
// message queue is configured.
func NewProductService(repo repositories.ProductRepository, store storage.Backend, events EventPublisher) *ProductService {
	return &ProductService{
		repo:   repo,
		store:  store,
		events: events,
	}
}

// List returns one filtered, sorted page of products.
func (s *ProductService) List(page, limit int, filter repositories.ProductFilter) (*ProductListResult, error) {
	offset := (page - 1) * limit
	products, count, err := s.repo.List(offset, limit, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{
		Products:      nonNilProducts(products),
		TotalPages:    totalPages(count, limit),
		CurrentPage:   page,
		TotalProducts: count,
	}, nil
}

// Search returns products whose name or description contains the term,
// newest first.
func (s *ProductService) Search(term string, page, limit int) (*ProductListResult, error) {
	offset := (page - 1) * limit
	products, count, err := s.repo.Search(term, offset, limit)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{
		Products:      nonNilProducts(products),
		TotalPages:    totalPages(count, limit),
		CurrentPage:   page,
		TotalProducts: count,
		SearchTerm:    term,
	}, nil
}

// GetByID retrieves a single product with its ordered images.
func (s *ProductService) GetByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("Product with ID %d not found", id))
		}
		return nil, err
	}
	return product, nil
}

// Create stores any uploaded files, then inserts the product together with
// its image rows. If the insert fails the just-stored files are removed
// again so no orphans remain.
func (s *ProductService) Create(ctx context.Context, input ProductInput, files []storage.UploadedFile) (*models.Product, error) {
	stored, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        input.Name,
		Price:       *input.Price,
		Description: deref(input.Description),
		Stock:       derefInt(input.Stock),
		Category:    deref(input.Category),
		Images:      imageRows(stored),
	}
	if err := s.repo.Create(product); err != nil {
		s.cleanupStored(ctx, stored)
		return nil, err
	}

	created, err := s.GetByID(product.ID)
	if err != nil {
		return nil, err
	}
	s.publish(EventProductCreated, created)
	return created, nil
}

// Update applies partial field updates. When new files are supplied the
// entire image set is replaced: old rows deleted, old files removed
// best-effort, new rows inserted. Without files the images stay untouched.
func (s *ProductService) Update(ctx context.Context, id uint, input ProductInput, files []storage.UploadedFile) (*models.Product, error) {
	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Price = *input.Price
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if err := s.repo.Update(product); err != nil {
		s.cleanupStored(ctx, stored)
		return nil, err
	}

	if len(stored) > 0 {
		oldKeys := imageKeys(product.Images)
		if err := s.repo.ReplaceImages(id, imageRows(stored)); err != nil {
			s.cleanupStored(ctx, stored)
			return nil, err
		}
		s.deleteFiles(ctx, oldKeys)
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.publish(EventProductUpdated, updated)
	return updated, nil
}

// Delete removes the product (cascading its image rows) and then deletes the
// stored files best-effort.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	product, err := s.GetByID(id)
	if err != nil {
		return err
	}
	keys := imageKeys(product.Images)

	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound(fmt.Sprintf("Product with ID %d not found", id))
		}
		return err
	}

	s.deleteFiles(ctx, keys)
	s.publish(EventProductDeleted, product)
	return nil
}

func (s *ProductService) storeFiles(ctx context.Context, files []storage.UploadedFile) ([]storage.StoredObject, error) {
	if len(files) == 0 {
		return nil, nil
	}
	stored, err := s.store.Store(ctx, files)
	if err != nil {
		return nil, apperrors.Unavailable("Failed to store uploaded images").WithCause(err)
	}
	return stored, nil
}

// cleanupStored removes files that were uploaded for an operation that then
// failed. Failure to delete is logged, never re-raised.
func (s *ProductService) cleanupStored(ctx context.Context, stored []storage.StoredObject) {
	if len(stored) == 0 {
		return
	}
	keys := make([]string, len(stored))
	for i, obj := range stored {
		keys[i] = obj.Key
	}
	s.deleteFiles(ctx, keys)
}

func (s *ProductService) deleteFiles(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if deleted := s.store.DeleteMany(ctx, keys); deleted != len(keys) {
		log.Printf("Deleted %d of %d stored image files; the rest may be dangling", deleted, len(keys))
	}
}

func (s *ProductService) publish(event string, product *models.Product) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"event":     event,
		"productId": product.ID,
		"name":      product.Name,
		"price":     product.Price,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", event, err)
		return
	}
	if err := s.events.Publish(event, body); err != nil {
		log.Printf("Failed to publish %s event for product %d: %v", event, product.ID, err)
	}
}

// imageRows maps stored objects to image rows: the first file of the batch
// becomes the primary image and sort order follows upload position.
func imageRows(stored []storage.StoredObject) []models.ProductImage {
	images := make([]models.ProductImage, len(stored))
	for i, obj := range stored {
		images[i] = models.ProductImage{
			ImageURL:      obj.URL,
			ImageFilename: obj.Key,
			IsPrimary:     i == 0,
			SortOrder:     i,
		}
	}
	return images
}

func imageKeys(images []models.ProductImage) []string {
	keys := make([]string, len(images))
	for i, img := range images {
		keys[i] = img.ImageFilename
	}
	return keys
}

func totalPages(count int64, limit int) int {
	if count == 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / float64(limit)))
}

func nonNilProducts(products []models.Product) []models.Product {
	if products == nil {
		return []models.Product{}
	}
	return products
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
