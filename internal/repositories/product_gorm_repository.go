package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"shopapi/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"createdAt": "created_at",
}

// List returns one page of products matching the filter, with the total
// match count for pagination.
func (r *GORMProductRepository) List(offset, limit int, filter ProductFilter) ([]models.Product, int64, error) {
	query := r.db.Model(&models.Product{})

	if len(filter.Categories) == 1 {
		query = query.Where("category = ?", filter.Categories[0])
	} else if len(filter.Categories) > 1 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	column, ok := productSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "ASC") {
		direction = "ASC"
	}

	var products []models.Product
	err := query.Preload("Images", orderedImages).
		Order(column + " " + direction).
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, count, nil
}

// Search matches the term as a case-insensitive substring of name or
// description, newest first.
func (r *GORMProductRepository) Search(term string, offset, limit int) ([]models.Product, int64, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	query := r.db.Model(&models.Product{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	var products []models.Product
	err := query.Preload("Images", orderedImages).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	return products, count, nil
}

// GetByID retrieves one product with its ordered image set.
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Images", orderedImages).First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Create inserts the product row together with any image rows attached to it.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update persists all fields of the given product record. Image rows are not
// touched here; ReplaceImages handles those.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Omit("Images").Save(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	return nil
}

// ReplaceImages swaps a product's image rows: old rows are removed, then the
// new set is inserted. The two statements are deliberately not wrapped in a
// transaction; a crash between them can leave a product with no images.
func (r *GORMProductRepository) ReplaceImages(productID uint, images []models.ProductImage) error {
	if err := r.db.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete old product images: %w", err)
	}
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ProductID = productID
	}
	if err := r.db.Create(&images).Error; err != nil {
		return fmt.Errorf("failed to insert product images: %w", err)
	}
	return nil
}

// Delete removes the product row; the image rows go with it via cascade.
func (r *GORMProductRepository) Delete(id uint) error {
	// The sqlite test driver does not always enforce the FK cascade, so the
	// image rows are removed explicitly first.
	if err := r.db.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		return fmt.Errorf("failed to delete product images: %w", err)
	}
	res := r.db.Delete(&models.Product{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
