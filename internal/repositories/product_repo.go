package repositories

import "shopapi/internal/models"

// ProductFilter narrows and orders a product listing. Categories is a
// set-membership filter, the price bounds are inclusive, and InStock selects
// stock>0 (true) or stock==0 (false).
type ProductFilter struct {
	Categories []string
	MinPrice   *float64
	MaxPrice   *float64
	InStock    *bool
	SortBy     string
	SortOrder  string
}

// ProductRepository defines the interface for product data access. Every
// read returns products with their images ordered by sort order.
type ProductRepository interface {
	List(offset, limit int, filter ProductFilter) ([]models.Product, int64, error)
	Search(term string, offset, limit int) ([]models.Product, int64, error)
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	ReplaceImages(productID uint, images []models.ProductImage) error
	Delete(id uint) error
}
