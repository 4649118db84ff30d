package models

import "time"

// Product represents a catalog product and its attached images.
type Product struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Price       Decimal        `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int            `json:"stock" gorm:"not null;default:0"`
	Category    string         `json:"category" gorm:"type:varchar(50)"`
	Images      []ProductImage `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ProductImage is one stored image of a product. ImageFilename is the
// backend-specific storage key used for deletion; ImageURL is public-facing.
// The first image of an upload batch is flagged primary (advisory, not
// enforced by a constraint) and SortOrder follows upload position.
type ProductImage struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ProductID     uint      `json:"productId" gorm:"index;not null"`
	ImageURL      string    `json:"imageUrl" gorm:"type:varchar(500);not null"`
	ImageFilename string    `json:"imageFilename" gorm:"type:varchar(255);not null"`
	IsPrimary     bool      `json:"isPrimary" gorm:"not null;default:false"`
	SortOrder     int       `json:"sortOrder" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
