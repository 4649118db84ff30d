package repositories

import "shopapi/internal/models"

// UserFilter narrows and orders a user listing. Search matches name or email
// case-insensitively; Role matches exactly.
type UserFilter struct {
	Role      string
	Search    string
	SortBy    string
	SortOrder string
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	GetByIDAndRefreshToken(id uint, refreshToken string) (*models.User, error)
	List(offset, limit int, filter UserFilter) ([]models.User, int64, error)
	Update(user *models.User) error
	SetRefreshToken(id uint, refreshToken *string) error
	Delete(id uint) error
}
