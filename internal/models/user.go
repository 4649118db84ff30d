package models

import "time"

// Role values accepted for a user account.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account of the store.
// Password and RefreshToken carry no json tag value on purpose: they are
// never serialized outward, so every response is redacted by construction.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password     string    `json:"-" gorm:"type:varchar(255);not null"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	Role         string    `json:"role" gorm:"type:varchar(20);not null;default:user"`
	RefreshToken *string   `json:"-" gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
