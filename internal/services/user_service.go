package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"shopapi/internal/apperrors"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

// UserUpdateInput carries the fields an admin may change. Password and
// refresh token are not part of the struct, so any such keys in the request
// body are dropped during binding; password changes go through
// ChangePassword only.
type UserUpdateInput struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=admin user"`
}

// UserListResult is one page of users plus pagination metadata. The user
// model redacts password and refresh token on serialization.
type UserListResult struct {
	Users       []models.User     `json:"users"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	TotalUsers  int64             `json:"totalUsers"`
	Filters     map[string]string `json:"filters,omitempty"`
}

// UserService handles business logic for user administration.
type UserService struct {
	repo repositories.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// List returns one filtered page of users.
func (s *UserService) List(page, limit int, filter repositories.UserFilter) (*UserListResult, error) {
	offset := (page - 1) * limit
	users, count, err := s.repo.List(offset, limit, filter)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserListResult{
		Users:       users,
		TotalPages:  totalPages(count, limit),
		CurrentPage: page,
		TotalUsers:  count,
	}, nil
}

// GetByID retrieves a single user.
func (s *UserService) GetByID(id uint) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf("User with ID %d not found", id))
		}
		return nil, err
	}
	return user, nil
}

// Update applies the permitted partial field updates.
func (s *UserService) Update(id uint, input UserUpdateInput) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if err := s.repo.Update(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, duplicateEmailConflict()
		}
		return nil, err
	}
	return user, nil
}

// duplicateEmailConflict names the offending field the way validation
// errors do, so clients can surface it against the right input.
func duplicateEmailConflict() *apperrors.Error {
	conflict := apperrors.Conflict("Email already exists")
	conflict.Fields = []apperrors.FieldError{{Field: "email", Message: "Email already exists"}}
	return conflict
}

// Delete removes a user. Hard delete.
func (s *UserService) Delete(id uint) error {
	err := s.repo.Delete(id)
	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NotFound(fmt.Sprintf("User with ID %d not found", id))
	}
	return err
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apperrors.BadRequest("Current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)
	return s.repo.Update(user)
}
