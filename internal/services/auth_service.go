package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"shopapi/internal/apperrors"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

// TokenConfig carries the signing material for both token kinds. Access and
// refresh tokens use independent secrets and lifetimes.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AuthResult is what register and login hand back to the client. The user is
// redacted by its own serialization rules.
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// AuthService handles registration, login and the token lifecycle.
type AuthService struct {
	userRepo      repositories.UserRepository
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokens TokenConfig) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		accessSecret:  []byte(tokens.AccessSecret),
		refreshSecret: []byte(tokens.RefreshSecret),
		accessTTL:     tokens.AccessTTL,
		refreshTTL:    tokens.RefreshTTL,
	}
}

// Register creates a user with a hashed password, issues both tokens and
// persists the refresh token on the user row.
func (s *AuthService) Register(email, password, name, role string) (*AuthResult, error) {
	if role == "" {
		role = models.RoleUser
	}

	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
		Role:     role,
	}
	if err := s.userRepo.Create(user); err != nil {
		// The precheck above can lose a race with a concurrent registration;
		// the unique index is the real guard.
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, err
	}

	return s.issueTokens(user)
}

// Login authenticates a user. Unknown email and wrong password produce the
// exact same error so the response never reveals which check failed.
func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	invalid := apperrors.Unauthorized("Invalid email or password")

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}

	return s.issueTokens(user)
}

// RefreshAccessToken exchanges a valid refresh token for a new access token.
// The token must verify against the refresh secret and still be the one
// persisted for its subject; the refresh token itself is left unchanged.
func (s *AuthService) RefreshAccessToken(refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.Unauthorized("Refresh token required")
	}

	userID, err := s.parseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return "", apperrors.Unauthorized("Invalid refresh token")
	}

	user, err := s.userRepo.GetByIDAndRefreshToken(userID, refreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", apperrors.Unauthorized("Invalid refresh token")
		}
		return "", err
	}

	return s.generateToken(user.ID, s.accessSecret, s.accessTTL)
}

// Logout clears the persisted refresh token. Calling it twice yields the
// same end state.
func (s *AuthService) Logout(userID uint) error {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Unauthorized("User not found")
		}
		return err
	}
	return s.userRepo.SetRefreshToken(userID, nil)
}

// GetCurrentUser resolves the authenticated user's own record.
func (s *AuthService) GetCurrentUser(userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthorized("User not found")
		}
		return nil, err
	}
	return user, nil
}

// ParseAccessToken verifies an access token and returns its subject. The
// expired and invalid cases stay distinguishable for the middleware.
func (s *AuthService) ParseAccessToken(tokenString string) (uint, error) {
	userID, err := s.parseToken(tokenString, s.accessSecret)
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return 0, apperrors.Unauthorized("Token expired")
		}
		return 0, apperrors.Unauthorized("Invalid token")
	}
	return userID, nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResult, error) {
	accessToken, err := s.generateToken(user.ID, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user.ID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	// Persisting the new refresh token invalidates any previous one.
	if err := s.userRepo.SetRefreshToken(user.ID, &refreshToken); err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// generateToken signs a token whose payload carries only the user id. Role
// and email are deliberately absent: they are re-resolved from storage on
// every authorization so stale tokens cannot hold on to old privileges.
func (s *AuthService) generateToken(userID uint, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parseToken(tokenString string, secret []byte) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id < 1 {
		return 0, fmt.Errorf("token has no subject")
	}
	return uint(id), nil
}
