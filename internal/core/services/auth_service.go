package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/config"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/jwt"
	"klinika-care/internal/pkg/password"
)

// Auth errors
var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// AuthService handles registration, login and refresh token rotation
type AuthService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
	cfg       *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repositories.UserRepository, tokenRepo repositories.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
	}
}

// RegisterRequest represents patient self-registration
type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents issued access + refresh tokens
type TokenPair struct {
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	User         *models.UserResponse `json:"user"`
}

// ============================================================
// Registration
// ============================================================

// Register creates a new patient account and logs it straight in. Staff
// accounts are provisioned by an admin through the user management
// endpoints, never through here.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*TokenPair, error) {
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return nil, domain.ErrValidation
	}
	if !password.Validate(req.Password) {
		return nil, ErrWeakPassword
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: hashed,
		Role:     string(domain.RolePatient),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ Patient registered: %s", user.Email)
	return s.issueTokens(ctx, user)
}

// GetUserByID returns the authenticated user's account
func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ============================================================
// Login / Refresh / Logout
// ============================================================

// Login verifies credentials and issues a token pair
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !password.Verify(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Login: %s (%s)", user.Email, user.Role)
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. A revoked or expired token is rejected outright.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	hash := password.HashToken(refreshToken)
	stored, err := s.tokenRepo.GetByTokenHash(ctx, hash)
	if err != nil || stored == nil {
		return nil, ErrInvalidToken
	}
	if stored.IsRevoked() || stored.IsExpired() {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.tokenRepo.RevokeByTokenHash(ctx, hash); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	hash := password.HashToken(refreshToken)
	return s.tokenRepo.RevokeByTokenHash(ctx, hash)
}

// LogoutAll revokes every refresh token of a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	return s.tokenRepo.RevokeAllByUserID(ctx, userID)
}

// CleanupExpiredTokens removes expired refresh tokens. Run by the cron.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) error {
	return s.tokenRepo.DeleteExpired(ctx)
}

// issueTokens builds an access + refresh pair and stores the refresh hash
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := jwt.GenerateAccessToken(user.ID, user.Email, user.FullName, user.Role,
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.New().String()
	refresh, err := jwt.GenerateRefreshToken(user.ID, tokenID,
		s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenDays)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refresh),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user.ToResponse(),
	}, nil
}
