package services

import (
	"context"
	"errors"
	"log"

	"klinika-care/internal/adapters/persistence/models"
	"klinika-care/internal/adapters/persistence/repositories"
	"klinika-care/internal/core/domain"
	"klinika-care/internal/pkg/password"
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid role")
)

// UserService handles account administration and profile access
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

var validRoles = map[string]bool{
	string(domain.RolePatient):    true,
	string(domain.RoleDoctor):     true,
	string(domain.RoleNurse):      true,
	string(domain.RolePharmacist): true,
	string(domain.RoleAdmin):      true,
	string(domain.RoleOwner):      true,
}

// CreateUserRequest represents admin provisioning of an account
type CreateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

// CreateUser provisions a staff or patient account with an explicit role.
func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.UserResponse, error) {
	if req.FullName == "" || req.Email == "" {
		return nil, domain.ErrValidation
	}
	if !validRoles[req.Role] {
		return nil, ErrInvalidRole
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
		Role:     req.Role,
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ User created: %s (%s)", user.Email, user.Role)
	return user.ToResponse(), nil
}

// GetByID returns one user
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}
	return user.ToResponse(), nil
}

// List returns users, optionally filtered by role
func (s *UserService) List(ctx context.Context, offset, limit int, role string) ([]*models.UserResponse, int64, error) {
	if role != "" && !validRoles[role] {
		return nil, 0, ErrInvalidRole
	}

	users, total, err := s.userRepo.List(ctx, offset, limit, role)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, u.ToResponse())
	}
	return responses, total, nil
}

// UpdateUserRequest represents profile updates
type UpdateUserRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Update modifies a user's profile. Role and active-flag changes are only
// reachable through the admin routes.
func (s *UserService) Update(ctx context.Context, id uint, req *UpdateUserRequest) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		if !validRoles[*req.Role] {
			return nil, ErrInvalidRole
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// ChangePassword replaces a user's password after verifying the old one
func (s *UserService) ChangePassword(ctx context.Context, id uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		return ErrUserNotFound
	}
	if !password.Verify(oldPassword, user.Password) {
		return ErrInvalidCredentials
	}
	if !password.Validate(newPassword) {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.userRepo.Update(ctx, user)
}

// Deactivate soft-deletes a user account
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		return ErrUserNotFound
	}
	return s.userRepo.Delete(ctx, id)
}
