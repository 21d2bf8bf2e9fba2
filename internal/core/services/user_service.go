package services

import (
	"context"
	"errors"
	"log"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"
	"smpc-microfin/internal/pkg/password"

	"gorm.io/gorm"
)

// User management errors
var (
	ErrUsernameTaken  = errors.New("username already taken")
	ErrEmailTaken     = errors.New("email already registered")
	ErrWeakPassword   = errors.New("password does not meet requirements")
	ErrInvalidRole    = errors.New("invalid role")
	ErrLastSuperAdmin = errors.New("cannot demote or deactivate the last super admin")
	ErrUserNotFound   = errors.New("user not found")
)

// UserService handles back-office staff accounts
type UserService struct {
	userRepo repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents a new staff account
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// Create registers a new staff user
func (s *UserService) Create(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	if input.Role != domain.RoleSuperAdmin && input.Role != domain.RoleEncoder && input.Role != domain.RoleViewer {
		return nil, ErrInvalidRole
	}
	if !password.Validate(input.Password) {
		return nil, ErrWeakPassword
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		Role:     string(input.Role),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ User created: %s (role=%s)", user.Username, user.Role)
	return user, nil
}

// Get fetches a user by ID
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List lists staff users
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit)
}

// SetActive activates or deactivates a user. The last active super
// admin cannot be deactivated.
func (s *UserService) SetActive(ctx context.Context, id uint, active bool) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !active && user.Role == string(domain.RoleSuperAdmin) {
		if err := s.checkNotLastSuperAdmin(ctx); err != nil {
			return err
		}
	}

	user.IsActive = active
	return s.userRepo.Update(ctx, user)
}

// ChangeRole changes a user's role. The last super admin cannot be
// demoted.
func (s *UserService) ChangeRole(ctx context.Context, id uint, role domain.Role) error {
	if role != domain.RoleSuperAdmin && role != domain.RoleEncoder && role != domain.RoleViewer {
		return ErrInvalidRole
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if user.Role == string(domain.RoleSuperAdmin) && role != domain.RoleSuperAdmin {
		if err := s.checkNotLastSuperAdmin(ctx); err != nil {
			return err
		}
	}

	user.Role = string(role)
	return s.userRepo.Update(ctx, user)
}

func (s *UserService) checkNotLastSuperAdmin(ctx context.Context) error {
	count, err := s.userRepo.CountByRole(ctx, string(domain.RoleSuperAdmin))
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}
