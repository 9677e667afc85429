// Package service implements the domain logic: account management, scan
// ingestion and leaderboard aggregation.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/plant-scanner/internal/logging"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/storage"
	"github.com/plant-scanner/internal/types"
)

// Repository interfaces for dependency injection

// UserRepository interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateProfilePicture(ctx context.Context, userID, uri string) error
}

// PasswordHasher interface for the credential service hashing half
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// TokenIssuer interface for the credential service token half
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AccountService owns the user entity and mediates all identity reads
// and writes.
type AccountService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

// NewAccountService creates a new account service
func NewAccountService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens}
}

// RegisterInput represents input for registration
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account. Username and email are probed up front
// for precise conflict messages, but the unique indexes remain the final
// guard: a concurrent registration that slips past the probes still
// surfaces as a conflict from the insert, never as a duplicate row.
func (s *AccountService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "username, email and password are required",
		}
	}

	if taken, err := s.users.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, upstream(err)
	} else if taken {
		return nil, conflict("username")
	}

	if taken, err := s.users.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, upstream(err)
	} else if taken {
		return nil, conflict("email")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		var serviceErr *types.ServiceError
		if errors.As(err, &serviceErr) {
			return nil, serviceErr
		}
		return nil, upstream(err)
	}

	logging.FromContext(ctx).WithField("username", user.Username).Info("User registered")

	return user, nil
}

// Authenticate verifies credentials and issues a bearer token. The
// identifier may be a username or an email. Lookup misses and wrong
// passwords both collapse into the same generic failure so callers
// cannot enumerate accounts.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (string, *models.User, error) {
	if identifier == "" || password == "" {
		return "", nil, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "identifier and password are required",
		}
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", nil, invalidCredentials()
		}
		return "", nil, upstream(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", nil, invalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}

// ChangePassword replaces the password after verifying the current one
func (s *AccountService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "new password is required",
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return userNotFound()
		}
		return upstream(err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return invalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return userNotFound()
		}
		return upstream(err)
	}

	return nil
}

// GetProfile returns the public projection of a user. The password hash
// never leaves the service.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, userNotFound()
		}
		return nil, upstream(err)
	}

	return user.Profile(), nil
}

// UpdateProfilePicture replaces the profile picture URI
func (s *AccountService) UpdateProfilePicture(ctx context.Context, userID, uri string) error {
	if uri == "" {
		return &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "picture URI is required",
		}
	}

	if err := s.users.UpdateProfilePicture(ctx, userID, uri); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return userNotFound()
		}
		return upstream(err)
	}

	return nil
}

// Shared error constructors

func conflict(field string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeConflict,
		Message: fmt.Sprintf("%s already exists", field),
		Details: map[string]interface{}{"field": field},
	}
}

func invalidCredentials() *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeUnauthorized,
		Message: "invalid credentials",
	}
}

func userNotFound() *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeNotFound,
		Message: "user not found",
	}
}

// upstream wraps a datastore failure as a retryable error. The caller
// sees "try again later" rather than the storage detail.
func upstream(err error) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeUpstreamUnavailable,
		Message: "datastore unavailable",
		Details: map[string]interface{}{"cause": err.Error()},
	}
}
