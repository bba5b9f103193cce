package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/auth"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

const (
	defaultUsersPerPage = 50
	maxUsersPerPage     = 1000
)

// UserDirectory is the auth provider's account administration API.
type UserDirectory interface {
	ListUsers(ctx context.Context, page, perPage int) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService exposes account administration to admins. A nil directory
// disables it.
type UserService struct {
	dir    UserDirectory
	logger *slog.Logger
}

// NewUserService constructs a UserService backed by dir.
func NewUserService(dir UserDirectory, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = nopLogger()
	}
	return &UserService{dir: dir, logger: logger}
}

// ListUsers returns one page of accounts. Zero values select the defaults.
func (s *UserService) ListUsers(ctx context.Context, page, perPage int) ([]model.User, error) {
	if s.dir == nil {
		return nil, ErrNotConfigured
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = defaultUsersPerPage
	}
	if page < 1 {
		return nil, invalid("page", "must be at least 1")
	}
	if perPage < 1 || perPage > maxUsersPerPage {
		return nil, invalid("per_page", "must be between 1 and %d", maxUsersPerPage)
	}

	users, err := s.dir.ListUsers(ctx, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, admin *model.Identity, id string) error {
	if s.dir == nil {
		return ErrNotConfigured
	}
	if id == "" {
		return ErrNotFound
	}
	if admin != nil && admin.UserID == id {
		return &ValidationError{Message: "administrators cannot delete their own account"}
	}
	if err := s.dir.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "actor", actorOf(admin))
	return nil
}
