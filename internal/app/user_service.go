package app

import (
	"context"
	"strings"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	// FirstUserByRole returns the earliest created user with role, or
	// ErrUserNotFound.
	FirstUserByRole(ctx context.Context, role domain.Role) (domain.User, error)
}

// UserService reads the directory of case workers and site admins. There is
// no sign-in; clients pick an identity from here and send its id as owner id.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return domain.User{}, domain.ErrInvalidID
	}
	return s.repo.GetUser(ctx, id)
}

// FirstUserWithRole returns the default identity for a role: the first seeded
// case worker or site admin.
func (s *UserService) FirstUserWithRole(ctx context.Context, role domain.Role) (domain.User, error) {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return domain.User{}, err
	}
	return s.repo.FirstUserByRole(ctx, role)
}
