package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.users[user.ID]; ok {
			return fmt.Errorf("create user: duplicate id %s", user.ID)
		}
		for _, u := range st.users {
			if u.Email == user.Email {
				return fmt.Errorf("create user: duplicate email %s", user.Email)
			}
		}
		if user.SiteID != "" {
			if _, ok := st.sites[user.SiteID]; !ok {
				return domain.ErrSiteNotFound
			}
		}
		st.users[user.ID] = user
		return nil
	})
}

// ListUsers returns users oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.view(ctx, func(st *state) error {
		users = make([]domain.User, 0, len(st.users))
		for _, u := range st.users {
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := s.view(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		user = u
		return nil
	})
	return user, err
}

func (s *Store) FirstUserByRole(ctx context.Context, role domain.Role) (domain.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.Role == role {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}
