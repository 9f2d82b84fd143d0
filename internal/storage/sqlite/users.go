package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const userColumns = `id, email, name, role, COALESCE(site_id, ''), created_at`

func scanUser(row scanner) (domain.User, error) {
	var (
		u       domain.User
		role    string
		created int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.SiteID, &created)
	u.Role = domain.Role(role)
	u.CreatedAt = fromMillis(created)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	var siteID any
	if user.SiteID != "" {
		siteID = user.SiteID
	}
	_, err := s.conn(ctx).ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, site_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, string(user.Role), siteID, millis(user.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSiteNotFound
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) FirstUserByRole(ctx context.Context, role domain.Role) (domain.User, error) {
	return s.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at ASC, id ASC LIMIT 1`, string(role))
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (domain.User, error) {
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
