package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const holdColumns = `id, site_id, category, owner_id, created_at, expires_at`

func scanHold(row scanner) (domain.Hold, error) {
	var (
		h                  domain.Hold
		category           string
		created, expiresAt int64
	)
	err := row.Scan(&h.ID, &h.SiteID, &category, &h.OwnerID, &created, &expiresAt)
	h.Category = domain.Category(category)
	h.CreatedAt = fromMillis(created)
	h.ExpiresAt = fromMillis(expiresAt)
	return h, err
}

func (s *Store) FindActiveHold(ctx context.Context, ownerID string, now time.Time) (*domain.Hold, error) {
	return s.findHold(ctx, "find active hold",
		`SELECT `+holdColumns+` FROM holds WHERE owner_id = ? AND expires_at > ? ORDER BY expires_at DESC LIMIT 1`,
		ownerID, millis(now))
}

func (s *Store) FindLatestHold(ctx context.Context, ownerID string) (*domain.Hold, error) {
	return s.findHold(ctx, "find latest hold",
		`SELECT `+holdColumns+` FROM holds WHERE owner_id = ? ORDER BY expires_at DESC LIMIT 1`,
		ownerID)
}

func (s *Store) findHold(ctx context.Context, op, query string, args ...any) (*domain.Hold, error) {
	h, err := scanHold(s.conn(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &h, nil
}

func (s *Store) CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error) {
	const query = `
SELECT COUNT(*) FROM holds
WHERE site_id = ? AND category = ? AND expires_at > ? AND id <> ?`

	var n int
	err := s.conn(ctx).QueryRowContext(ctx, query, slot.SiteID, string(slot.Category), millis(now), excludeHoldID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active holds: %w", err)
	}
	return n, nil
}

func (s *Store) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, site_id, category, owner_id, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.conn(ctx).ExecContext(ctx, stmt,
		hold.ID, hold.SiteID, string(hold.Category), hold.OwnerID, millis(hold.CreatedAt), millis(hold.ExpiresAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSiteNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (s *Store) ExtendHold(ctx context.Context, holdID string, expiresAt time.Time) error {
	res, err := s.conn(ctx).ExecContext(ctx, `UPDATE holds SET expires_at = ? WHERE id = ?`, millis(expiresAt), holdID)
	if err != nil {
		return fmt.Errorf("extend hold: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (s *Store) DeleteHold(ctx context.Context, holdID string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM holds WHERE id = ?`, holdID)
	if err != nil {
		return fmt.Errorf("delete hold: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (s *Store) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM holds WHERE expires_at <= ?`, millis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired holds: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
