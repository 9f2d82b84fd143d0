package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const holdColumns = `id, site_id, category, owner_id, created_at, expires_at`

func scanHold(row pgx.Row) (domain.Hold, error) {
	var (
		h        domain.Hold
		category string
	)
	err := row.Scan(&h.ID, &h.SiteID, &category, &h.OwnerID, &h.CreatedAt, &h.ExpiresAt)
	h.Category = domain.Category(category)
	return h, err
}

func (s *Store) FindActiveHold(ctx context.Context, ownerID string, now time.Time) (*domain.Hold, error) {
	const query = `
SELECT ` + holdColumns + `
FROM holds
WHERE owner_id = $1 AND expires_at > $2
ORDER BY expires_at DESC
LIMIT 1`
	return s.findHold(ctx, "find active hold", query, ownerID, now)
}

// FindLatestHold returns the owner's hold with the latest expiry, including
// expired holds the sweeper has not removed yet.
func (s *Store) FindLatestHold(ctx context.Context, ownerID string) (*domain.Hold, error) {
	const query = `
SELECT ` + holdColumns + `
FROM holds
WHERE owner_id = $1
ORDER BY expires_at DESC
LIMIT 1`
	return s.findHold(ctx, "find latest hold", query, ownerID)
}

func (s *Store) findHold(ctx context.Context, op, query string, args ...any) (*domain.Hold, error) {
	h, err := scanHold(s.queryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &h, nil
}

func (s *Store) CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM holds
WHERE site_id = $1 AND category = $2 AND expires_at > $3 AND ($4 = '' OR id::text <> $4)`

	var n int
	if err := s.queryRow(ctx, query, slot.SiteID, string(slot.Category), now, excludeHoldID).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count active holds: %w", err)
	}
	return n, nil
}

func (s *Store) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, site_id, category, owner_id, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.exec(ctx, stmt,
		hold.ID,
		hold.SiteID,
		string(hold.Category),
		hold.OwnerID,
		hold.CreatedAt,
		hold.ExpiresAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrSiteNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (s *Store) ExtendHold(ctx context.Context, holdID string, expiresAt time.Time) error {
	tag, err := s.exec(ctx, `UPDATE holds SET expires_at = $2 WHERE id = $1`, holdID, expiresAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("extend hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (s *Store) DeleteHold(ctx context.Context, holdID string) error {
	tag, err := s.exec(ctx, `DELETE FROM holds WHERE id = $1`, holdID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

// DeleteExpiredHolds removes holds with expires_at <= now. Rows deleted
// concurrently by a release or conversion are simply not counted.
func (s *Store) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.exec(ctx, `DELETE FROM holds WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
