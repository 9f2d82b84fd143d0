package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const reservationColumns = `id, site_id, category, owner_id, client_name, notes, created_at`

func scanReservation(row scanner) (domain.Reservation, error) {
	var (
		r        domain.Reservation
		category string
		created  int64
	)
	err := row.Scan(&r.ID, &r.SiteID, &category, &r.OwnerID, &r.ClientName, &r.Notes, &created)
	r.Category = domain.Category(category)
	r.CreatedAt = fromMillis(created)
	return r, err
}

func (s *Store) CountReservations(ctx context.Context, slot domain.Slot) (int, error) {
	var n int
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE site_id = ? AND category = ?`,
		slot.SiteID, string(slot.Category)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, site_id, category, owner_id, client_name, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.conn(ctx).ExecContext(ctx, stmt,
		r.ID, r.SiteID, string(r.Category), r.OwnerID, r.ClientName, r.Notes, millis(r.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSiteNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	r, err := scanReservation(s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (s *Store) ListReservationsBySite(ctx context.Context, siteID string) ([]domain.Reservation, error) {
	const query = `
SELECT r.id, r.site_id, r.category, r.owner_id, r.client_name, r.notes, r.created_at,
	COALESCE(u.name, '')
FROM reservations r
LEFT JOIN users u ON u.id = r.owner_id
WHERE r.site_id = ?
ORDER BY r.created_at ASC, r.id ASC`
	rows, err := s.conn(ctx).QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Reservation
	for rows.Next() {
		var (
			r        domain.Reservation
			category string
			created  int64
		)
		if err := rows.Scan(&r.ID, &r.SiteID, &category, &r.OwnerID, &r.ClientName, &r.Notes, &created, &r.OwnerName); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		r.Category = domain.Category(category)
		r.CreatedAt = fromMillis(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}
