package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const reservationColumns = `id, site_id, category, owner_id, client_name, notes, created_at`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		r        domain.Reservation
		category string
	)
	err := row.Scan(&r.ID, &r.SiteID, &category, &r.OwnerID, &r.ClientName, &r.Notes, &r.CreatedAt)
	r.Category = domain.Category(category)
	return r, err
}

func (s *Store) CountReservations(ctx context.Context, slot domain.Slot) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE site_id = $1 AND category = $2`,
		slot.SiteID, string(slot.Category)).Scan(&n)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, site_id, category, owner_id, client_name, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.exec(ctx, stmt, r.ID, r.SiteID, string(r.Category), r.OwnerID, r.ClientName, r.Notes, r.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrSiteNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create reservation: duplicate id %s: %w", r.ID, err)
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	r, err := scanReservation(s.queryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	tag, err := s.exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (s *Store) ListReservationsBySite(ctx context.Context, siteID string) ([]domain.Reservation, error) {
	const query = `
SELECT r.id, r.site_id, r.category, r.owner_id, r.client_name, r.notes, r.created_at,
	COALESCE(u.name, '')
FROM reservations r
LEFT JOIN users u ON u.id::text = r.owner_id
WHERE r.site_id = $1
ORDER BY r.created_at ASC, r.id ASC`
	rows, err := s.query(ctx, query, siteID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var (
			r        domain.Reservation
			category string
		)
		err := rows.Scan(&r.ID, &r.SiteID, &category, &r.OwnerID, &r.ClientName, &r.Notes, &r.CreatedAt, &r.OwnerName)
		r.Category = domain.Category(category)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}
