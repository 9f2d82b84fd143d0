package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const siteColumns = `id, name, address, phone, apple_beds, orange_beds, lemon_beds, grape_beds, created_at`

func scanSite(row pgx.Row) (domain.Site, error) {
	var s domain.Site
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone,
		&s.BedCounts.Apple, &s.BedCounts.Orange, &s.BedCounts.Lemon, &s.BedCounts.Grape,
		&s.CreatedAt)
	return s, err
}

func (s *Store) CreateSite(ctx context.Context, site domain.Site) error {
	const stmt = `
INSERT INTO sites (id, name, address, phone, apple_beds, orange_beds, lemon_beds, grape_beds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.exec(ctx, stmt, site.ID, site.Name, site.Address, site.Phone,
		site.BedCounts.Apple, site.BedCounts.Orange, site.BedCounts.Lemon, site.BedCounts.Grape,
		site.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (s *Store) GetSite(ctx context.Context, siteID string) (domain.Site, error) {
	return s.getSite(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, siteID)
}

// GetSiteForUpdate row-locks the site until the transaction ends.
func (s *Store) GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error) {
	return s.getSite(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1 FOR UPDATE`, siteID)
}

func (s *Store) getSite(ctx context.Context, query, siteID string) (domain.Site, error) {
	site, err := scanSite(s.queryRow(ctx, query, siteID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Site{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Site{}, domain.ErrSiteNotFound
		}
		return domain.Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

func (s *Store) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := s.query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate sites: %w", rows.Err())
	}
	return sites, nil
}

func (s *Store) UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) error {
	const stmt = `
UPDATE sites
SET apple_beds = $2, orange_beds = $3, lemon_beds = $4, grape_beds = $5
WHERE id = $1`
	tag, err := s.exec(ctx, stmt, siteID, counts.Apple, counts.Orange, counts.Lemon, counts.Grape)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update bed counts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

func (s *Store) UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) error {
	tag, err := s.exec(ctx, `UPDATE sites SET name = $2, address = $3, phone = $4 WHERE id = $1`,
		siteID, info.Name, info.Address, info.Phone)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update site info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

// Commitments counts active holds and reservations per slot in one
// statement, so callers outside a snapshot still get a consistent pair.
func (s *Store) Commitments(ctx context.Context, siteID string, now time.Time) (domain.Commitments, error) {
	const query = `
SELECT site_id, category, SUM(on_hold)::int, SUM(reserved)::int
FROM (
	SELECT site_id, category, 1 AS on_hold, 0 AS reserved
	FROM holds
	WHERE expires_at > $1 AND ($2 = '' OR site_id::text = $2)
	UNION ALL
	SELECT site_id, category, 0, 1
	FROM reservations
	WHERE ($2 = '' OR site_id::text = $2)
) c
GROUP BY site_id, category`

	rows, err := s.query(ctx, query, now, siteID)
	if err != nil {
		return nil, fmt.Errorf("commitments: %w", err)
	}
	defer rows.Close()

	out := make(domain.Commitments)
	for rows.Next() {
		var (
			slot     domain.Slot
			category string
			usage    domain.Usage
		)
		if err := rows.Scan(&slot.SiteID, &category, &usage.OnHold, &usage.Reserved); err != nil {
			return nil, fmt.Errorf("scan commitments: %w", err)
		}
		slot.Category = domain.Category(category)
		out[slot] = usage
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate commitments: %w", rows.Err())
	}
	return out, nil
}
