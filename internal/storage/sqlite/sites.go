package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

const siteColumns = `id, name, address, phone, apple_beds, orange_beds, lemon_beds, grape_beds, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (domain.Site, error) {
	var (
		s       domain.Site
		created int64
	)
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone,
		&s.BedCounts.Apple, &s.BedCounts.Orange, &s.BedCounts.Lemon, &s.BedCounts.Grape,
		&created)
	s.CreatedAt = fromMillis(created)
	return s, err
}

func (s *Store) CreateSite(ctx context.Context, site domain.Site) error {
	const stmt = `
INSERT INTO sites (id, name, address, phone, apple_beds, orange_beds, lemon_beds, grape_beds, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.conn(ctx).ExecContext(ctx, stmt, site.ID, site.Name, site.Address, site.Phone,
		site.BedCounts.Apple, site.BedCounts.Orange, site.BedCounts.Lemon, site.BedCounts.Grape,
		millis(site.CreatedAt))
	if err != nil {
		return fmt.Errorf("create site: %w", err)
	}
	return nil
}

func (s *Store) GetSite(ctx context.Context, siteID string) (domain.Site, error) {
	site, err := scanSite(s.conn(ctx).QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, siteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Site{}, domain.ErrSiteNotFound
		}
		return domain.Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

func (s *Store) GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error) {
	return s.GetSite(ctx, siteID)
}

func (s *Store) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

func (s *Store) UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE sites SET apple_beds = ?, orange_beds = ?, lemon_beds = ?, grape_beds = ? WHERE id = ?`,
		counts.Apple, counts.Orange, counts.Lemon, counts.Grape, siteID)
	if err != nil {
		return fmt.Errorf("update bed counts: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

func (s *Store) UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE sites SET name = ?, address = ?, phone = ? WHERE id = ?`,
		info.Name, info.Address, info.Phone, siteID)
	if err != nil {
		return fmt.Errorf("update site info: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSiteNotFound
	}
	return nil
}

func (s *Store) Commitments(ctx context.Context, siteID string, now time.Time) (domain.Commitments, error) {
	const query = `
SELECT site_id, category, SUM(on_hold), SUM(reserved)
FROM (
	SELECT site_id, category, 1 AS on_hold, 0 AS reserved
	FROM holds
	WHERE expires_at > ? AND (? = '' OR site_id = ?)
	UNION ALL
	SELECT site_id, category, 0, 1
	FROM reservations
	WHERE (? = '' OR site_id = ?)
)
GROUP BY site_id, category`

	rows, err := s.conn(ctx).QueryContext(ctx, query, millis(now), siteID, siteID, siteID, siteID)
	if err != nil {
		return nil, fmt.Errorf("commitments: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}
