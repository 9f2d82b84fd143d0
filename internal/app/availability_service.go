package app

import (
	"context"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/inventory"
)

type AvailabilityRepository interface {
	WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSite(ctx context.Context, siteID string) (domain.Site, error)
	// Commitments counts holds active at now and reservations, per slot.
	// An empty siteID covers every site.
	Commitments(ctx context.Context, siteID string, now time.Time) (domain.Commitments, error)
}

// AvailabilityService answers read-only availability queries. Every result is
// derived from one storage snapshot at the clock's current time.
type AvailabilityService struct {
	repo  AvailabilityRepository
	clock clock.Clock
	settings
}

func NewAvailabilityService(repo AvailabilityRepository, clk clock.Clock, opts ...Option) *AvailabilityService {
	return &AvailabilityService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

// GetAvailability returns free beds per category summed over all sites.
func (s *AvailabilityService) GetAvailability(ctx context.Context) (result map[domain.Category]int, err error) {
	start := time.Now()
	defer func() { s.observe("get_availability", start, err) }()

	now := s.clock.Now()
	err = s.repo.WithSnapshot(ctx, func(txCtx context.Context) error {
		sites, err := s.repo.ListSites(txCtx)
		if err != nil {
			return err
		}
		c, err := s.repo.Commitments(txCtx, "", now)
		if err != nil {
			return err
		}
		result = inventory.Aggregate(sites, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetAvailabilityByCategory lists free beds of one category per site, skipping
// sites without any capacity for it.
func (s *AvailabilityService) GetAvailabilityByCategory(ctx context.Context, cat domain.Category) (result []inventory.SiteAvailability, err error) {
	start := time.Now()
	defer func() { s.observe("get_availability_by_category", start, err) }()

	if !cat.Valid() {
		return nil, domain.ErrInvalidCategory
	}

	now := s.clock.Now()
	err = s.repo.WithSnapshot(ctx, func(txCtx context.Context) error {
		sites, err := s.repo.ListSites(txCtx)
		if err != nil {
			return err
		}
		c, err := s.repo.Commitments(txCtx, "", now)
		if err != nil {
			return err
		}
		result = inventory.ByCategory(sites, c, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSiteInventory returns total, available, held and reserved beds for each
// category of one site.
func (s *AvailabilityService) GetSiteInventory(ctx context.Context, siteID string) (result map[domain.Category]inventory.SlotInventory, err error) {
	start := time.Now()
	defer func() { s.observe("get_site_inventory", start, err) }()

	if siteID == "" {
		return nil, domain.ErrInvalidID
	}

	now := s.clock.Now()
	err = s.repo.WithSnapshot(ctx, func(txCtx context.Context) error {
		site, err := s.repo.GetSite(txCtx, siteID)
		if err != nil {
			return err
		}
		c, err := s.repo.Commitments(txCtx, siteID, now)
		if err != nil {
			return err
		}
		result = inventory.ForSite(site, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
