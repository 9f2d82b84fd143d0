package app

import (
	"context"
	"strings"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type SiteRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateSite(ctx context.Context, site domain.Site) error
	ListSites(ctx context.Context) ([]domain.Site, error)
	GetSite(ctx context.Context, siteID string) (domain.Site, error)
	GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error)
	UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) error
	UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) error
	Commitments(ctx context.Context, siteID string, now time.Time) (domain.Commitments, error)
	CreateUser(ctx context.Context, user domain.User) error
}

// SiteService manages sites and their capacity ledger.
type SiteService struct {
	repo  SiteRepository
	clock clock.Clock
	settings
}

func NewSiteService(repo SiteRepository, clk clock.Clock, opts ...Option) *SiteService {
	return &SiteService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

type CreateSiteInput struct {
	Name      string
	Address   string
	Phone     string
	BedCounts domain.BedCounts
}

func (s *SiteService) CreateSite(ctx context.Context, in CreateSiteInput) (domain.Site, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Site{}, domain.ErrSiteNameRequired
	}
	if err := in.BedCounts.Validate(); err != nil {
		return domain.Site{}, err
	}

	site := domain.Site{
		ID:        newUUID(),
		Name:      name,
		Address:   strings.TrimSpace(in.Address),
		Phone:     strings.TrimSpace(in.Phone),
		BedCounts: in.BedCounts,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return domain.Site{}, err
	}
	return site, nil
}

func (s *SiteService) ListSites(ctx context.Context) ([]domain.Site, error) {
	return s.repo.ListSites(ctx)
}

func (s *SiteService) GetSite(ctx context.Context, siteID string) (domain.Site, error) {
	if siteID == "" {
		return domain.Site{}, domain.ErrInvalidID
	}
	return s.repo.GetSite(ctx, siteID)
}

// UpdateSiteInfo replaces a site's name, address and phone.
func (s *SiteService) UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) (domain.Site, error) {
	if siteID == "" {
		return domain.Site{}, domain.ErrInvalidID
	}
	info.Name = strings.TrimSpace(info.Name)
	info.Address = strings.TrimSpace(info.Address)
	info.Phone = strings.TrimSpace(info.Phone)
	if info.Name == "" {
		return domain.Site{}, domain.ErrSiteNameRequired
	}

	var result domain.Site
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		site, err := s.repo.GetSiteForUpdate(txCtx, siteID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateSiteInfo(txCtx, siteID, info); err != nil {
			return err
		}
		site.Name, site.Address, site.Phone = info.Name, info.Address, info.Phone
		result = site
		return nil
	})
	if err != nil {
		return domain.Site{}, err
	}
	return result, nil
}

// UpdateBedCounts replaces all four capacities of a site. A category may not
// shrink below the beds currently held or reserved in it.
func (s *SiteService) UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) (err error) {
	start := time.Now()
	defer func() { s.observe("update_bed_counts", start, err) }()

	if siteID == "" {
		return domain.ErrInvalidID
	}
	if err := counts.Validate(); err != nil {
		return err
	}

	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetSiteForUpdate(txCtx, siteID); err != nil {
			return err
		}
		c, err := s.repo.Commitments(txCtx, siteID, now)
		if err != nil {
			return err
		}
		for _, cat := range domain.Categories {
			u := c[domain.Slot{SiteID: siteID, Category: cat}]
			if requested := counts.Get(cat); requested < u.Committed() {
				return &domain.BedCountError{
					Category:     cat,
					Requested:    requested,
					Holds:        u.OnHold,
					Reservations: u.Reserved,
				}
			}
		}
		return s.repo.UpdateBedCounts(txCtx, siteID, counts)
	})
}

// SampleSites are inserted by Seed.
var SampleSites = []CreateSiteInput{
	{
		Name:      "Hope Haven Shelter",
		Address:   "123 Market Street, San Francisco, CA 94102",
		Phone:     "(415) 555-0100",
		BedCounts: domain.BedCounts{Apple: 20},
	},
	{
		Name:      "Safe Harbor Center",
		Address:   "456 Mission Street, San Francisco, CA 94103",
		Phone:     "(415) 555-0200",
		BedCounts: domain.BedCounts{Orange: 15, Lemon: 12},
	},
	{
		Name:      "Community Care House",
		Address:   "789 Valencia Street, San Francisco, CA 94110",
		Phone:     "(415) 555-0300",
		BedCounts: domain.BedCounts{Apple: 6, Orange: 12, Lemon: 10, Grape: 8},
	},
	{
		Name:      "Riverside Refuge",
		Address:   "321 Embarcadero, San Francisco, CA 94111",
		Phone:     "(415) 555-0400",
		BedCounts: domain.BedCounts{Apple: 8, Orange: 6, Lemon: 15, Grape: 10},
	},
}

// SampleUser is a seeded directory entry. Site admins name the sample site
// they manage by its index in SampleSites.
type SampleUser struct {
	Email     string
	Name      string
	Role      domain.Role
	SiteIndex int
}

var SampleUsers = []SampleUser{
	{Email: "sarah.johnson@example.com", Name: "Sarah Johnson", Role: domain.RoleCaseWorker},
	{Email: "michael.chen@example.com", Name: "Michael Chen", Role: domain.RoleCaseWorker},
	{Email: "emily.rodriguez@example.com", Name: "Emily Rodriguez", Role: domain.RoleCaseWorker},
	{Email: "david.williams@example.com", Name: "David Williams", Role: domain.RoleCaseWorker},
	{Email: "admin.hopehaven@example.com", Name: "Jennifer Martinez", Role: domain.RoleSiteAdmin, SiteIndex: 0},
	{Email: "admin.safeharbor@example.com", Name: "Robert Thompson", Role: domain.RoleSiteAdmin, SiteIndex: 1},
	{Email: "admin.communitycare@example.com", Name: "Lisa Anderson", Role: domain.RoleSiteAdmin, SiteIndex: 2},
	{Email: "admin.riverside@example.com", Name: "James Wilson", Role: domain.RoleSiteAdmin, SiteIndex: 3},
}

type SeedResult struct {
	Sites []domain.Site
	Users []domain.User
}

// Seed inserts SampleSites and SampleUsers into an empty store in one
// transaction. It returns ErrAlreadySeeded when any site exists.
func (s *SiteService) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListSites(txCtx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrAlreadySeeded
		}
		now := s.clock.Now()
		for i, in := range SampleSites {
			site := domain.Site{
				ID:        newUUID(),
				Name:      in.Name,
				Address:   in.Address,
				Phone:     in.Phone,
				BedCounts: in.BedCounts,
				// Keep seed order stable for listings ordered by creation time.
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if err := s.repo.CreateSite(txCtx, site); err != nil {
				return err
			}
			result.Sites = append(result.Sites, site)
		}
		for i, in := range SampleUsers {
			user := domain.User{
				ID:        newUUID(),
				Email:     in.Email,
				Name:      in.Name,
				Role:      in.Role,
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if in.Role == domain.RoleSiteAdmin {
				user.SiteID = result.Sites[in.SiteIndex].ID
			}
			if err := s.repo.CreateUser(txCtx, user); err != nil {
				return err
			}
			result.Users = append(result.Users, user)
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}
