package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockOwner(ctx context.Context, ownerID string) error
	GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error)
	FindActiveHold(ctx context.Context, ownerID string, now time.Time) (*domain.Hold, error)
	FindLatestHold(ctx context.Context, ownerID string) (*domain.Hold, error)
	CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error)
	CountReservations(ctx context.Context, slot domain.Slot) (int, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	ExtendHold(ctx context.Context, holdID string, expiresAt time.Time) error
	DeleteHold(ctx context.Context, holdID string) error
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error)
}

type HoldService struct {
	repo  HoldRepository
	clock clock.Clock
	settings
}

func NewHoldService(repo HoldRepository, clk clock.Clock, opts ...Option) *HoldService {
	return &HoldService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

// HoldDuration is the lifetime given to placed and refreshed holds.
func (s *HoldService) HoldDuration() time.Duration {
	return s.holdDuration
}

type PlaceHoldInput struct {
	OwnerID  string
	SiteID   string
	Category domain.Category
}

func (in PlaceHoldInput) validate() error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return domain.ErrOwnerRequired
	}
	if in.SiteID == "" {
		return domain.ErrInvalidID
	}
	if !in.Category.Valid() {
		return domain.ErrInvalidCategory
	}
	return nil
}

// PlaceHold claims one bed for the owner. It fails with ErrHoldAlreadyActive
// while the owner holds another bed and with ErrNoBedsAvailable when the slot
// is full.
func (s *HoldService) PlaceHold(ctx context.Context, in PlaceHoldInput) (result domain.Hold, err error) {
	start := time.Now()
	defer func() { s.observe("place_hold", start, err) }()

	if err := in.validate(); err != nil {
		return domain.Hold{}, err
	}

	now := s.clock.Now()
	slot := domain.Slot{SiteID: in.SiteID, Category: in.Category}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockOwner(txCtx, in.OwnerID); err != nil {
			return err
		}
		existing, err := s.repo.FindActiveHold(txCtx, in.OwnerID, now)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrHoldAlreadyActive
		}

		available, err := availableAt(txCtx, s.repo, slot, now, "")
		if err != nil {
			return err
		}
		if available <= 0 {
			return domain.ErrNoBedsAvailable
		}

		hold := domain.Hold{
			ID:        newUUID(),
			SiteID:    in.SiteID,
			Category:  in.Category,
			OwnerID:   in.OwnerID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.holdDuration),
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}
		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// RefreshHold extends the owner's most recent hold. A hold that expired less
// than the grace window ago is revived if its bed is still free.
func (s *HoldService) RefreshHold(ctx context.Context, ownerID string) (result domain.Hold, err error) {
	start := time.Now()
	defer func() { s.observe("refresh_hold", start, err) }()

	if strings.TrimSpace(ownerID) == "" {
		return domain.Hold{}, domain.ErrOwnerRequired
	}

	now := s.clock.Now()

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockOwner(txCtx, ownerID); err != nil {
			return err
		}
		hold, err := s.repo.FindLatestHold(txCtx, ownerID)
		if err != nil {
			return err
		}
		if hold == nil {
			return domain.ErrHoldNotFound
		}
		if !hold.Refreshable(now, s.graceWindow) {
			return domain.ErrHoldExpired
		}

		if !hold.Active(now) {
			available, err := availableAt(txCtx, s.repo, hold.Slot(), now, hold.ID)
			if err != nil {
				return err
			}
			if available <= 0 {
				return domain.ErrNoBedsAvailable
			}
		}

		expiresAt := now.Add(s.holdDuration)
		if err := s.repo.ExtendHold(txCtx, hold.ID, expiresAt); err != nil {
			if errors.Is(err, domain.ErrHoldNotFound) {
				// Swept between lookup and update.
				return domain.ErrHoldExpired
			}
			return err
		}
		hold.ExpiresAt = expiresAt
		result = *hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// ReleaseHold deletes the owner's active hold.
func (s *HoldService) ReleaseHold(ctx context.Context, ownerID string) (err error) {
	start := time.Now()
	defer func() { s.observe("release_hold", start, err) }()

	if strings.TrimSpace(ownerID) == "" {
		return domain.ErrOwnerRequired
	}

	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockOwner(txCtx, ownerID); err != nil {
			return err
		}
		hold, err := s.repo.FindActiveHold(txCtx, ownerID, now)
		if err != nil {
			return err
		}
		if hold == nil {
			return domain.ErrHoldNotFound
		}
		return s.repo.DeleteHold(txCtx, hold.ID)
	})
}

// GetActiveHold returns the owner's unexpired hold, or nil.
func (s *HoldService) GetActiveHold(ctx context.Context, ownerID string) (*domain.Hold, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrOwnerRequired
	}
	return s.repo.FindActiveHold(ctx, ownerID, s.clock.Now())
}

type SweepResult struct {
	DeletedCount int
}

// SweepExpiredHolds deletes every hold with ExpiresAt <= now.
func (s *HoldService) SweepExpiredHolds(ctx context.Context) (result SweepResult, err error) {
	start := time.Now()
	defer func() { s.observe("sweep_expired_holds", start, err) }()

	now := s.clock.Now()
	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.DeleteExpiredHolds(txCtx, now)
		if err != nil {
			return err
		}
		result.DeletedCount = n
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return result, nil
}
