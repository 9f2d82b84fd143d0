package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockOwner(ctx context.Context, ownerID string) error
	GetSite(ctx context.Context, siteID string) (domain.Site, error)
	GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error)
	FindActiveHold(ctx context.Context, ownerID string, now time.Time) (*domain.Hold, error)
	CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error)
	CountReservations(ctx context.Context, slot domain.Slot) (int, error)
	DeleteHold(ctx context.Context, holdID string) error
	CreateReservation(ctx context.Context, r domain.Reservation) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservationsBySite(ctx context.Context, siteID string) ([]domain.Reservation, error)
}

type ReservationService struct {
	repo  ReservationRepository
	clock clock.Clock
	settings
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...Option) *ReservationService {
	return &ReservationService{
		repo:     repo,
		clock:    clk,
		settings: newSettings(opts),
	}
}

// CreateReservationInput names the slot to reserve. SiteID and Category may
// both be left empty when the owner has an active hold; the hold's slot is
// used then.
type CreateReservationInput struct {
	OwnerID    string
	SiteID     string
	Category   domain.Category
	ClientName string
	Notes      string
}

type CreateReservationResult struct {
	Reservation domain.Reservation
	// ConsumedHoldID is set when the reservation replaced the owner's hold.
	ConsumedHoldID string
}

func (in *CreateReservationInput) normalize() error {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.ClientName == "" {
		return domain.ErrClientNameRequired
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return domain.ErrOwnerRequired
	}
	if in.SiteID == "" && in.Category == "" {
		return nil
	}
	if in.SiteID == "" || in.Category == "" {
		return domain.ErrSlotRequired
	}
	if !in.Category.Valid() {
		return domain.ErrInvalidCategory
	}
	return nil
}

// CreateReservation books a bed. If the owner holds a bed in the requested
// slot the hold is converted and deleted in the same transaction; otherwise
// capacity is checked directly.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (result CreateReservationResult, err error) {
	start := time.Now()
	defer func() {
		path := "create_reservation_direct"
		if result.ConsumedHoldID != "" {
			path = "create_reservation_hold"
		}
		s.observe(path, start, err)
	}()

	if err := in.normalize(); err != nil {
		return CreateReservationResult{}, err
	}

	now := s.clock.Now()
	slotGiven := in.SiteID != ""

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockOwner(txCtx, in.OwnerID); err != nil {
			return err
		}
		hold, err := s.repo.FindActiveHold(txCtx, in.OwnerID, now)
		if err != nil {
			return err
		}

		slot := domain.Slot{SiteID: in.SiteID, Category: in.Category}
		useHold := hold != nil && (!slotGiven || hold.Slot() == slot)

		switch {
		case useHold:
			slot = hold.Slot()
		case !slotGiven:
			return domain.ErrHoldNotFound
		default:
			available, err := availableAt(txCtx, s.repo, slot, now, "")
			if err != nil {
				return err
			}
			if available <= 0 {
				return domain.ErrNoBedsAvailable
			}
		}

		reservation := domain.Reservation{
			ID:         newUUID(),
			SiteID:     slot.SiteID,
			Category:   slot.Category,
			OwnerID:    in.OwnerID,
			ClientName: in.ClientName,
			Notes:      in.Notes,
			CreatedAt:  now,
		}
		if err := s.repo.CreateReservation(txCtx, reservation); err != nil {
			return err
		}

		res := CreateReservationResult{Reservation: reservation}
		if useHold {
			if err := s.repo.DeleteHold(txCtx, hold.ID); err != nil {
				if errors.Is(err, domain.ErrHoldNotFound) {
					return domain.ErrHoldExpired
				}
				return err
			}
			res.ConsumedHoldID = hold.ID
		}
		result = res
		return nil
	})
	if err != nil {
		return CreateReservationResult{}, err
	}
	return result, nil
}

// ReleaseReservation deletes a reservation, returning its bed to availability.
func (s *ReservationService) ReleaseReservation(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("release_reservation", start, err) }()

	if id == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetReservation(txCtx, id); err != nil {
			return err
		}
		return s.repo.DeleteReservation(txCtx, id)
	})
}

// ListReservations returns the reservations of a site, oldest first, each
// labelled with its owner's directory name or UnknownOwnerName.
func (s *ReservationService) ListReservations(ctx context.Context, siteID string) ([]domain.Reservation, error) {
	if siteID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListReservationsBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].OwnerName == "" {
			list[i].OwnerName = domain.UnknownOwnerName
		}
	}
	return list, nil
}
