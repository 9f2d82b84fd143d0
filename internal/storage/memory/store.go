// Package memory is a process-local Store used by tests and by the demo
// binary when no database is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/inventory"
)

var errReadOnly = errors.New("write inside read-only snapshot")

type (
	txKey       struct{}
	snapshotKey struct{}
)

type state struct {
	sites        map[string]domain.Site
	holds        map[string]domain.Hold
	reservations map[string]domain.Reservation
	users        map[string]domain.User
}

func newState() *state {
	return &state{
		sites:        make(map[string]domain.Site),
		holds:        make(map[string]domain.Hold),
		reservations: make(map[string]domain.Reservation),
		users:        make(map[string]domain.User),
	}
}

func (st *state) clone() *state {
	c := &state{
		sites:        make(map[string]domain.Site, len(st.sites)),
		holds:        make(map[string]domain.Hold, len(st.holds)),
		reservations: make(map[string]domain.Reservation, len(st.reservations)),
		users:        make(map[string]domain.User, len(st.users)),
	}
	for k, v := range st.sites {
		c.sites[k] = v
	}
	for k, v := range st.holds {
		c.holds[k] = v
	}
	for k, v := range st.reservations {
		c.reservations[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	return c
}

// Store keeps all data in maps guarded by one lock. Transactions hold the
// write lock for their whole duration and work on a copy that replaces the
// live state only on success.
type Store struct {
	mu   sync.RWMutex
	data *state
}

func New() *Store {
	return &Store{data: newState()}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	if _, ok := ctx.Value(snapshotKey{}).(*state); ok {
		return errReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, working)); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *Store) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	if _, ok := ctx.Value(snapshotKey{}).(*state); ok {
		return fn(ctx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(context.WithValue(ctx, snapshotKey{}, s.data))
}

func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	if st, ok := ctx.Value(snapshotKey{}).(*state); ok {
		return fn(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	return s.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx.Value(txKey{}).(*state))
	})
}

// LockOwner is a no-op: every transaction already runs alone.
func (s *Store) LockOwner(ctx context.Context, ownerID string) error {
	return nil
}

func (s *Store) CreateSite(ctx context.Context, site domain.Site) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.sites[site.ID]; ok {
			return fmt.Errorf("create site: duplicate id %s", site.ID)
		}
		st.sites[site.ID] = site
		return nil
	})
}

func (s *Store) GetSite(ctx context.Context, siteID string) (domain.Site, error) {
	var site domain.Site
	err := s.view(ctx, func(st *state) error {
		found, ok := st.sites[siteID]
		if !ok {
			return domain.ErrSiteNotFound
		}
		site = found
		return nil
	})
	return site, err
}

func (s *Store) GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error) {
	return s.GetSite(ctx, siteID)
}

// ListSites returns sites oldest first.
func (s *Store) ListSites(ctx context.Context) ([]domain.Site, error) {
	var sites []domain.Site
	err := s.view(ctx, func(st *state) error {
		sites = make([]domain.Site, 0, len(st.sites))
		for _, site := range st.sites {
			sites = append(sites, site)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sites, func(i, j int) bool {
		if !sites[i].CreatedAt.Equal(sites[j].CreatedAt) {
			return sites[i].CreatedAt.Before(sites[j].CreatedAt)
		}
		return sites[i].ID < sites[j].ID
	})
	return sites, nil
}

func (s *Store) UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) error {
	return s.update(ctx, func(st *state) error {
		site, ok := st.sites[siteID]
		if !ok {
			return domain.ErrSiteNotFound
		}
		site.BedCounts = counts
		st.sites[siteID] = site
		return nil
	})
}

func (s *Store) UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) error {
	return s.update(ctx, func(st *state) error {
		site, ok := st.sites[siteID]
		if !ok {
			return domain.ErrSiteNotFound
		}
		site.Name, site.Address, site.Phone = info.Name, info.Address, info.Phone
		st.sites[siteID] = site
		return nil
	})
}

// FindActiveHold returns the owner's hold that expires after now, or nil.
func (s *Store) FindActiveHold(ctx context.Context, ownerID string, now time.Time) (*domain.Hold, error) {
	hold, err := s.latestHold(ctx, ownerID)
	if err != nil || hold == nil || !hold.Active(now) {
		return nil, err
	}
	return hold, nil
}

// FindLatestHold returns the owner's hold with the latest expiry, expired or
// not, or nil.
func (s *Store) FindLatestHold(ctx context.Context, ownerID string) (*domain.Hold, error) {
	return s.latestHold(ctx, ownerID)
}

func (s *Store) latestHold(ctx context.Context, ownerID string) (*domain.Hold, error) {
	var latest *domain.Hold
	err := s.view(ctx, func(st *state) error {
		for _, h := range st.holds {
			if h.OwnerID != ownerID {
				continue
			}
			if latest == nil || h.ExpiresAt.After(latest.ExpiresAt) {
				h := h
				latest = &h
			}
		}
		return nil
	})
	return latest, err
}

func (s *Store) CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error) {
	var n int
	err := s.view(ctx, func(st *state) error {
		for _, h := range st.holds {
			if h.ID != excludeHoldID && h.Slot() == slot && h.Active(now) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) CountReservations(ctx context.Context, slot domain.Slot) (int, error) {
	var n int
	err := s.view(ctx, func(st *state) error {
		for _, r := range st.reservations {
			if r.Slot() == slot {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) CreateHold(ctx context.Context, hold domain.Hold) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.sites[hold.SiteID]; !ok {
			return domain.ErrSiteNotFound
		}
		st.holds[hold.ID] = hold
		return nil
	})
}

func (s *Store) ExtendHold(ctx context.Context, holdID string, expiresAt time.Time) error {
	return s.update(ctx, func(st *state) error {
		h, ok := st.holds[holdID]
		if !ok {
			return domain.ErrHoldNotFound
		}
		h.ExpiresAt = expiresAt
		st.holds[holdID] = h
		return nil
	})
}

func (s *Store) DeleteHold(ctx context.Context, holdID string) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.holds[holdID]; !ok {
			return domain.ErrHoldNotFound
		}
		delete(st.holds, holdID)
		return nil
	})
}

// DeleteExpiredHolds removes every hold with ExpiresAt <= now.
func (s *Store) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.update(ctx, func(st *state) error {
		for id, h := range st.holds {
			if !h.Active(now) {
				delete(st.holds, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.sites[r.SiteID]; !ok {
			return domain.ErrSiteNotFound
		}
		st.reservations[r.ID] = r
		return nil
	})
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	var r domain.Reservation
	err := s.view(ctx, func(st *state) error {
		found, ok := st.reservations[id]
		if !ok {
			return domain.ErrReservationNotFound
		}
		r = found
		return nil
	})
	return r, err
}

func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	return s.update(ctx, func(st *state) error {
		if _, ok := st.reservations[id]; !ok {
			return domain.ErrReservationNotFound
		}
		delete(st.reservations, id)
		return nil
	})
}

// ListReservationsBySite returns a site's reservations oldest first.
func (s *Store) ListReservationsBySite(ctx context.Context, siteID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := s.view(ctx, func(st *state) error {
		for _, r := range st.reservations {
			if r.SiteID == siteID {
				r.OwnerName = st.users[r.OwnerID].Name
				out = append(out, r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Commitments(ctx context.Context, siteID string, now time.Time) (domain.Commitments, error) {
	var c domain.Commitments
	err := s.view(ctx, func(st *state) error {
		var holds []domain.Hold
		for _, h := range st.holds {
			if siteID == "" || h.SiteID == siteID {
				holds = append(holds, h)
			}
		}
		var reservations []domain.Reservation
		for _, r := range st.reservations {
			if siteID == "" || r.SiteID == siteID {
				reservations = append(reservations, r)
			}
		}
		c = inventory.Tally(holds, reservations, now)
		return nil
	})
	return c, err
}
