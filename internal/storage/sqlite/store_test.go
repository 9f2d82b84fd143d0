package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/sqlite"
)

var _ app.Store = (*sqlite.Store)(nil)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "bedhold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	site := domain.Site{ID: "s1", Name: "North", Address: "1 Main", Phone: "555", BedCounts: domain.BedCounts{Apple: 1, Grape: 4}, CreatedAt: created}
	require.NoError(t, s.CreateSite(ctx, site))

	got, err := s.GetSite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, site, got)

	_, err = s.GetSite(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSiteNotFound)

	require.NoError(t, s.UpdateBedCounts(ctx, "s1", domain.BedCounts{Lemon: 9}))
	require.NoError(t, s.UpdateSiteInfo(ctx, "s1", domain.SiteInfo{Name: "South"}))
	got, err = s.GetSite(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "South", got.Name)
	assert.Equal(t, domain.BedCounts{Lemon: 9}, got.BedCounts)

	require.ErrorIs(t, s.UpdateBedCounts(ctx, "missing", domain.BedCounts{}), domain.ErrSiteNotFound)
}

func TestStore_HoldsAndCommitments(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateSite(ctx, domain.Site{ID: "s1", Name: "A", BedCounts: domain.BedCounts{Apple: 5}, CreatedAt: now}))
	slot := domain.Slot{SiteID: "s1", Category: domain.CategoryApple}

	require.NoError(t, s.CreateHold(ctx, domain.Hold{ID: "h1", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w1", CreatedAt: now, ExpiresAt: now.Add(30 * time.Second)}))
	require.NoError(t, s.CreateHold(ctx, domain.Hold{ID: "h2", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w2", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r1", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w3", ClientName: "C", CreatedAt: now}))

	require.ErrorIs(t, s.CreateHold(ctx, domain.Hold{ID: "h3", SiteID: "nope", Category: domain.CategoryApple, OwnerID: "w4", CreatedAt: now, ExpiresAt: now}), domain.ErrSiteNotFound)

	active, err := s.FindActiveHold(ctx, "w1", now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, now.Add(30*time.Second), active.ExpiresAt)

	none, err := s.FindActiveHold(ctx, "w2", now)
	require.NoError(t, err)
	assert.Nil(t, none)

	latest, err := s.FindLatestHold(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "h2", latest.ID)

	n, err := s.CountActiveHolds(ctx, slot, now, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.CountActiveHolds(ctx, slot, now, "h1")
	require.NoError(t, err)
	assert.Zero(t, n)

	c, err := s.Commitments(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{OnHold: 1, Reserved: 1}, c[slot])

	deleted, err := s.DeleteExpiredHolds(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	require.ErrorIs(t, s.DeleteHold(ctx, "h2"), domain.ErrHoldNotFound)
}

func TestStore_ServicesEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	sites := app.NewSiteService(s, clk)
	holds := app.NewHoldService(s, clk)
	reservations := app.NewReservationService(s, clk)
	availability := app.NewAvailabilityService(s, clk)

	site, err := sites.CreateSite(ctx, app.CreateSiteInput{Name: "A", BedCounts: domain.BedCounts{Apple: 2}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = holds.PlaceHold(ctx, app.PlaceHoldInput{OwnerID: string(rune('a' + i)), SiteID: site.ID, Category: domain.CategoryApple})
		}(i)
	}
	wg.Wait()

	var winners []string
	for i, err := range results {
		if err == nil {
			winners = append(winners, string(rune('a'+i)))
			continue
		}
		require.ErrorIs(t, err, domain.ErrNoBedsAvailable)
	}
	require.Len(t, winners, 2)

	res, err := reservations.CreateReservation(ctx, app.CreateReservationInput{OwnerID: winners[0], ClientName: "Client"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ConsumedHoldID)

	inv, err := availability.GetSiteInventory(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, inv[domain.CategoryApple].Available)
	assert.Equal(t, 1, inv[domain.CategoryApple].Reserved)

	clk.Advance(holds.HoldDuration())
	swept, err := holds.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept.DeletedCount)

	inv, err = availability.GetSiteInventory(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, inv[domain.CategoryApple].Available)
}

func TestStore_ConcurrentPlaceAndDirectReserve(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	clk := clock.NewManual(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	site, err := app.NewSiteService(s, clk).CreateSite(ctx, app.CreateSiteInput{Name: "A", BedCounts: domain.BedCounts{Apple: 2}})
	require.NoError(t, err)
	holds := app.NewHoldService(s, clk)
	reservations := app.NewReservationService(s, clk)

	const perKind = 10
	var wg sync.WaitGroup
	results := make([]error, 2*perKind)
	for i := 0; i < perKind; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, results[i] = holds.PlaceHold(ctx, app.PlaceHoldInput{
				OwnerID: fmt.Sprintf("holder-%d", i), SiteID: site.ID, Category: domain.CategoryApple,
			})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, results[perKind+i] = reservations.CreateReservation(ctx, app.CreateReservationInput{
				OwnerID: fmt.Sprintf("booker-%d", i), SiteID: site.ID, Category: domain.CategoryApple, ClientName: "Client",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrNoBedsAvailable)
	}
	assert.Equal(t, 2, succeeded)

	c, err := s.Commitments(ctx, site.ID, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, c[domain.Slot{SiteID: site.ID, Category: domain.CategoryApple}].Committed())
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateSite(ctx, domain.Site{ID: "s1", Name: "A", BedCounts: domain.BedCounts{Apple: 2}, CreatedAt: now}))

	admin := domain.User{ID: "u2", Email: "admin@example.com", Name: "Ann", Role: domain.RoleSiteAdmin, SiteID: "s1", CreatedAt: now.Add(time.Second)}
	worker := domain.User{ID: "u1", Email: "cw@example.com", Name: "Cy", Role: domain.RoleCaseWorker, CreatedAt: now}
	require.NoError(t, s.CreateUser(ctx, admin))
	require.NoError(t, s.CreateUser(ctx, worker))
	require.Error(t, s.CreateUser(ctx, domain.User{ID: "u3", Email: "cw@example.com", Name: "Dup", Role: domain.RoleCaseWorker, CreatedAt: now}))
	require.ErrorIs(t, s.CreateUser(ctx, domain.User{ID: "u4", Email: "x@example.com", Name: "X", Role: domain.RoleSiteAdmin, SiteID: "nope", CreatedAt: now}), domain.ErrSiteNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.User{worker, admin}, users)

	got, err := s.FirstUserByRole(ctx, domain.RoleCaseWorker)
	require.NoError(t, err)
	assert.Equal(t, worker, got)
	_, err = s.GetUser(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r1", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "u1", ClientName: "Dee", CreatedAt: now}))
	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r2", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "anon", ClientName: "Eve", CreatedAt: now.Add(time.Second)}))
	list, err := s.ListReservationsBySite(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Cy", list[0].OwnerName)
	assert.Empty(t, list[1].OwnerName)
}
