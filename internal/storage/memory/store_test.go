package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/memory"
)

var _ app.Store = (*memory.Store)(nil)

func seedSite(t *testing.T, s *memory.Store, id string, counts domain.BedCounts, createdAt time.Time) {
	t.Helper()
	require.NoError(t, s.CreateSite(context.Background(), domain.Site{
		ID:        id,
		Name:      "Site " + id,
		BedCounts: counts,
		CreatedAt: createdAt,
	}))
}

func TestStore_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedSite(t, s, "s1", domain.BedCounts{Apple: 2}, now)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.CreateHold(txCtx, domain.Hold{
			ID: "h1", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(time.Minute),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountActiveHolds(ctx, domain.Slot{SiteID: "s1", Category: domain.CategoryApple}, now, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_SnapshotRejectsWrites(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.WithSnapshot(ctx, func(snapCtx context.Context) error {
		return s.CreateSite(snapCtx, domain.Site{ID: "s1", Name: "x"})
	})
	require.Error(t, err)

	sites, err := s.ListSites(ctx)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestStore_ListSitesOrderedByCreation(t *testing.T) {
	s := memory.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSite(t, s, "b", domain.BedCounts{}, base.Add(time.Second))
	seedSite(t, s, "a", domain.BedCounts{}, base.Add(2*time.Second))
	seedSite(t, s, "c", domain.BedCounts{}, base)

	sites, err := s.ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{sites[0].ID, sites[1].ID, sites[2].ID})
}

func TestStore_HoldQueries(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedSite(t, s, "s1", domain.BedCounts{Apple: 5}, now)
	slot := domain.Slot{SiteID: "s1", Category: domain.CategoryApple}

	require.NoError(t, s.CreateHold(ctx, domain.Hold{ID: "old", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(-5 * time.Second)}))
	require.NoError(t, s.CreateHold(ctx, domain.Hold{ID: "live", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w2", ExpiresAt: now.Add(20 * time.Second)}))

	active, err := s.FindActiveHold(ctx, "w1", now)
	require.NoError(t, err)
	assert.Nil(t, active)

	latest, err := s.FindLatestHold(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "old", latest.ID)

	n, err := s.CountActiveHolds(ctx, slot, now, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountActiveHolds(ctx, slot, now, "live")
	require.NoError(t, err)
	assert.Zero(t, n)

	deleted, err := s.DeleteExpiredHolds(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	require.ErrorIs(t, s.DeleteHold(ctx, "old"), domain.ErrHoldNotFound)
	require.ErrorIs(t, s.ExtendHold(ctx, "old", now), domain.ErrHoldNotFound)
}

func TestStore_CreateHoldRequiresSite(t *testing.T) {
	err := memory.New().CreateHold(context.Background(), domain.Hold{ID: "h", SiteID: "missing", Category: domain.CategoryApple})
	require.ErrorIs(t, err, domain.ErrSiteNotFound)
}

func TestStore_Commitments(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedSite(t, s, "s1", domain.BedCounts{Apple: 5}, now)
	seedSite(t, s, "s2", domain.BedCounts{Grape: 5}, now)

	require.NoError(t, s.CreateHold(ctx, domain.Hold{ID: "h1", SiteID: "s1", Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(time.Second)}))
	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r1", SiteID: "s1", Category: domain.CategoryApple, ClientName: "A"}))
	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r2", SiteID: "s2", Category: domain.CategoryGrape, ClientName: "B"}))

	all, err := s.Commitments(ctx, "", now)
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{OnHold: 1, Reserved: 1}, all[domain.Slot{SiteID: "s1", Category: domain.CategoryApple}])
	assert.Equal(t, domain.Usage{Reserved: 1}, all[domain.Slot{SiteID: "s2", Category: domain.CategoryGrape}])

	one, err := s.Commitments(ctx, "s2", now)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	later, err := s.Commitments(ctx, "s1", now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.Usage{Reserved: 1}, later[domain.Slot{SiteID: "s1", Category: domain.CategoryApple}])
}

func TestStore_Reservations(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	seedSite(t, s, "s1", domain.BedCounts{Apple: 5}, now)

	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r2", SiteID: "s1", Category: domain.CategoryApple, CreatedAt: now.Add(time.Second)}))
	require.NoError(t, s.CreateReservation(ctx, domain.Reservation{ID: "r1", SiteID: "s1", Category: domain.CategoryApple, CreatedAt: now}))

	list, err := s.ListReservationsBySite(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)

	require.NoError(t, s.DeleteReservation(ctx, "r1"))
	_, err = s.GetReservation(ctx, "r1")
	require.ErrorIs(t, err, domain.ErrReservationNotFound)
	require.ErrorIs(t, s.DeleteReservation(ctx, "r1"), domain.ErrReservationNotFound)
}
