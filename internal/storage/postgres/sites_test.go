package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/testutil"
)

func TestStore_Sites(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	store := New(pool)

	t.Run("create, get and list", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		base := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
		second := domain.Site{
			ID:        "00000000-0000-0000-0000-000000000020",
			Name:      "Second",
			BedCounts: domain.BedCounts{Lemon: 4},
			CreatedAt: base.Add(time.Minute),
		}
		first := domain.Site{
			ID:        "00000000-0000-0000-0000-000000000010",
			Name:      "First",
			Address:   "1 Main St",
			Phone:     "555-0100",
			BedCounts: domain.BedCounts{Apple: 1, Orange: 2, Lemon: 3, Grape: 4},
			CreatedAt: base,
		}
		for _, site := range []domain.Site{second, first} {
			if err := store.CreateSite(ctx, site); err != nil {
				t.Fatalf("create site: %v", err)
			}
		}

		got, err := store.GetSite(ctx, first.ID)
		if err != nil {
			t.Fatalf("get site: %v", err)
		}
		if got.Name != first.Name || got.Address != first.Address || got.BedCounts != first.BedCounts {
			t.Fatalf("unexpected site: %+v", got)
		}

		sites, err := store.ListSites(ctx)
		if err != nil {
			t.Fatalf("list sites: %v", err)
		}
		if len(sites) != 2 || sites[0].ID != first.ID || sites[1].ID != second.ID {
			t.Fatalf("unexpected order: %+v", sites)
		}
	})

	t.Run("missing and malformed ids", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if _, err := store.GetSite(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrSiteNotFound {
			t.Fatalf("expected ErrSiteNotFound, got %v", err)
		}
		if _, err := store.GetSite(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if err := store.UpdateBedCounts(ctx, "00000000-0000-0000-0000-000000000001", domain.BedCounts{}); err != domain.ErrSiteNotFound {
			t.Fatalf("expected ErrSiteNotFound, got %v", err)
		}
	})

	t.Run("update counts and info", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "Old", domain.BedCounts{Apple: 1})

		if err := store.UpdateBedCounts(ctx, siteID, domain.BedCounts{Apple: 7, Grape: 2}); err != nil {
			t.Fatalf("update counts: %v", err)
		}
		if err := store.UpdateSiteInfo(ctx, siteID, domain.SiteInfo{Name: "New", Address: "A", Phone: "P"}); err != nil {
			t.Fatalf("update info: %v", err)
		}
		got, err := store.GetSite(ctx, siteID)
		if err != nil {
			t.Fatalf("get site: %v", err)
		}
		if got.Name != "New" || got.BedCounts != (domain.BedCounts{Apple: 7, Grape: 2}) {
			t.Fatalf("unexpected site: %+v", got)
		}
	})

	t.Run("commitments", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		now := time.Now().UTC()
		a := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 5})
		b := testutil.InsertSite(t, ctx, pool, "B", domain.BedCounts{Grape: 5})

		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: a, Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(time.Minute)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: a, Category: domain.CategoryApple, OwnerID: "w2", ExpiresAt: now.Add(-time.Second)})
		testutil.InsertReservation(t, ctx, pool, domain.Reservation{SiteID: a, Category: domain.CategoryApple, OwnerID: "w3", ClientName: "C"})
		testutil.InsertReservation(t, ctx, pool, domain.Reservation{SiteID: b, Category: domain.CategoryGrape, OwnerID: "w4", ClientName: "D"})

		all, err := store.Commitments(ctx, "", now)
		if err != nil {
			t.Fatalf("commitments: %v", err)
		}
		if got := all[domain.Slot{SiteID: a, Category: domain.CategoryApple}]; got != (domain.Usage{OnHold: 1, Reserved: 1}) {
			t.Fatalf("unexpected usage for A: %+v", got)
		}
		if got := all[domain.Slot{SiteID: b, Category: domain.CategoryGrape}]; got != (domain.Usage{Reserved: 1}) {
			t.Fatalf("unexpected usage for B: %+v", got)
		}

		onlyB, err := store.Commitments(ctx, b, now)
		if err != nil {
			t.Fatalf("commitments: %v", err)
		}
		if len(onlyB) != 1 {
			t.Fatalf("expected 1 slot for B, got %+v", onlyB)
		}
	})
}
