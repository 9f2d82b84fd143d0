package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/testutil"
)

func TestStore_Holds(t *testing.T) {
	pool := testutil.NewTestPool(t)
	store := New(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("GetSiteForUpdate locks inside tx", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 3})

		err := store.WithTx(ctx, func(txCtx context.Context) error {
			site, err := store.GetSiteForUpdate(txCtx, siteID)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if site.BedCounts.Apple != 3 {
				t.Fatalf("unexpected site: %+v", site)
			}
			if err := store.LockOwner(txCtx, "w1"); err != nil {
				t.Fatalf("lock owner: %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}
	})

	t.Run("find active and latest", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 3})
		now := time.Now().UTC()

		expiredID := testutil.InsertHold(t, ctx, pool, domain.Hold{
			SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(-5 * time.Second),
		})

		h, err := store.FindActiveHold(ctx, "w1", now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h != nil {
			t.Fatalf("expected nil, got %+v", h)
		}

		h, err = store.FindLatestHold(ctx, "w1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if h == nil || h.ID != expiredID || h.Category != domain.CategoryApple {
			t.Fatalf("unexpected hold: %+v", h)
		}

		h, err = store.FindLatestHold(ctx, "nobody")
		if err != nil || h != nil {
			t.Fatalf("expected nil, nil; got %+v, %v", h, err)
		}
	})

	t.Run("CountActiveHolds excludes expired and excluded id", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 10})
		now := time.Now().UTC()
		slot := domain.Slot{SiteID: siteID, Category: domain.CategoryApple}

		liveID := testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(time.Minute)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w2", ExpiresAt: now.Add(time.Minute)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w3", ExpiresAt: now.Add(-time.Minute)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryGrape, OwnerID: "w4", ExpiresAt: now.Add(time.Minute)})

		n, err := store.CountActiveHolds(ctx, slot, now, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 active holds, got %d", n)
		}

		n, err = store.CountActiveHolds(ctx, slot, now, liveID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 1 {
			t.Fatalf("expected 1 with exclusion, got %d", n)
		}
	})

	t.Run("create, extend and delete", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 1})
		now := time.Now().UTC().Truncate(time.Microsecond)

		hold := domain.Hold{
			ID:        "00000000-0000-0000-0000-0000000000a1",
			SiteID:    siteID,
			Category:  domain.CategoryApple,
			OwnerID:   "w1",
			CreatedAt: now,
			ExpiresAt: now.Add(30 * time.Second),
		}
		if err := store.CreateHold(ctx, hold); err != nil {
			t.Fatalf("create hold: %v", err)
		}
		if err := store.ExtendHold(ctx, hold.ID, now.Add(time.Minute)); err != nil {
			t.Fatalf("extend hold: %v", err)
		}
		got, err := store.FindActiveHold(ctx, "w1", now)
		if err != nil || got == nil {
			t.Fatalf("find active: %+v, %v", got, err)
		}
		if !got.ExpiresAt.Equal(now.Add(time.Minute)) {
			t.Fatalf("expected extended expiry, got %v", got.ExpiresAt)
		}

		if err := store.DeleteHold(ctx, hold.ID); err != nil {
			t.Fatalf("delete hold: %v", err)
		}
		if err := store.DeleteHold(ctx, hold.ID); err != domain.ErrHoldNotFound {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
		if err := store.ExtendHold(ctx, hold.ID, now); err != domain.ErrHoldNotFound {
			t.Fatalf("expected ErrHoldNotFound, got %v", err)
		}
	})

	t.Run("create hold for missing site", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		err := store.CreateHold(ctx, domain.Hold{
			ID:        "00000000-0000-0000-0000-0000000000a2",
			SiteID:    "00000000-0000-0000-0000-0000000000ff",
			Category:  domain.CategoryApple,
			OwnerID:   "w1",
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(time.Minute),
		})
		if err != domain.ErrSiteNotFound {
			t.Fatalf("expected ErrSiteNotFound, got %v", err)
		}
	})

	t.Run("DeleteExpiredHolds removes only expired", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		siteID := testutil.InsertSite(t, ctx, pool, "A", domain.BedCounts{Apple: 10})
		now := time.Now().UTC()

		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w1", ExpiresAt: now.Add(-time.Second)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w2", ExpiresAt: now.Add(-time.Hour)})
		testutil.InsertHold(t, ctx, pool, domain.Hold{SiteID: siteID, Category: domain.CategoryApple, OwnerID: "w3", ExpiresAt: now.Add(time.Hour)})

		n, err := store.DeleteExpiredHolds(ctx, now)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 deleted, got %d", n)
		}
		n, err = store.DeleteExpiredHolds(ctx, now)
		if err != nil || n != 0 {
			t.Fatalf("expected idempotent sweep, got %d, %v", n, err)
		}
	})
}
