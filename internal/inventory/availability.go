// Package inventory computes bed availability from capacity and commitments.
// Nothing here touches storage: callers load sites and commitments inside one
// snapshot and pass them in.
package inventory

import (
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

// SlotInventory is the breakdown of one category at one site.
type SlotInventory struct {
	Total     int
	Available int
	OnHold    int
	Reserved  int
}

// SiteAvailability pairs a site with its free beds in one category.
type SiteAvailability struct {
	Site           domain.Site
	AvailableCount int
}

// Available is capacity minus active holds minus reservations.
func Available(capacity int, u domain.Usage) int {
	return capacity - u.OnHold - u.Reserved
}

// Tally counts active holds and reservations per slot. Holds with
// ExpiresAt <= now are ignored.
func Tally(holds []domain.Hold, reservations []domain.Reservation, now time.Time) domain.Commitments {
	c := make(domain.Commitments)
	for _, h := range holds {
		if !h.Active(now) {
			continue
		}
		u := c[h.Slot()]
		u.OnHold++
		c[h.Slot()] = u
	}
	for _, r := range reservations {
		u := c[r.Slot()]
		u.Reserved++
		c[r.Slot()] = u
	}
	return c
}

// Aggregate sums availability per category across all sites.
func Aggregate(sites []domain.Site, c domain.Commitments) map[domain.Category]int {
	out := make(map[domain.Category]int, len(domain.Categories))
	for _, cat := range domain.Categories {
		total := 0
		for _, site := range sites {
			total += Available(site.BedCounts.Get(cat), c[domain.Slot{SiteID: site.ID, Category: cat}])
		}
		out[cat] = total
	}
	return out
}

// ByCategory lists availability for cat at every site configured with at
// least one bed of that category, keeping the order of sites.
func ByCategory(sites []domain.Site, c domain.Commitments, cat domain.Category) []SiteAvailability {
	out := make([]SiteAvailability, 0, len(sites))
	for _, site := range sites {
		capacity := site.BedCounts.Get(cat)
		if capacity <= 0 {
			continue
		}
		out = append(out, SiteAvailability{
			Site:           site,
			AvailableCount: Available(capacity, c[domain.Slot{SiteID: site.ID, Category: cat}]),
		})
	}
	return out
}

// ForSite returns the per-category breakdown of one site.
func ForSite(site domain.Site, c domain.Commitments) map[domain.Category]SlotInventory {
	out := make(map[domain.Category]SlotInventory, len(domain.Categories))
	for _, cat := range domain.Categories {
		u := c[domain.Slot{SiteID: site.ID, Category: cat}]
		total := site.BedCounts.Get(cat)
		out[cat] = SlotInventory{
			Total:     total,
			Available: Available(total, u),
			OnHold:    u.OnHold,
			Reserved:  u.Reserved,
		}
	}
	return out
}
