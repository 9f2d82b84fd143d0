package domain

import "time"

// Hold is a short-lived exclusive claim on one bed. Only ExpiresAt changes
// after creation.
type Hold struct {
	ID        string
	SiteID    string
	Category  Category
	OwnerID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the hold still counts against capacity at now.
func (h Hold) Active(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// Refreshable reports whether the hold is active or expired less than grace ago.
func (h Hold) Refreshable(now time.Time, grace time.Duration) bool {
	if h.Active(now) {
		return true
	}
	return now.Sub(h.ExpiresAt) < grace
}

func (h Hold) Slot() Slot {
	return Slot{SiteID: h.SiteID, Category: h.Category}
}
