package domain

import "time"

// Site is a shelter location with a per-category bed capacity.
type Site struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	BedCounts BedCounts
	CreatedAt time.Time
}

// SiteInfo is the descriptive part of a site, editable without touching capacity.
type SiteInfo struct {
	Name    string
	Address string
	Phone   string
}

// Slot identifies one category of beds at one site.
type Slot struct {
	SiteID   string
	Category Category
}

// Usage counts the commitments against a slot at a point in time.
type Usage struct {
	OnHold   int
	Reserved int
}

// Committed is the number of units unavailable to new holds.
func (u Usage) Committed() int {
	return u.OnHold + u.Reserved
}

// Commitments maps each slot with at least one active hold or reservation to
// its usage. Missing slots have zero usage.
type Commitments map[Slot]Usage
