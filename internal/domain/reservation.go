package domain

import "time"

// Reservation is a confirmed bed, created from a hold or a direct capacity check.
type Reservation struct {
	ID         string
	SiteID     string
	Category   Category
	OwnerID    string
	ClientName string
	Notes      string
	CreatedAt  time.Time
	// OwnerName is resolved from the user directory when listing. It is not
	// stored with the reservation.
	OwnerName string
}

func (r Reservation) Slot() Slot {
	return Slot{SiteID: r.SiteID, Category: r.Category}
}
