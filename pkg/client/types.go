package client

import "time"

type BedCounts struct {
	Apple  int `json:"apple"`
	Orange int `json:"orange"`
	Lemon  int `json:"lemon"`
	Grape  int `json:"grape"`
}

type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	BedCounts BedCounts `json:"bed_counts"`
	CreatedAt time.Time `json:"created_at"`
}

type SiteInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type CreateSiteRequest struct {
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	BedCounts BedCounts `json:"bed_counts"`
}

type Hold struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	Category  string    `json:"category"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PlaceHoldRequest struct {
	OwnerID  string `json:"owner_id"`
	SiteID   string `json:"site_id"`
	Category string `json:"category"`
}

type Reservation struct {
	ID             string    `json:"id"`
	SiteID         string    `json:"site_id"`
	Category       string    `json:"category"`
	OwnerID        string    `json:"owner_id"`
	ClientName     string    `json:"client_name"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	CaseWorkerName string    `json:"case_worker_name,omitempty"`
}

// CreateReservationRequest may omit SiteID and Category to book the slot of
// the owner's active hold.
type CreateReservationRequest struct {
	OwnerID    string `json:"owner_id"`
	SiteID     string `json:"site_id,omitempty"`
	Category   string `json:"category,omitempty"`
	ClientName string `json:"client_name"`
	Notes      string `json:"notes,omitempty"`
}

type CreateReservationResult struct {
	Reservation    Reservation `json:"reservation"`
	ConsumedHoldID string      `json:"consumed_hold_id,omitempty"`
}

type SlotInventory struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	OnHold    int `json:"on_hold"`
	Reserved  int `json:"reserved"`
}

type SiteAvailability struct {
	Site           Site `json:"site"`
	AvailableCount int  `json:"available_count"`
}

type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	SiteID string `json:"site_id,omitempty"`
}
