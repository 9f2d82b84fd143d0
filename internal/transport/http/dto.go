package http

import (
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/inventory"
)

type holdResponse struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	Category  string    `json:"category"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:        h.ID,
		SiteID:    h.SiteID,
		Category:  string(h.Category),
		OwnerID:   h.OwnerID,
		CreatedAt: h.CreatedAt.UTC(),
		ExpiresAt: h.ExpiresAt.UTC(),
	}
}

type reservationResponse struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id"`
	Category   string    `json:"category"`
	OwnerID    string    `json:"owner_id"`
	ClientName string    `json:"client_name"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`

	// CaseWorkerName is only filled in listings.
	CaseWorkerName string `json:"case_worker_name,omitempty"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:         r.ID,
		SiteID:     r.SiteID,
		Category:   string(r.Category),
		OwnerID:    r.OwnerID,
		ClientName: r.ClientName,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt.UTC(),

		CaseWorkerName: r.OwnerName,
	}
}

type siteResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	Phone     string           `json:"phone"`
	BedCounts domain.BedCounts `json:"bed_counts"`
	CreatedAt time.Time        `json:"created_at"`
}

func toSiteResponse(s domain.Site) siteResponse {
	return siteResponse{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		Phone:     s.Phone,
		BedCounts: s.BedCounts,
		CreatedAt: s.CreatedAt.UTC(),
	}
}

type slotInventoryResponse struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	OnHold    int `json:"on_hold"`
	Reserved  int `json:"reserved"`
}

type siteAvailabilityResponse struct {
	Site           siteResponse `json:"site"`
	AvailableCount int          `json:"available_count"`
}

func toInventoryResponse(inv map[domain.Category]inventory.SlotInventory) map[string]slotInventoryResponse {
	out := make(map[string]slotInventoryResponse, len(inv))
	for cat, slot := range inv {
		out[string(cat)] = slotInventoryResponse{
			Total:     slot.Total,
			Available: slot.Available,
			OnHold:    slot.OnHold,
			Reserved:  slot.Reserved,
		}
	}
	return out
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	SiteID string `json:"site_id,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   string(u.Role),
		SiteID: u.SiteID,
	}
}
