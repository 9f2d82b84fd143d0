package http

import (
	"context"
	"net/http"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/inventory"
)

// AvailabilityReader serves the derived availability views.
type AvailabilityReader interface {
	GetAvailability(ctx context.Context) (map[domain.Category]int, error)
	GetAvailabilityByCategory(ctx context.Context, cat domain.Category) ([]inventory.SiteAvailability, error)
	GetSiteInventory(ctx context.Context, siteID string) (map[domain.Category]inventory.SlotInventory, error)
}

func HandleGetAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := svc.GetAvailability(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make(map[string]int, len(totals))
		for cat, n := range totals {
			out[string(cat)] = n
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HandleGetAvailabilityByCategory(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := domain.ParseCategory(r.PathValue("category"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		list, err := svc.GetAvailabilityByCategory(r.Context(), cat)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]siteAvailabilityResponse, 0, len(list))
		for _, sa := range list {
			out = append(out, siteAvailabilityResponse{
				Site:           toSiteResponse(sa.Site),
				AvailableCount: sa.AvailableCount,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HandleGetSiteInventory(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := svc.GetSiteInventory(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toInventoryResponse(inv))
	}
}
