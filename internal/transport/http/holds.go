package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

// HoldPlacer is the minimal interface needed to place a hold.
type HoldPlacer interface {
	PlaceHold(ctx context.Context, in app.PlaceHoldInput) (domain.Hold, error)
}

type HoldRefresher interface {
	RefreshHold(ctx context.Context, ownerID string) (domain.Hold, error)
}

type HoldReleaser interface {
	ReleaseHold(ctx context.Context, ownerID string) error
}

type ActiveHoldGetter interface {
	GetActiveHold(ctx context.Context, ownerID string) (*domain.Hold, error)
}

type placeHoldRequest struct {
	OwnerID  string `json:"owner_id"`
	SiteID   string `json:"site_id"`
	Category string `json:"category"`
}

type ownerRequest struct {
	OwnerID string `json:"owner_id"`
}

// HandlePlaceHold returns an HTTP handler for placing holds.
func HandlePlaceHold(svc HoldPlacer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req placeHoldRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cat, err := domain.ParseCategory(strings.TrimSpace(req.Category))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		hold, err := svc.PlaceHold(r.Context(), app.PlaceHoldInput{
			OwnerID:  req.OwnerID,
			SiteID:   strings.TrimSpace(req.SiteID),
			Category: cat,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toHoldResponse(hold))
	}
}

// HandleRefreshHold extends the owner's hold, reviving it inside the grace window.
func HandleRefreshHold(svc HoldRefresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ownerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		hold, err := svc.RefreshHold(r.Context(), req.OwnerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(hold))
	}
}

func HandleReleaseHold(svc HoldReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ownerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := svc.ReleaseHold(r.Context(), req.OwnerID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	}
}

// HandleGetActiveHold responds with the owner's hold, or null data when there is none.
func HandleGetActiveHold(svc ActiveHoldGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.URL.Query().Get("owner_id")
		if strings.TrimSpace(ownerID) == "" {
			ownerID = r.Header.Get(ownerHeader)
		}
		hold, err := svc.GetActiveHold(r.Context(), ownerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if hold == nil {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		writeJSON(w, http.StatusOK, toHoldResponse(*hold))
	}
}
