package http

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type SiteLister interface {
	ListSites(ctx context.Context) ([]domain.Site, error)
}

type SiteGetter interface {
	GetSite(ctx context.Context, siteID string) (domain.Site, error)
}

type SiteCreator interface {
	CreateSite(ctx context.Context, in app.CreateSiteInput) (domain.Site, error)
}

type SiteInfoUpdater interface {
	UpdateSiteInfo(ctx context.Context, siteID string, info domain.SiteInfo) (domain.Site, error)
}

// BedCountUpdater changes capacity and reads the site back for the response.
type BedCountUpdater interface {
	SiteGetter
	UpdateBedCounts(ctx context.Context, siteID string, counts domain.BedCounts) error
}

// bedCountsRequest keeps raw numbers so that missing and fractional values
// are reported against their category.
type bedCountsRequest struct {
	Apple  *json.Number `json:"apple"`
	Orange *json.Number `json:"orange"`
	Lemon  *json.Number `json:"lemon"`
	Grape  *json.Number `json:"grape"`
}

const maxBedCount = 1_000_000

// wholeNumber accepts integral values in any JSON spelling, so 3, 3.0 and
// 3e0 are all 3.
func wholeNumber(n json.Number) (int, bool) {
	if v, err := n.Int64(); err == nil {
		return int(v), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxBedCount {
		return 0, false
	}
	return int(f), true
}

func (req bedCountsRequest) counts(requireAll bool) (domain.BedCounts, error) {
	raw := map[domain.Category]*json.Number{
		domain.CategoryApple:  req.Apple,
		domain.CategoryOrange: req.Orange,
		domain.CategoryLemon:  req.Lemon,
		domain.CategoryGrape:  req.Grape,
	}

	var out domain.BedCounts
	for _, cat := range domain.Categories {
		n := raw[cat]
		if n == nil {
			if requireAll {
				return domain.BedCounts{}, fmt.Errorf("%w: bed count for %s is required", domain.ErrInvalidBedCount, cat)
			}
			continue
		}
		v, ok := wholeNumber(*n)
		if !ok || v < 0 || v > maxBedCount {
			return domain.BedCounts{}, fmt.Errorf("%w: bed count for %s must be a non-negative integer", domain.ErrInvalidBedCount, cat)
		}
		out = out.With(cat, v)
	}
	return out, nil
}

type createSiteRequest struct {
	Name      string           `json:"name"`
	Address   string           `json:"address"`
	Phone     string           `json:"phone"`
	BedCounts bedCountsRequest `json:"bed_counts"`
}

type updateSiteInfoRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func HandleListSites(svc SiteLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sites, err := svc.ListSites(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]siteResponse, 0, len(sites))
		for _, s := range sites {
			out = append(out, toSiteResponse(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func HandleGetSite(svc SiteGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		site, err := svc.GetSite(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSiteResponse(site))
	}
}

// HandleCreateSite registers a site. Omitted categories start at zero beds.
func HandleCreateSite(svc SiteCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSiteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		counts, err := req.BedCounts.counts(false)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		site, err := svc.CreateSite(r.Context(), app.CreateSiteInput{
			Name:      req.Name,
			Address:   req.Address,
			Phone:     req.Phone,
			BedCounts: counts,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toSiteResponse(site))
	}
}

func HandleUpdateSiteInfo(svc SiteInfoUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateSiteInfoRequest
		if !decodeBody(w, r, &req) {
			return
		}
		site, err := svc.UpdateSiteInfo(r.Context(), r.PathValue("id"), domain.SiteInfo{
			Name:    req.Name,
			Address: req.Address,
			Phone:   req.Phone,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSiteResponse(site))
	}
}

// HandleUpdateBedCounts replaces all four capacities of a site.
func HandleUpdateBedCounts(svc BedCountUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bedCountsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		counts, err := req.counts(true)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		siteID := r.PathValue("id")
		if err := svc.UpdateBedCounts(r.Context(), siteID, counts); err != nil {
			writeServiceError(w, err)
			return
		}
		site, err := svc.GetSite(r.Context(), siteID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSiteResponse(site))
	}
}
