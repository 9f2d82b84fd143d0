package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/export"
)

// ReservationCreator is the minimal interface needed to book a bed.
type ReservationCreator interface {
	CreateReservation(ctx context.Context, in app.CreateReservationInput) (app.CreateReservationResult, error)
}

type ReservationReleaser interface {
	ReleaseReservation(ctx context.Context, id string) error
}

type ReservationLister interface {
	ListReservations(ctx context.Context, siteID string) ([]domain.Reservation, error)
}

type createReservationRequest struct {
	OwnerID    string `json:"owner_id"`
	SiteID     string `json:"site_id"`
	Category   string `json:"category"`
	ClientName string `json:"client_name"`
	Notes      string `json:"notes"`
}

type createReservationResponse struct {
	Reservation    reservationResponse `json:"reservation"`
	ConsumedHoldID string              `json:"consumed_hold_id,omitempty"`
}

// HandleCreateReservation books a bed from the owner's hold or by direct capacity check.
func HandleCreateReservation(svc ReservationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createReservationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		in := app.CreateReservationInput{
			OwnerID:    req.OwnerID,
			SiteID:     strings.TrimSpace(req.SiteID),
			ClientName: req.ClientName,
			Notes:      req.Notes,
		}
		if c := strings.TrimSpace(req.Category); c != "" {
			cat, err := domain.ParseCategory(c)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			in.Category = cat
		}

		res, err := svc.CreateReservation(r.Context(), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, createReservationResponse{
			Reservation:    toReservationResponse(res.Reservation),
			ConsumedHoldID: res.ConsumedHoldID,
		})
	}
}

func HandleReleaseReservation(svc ReservationReleaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ReleaseReservation(r.Context(), r.PathValue("id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	}
}

func HandleListReservations(svc ReservationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListReservations(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]reservationResponse, 0, len(list))
		for _, res := range list {
			out = append(out, toReservationResponse(res))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HandleExportReservations streams a site's reservations as an xlsx workbook.
func HandleExportReservations(sites SiteGetter, reservations ReservationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID := r.PathValue("id")
		site, err := sites.GetSite(r.Context(), siteID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		list, err := reservations.ListReservations(r.Context(), siteID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		// Render fully before writing headers so a failure can still be a JSON error.
		var buf bytes.Buffer
		if err := export.WriteReservations(&buf, site, list); err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(site)))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
