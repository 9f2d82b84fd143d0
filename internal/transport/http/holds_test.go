package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

type fakeHoldService struct {
	hold    domain.Hold
	active  *domain.Hold
	err     error
	gotIn   app.PlaceHoldInput
	gotUser string
}

func (f *fakeHoldService) PlaceHold(_ context.Context, in app.PlaceHoldInput) (domain.Hold, error) {
	f.gotIn = in
	return f.hold, f.err
}

func (f *fakeHoldService) RefreshHold(_ context.Context, ownerID string) (domain.Hold, error) {
	f.gotUser = ownerID
	return f.hold, f.err
}

func (f *fakeHoldService) ReleaseHold(_ context.Context, ownerID string) error {
	f.gotUser = ownerID
	return f.err
}

func (f *fakeHoldService) GetActiveHold(_ context.Context, ownerID string) (*domain.Hold, error) {
	f.gotUser = ownerID
	return f.active, f.err
}

func TestHandlePlaceHold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	success := domain.Hold{
		ID:        "hold-123",
		SiteID:    "site-1",
		Category:  domain.CategoryApple,
		OwnerID:   "worker-1",
		CreatedAt: now,
		ExpiresAt: now.Add(30 * time.Second),
	}

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "success",
			body:           `{"owner_id":"worker-1","site_id":"site-1","category":"apple"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid json",
			body:           `{"owner_id":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeValidation,
		},
		{
			name:           "unknown field",
			body:           `{"owner_id":"w","site_id":"s","category":"apple","quantity":2}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeValidation,
		},
		{
			name:           "invalid category",
			body:           `{"owner_id":"w","site_id":"s","category":"banana"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeValidation,
		},
		{
			name:           "owner required",
			body:           `{"owner_id":"","site_id":"s","category":"apple"}`,
			serviceErr:     domain.ErrOwnerRequired,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeValidation,
		},
		{
			name:           "site not found",
			body:           `{"owner_id":"w","site_id":"s","category":"apple"}`,
			serviceErr:     domain.ErrSiteNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   codeNotFound,
		},
		{
			name:           "already holding",
			body:           `{"owner_id":"w","site_id":"s","category":"apple"}`,
			serviceErr:     domain.ErrHoldAlreadyActive,
			expectedStatus: http.StatusConflict,
			expectedCode:   codeConflict,
		},
		{
			name:           "no beds",
			body:           `{"owner_id":"w","site_id":"s","category":"apple"}`,
			serviceErr:     domain.ErrNoBedsAvailable,
			expectedStatus: http.StatusConflict,
			expectedCode:   codeConflict,
		},
		{
			name:           "internal error",
			body:           `{"owner_id":"w","site_id":"s","category":"apple"}`,
			serviceErr:     errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   codeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeHoldService{hold: success, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/holds", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			HandlePlaceHold(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if tt.expectedCode != "" {
				if env.Success || env.Code != tt.expectedCode {
					t.Fatalf("expected failure code %s, got %+v", tt.expectedCode, env)
				}
				if tt.expectedCode == codeInternalError && strings.Contains(env.Error, "connection reset") {
					t.Fatalf("internal error leaked: %q", env.Error)
				}
				return
			}

			var hold holdResponse
			if err := json.Unmarshal(env.Data, &hold); err != nil {
				t.Fatalf("decode hold: %v", err)
			}
			if hold.ID != "hold-123" || hold.Category != "apple" || !hold.ExpiresAt.Equal(success.ExpiresAt) {
				t.Fatalf("unexpected hold %+v", hold)
			}
			if svc.gotIn.Category != domain.CategoryApple || svc.gotIn.SiteID != "site-1" {
				t.Fatalf("unexpected input %+v", svc.gotIn)
			}
		})
	}
}

func TestHandleRefreshHold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		serviceErr     error
		expectedStatus int
	}{
		{name: "success", expectedStatus: http.StatusOK},
		{name: "no hold", serviceErr: domain.ErrHoldNotFound, expectedStatus: http.StatusNotFound},
		{name: "past grace", serviceErr: domain.ErrHoldExpired, expectedStatus: http.StatusGone},
		{name: "revival conflict", serviceErr: domain.ErrNoBedsAvailable, expectedStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &fakeHoldService{hold: domain.Hold{ID: "h1"}, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/holds/refresh", strings.NewReader(`{"owner_id":"worker-1"}`))
			rec := httptest.NewRecorder()

			HandleRefreshHold(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if svc.gotUser != "worker-1" {
				t.Fatalf("expected owner worker-1, got %q", svc.gotUser)
			}
		})
	}
}

func TestHandleReleaseHold(t *testing.T) {
	t.Parallel()

	svc := &fakeHoldService{}
	req := httptest.NewRequest(http.MethodPost, "/holds/release", strings.NewReader(`{"owner_id":"worker-1"}`))
	rec := httptest.NewRecorder()

	HandleReleaseHold(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"success":true,"data":null}` {
		t.Fatalf("unexpected body %s", body)
	}

	svc.err = domain.ErrHoldNotFound
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/holds/release", strings.NewReader(`{"owner_id":"worker-1"}`))
	HandleReleaseHold(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 on second release, got %d", rec.Code)
	}
}

func TestHandleGetActiveHold(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		svc := &fakeHoldService{}
		req := httptest.NewRequest(http.MethodGet, "/holds/active?owner_id=worker-1", nil)
		rec := httptest.NewRecorder()

		HandleGetActiveHold(svc).ServeHTTP(rec, req)

		env := decodeEnvelope(t, rec)
		if rec.Code != http.StatusOK || !env.Success || string(env.Data) != "null" {
			t.Fatalf("expected null data, got %d %s", rec.Code, env.Data)
		}
	})

	t.Run("owner from header", func(t *testing.T) {
		svc := &fakeHoldService{active: &domain.Hold{ID: "h1", OwnerID: "worker-2"}}
		req := httptest.NewRequest(http.MethodGet, "/holds/active", nil)
		req.Header.Set(ownerHeader, "worker-2")
		rec := httptest.NewRecorder()

		HandleGetActiveHold(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if svc.gotUser != "worker-2" {
			t.Fatalf("expected owner from header, got %q", svc.gotUser)
		}
		var hold holdResponse
		if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &hold); err != nil || hold.ID != "h1" {
			t.Fatalf("unexpected hold %+v (%v)", hold, err)
		}
	})
}
