// Package client is a Go SDK for the bed hold API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError is returned for every non-success response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bedhold api: %d %s: %s", e.Status, e.Code, e.Message)
}

// HasCode reports whether err is an APIError with the given code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Client struct {
	http *resty.Client
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithOwnerID sends X-Owner-ID on every request, which the server uses as
// the rate limiting key.
func WithOwnerID(ownerID string) Option {
	return func(c *resty.Client) { c.SetHeader("X-Owner-ID", ownerID) }
}

// WithRetries retries transport failures on reads only.
func WithRetries(count int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil && r.Request != nil && r.Request.Method == http.MethodGet
			})
	}
}

func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return decode(resp, out)
}

func decode(resp *resty.Response, out any) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return &APIError{Status: resp.StatusCode(), Code: "invalid_response", Message: resp.Status()}
	}
	if !env.Success || resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Code: env.Code, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL, err)
	}
	return nil
}

func (c *Client) GetAvailability(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	err := c.do(ctx, http.MethodGet, "/availability", nil, &out)
	return out, err
}

func (c *Client) GetAvailabilityByCategory(ctx context.Context, category string) ([]SiteAvailability, error) {
	var out []SiteAvailability
	err := c.do(ctx, http.MethodGet, "/availability/"+url.PathEscape(category), nil, &out)
	return out, err
}

func (c *Client) GetSiteInventory(ctx context.Context, siteID string) (map[string]SlotInventory, error) {
	var out map[string]SlotInventory
	err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID)+"/inventory", nil, &out)
	return out, err
}

func (c *Client) PlaceHold(ctx context.Context, in PlaceHoldRequest) (Hold, error) {
	var out Hold
	err := c.do(ctx, http.MethodPost, "/holds", in, &out)
	return out, err
}

func (c *Client) RefreshHold(ctx context.Context, ownerID string) (Hold, error) {
	var out Hold
	err := c.do(ctx, http.MethodPost, "/holds/refresh", map[string]string{"owner_id": ownerID}, &out)
	return out, err
}

func (c *Client) ReleaseHold(ctx context.Context, ownerID string) error {
	return c.do(ctx, http.MethodPost, "/holds/release", map[string]string{"owner_id": ownerID}, nil)
}

// GetActiveHold returns nil when the owner has no unexpired hold.
func (c *Client) GetActiveHold(ctx context.Context, ownerID string) (*Hold, error) {
	var out *Hold
	err := c.do(ctx, http.MethodGet, "/holds/active?owner_id="+url.QueryEscape(ownerID), nil, &out)
	return out, err
}

func (c *Client) CreateReservation(ctx context.Context, in CreateReservationRequest) (CreateReservationResult, error) {
	var out CreateReservationResult
	err := c.do(ctx, http.MethodPost, "/reservations", in, &out)
	return out, err
}

func (c *Client) ReleaseReservation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reservations/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListReservations(ctx context.Context, siteID string) ([]Reservation, error) {
	var out []Reservation
	err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(siteID)+"/reservations", nil, &out)
	return out, err
}

// ExportReservations downloads the site's reservations as an xlsx workbook.
func (c *Client) ExportReservations(ctx context.Context, siteID string) ([]byte, error) {
	path := "/sites/" + url.PathEscape(siteID) + "/reservations/export"
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, decode(resp, nil)
	}
	return resp.Body(), nil
}

func (c *Client) ListSites(ctx context.Context) ([]Site, error) {
	var out []Site
	err := c.do(ctx, http.MethodGet, "/sites", nil, &out)
	return out, err
}

func (c *Client) GetSite(ctx context.Context, id string) (Site, error) {
	var out Site
	err := c.do(ctx, http.MethodGet, "/sites/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) CreateSite(ctx context.Context, in CreateSiteRequest) (Site, error) {
	var out Site
	err := c.do(ctx, http.MethodPost, "/sites", in, &out)
	return out, err
}

func (c *Client) UpdateSiteInfo(ctx context.Context, id string, info SiteInfo) (Site, error) {
	var out Site
	err := c.do(ctx, http.MethodPut, "/sites/"+url.PathEscape(id), info, &out)
	return out, err
}

func (c *Client) UpdateBedCounts(ctx context.Context, id string, counts BedCounts) (Site, error) {
	var out Site
	err := c.do(ctx, http.MethodPut, "/sites/"+url.PathEscape(id)+"/bed-counts", counts, &out)
	return out, err
}

// ListUsers returns the user directory. An empty role lists everyone.
func (c *Client) ListUsers(ctx context.Context, role string) ([]User, error) {
	path := "/users"
	if role != "" {
		path += "?role=" + url.QueryEscape(role)
	}
	var out []User
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, &out)
	return out, err
}

// DefaultUser returns the first user with the role, "case_worker" or
// "site_admin".
func (c *Client) DefaultUser(ctx context.Context, role string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/users/default/"+url.PathEscape(role), nil, &out)
	return out, err
}
