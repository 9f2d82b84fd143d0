package app

import (
	"context"
	"time"

	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/inventory"
)

const (
	defaultHoldDuration = 30 * time.Second
	defaultGraceWindow  = 10 * time.Second
)

// Recorder receives one observation per service call. Outcome is "ok", a
// domain error code, or "internal_error".
type Recorder interface {
	Observe(operation, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string, time.Duration) {}

type settings struct {
	holdDuration time.Duration
	graceWindow  time.Duration
	recorder     Recorder
}

func newSettings(opts []Option) settings {
	s := settings{
		holdDuration: defaultHoldDuration,
		graceWindow:  defaultGraceWindow,
		recorder:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a service.
type Option func(*settings)

// WithHoldDuration overrides how long a placed or refreshed hold lasts.
func WithHoldDuration(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.holdDuration = d
		}
	}
}

// WithGraceWindow overrides how long after expiry a hold may still be refreshed.
func WithGraceWindow(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.graceWindow = d
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

func (s settings) observe(operation string, start time.Time, err error) {
	s.recorder.Observe(operation, Outcome(err), time.Since(start))
}

// Outcome labels err for metrics and logs.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := domain.CodeOf(err); code != "" {
		return string(code)
	}
	return "internal_error"
}

type capacityReader interface {
	GetSiteForUpdate(ctx context.Context, siteID string) (domain.Site, error)
	CountActiveHolds(ctx context.Context, slot domain.Slot, now time.Time, excludeHoldID string) (int, error)
	CountReservations(ctx context.Context, slot domain.Slot) (int, error)
}

// availableAt locks the site row and counts free beds in slot. Must run
// inside WithTx so the count and the following insert are one unit.
func availableAt(ctx context.Context, repo capacityReader, slot domain.Slot, now time.Time, excludeHoldID string) (int, error) {
	site, err := repo.GetSiteForUpdate(ctx, slot.SiteID)
	if err != nil {
		return 0, err
	}
	held, err := repo.CountActiveHolds(ctx, slot, now, excludeHoldID)
	if err != nil {
		return 0, err
	}
	reserved, err := repo.CountReservations(ctx, slot)
	if err != nil {
		return 0, err
	}
	return inventory.Available(site.BedCounts.Get(slot.Category), domain.Usage{OnHold: held, Reserved: reserved}), nil
}
