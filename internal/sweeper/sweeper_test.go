package sweeper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/clock"
	"github.com/fwextensions/reserve-bed-poc/internal/domain"
	"github.com/fwextensions/reserve-bed-poc/internal/storage/memory"
)

type fakeHolds struct {
	calls   atomic.Int32
	deleted int
	err     error
}

func (f *fakeHolds) SweepExpiredHolds(context.Context) (app.SweepResult, error) {
	f.calls.Add(1)
	return app.SweepResult{DeletedCount: f.deleted}, f.err
}

type fakeLease struct {
	grant    bool
	err      error
	released bool
}

func (f *fakeLease) Acquire(context.Context, time.Duration) (bool, error) { return f.grant, f.err }

func (f *fakeLease) Release(context.Context) error {
	f.released = true
	return nil
}

type counter struct {
	mu    sync.Mutex
	total int
}

func (c *counter) AddSwept(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total += n
}

func TestTick_CountsDeletions(t *testing.T) {
	holds := &fakeHolds{deleted: 3}
	c := &counter{}
	s := New(holds, time.Second, WithCounter(c))

	assert.Equal(t, 3, s.Tick(context.Background()))
	assert.Equal(t, 3, c.total)
	assert.EqualValues(t, 1, holds.calls.Load())
}

func TestTick_SkipsWithoutLease(t *testing.T) {
	holds := &fakeHolds{deleted: 3}
	s := New(holds, time.Second, WithLease(&fakeLease{grant: false}))

	assert.Equal(t, 0, s.Tick(context.Background()))
	assert.EqualValues(t, 0, holds.calls.Load())
}

func TestTick_LogsLeaseAndSweepErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	holds := &fakeHolds{}
	s := New(holds, time.Second, WithLogger(logger), WithLease(&fakeLease{err: errors.New("redis down")}))
	s.Tick(context.Background())
	assert.EqualValues(t, 0, holds.calls.Load())

	failing := &fakeHolds{err: errors.New("db down")}
	New(failing, time.Second, WithLogger(logger)).Tick(context.Background())

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "acquire sweeper lease", logs.All()[0].Message)
	assert.Equal(t, "sweep expired holds", logs.All()[1].Message)
}

func TestRun_SweepsImmediatelyAndReleasesLease(t *testing.T) {
	holds := &fakeHolds{}
	l := &fakeLease{grant: true}
	s := New(holds, time.Hour, WithLease(l))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return holds.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done
	assert.True(t, l.released)
}

func TestTick_DeletesExpiredHoldsFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sites := app.NewSiteService(store, clk)
	holds := app.NewHoldService(store, clk)

	site, err := sites.CreateSite(ctx, app.CreateSiteInput{Name: "Hope", BedCounts: domain.BedCounts{Apple: 3}})
	require.NoError(t, err)
	for _, owner := range []string{"w1", "w2"} {
		_, err := holds.PlaceHold(ctx, app.PlaceHoldInput{OwnerID: owner, SiteID: site.ID, Category: domain.CategoryApple})
		require.NoError(t, err)
	}

	s := New(holds, time.Second)
	assert.Equal(t, 0, s.Tick(ctx))

	clk.Advance(holds.HoldDuration())
	assert.Equal(t, 2, s.Tick(ctx))
	assert.Equal(t, 0, s.Tick(ctx))
}
