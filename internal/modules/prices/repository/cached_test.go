package repository

import (
	"context"
	"testing"
	"time"

	"gasfinder-server/internal/modules/prices/types"

	"github.com/shopspring/decimal"
)

// countingRepo records how often LatestObservation reaches the backing store.
type countingRepo struct {
	PriceRepository
	latestCalls int
}

func (c *countingRepo) LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error) {
	c.latestCalls++
	return c.PriceRepository.LatestObservation(ctx, stationID, fuelType, asOf)
}

func newCached(t *testing.T) (*CachedRepository, *countingRepo, *clock) {
	t.Helper()
	inner, clk := newTestRepo(t)
	counting := &countingRepo{PriceRepository: inner}
	cached := NewCachedRepository(counting, time.Minute, 24*time.Hour)
	t.Cleanup(cached.Close)
	return cached, counting, clk
}

func TestCachedRepository_ServesRepeatLookups(t *testing.T) {
	repo, counting, clk := newCached(t)
	ctx := context.Background()
	mustRecord(t, repo, "s1", "3.49", types.FuelRegular)

	for i := 0; i < 3; i++ {
		got, err := repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now())
		if err != nil {
			t.Fatalf("LatestObservation: %v", err)
		}
		if got == nil || got.Price.String() != "3.49" {
			t.Fatalf("LatestObservation = %+v, want 3.49", got)
		}
	}
	if counting.latestCalls != 1 {
		t.Errorf("backing lookups = %d, want 1", counting.latestCalls)
	}
}

func TestCachedRepository_CachesMisses(t *testing.T) {
	repo, counting, clk := newCached(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := repo.LatestObservation(ctx, "none", types.FuelDiesel, clk.now())
		if err != nil {
			t.Fatalf("LatestObservation: %v", err)
		}
		if got != nil {
			t.Fatalf("LatestObservation = %+v, want nil", got)
		}
	}
	if counting.latestCalls != 1 {
		t.Errorf("backing lookups = %d, want 1", counting.latestCalls)
	}
}

func TestCachedRepository_RecordInvalidates(t *testing.T) {
	repo, counting, clk := newCached(t)
	ctx := context.Background()

	if got, _ := repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now()); got != nil {
		t.Fatalf("LatestObservation = %+v, want nil before any submission", got)
	}

	clk.advance(time.Second)
	obs, err := repo.RecordObservation(ctx, "s1", decimal.RequireFromString("3.19"), types.FuelRegular, types.SourceMQTT)
	if err != nil {
		t.Fatalf("RecordObservation: %v", err)
	}

	got, err := repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil || got.ID != obs.ID {
		t.Fatalf("LatestObservation = %+v, want freshly recorded %s", got, obs.ID)
	}
	if counting.latestCalls != 2 {
		t.Errorf("backing lookups = %d, want 2", counting.latestCalls)
	}
}

func TestCachedRepository_HonoursWindowOnHit(t *testing.T) {
	repo, _, clk := newCached(t)
	ctx := context.Background()
	mustRecord(t, repo, "s1", "3.49", types.FuelRegular)

	if got, _ := repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now()); got == nil {
		t.Fatal("LatestObservation = nil, want observation")
	}

	// The entry is still cached, but asOf has moved past the window.
	got, err := repo.LatestObservation(ctx, "s1", types.FuelRegular, base.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got != nil {
		t.Fatalf("LatestObservation = %+v, want nil outside window", got)
	}
}

// racingRepo runs duringLookup once, after the backing read but before the
// result is returned, to simulate a write landing mid-lookup.
type racingRepo struct {
	PriceRepository
	duringLookup func()
}

func (r *racingRepo) LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error) {
	obs, err := r.PriceRepository.LatestObservation(ctx, stationID, fuelType, asOf)
	if hook := r.duringLookup; hook != nil {
		r.duringLookup = nil
		hook()
	}
	return obs, err
}

func TestCachedRepository_WriteDuringLookupNotCachedAsMiss(t *testing.T) {
	inner, clk := newTestRepo(t)
	racing := &racingRepo{PriceRepository: inner}
	repo := NewCachedRepository(racing, time.Minute, 24*time.Hour)
	t.Cleanup(repo.Close)
	ctx := context.Background()

	var recorded types.PriceObservation
	racing.duringLookup = func() {
		recorded = mustRecord(t, repo, "s1", "3.29", types.FuelRegular)
	}

	got, err := repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got != nil {
		t.Fatalf("LatestObservation = %+v, want nil read before the write", got)
	}

	got, err = repo.LatestObservation(ctx, "s1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil || got.ID != recorded.ID {
		t.Fatalf("LatestObservation = %+v, want %s recorded during the first lookup", got, recorded.ID)
	}
}
