package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"gasfinder-server/internal/modules/prices/types"
	"gasfinder-server/internal/places"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeProvider struct {
	places []places.Place
	err    error
	calls  int
	last   places.NearbyRequest
}

func (f *fakeProvider) NearbySearch(ctx context.Context, req places.NearbyRequest) ([]places.Place, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

// memRepo keeps observations in memory with the same latest-in-window rule
// as the SQLite store.
type memRepo struct {
	mu        sync.Mutex
	obs       []types.PriceObservation
	window    time.Duration
	now       time.Time
	recordErr error
	latestErr error
}

func newMemRepo(now time.Time) *memRepo {
	return &memRepo{window: 24 * time.Hour, now: now}
}

func (m *memRepo) RecordObservation(ctx context.Context, stationID string, price decimal.Decimal, fuelType types.FuelType, source types.Source) (types.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return types.PriceObservation{}, m.recordErr
	}
	o := types.PriceObservation{
		ID:         uuid.NewString(),
		StationID:  stationID,
		Price:      price,
		FuelType:   fuelType,
		ObservedAt: m.now,
		Source:     source,
	}
	m.obs = append(m.obs, o)
	return o, nil
}

func (m *memRepo) LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	cutoff := asOf.Add(-m.window)
	var best *types.PriceObservation
	for i := range m.obs {
		o := m.obs[i]
		if o.StationID != stationID || o.FuelType != fuelType || !o.ObservedAt.After(cutoff) {
			continue
		}
		if best == nil || !o.ObservedAt.Before(best.ObservedAt) {
			best = &o
		}
	}
	return best, nil
}

func (m *memRepo) Ping(ctx context.Context) error { return nil }

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.obs)
}

var errBoom = errors.New("boom")
