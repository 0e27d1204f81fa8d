package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gasfinder-server/internal/modules/prices/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:embed sql/insert-observation.sql
var insertObservationSQL string

//go:embed sql/latest-observation.sql
var latestObservationSQL string

// timeLayout is fixed width so that string comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type PriceRepository interface {
	// RecordObservation appends a price observation stamped with the store's clock.
	RecordObservation(ctx context.Context, stationID string, price decimal.Decimal, fuelType types.FuelType, source types.Source) (types.PriceObservation, error)
	// LatestObservation returns the newest observation for the pair that is still
	// inside the freshness window at asOf, or nil.
	LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error)
	Ping(ctx context.Context) error
}

type Option func(*repositoryImpl)

// WithClock replaces time.Now as the source of observation timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *repositoryImpl) { r.now = now }
}

type repositoryImpl struct {
	db     *sql.DB
	window time.Duration
	now    func() time.Time
}

func NewRepository(db *sql.DB, window time.Duration, opts ...Option) PriceRepository {
	r := &repositoryImpl{db: db, window: window, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repositoryImpl) RecordObservation(ctx context.Context, stationID string, price decimal.Decimal, fuelType types.FuelType, source types.Source) (types.PriceObservation, error) {
	obs := types.PriceObservation{
		ID:         uuid.NewString(),
		StationID:  stationID,
		Price:      price,
		FuelType:   fuelType,
		ObservedAt: r.now().UTC(),
		Source:     source,
	}
	_, err := r.db.ExecContext(ctx, insertObservationSQL,
		obs.ID, obs.StationID, string(obs.FuelType), obs.Price.String(), obs.ObservedAt.Format(timeLayout), string(obs.Source))
	if err != nil {
		return types.PriceObservation{}, fmt.Errorf("insert observation: %w", err)
	}
	return obs, nil
}

func (r *repositoryImpl) LatestObservation(ctx context.Context, stationID string, fuelType types.FuelType, asOf time.Time) (*types.PriceObservation, error) {
	cutoff := asOf.Add(-r.window).UTC().Format(timeLayout)

	var (
		obs       types.PriceObservation
		fuel, src string
		price, ts string
	)
	err := r.db.QueryRowContext(ctx, latestObservationSQL, stationID, string(fuelType), cutoff).
		Scan(&obs.ID, &obs.StationID, &fuel, &price, &ts, &src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest observation for %q/%s: %w", stationID, fuelType, err)
	}

	obs.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	obs.ObservedAt, err = time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("parse observed_at %q: %w", ts, err)
	}
	obs.FuelType = types.FuelType(fuel)
	obs.Source = types.Source(src)
	return &obs, nil
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
