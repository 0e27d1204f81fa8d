package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gasfinder-server/internal/geo"
	"gasfinder-server/internal/modules/prices/repository"
	"gasfinder-server/internal/modules/prices/types"
	"gasfinder-server/internal/places"
)

const (
	MinRadiusMeters     = 100
	MaxRadiusMeters     = 50000
	DefaultRadiusMeters = 8000
)

type Query struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
	FuelType     types.FuelType
}

// QueryFuelType resolves a raw query parameter; anything unrecognised becomes
// the default fuel type.
func QueryFuelType(raw string) types.FuelType {
	f, err := types.ParseFuelType(raw)
	if err != nil {
		return types.DefaultFuelType
	}
	return f
}

// Finder joins provider search results with stored community prices.
type Finder struct {
	provider places.Provider
	repo     repository.PriceRepository
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewFinder(provider places.Provider, repo repository.PriceRepository, timeout time.Duration, logger *slog.Logger) *Finder {
	return &Finder{
		provider: provider,
		repo:     repo,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// FindStations returns genuine gas stations around q ordered by distance,
// each carrying its freshest in-window price for q.FuelType.
func (f *Finder) FindStations(ctx context.Context, q Query) ([]types.Station, error) {
	// Written as negated ranges so NaN fails too.
	if !(q.Lat >= -90 && q.Lat <= 90) || !(q.Lng >= -180 && q.Lng <= 180) {
		return nil, invalidInput("invalid coordinates")
	}
	if !(q.RadiusMeters >= MinRadiusMeters && q.RadiusMeters <= MaxRadiusMeters) {
		return nil, invalidInput(fmt.Sprintf("radius must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters))
	}
	if !q.FuelType.Valid() {
		q.FuelType = types.DefaultFuelType
	}

	found, err := f.search(ctx, q)
	if err != nil {
		return nil, err
	}

	asOf := f.now()
	stations := make([]types.Station, 0, len(found))
	for _, p := range found {
		if !IsGenuineStation(p) {
			continue
		}
		obs, err := f.repo.LatestObservation(ctx, p.ID, q.FuelType, asOf)
		if err != nil {
			return nil, storageFault("failed to load prices", err)
		}
		stations = append(stations, types.Station{
			ID:            p.ID,
			Name:          p.Name,
			Address:       p.Address,
			Lat:           p.Lat,
			Lng:           p.Lng,
			Rating:        p.Rating,
			IsOpen:        p.OpenNow,
			DistanceMiles: geo.DistanceMiles(q.Lat, q.Lng, p.Lat, p.Lng),
			CurrentPrice:  obs,
		})
	}

	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].DistanceMiles < stations[j].DistanceMiles
	})

	f.logger.Debug("stations found",
		"radius_miles", geo.MetersToMiles(q.RadiusMeters),
		"provider_results", len(found),
		"stations", len(stations),
		"fuel_type", q.FuelType,
	)
	return stations, nil
}

func (f *Finder) search(ctx context.Context, q Query) ([]places.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	found, err := f.provider.NearbySearch(ctx, places.NearbyRequest{
		Lat:          q.Lat,
		Lng:          q.Lng,
		RadiusMeters: q.RadiusMeters,
		Type:         places.TypeGasStation,
	})
	if err == nil {
		return found, nil
	}

	var statusErr *places.StatusError
	if errors.As(err, &statusErr) {
		f.logger.Warn("places provider returned error status", "status", statusErr.Status, "error", err)
		return nil, &Error{
			Kind:    KindUpstreamError,
			Message: "places provider error: " + statusErr.Status,
			Status:  statusErr.Status,
			Err:     err,
		}
	}

	f.logger.Warn("places provider unreachable", "timeout", f.timeout, "error", err)
	return nil, &Error{Kind: KindUpstreamTimeout, Message: "request timeout", Err: err}
}
