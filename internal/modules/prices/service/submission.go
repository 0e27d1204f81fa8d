package service

import (
	"context"
	"log/slog"
	"strings"

	"gasfinder-server/internal/modules/prices/repository"
	"gasfinder-server/internal/modules/prices/types"

	"github.com/shopspring/decimal"
)

type Submission struct {
	StationID string
	// Price is the raw submitted value; it is parsed as a decimal.
	Price    string
	FuelType string
	Source   types.Source
}

// Comparing a decimal rescales both operands, so an extreme exponent such as
// 1e-900000000 would allocate a coefficient with that many digits.
const (
	minPriceExponent = -20
	maxPriceExponent = 3
	maxPriceDigits   = 24
)

func boundedPrice(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= minPriceExponent && exp <= maxPriceExponent && d.NumDigits() <= maxPriceDigits
}

// Submitter validates community price submissions and records them.
type Submitter struct {
	repo       repository.PriceRepository
	priceMax   decimal.Decimal
	priceFloor decimal.Decimal
	logger     *slog.Logger
}

func NewSubmitter(repo repository.PriceRepository, priceMax, priceFloor decimal.Decimal, logger *slog.Logger) *Submitter {
	return &Submitter{
		repo:       repo,
		priceMax:   priceMax,
		priceFloor: priceFloor,
		logger:     logger,
	}
}

// Submit validates sub and appends it as a new observation. The first failing
// check determines the returned validation error.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (types.PriceObservation, error) {
	stationID := strings.TrimSpace(sub.StationID)
	if stationID == "" {
		return types.PriceObservation{}, validation("station id is required")
	}

	rawPrice := strings.TrimSpace(sub.Price)
	if rawPrice == "" {
		return types.PriceObservation{}, validation("price is required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil || !boundedPrice(price) {
		return types.PriceObservation{}, validation("price must be a valid number")
	}

	fuelType := types.DefaultFuelType
	if sub.FuelType != "" {
		fuelType, err = types.ParseFuelType(sub.FuelType)
		if err != nil {
			return types.PriceObservation{}, validation("invalid fuel type")
		}
	}

	if !price.IsPositive() || price.GreaterThan(s.priceMax) {
		return types.PriceObservation{}, validation("price must be greater than $0.00 and at most $" + s.priceMax.StringFixed(2))
	}
	if price.LessThan(s.priceFloor) {
		return types.PriceObservation{}, validation("price seems too low, please check and try again")
	}

	source := sub.Source
	if source == "" {
		source = types.SourceAPI
	}

	obs, err := s.repo.RecordObservation(ctx, stationID, price, fuelType, source)
	if err != nil {
		s.logger.Error("failed to record price", "station_id", stationID, "fuel_type", fuelType, "error", err)
		return types.PriceObservation{}, storageFault("failed to save price", err)
	}

	s.logger.Info("price recorded",
		"id", obs.ID,
		"station_id", obs.StationID,
		"fuel_type", obs.FuelType,
		"price", obs.Price.String(),
		"source", obs.Source,
	)
	return obs, nil
}
