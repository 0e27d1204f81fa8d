package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type FuelType string

const (
	FuelRegular  FuelType = "regular"
	FuelMidgrade FuelType = "midgrade"
	FuelPremium  FuelType = "premium"
	FuelDiesel   FuelType = "diesel"
)

// DefaultFuelType is used when a query or submission omits the fuel type.
const DefaultFuelType = FuelRegular

var fuelTypes = []FuelType{FuelRegular, FuelMidgrade, FuelPremium, FuelDiesel}

func (f FuelType) Valid() bool {
	for _, ft := range fuelTypes {
		if f == ft {
			return true
		}
	}
	return false
}

// ParseFuelType accepts exactly one of the lower-case enum values.
func ParseFuelType(s string) (FuelType, error) {
	f := FuelType(s)
	if !f.Valid() {
		return "", fmt.Errorf("invalid fuel type %q (allowed: regular, midgrade, premium, diesel)", s)
	}
	return f, nil
}

// Source records which ingestion path produced an observation.
type Source string

const (
	SourceAPI  Source = "api"
	SourceMQTT Source = "mqtt"
)

// PriceObservation is one immutable community price record.
type PriceObservation struct {
	ID         string          `json:"id"`
	StationID  string          `json:"stationId"`
	Price      decimal.Decimal `json:"price"`
	FuelType   FuelType        `json:"fuelType"`
	ObservedAt time.Time       `json:"observedAt"`
	Source     Source          `json:"source"`
}

// Station is a provider place enriched for one request. It is never persisted.
type Station struct {
	ID            string
	Name          string
	Address       string
	Lat           float64
	Lng           float64
	Rating        *float64
	IsOpen        *bool
	DistanceMiles float64
	CurrentPrice  *PriceObservation
}

// PriceReport is the payload a station feed publishes over MQTT.
// Price accepts a JSON number or a numeric string.
type PriceReport struct {
	StationID string      `json:"station_id"`
	Price     json.Number `json:"price"`
	FuelType  string      `json:"fuel_type"`
}
