package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"gasfinder-server/internal/modules/prices/service"
	"gasfinder-server/internal/modules/prices/types"

	"github.com/dustin/go-humanize"
)

func parseStationsQuery(r *http.Request) (service.Query, error) {
	q := r.URL.Query()

	latStr, lngStr := q.Get("latitude"), q.Get("longitude")
	if latStr == "" || lngStr == "" {
		return service.Query{}, errors.New("latitude and longitude required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(lat) {
		return service.Query{}, errors.New("invalid coordinate format")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || math.IsNaN(lng) {
		return service.Query{}, errors.New("invalid coordinate format")
	}

	radius := float64(service.DefaultRadiusMeters)
	if s := q.Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(radius) {
			return service.Query{}, errors.New("invalid radius")
		}
	}

	fuel := q.Get("fuel_type")
	if fuel == "" {
		fuel = q.Get("fuelType")
	}

	return service.Query{
		Lat:          lat,
		Lng:          lng,
		RadiusMeters: radius,
		FuelType:     service.QueryFuelType(fuel),
	}, nil
}

type stationView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	Distance       string     `json:"distance"`
	DistanceMiles  float64    `json:"distanceMiles"`
	PriceDisplay   string     `json:"priceDisplay"`
	Price          *float64   `json:"price"`
	PriceAge       *string    `json:"priceAge"`
	PriceUpdatedAt *time.Time `json:"priceUpdatedAt"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Rating         *float64   `json:"rating"`
	IsOpen         *bool      `json:"isOpen"`
}

func newStationView(s types.Station, now time.Time) stationView {
	v := stationView{
		ID:            s.ID,
		Name:          s.Name,
		Address:       s.Address,
		Distance:      fmt.Sprintf("%.1f mi", s.DistanceMiles),
		DistanceMiles: math.Round(s.DistanceMiles*10) / 10,
		PriceDisplay:  "No price data",
		Latitude:      s.Lat,
		Longitude:     s.Lng,
		Rating:        s.Rating,
		IsOpen:        s.IsOpen,
	}
	if v.Name == "" {
		v.Name = "Unknown"
	}
	if v.Address == "" {
		v.Address = "N/A"
	}

	if obs := s.CurrentPrice; obs != nil {
		v.PriceDisplay = "$" + obs.Price.StringFixed(2)
		price := obs.Price.InexactFloat64()
		v.Price = &price
		age := "Updated " + humanize.RelTime(obs.ObservedAt, now, "ago", "from now")
		v.PriceAge = &age
		updated := obs.ObservedAt
		v.PriceUpdatedAt = &updated
	}
	return v
}

// flexibleValue accepts a JSON number or string and keeps its text.
type flexibleValue string

func (f *flexibleValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("price must be a number or string: %w", err)
		}
		*f = flexibleValue(n.String())
	}
	return nil
}
