package service

import (
	"slices"
	"strings"

	"gasfinder-server/internal/places"
)

// nonFuelKeywords mark retail places that providers also tag as gas stations.
var nonFuelKeywords = []string{"store", "mart", "market", "shop", "pharmacy", "coffee", "restaurant"}

// IsGenuineStation reports whether a place is a fuel retailer rather than
// a shop that happens to carry the gas_station tag.
func IsGenuineStation(p places.Place) bool {
	if !slices.Contains(p.Types, places.TypeGasStation) {
		return false
	}
	name := strings.ToLower(p.Name)
	if strings.Contains(name, "gas") || strings.Contains(name, "fuel") {
		return true
	}
	for _, kw := range nonFuelKeywords {
		if strings.Contains(name, kw) {
			return false
		}
	}
	return true
}
