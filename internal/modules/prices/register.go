package prices

import (
	"database/sql"
	"log/slog"
	"net/http"

	"gasfinder-server/internal/config"
	"gasfinder-server/internal/modules/prices/controller"
	"gasfinder-server/internal/modules/prices/repository"
	"gasfinder-server/internal/modules/prices/service"
	"gasfinder-server/internal/places"
)

// Feature is the assembled prices module.
type Feature struct {
	Repository repository.PriceRepository
	Finder     *service.Finder
	Submitter  *service.Submitter
	closers    []func()
}

// Close releases background resources owned by the feature.
func (f *Feature) Close() {
	for _, c := range f.closers {
		c()
	}
}

// RegisterFeature wires the price store, services and HTTP routes onto mux.
// subscriber may be nil when MQTT ingestion is disabled.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, provider places.Provider, subscriber MQTTSubscriber, limits controller.Limits, cfg config.Config, logger *slog.Logger) *Feature {
	f := &Feature{}

	f.Repository = repository.NewRepository(db, cfg.FreshnessWindow)
	if cfg.PriceCacheTTL > 0 {
		cached := repository.NewCachedRepository(f.Repository, cfg.PriceCacheTTL, cfg.FreshnessWindow)
		f.closers = append(f.closers, cached.Close)
		f.Repository = cached
	}

	f.Finder = service.NewFinder(provider, f.Repository, cfg.PlacesTimeout, logger)
	f.Submitter = service.NewSubmitter(f.Repository, cfg.PriceMax, cfg.PriceFloor, logger)

	priceController := controller.NewPriceController(f.Finder, f.Submitter, limits, logger)
	priceController.RegisterRoutes(mux)

	if subscriber != nil {
		registerMQTTHandler(subscriber, f.Submitter, logger)
	}
	return f
}
