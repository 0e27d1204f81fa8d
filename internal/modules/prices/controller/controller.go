package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gasfinder-server/internal/httpapi"
	"gasfinder-server/internal/modules/prices/service"
	"gasfinder-server/internal/modules/prices/types"
)

type StationFinder interface {
	FindStations(ctx context.Context, q service.Query) ([]types.Station, error)
}

type PriceSubmitter interface {
	Submit(ctx context.Context, sub service.Submission) (types.PriceObservation, error)
}

type PriceController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Limits holds the per-route middleware, typically rate limiters.
type Limits struct {
	Stations httpapi.Middleware
	Submit   httpapi.Middleware
}

type priceControllerImpl struct {
	finder    StationFinder
	submitter PriceSubmitter
	limits    Limits
	logger    *slog.Logger
	now       func() time.Time
}

func NewPriceController(finder StationFinder, submitter PriceSubmitter, limits Limits, logger *slog.Logger) PriceController {
	return &priceControllerImpl{
		finder:    finder,
		submitter: submitter,
		limits:    limits,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *priceControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/gas-stations", wrap(http.HandlerFunc(c.handleGasStations), c.limits.Stations))
	mux.Handle("POST /api/submit-price", wrap(http.HandlerFunc(c.handleSubmitPrice), c.limits.Submit))
}

func wrap(h http.Handler, mw httpapi.Middleware) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}
