package controller

import (
	"errors"
	"net/http"

	"gasfinder-server/internal/modules/prices/service"
	"gasfinder-server/internal/modules/prices/types"
	"gasfinder-server/internal/utils"
)

type stationsResponse struct {
	Stations []stationView `json:"stations"`
	Count    int           `json:"count"`
	FuelType string        `json:"fuelType"`
}

type submitRequest struct {
	StationID string        `json:"station_id"`
	PlaceID   string        `json:"place_id"`
	Price     flexibleValue `json:"price"`
	FuelType  string        `json:"fuel_type"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (c *priceControllerImpl) handleGasStations(w http.ResponseWriter, r *http.Request) {
	q, err := parseStationsQuery(r)
	if err != nil {
		utils.WriteKindError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}

	stations, err := c.finder.FindStations(r.Context(), q)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	now := c.now()
	views := make([]stationView, 0, len(stations))
	for _, s := range stations {
		views = append(views, newStationView(s, now))
	}
	utils.WriteJSON(w, http.StatusOK, stationsResponse{
		Stations: views,
		Count:    len(views),
		FuelType: string(q.FuelType),
	})
}

func (c *priceControllerImpl) handleSubmitPrice(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, utils.ErrNotJSON) {
			msg = "Content-Type must be application/json"
		}
		utils.WriteKindError(w, http.StatusBadRequest, string(service.KindInvalidInput), msg)
		return
	}

	stationID := req.StationID
	if stationID == "" {
		stationID = req.PlaceID
	}

	obs, err := c.submitter.Submit(r.Context(), service.Submission{
		StationID: stationID,
		Price:     string(req.Price),
		FuelType:  req.FuelType,
		Source:    types.SourceAPI,
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, submitResponse{
		Success: true,
		Message: "Price submitted successfully",
		ID:      obs.ID,
	})
}

func (c *priceControllerImpl) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)

	msg := "internal server error"
	var se *service.Error
	if errors.As(err, &se) {
		msg = se.Message
	}

	if status >= http.StatusInternalServerError {
		c.logger.Error("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	} else {
		c.logger.Debug("request rejected", "path", r.URL.Path, "kind", kind, "error", err)
	}
	utils.WriteKindError(w, status, string(kind), msg)
}

func statusForKind(k service.Kind) int {
	switch k {
	case service.KindInvalidInput, service.KindValidation:
		return http.StatusBadRequest
	case service.KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case service.KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
