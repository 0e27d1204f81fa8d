package prices

import (
	"context"
	"log/slog"

	"gasfinder-server/internal/modules/prices/service"
	"gasfinder-server/internal/modules/prices/types"
	"gasfinder-server/internal/mqtt"
)

// MQTTSubscriber is the part of the subscriber the module needs.
type MQTTSubscriber interface {
	SetReportHandler(handler mqtt.ReportHandler)
}

type submitter interface {
	Submit(ctx context.Context, sub service.Submission) (types.PriceObservation, error)
}

// registerMQTTHandler routes station feed reports through the same
// validation as HTTP submissions.
func registerMQTTHandler(subscriber MQTTSubscriber, s submitter, logger *slog.Logger) {
	subscriber.SetReportHandler(func(ctx context.Context, report types.PriceReport) error {
		logger.Debug("processing price report",
			"station_id", report.StationID,
			"fuel_type", report.FuelType,
		)

		obs, err := s.Submit(ctx, service.Submission{
			StationID: report.StationID,
			Price:     report.Price.String(),
			FuelType:  report.FuelType,
			Source:    types.SourceMQTT,
		})
		if err != nil {
			logger.Warn("price report rejected",
				"station_id", report.StationID,
				"kind", service.KindOf(err),
				"error", err,
			)
			return err
		}

		logger.Debug("stored price report",
			"station_id", obs.StationID,
			"id", obs.ID,
		)
		return nil
	})
}
