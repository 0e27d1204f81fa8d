package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gasfinder-server/internal/config"
	"gasfinder-server/internal/db"
	"gasfinder-server/internal/httpapi"
	"gasfinder-server/internal/migrate"
	"gasfinder-server/internal/modules/prices"
	"gasfinder-server/internal/modules/prices/controller"
	"gasfinder-server/internal/mqtt"
	"gasfinder-server/internal/places"
)

// Run serves until ctx is cancelled or the HTTP server fails.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"placesBaseURL", cfg.PlacesBaseURL,
		"placesTimeout", cfg.PlacesTimeout,
		"freshnessWindow", cfg.FreshnessWindow,
		"priceCacheTTL", cfg.PriceCacheTTL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	if cfg.PlacesAPIKey == "" {
		logger.Warn("GOOGLE_PLACES_API_KEY is not set; station searches will fail upstream")
	}

	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready")

	// Keep the interfaces nil (not typed-nil) when MQTT is off.
	var (
		subscriber   *mqtt.Subscriber
		reportSource prices.MQTTSubscriber
		mqttStatus   httpapi.ConnectionStatus
	)
	if cfg.MQTTEnabled() {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		reportSource = subscriber
		mqttStatus = subscriber
	}

	stationsLimiter := httpapi.NewRateLimiter(cfg.RateLimitStationsPerMin)
	defer stationsLimiter.Close()
	submitLimiter := httpapi.NewRateLimiter(cfg.RateLimitSubmitPerMin)
	defer submitLimiter.Close()

	provider := places.NewClient(cfg.PlacesAPIKey, cfg.PlacesBaseURL, cfg.PlacesTimeout)

	mux := httpapi.NewMux(dbConn, mqttStatus)
	// The report handler is set here, before Connect, so the first
	// deliveries after subscribing are processed.
	feature := prices.RegisterFeature(mux, dbConn, provider, reportSource, controller.Limits{
		Stations: stationsLimiter.Middleware,
		Submit:   submitLimiter.Middleware,
	}, cfg, logger)
	defer feature.Close()

	if subscriber != nil {
		// Short initial timeout so a missing broker does not block startup.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if subscriber != nil {
			subscriber.Disconnect()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
