package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	// SQLiteLogStatements routes every statement through the logging connector at debug level.
	SQLiteLogStatements bool

	PlacesAPIKey  string
	PlacesBaseURL string
	PlacesTimeout time.Duration

	FreshnessWindow time.Duration
	PriceMax        decimal.Decimal
	PriceFloor      decimal.Decimal
	// PriceCacheTTL enables the in-process latest-price cache when > 0.
	PriceCacheTTL time.Duration

	// MQTTBroker empty disables the price feed subscriber.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	CORSAllowedOrigin       string
	RateLimitStationsPerMin int
	RateLimitSubmitPerMin   int
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := intEnv("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationEnv("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	logStatements, err := boolEnv("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	placesTimeout, err := durationEnv("PLACES_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	if placesTimeout <= 0 {
		return Config{}, fmt.Errorf("PLACES_TIMEOUT must be > 0, got %s", placesTimeout)
	}

	window, err := durationEnv("PRICE_FRESHNESS_WINDOW", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	if window <= 0 {
		return Config{}, fmt.Errorf("PRICE_FRESHNESS_WINDOW must be > 0, got %s", window)
	}

	priceMax, err := decimalEnv("PRICE_MAX", "20")
	if err != nil {
		return Config{}, err
	}
	priceFloor, err := decimalEnv("PRICE_FLOOR", "1")
	if err != nil {
		return Config{}, err
	}
	if !priceFloor.IsPositive() || priceFloor.GreaterThan(priceMax) {
		return Config{}, fmt.Errorf("PRICE_FLOOR %s must be > 0 and <= PRICE_MAX %s", priceFloor, priceMax)
	}

	cacheTTL, err := durationEnv("PRICE_CACHE_TTL", 0)
	if err != nil {
		return Config{}, err
	}
	if cacheTTL < 0 || cacheTTL > window {
		return Config{}, fmt.Errorf("PRICE_CACHE_TTL %s must be between 0 and PRICE_FRESHNESS_WINDOW %s", cacheTTL, window)
	}

	mqttPort, err := intEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "gasfinder-" + uuid.NewString()
	}

	stationsPerMin, err := intEnv("RATE_LIMIT_STATIONS_PER_MIN", 30)
	if err != nil {
		return Config{}, err
	}
	submitPerMin, err := intEnv("RATE_LIMIT_SUBMIT_PER_MIN", 20)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		SQLiteDriver:          envOr("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOr("SQLITE_PATH", "data/gas_prices.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogStatements:   logStatements,

		PlacesAPIKey:  strings.TrimSpace(os.Getenv("GOOGLE_PLACES_API_KEY")),
		PlacesBaseURL: strings.TrimRight(envOr("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"), "/"),
		PlacesTimeout: placesTimeout,

		FreshnessWindow: window,
		PriceMax:        priceMax,
		PriceFloor:      priceFloor,
		PriceCacheTTL:   cacheTTL,

		MQTTBroker:   strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:     mqttPort,
		MQTTClientID: mqttClientID,
		MQTTTopic:    envOr("MQTT_TOPIC", "stations/+/prices"),

		CORSAllowedOrigin:       envOr("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitStationsPerMin: stationsPerMin,
		RateLimitSubmitPerMin:   submitPerMin,
	}

	if cfg.AppEnv == "prod" && cfg.PlacesAPIKey == "" {
		return Config{}, errors.New("GOOGLE_PLACES_API_KEY is required when APP_ENV=prod")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func decimalEnv(key string, fallback string) (decimal.Decimal, error) {
	s := envOr(key, fallback)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
