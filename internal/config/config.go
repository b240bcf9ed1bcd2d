package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	GeocoderNominatim = "nominatim"
	GeocoderOverpass  = "overpass"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Relative STATIC_DIR values are resolved against the working directory.
	StaticDir string

	DBDriver          string
	DBDSN             string
	SQLitePath        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogSQL          bool

	GIOSBaseURL     string
	UpstreamTimeout time.Duration

	Geocoder          string
	NominatimURL      string
	OverpassURL       string
	GeocoderUserAgent string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	staticDir := env("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	driver := env("DB_DRIVER", "sqlite3")
	switch driver {
	case "sqlite3", "postgres":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, postgres)", driver)
	}
	dsn := env("DB_DSN", "")
	if driver == "postgres" && dsn == "" {
		return Config{}, fmt.Errorf("DB_DSN is required when DB_DRIVER=postgres")
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	upstreamTimeout, err := envDuration("UPSTREAM_TIMEOUT", "15s")
	if err != nil {
		return Config{}, err
	}
	if upstreamTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT %s: must be > 0", upstreamTimeout)
	}

	geocoder := strings.ToLower(env("GEOCODER", GeocoderNominatim))
	switch geocoder {
	case GeocoderNominatim, GeocoderOverpass:
	default:
		return Config{}, fmt.Errorf("invalid GEOCODER %q (allowed: nominatim, overpass)", geocoder)
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		StaticDir:         staticDir,
		DBDriver:          driver,
		DBDSN:             dsn,
		SQLitePath:        env("SQLITE_PATH", "data/airwatch.db"),
		DBMaxOpenConns:    maxOpenConns,
		DBMaxIdleConns:    maxIdleConns,
		DBConnMaxLifetime: connMaxLifetime,
		DBLogSQL:          logSQL,
		GIOSBaseURL:       env("GIOS_BASE_URL", "https://api.gios.gov.pl/pjp-api/v1/rest"),
		UpstreamTimeout:   upstreamTimeout,
		Geocoder:          geocoder,
		NominatimURL:      env("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		OverpassURL:       env("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		GeocoderUserAgent: env("GEOCODER_USER_AGENT", "airwatch"),
		MQTTEnabled:       mqttEnabled,
		MQTTBroker:        env("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		MQTTTopic:         env("MQTT_TOPIC", "airwatch/measurements"),
		MQTTClientID:      env("MQTT_CLIENT_ID", "airwatch-server"),
	}, nil
}

// env returns the trimmed value of key, or def when it is unset or blank.
func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	s := env(key, "")
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := env(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
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
