package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_LOG_SQL",
	"GIOS_BASE_URL", "UPSTREAM_TIMEOUT", "GEOCODER", "NOMINATIM_URL", "OVERPASS_URL", "GEOCODER_USER_AGENT",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
}

// clearEnv blanks every variable LoadFromEnv reads so tests see defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) || filepath.Base(got.StaticDir) != "static" {
		t.Errorf("StaticDir = %q, want absolute path ending in static", got.StaticDir)
	}
	if got.DBDriver != "sqlite3" || got.SQLitePath != "data/airwatch.db" || got.DBDSN != "" {
		t.Errorf("db = %q %q %q", got.DBDriver, got.SQLitePath, got.DBDSN)
	}
	if got.DBMaxOpenConns != 1 || got.DBMaxIdleConns != 1 || got.DBConnMaxLifetime != 0 || got.DBLogSQL {
		t.Errorf("pool = %d %d %v %v", got.DBMaxOpenConns, got.DBMaxIdleConns, got.DBConnMaxLifetime, got.DBLogSQL)
	}
	if got.UpstreamTimeout != 15*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 15s", got.UpstreamTimeout)
	}
	if got.Geocoder != "nominatim" || got.GeocoderUserAgent != "airwatch" {
		t.Errorf("geocoder = %q %q", got.Geocoder, got.GeocoderUserAgent)
	}
	if !strings.HasPrefix(got.GIOSBaseURL, "https://api.gios.gov.pl/") {
		t.Errorf("GIOSBaseURL = %q", got.GIOSBaseURL)
	}
	if got.MQTTEnabled || got.MQTTBroker != "localhost" || got.MQTTPort != 1883 || got.MQTTTopic != "airwatch/measurements" {
		t.Errorf("mqtt = %v %q %d %q", got.MQTTEnabled, got.MQTTBroker, got.MQTTPort, got.MQTTTopic)
	}
}

func TestLoadFromEnv_AppEnv(t *testing.T) {
	tests := []struct {
		name    string
		appEnv  string
		want    string
		wantErr bool
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
		{name: "staging", appEnv: "staging", wantErr: true},
		{name: "uppercase is not folded", appEnv: "DEV", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if tt.wantErr {
				if err == nil {
					t.Fatal("LoadFromEnv() error = nil, want non-nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", " 127.0.0.1:9090 ")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost/airwatch?sslmode=disable")
	t.Setenv("DB_MAX_OPEN_CONNS", "8")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	t.Setenv("DB_LOG_SQL", "true")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("GEOCODER", "Overpass")
	t.Setenv("MQTT_ENABLED", "1")
	t.Setenv("MQTT_PORT", "8883")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if got.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("HTTPAddr = %q", got.HTTPAddr)
	}
	if got.DBDriver != "postgres" || got.DBMaxOpenConns != 8 || got.DBConnMaxLifetime != 5*time.Minute || !got.DBLogSQL {
		t.Errorf("db = %+v", got)
	}
	if got.UpstreamTimeout != 3*time.Second {
		t.Errorf("UpstreamTimeout = %v", got.UpstreamTimeout)
	}
	if got.Geocoder != "overpass" {
		t.Errorf("Geocoder = %q, want overpass", got.Geocoder)
	}
	if !got.MQTTEnabled || got.MQTTPort != 8883 {
		t.Errorf("mqtt = %v %d", got.MQTTEnabled, got.MQTTPort)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "LOG_LEVEL", value: "verbose"},
		{key: "DB_DRIVER", value: "mysql"},
		{key: "DB_MAX_OPEN_CONNS", value: "many"},
		{key: "DB_MAX_IDLE_CONNS", value: "1.5"},
		{key: "DB_CONN_MAX_LIFETIME", value: "forever"},
		{key: "DB_LOG_SQL", value: "sometimes"},
		{key: "UPSTREAM_TIMEOUT", value: "0s"},
		{key: "UPSTREAM_TIMEOUT", value: "soon"},
		{key: "GEOCODER", value: "google"},
		{key: "MQTT_ENABLED", value: "yes please"},
		{key: "MQTT_PORT", value: "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil")
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestLoadFromEnv_PostgresRequiresDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	if _, err := LoadFromEnv(); err == nil || !strings.Contains(err.Error(), "DB_DSN") {
		t.Errorf("LoadFromEnv() error = %v, want DB_DSN error", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
