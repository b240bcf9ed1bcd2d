package airquality

import (
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"airwatch/internal/config"
	"airwatch/internal/modules/airquality/controller"
	"airwatch/internal/modules/airquality/geo"
	"airwatch/internal/modules/airquality/gios"
	"airwatch/internal/modules/airquality/repository"
	"airwatch/internal/modules/airquality/service"
)

// RegisterFeature wires the air quality module onto mux. When subscriber is
// not nil, telemetry it receives is stored as measurements.
func RegisterFeature(mux *http.ServeMux, db *sqlx.DB, cfg config.Config, subscriber service.MQTTSubscriber, logger *slog.Logger) {
	repo := repository.NewRepository(db)
	api := gios.NewClient(cfg.GIOSBaseURL, cfg.UpstreamTimeout)
	svc := service.NewService(repo, api)

	if subscriber != nil {
		svc.Register(subscriber, logger)
	}

	ctrl := controller.NewAirQualityController(repo, api, NewGeocoder(cfg), svc)
	ctrl.RegisterRoutes(mux)
}

// NewGeocoder returns the geocoding backend selected by cfg.Geocoder.
func NewGeocoder(cfg config.Config) geo.Geocoder {
	switch cfg.Geocoder {
	case config.GeocoderOverpass:
		return geo.NewOverpass(cfg.OverpassURL, cfg.UpstreamTimeout)
	default:
		return geo.NewNominatim(cfg.NominatimURL, cfg.GeocoderUserAgent, cfg.UpstreamTimeout)
	}
}
