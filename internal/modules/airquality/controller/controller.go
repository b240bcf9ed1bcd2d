package controller

import (
	"context"
	"net/http"

	"airwatch/internal/modules/airquality/geo"
	"airwatch/internal/modules/airquality/gios"
	"airwatch/internal/modules/airquality/repository"
)

// SnapshotSaver persists the current state of a live sensor.
type SnapshotSaver interface {
	SaveSensorSnapshot(ctx context.Context, scope *gios.Scope, stationID, sensorID int) (repository.SaveResult, error)
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	repository repository.AirQualityRepository
	api        gios.API
	geocoder   geo.Geocoder
	saver      SnapshotSaver
}

func NewAirQualityController(repository repository.AirQualityRepository, api gios.API, geocoder geo.Geocoder, saver SnapshotSaver) AirQualityController {
	return &airQualityControllerImpl{
		repository: repository,
		api:        api,
		geocoder:   geocoder,
		saver:      saver,
	}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleHome)
	mux.HandleFunc("GET /live", c.handleLiveStations)
	mux.HandleFunc("GET /archive", c.handleArchiveStations)
	mux.HandleFunc("GET /city", c.handleCityStations)
	mux.HandleFunc("GET /nearby", c.handleNearbyStations)

	mux.HandleFunc("GET /live/{stationID}", c.handleLiveStation)
	mux.HandleFunc("GET /live/{stationID}/{sensorID}", c.handleLiveSensor)
	mux.HandleFunc("POST /live/{stationID}/{sensorID}/save", c.handleSaveSnapshot)

	mux.HandleFunc("GET /archive/{stationID}", c.handleArchiveStation)
	mux.HandleFunc("GET /archive/{stationID}/{sensorID}", c.handleArchiveSensor)
	mux.HandleFunc("GET /archive/{stationID}/{sensorID}/filtered", c.handleArchiveSensorFiltered)

	mux.HandleFunc("GET /api/v1/stations", c.handleAPIStations)
	mux.HandleFunc("GET /api/v1/sensors/{sensorID}/summary", c.handleAPISensorSummary)
}
