package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"airwatch/internal/modules/airquality/gios"
	"airwatch/internal/modules/airquality/repository"
	"airwatch/internal/modules/airquality/types"
)

type Service struct {
	repository repository.AirQualityRepository
	api        gios.API
}

func NewService(repository repository.AirQualityRepository, api gios.API) *Service {
	return &Service{repository: repository, api: api}
}

// SaveSensorSnapshot fetches the current state of one live sensor and stores
// it. A station without a published index is saved without one.
func (s *Service) SaveSensorSnapshot(ctx context.Context, scope *gios.Scope, stationID, sensorID int) (repository.SaveResult, error) {
	if scope == nil {
		scope = gios.NewScope(s.api)
	}

	station, err := scope.Station(ctx, stationID)
	if err != nil {
		return repository.SaveResult{}, fmt.Errorf("fetch station: %w", err)
	}
	sensor, err := scope.Sensor(ctx, stationID, sensorID)
	if err != nil {
		return repository.SaveResult{}, fmt.Errorf("fetch sensor: %w", err)
	}
	readings, err := scope.Measurements(ctx, sensorID)
	if err != nil {
		return repository.SaveResult{}, fmt.Errorf("fetch measurements: %w", err)
	}

	snap := repository.Snapshot{
		Station:  station,
		Sensor:   sensor,
		Readings: readings,
	}
	index, err := scope.StationIndex(ctx, stationID)
	switch {
	case err == nil:
		snap.Index = &index
	case errors.Is(err, gios.ErrNotFound):
		slog.InfoContext(ctx, "station has no index", "station_id", stationID)
	default:
		return repository.SaveResult{}, fmt.Errorf("fetch index: %w", err)
	}

	res, err := s.repository.SaveSnapshot(ctx, snap)
	if err != nil {
		return repository.SaveResult{}, err
	}
	slog.InfoContext(ctx, "snapshot saved",
		"station_id", stationID,
		"sensor_id", sensorID,
		"readings_inserted", res.ReadingsInserted,
		"index_inserted", res.IndexInserted,
	)
	return res, nil
}

// StoreTelemetry persists a measurement received from a local collector.
func (s *Service) StoreTelemetry(ctx context.Context, t types.Telemetry) error {
	return s.repository.InsertMeasurement(ctx, t.Reading())
}
