package gios

import (
	"context"
	"fmt"

	"airwatch/internal/modules/airquality/types"
)

// Scope memoises station and sensor lists for the lifetime of one request.
// It is not safe for concurrent use and must not outlive the request.
type Scope struct {
	api      API
	stations []types.Station
	loaded   bool
	sensors  map[int][]types.Sensor
}

func NewScope(api API) *Scope {
	return &Scope{
		api:     api,
		sensors: make(map[int][]types.Sensor),
	}
}

func (s *Scope) Stations(ctx context.Context) ([]types.Station, error) {
	if s.loaded {
		return s.stations, nil
	}
	stations, err := s.api.Stations(ctx)
	if err != nil {
		return nil, err
	}
	s.stations = stations
	s.loaded = true
	return stations, nil
}

func (s *Scope) StationsByCity(ctx context.Context, city string) ([]types.Station, error) {
	stations, err := s.Stations(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByCity(stations, city), nil
}

// Station looks a station up by id in the station list.
func (s *Scope) Station(ctx context.Context, id int) (types.Station, error) {
	stations, err := s.Stations(ctx)
	if err != nil {
		return types.Station{}, err
	}
	for _, st := range stations {
		if st.ID == id {
			return st, nil
		}
	}
	return types.Station{}, fmt.Errorf("station %d: %w", id, ErrNotFound)
}

func (s *Scope) Sensors(ctx context.Context, stationID int) ([]types.Sensor, error) {
	if sensors, ok := s.sensors[stationID]; ok {
		return sensors, nil
	}
	sensors, err := s.api.Sensors(ctx, stationID)
	if err != nil {
		return nil, err
	}
	s.sensors[stationID] = sensors
	return sensors, nil
}

// Sensor looks a sensor up among the sensors of its station.
func (s *Scope) Sensor(ctx context.Context, stationID, sensorID int) (types.Sensor, error) {
	sensors, err := s.Sensors(ctx, stationID)
	if err != nil {
		return types.Sensor{}, err
	}
	for _, sn := range sensors {
		if sn.ID == sensorID {
			return sn, nil
		}
	}
	return types.Sensor{}, fmt.Errorf("sensor %d of station %d: %w", sensorID, stationID, ErrNotFound)
}

// Measurements is never memoised.
func (s *Scope) Measurements(ctx context.Context, sensorID int) ([]types.Reading, error) {
	return s.api.Measurements(ctx, sensorID)
}

func (s *Scope) StationIndex(ctx context.Context, stationID int) (types.StationIndex, error) {
	return s.api.StationIndex(ctx, stationID)
}
