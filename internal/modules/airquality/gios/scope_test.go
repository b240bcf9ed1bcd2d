package gios

import (
	"context"
	"errors"
	"testing"

	"airwatch/internal/modules/airquality/types"
)

type countingAPI struct {
	stations     []types.Station
	sensors      map[int][]types.Sensor
	err          error
	stationCalls int
	sensorCalls  int
	readingCalls int
}

func (a *countingAPI) Stations(context.Context) ([]types.Station, error) {
	a.stationCalls++
	return a.stations, a.err
}

func (a *countingAPI) Sensors(_ context.Context, stationID int) ([]types.Sensor, error) {
	a.sensorCalls++
	return a.sensors[stationID], a.err
}

func (a *countingAPI) Measurements(context.Context, int) ([]types.Reading, error) {
	a.readingCalls++
	return nil, a.err
}

func (a *countingAPI) StationIndex(context.Context, int) (types.StationIndex, error) {
	return types.StationIndex{}, a.err
}

func TestScope_MemoisesStationsAndSensors(t *testing.T) {
	api := &countingAPI{
		stations: []types.Station{
			{ID: 1, Name: "A", City: types.City{Name: "Kraków"}},
			{ID: 2, Name: "B", City: types.City{Name: "Gdańsk"}},
		},
		sensors: map[int][]types.Sensor{1: {{ID: 10, StationID: 1}, {ID: 11, StationID: 1}}},
	}
	scope := NewScope(api)
	ctx := context.Background()

	if _, err := scope.Stations(ctx); err != nil {
		t.Fatalf("Stations: %v", err)
	}
	st, err := scope.Station(ctx, 2)
	if err != nil || st.Name != "B" {
		t.Fatalf("Station(2) = %+v, %v", st, err)
	}
	if got, _ := scope.StationsByCity(ctx, "Kraków"); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("StationsByCity(Kraków) = %+v", got)
	}
	if api.stationCalls != 1 {
		t.Errorf("station calls = %d, want 1", api.stationCalls)
	}

	if _, err := scope.Sensors(ctx, 1); err != nil {
		t.Fatalf("Sensors: %v", err)
	}
	sn, err := scope.Sensor(ctx, 1, 11)
	if err != nil || sn.ID != 11 {
		t.Fatalf("Sensor(1, 11) = %+v, %v", sn, err)
	}
	if api.sensorCalls != 1 {
		t.Errorf("sensor calls = %d, want 1", api.sensorCalls)
	}

	_, _ = scope.Measurements(ctx, 10)
	_, _ = scope.Measurements(ctx, 10)
	if api.readingCalls != 2 {
		t.Errorf("measurement calls = %d, want 2", api.readingCalls)
	}
}

func TestScope_FreshPerInstance(t *testing.T) {
	api := &countingAPI{stations: []types.Station{{ID: 1}}}
	ctx := context.Background()

	_, _ = NewScope(api).Stations(ctx)
	_, _ = NewScope(api).Stations(ctx)
	if api.stationCalls != 2 {
		t.Errorf("station calls = %d, want 2", api.stationCalls)
	}
}

func TestScope_NotFound(t *testing.T) {
	api := &countingAPI{stations: []types.Station{{ID: 1}}, sensors: map[int][]types.Sensor{}}
	scope := NewScope(api)
	ctx := context.Background()

	if _, err := scope.Station(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Station(99) error = %v, want ErrNotFound", err)
	}
	if _, err := scope.Sensor(ctx, 1, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Sensor(1, 99) error = %v, want ErrNotFound", err)
	}
}

func TestScope_ErrorsAreNotMemoised(t *testing.T) {
	api := &countingAPI{err: errors.New("timeout")}
	scope := NewScope(api)
	ctx := context.Background()

	if _, err := scope.Stations(ctx); err == nil {
		t.Fatal("Stations: want error")
	}
	api.err = nil
	api.stations = []types.Station{{ID: 5}}
	got, err := scope.Stations(ctx)
	if err != nil || len(got) != 1 {
		t.Errorf("Stations after recovery = %+v, %v", got, err)
	}
}
