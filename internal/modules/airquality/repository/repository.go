package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"airwatch/internal/modules/airquality/types"
)

//go:embed sql/list-stations.sql
var listStationsSQL string

//go:embed sql/get-station.sql
var getStationSQL string

//go:embed sql/list-sensors.sql
var listSensorsSQL string

//go:embed sql/list-measurements.sql
var listMeasurementsSQL string

//go:embed sql/list-station-indexes.sql
var listStationIndexesSQL string

//go:embed sql/insert-city.sql
var insertCitySQL string

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/insert-sensor.sql
var insertSensorSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/upsert-measurement.sql
var upsertMeasurementSQL string

//go:embed sql/insert-station-index.sql
var insertStationIndexSQL string

//go:embed sql/count-sensor.sql
var countSensorSQL string

var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownSensor = errors.New("unknown sensor")
)

// Snapshot is what the live sensor view persists in one save: the station and
// sensor it shows, the readings on screen and the station's current index.
type Snapshot struct {
	Station  types.Station
	Sensor   types.Sensor
	Readings []types.Reading
	Index    *types.StationIndex
}

// SaveResult reports which parts of a Snapshot were new.
type SaveResult struct {
	CityCreated      bool `json:"cityCreated"`
	StationCreated   bool `json:"stationCreated"`
	SensorCreated    bool `json:"sensorCreated"`
	ReadingsInserted int  `json:"readingsInserted"`
	IndexInserted    bool `json:"indexInserted"`
}

type AirQualityRepository interface {
	ListStations(ctx context.Context) ([]types.Station, error)
	GetStation(ctx context.Context, id int) (types.Station, error)
	ListSensors(ctx context.Context, stationID int) ([]types.Sensor, error)
	ListMeasurements(ctx context.Context, sensorID int) ([]types.Reading, error)
	ListStationIndexes(ctx context.Context, stationID int) ([]types.StationIndex, error)
	SaveSnapshot(ctx context.Context, snap Snapshot) (SaveResult, error)
	InsertMeasurement(ctx context.Context, reading types.Reading) error
}

type repositoryImpl struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) AirQualityRepository {
	return &repositoryImpl{db: db}
}

type stationRow struct {
	ID           int    `db:"id"`
	Code         string `db:"code"`
	Name         string `db:"name"`
	Latitude     string `db:"latitude"`
	Longitude    string `db:"longitude"`
	Street       string `db:"street"`
	CityID       int    `db:"city_id"`
	CityName     string `db:"city_name"`
	CityCommune  string `db:"city_commune"`
	CityDistrict string `db:"city_district"`
	CityProvince string `db:"city_province"`
}

func (r stationRow) station() types.Station {
	return types.Station{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Street:    r.Street,
		City: types.City{
			ID:       r.CityID,
			Name:     r.CityName,
			Commune:  r.CityCommune,
			District: r.CityDistrict,
			Province: r.CityProvince,
		},
	}
}

func (r *repositoryImpl) ListStations(ctx context.Context) ([]types.Station, error) {
	var rows []stationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(listStationsSQL)); err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	out := make([]types.Station, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.station())
	}
	return out, nil
}

func (r *repositoryImpl) GetStation(ctx context.Context, id int) (types.Station, error) {
	var row stationRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(getStationSQL), id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Station{}, fmt.Errorf("get station %d: %w", id, err)
	}
	return row.station(), nil
}

func (r *repositoryImpl) ListSensors(ctx context.Context, stationID int) ([]types.Sensor, error) {
	out := make([]types.Sensor, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(listSensorsSQL), stationID); err != nil {
		return nil, fmt.Errorf("list sensors of station %d: %w", stationID, err)
	}
	return out, nil
}

// ListMeasurements returns the stored readings of a sensor, newest first, the
// same order the live feed uses.
func (r *repositoryImpl) ListMeasurements(ctx context.Context, sensorID int) ([]types.Reading, error) {
	out := make([]types.Reading, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(listMeasurementsSQL), sensorID); err != nil {
		return nil, fmt.Errorf("list measurements of sensor %d: %w", sensorID, err)
	}
	return out, nil
}

func (r *repositoryImpl) ListStationIndexes(ctx context.Context, stationID int) ([]types.StationIndex, error) {
	out := make([]types.StationIndex, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(listStationIndexesSQL), stationID); err != nil {
		return nil, fmt.Errorf("list indexes of station %d: %w", stationID, err)
	}
	return out, nil
}

// SaveSnapshot stores a snapshot in one transaction. The city, station and
// sensor are created when missing and left untouched otherwise; readings and
// the index are added only when not already stored for the same date.
func (r *repositoryImpl) SaveSnapshot(ctx context.Context, snap Snapshot) (SaveResult, error) {
	var res SaveResult
	if snap.Station.ID <= 0 {
		return res, errors.New("save snapshot: station id is required")
	}
	if snap.Sensor.ID <= 0 {
		return res, errors.New("save snapshot: sensor id is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	st := snap.Station
	var cityID any
	if st.City.ID > 0 {
		cityID = st.City.ID
		res.CityCreated, err = execCreated(ctx, tx, insertCitySQL,
			st.City.ID, st.City.Name, st.City.Commune, st.City.District, st.City.Province)
		if err != nil {
			return SaveResult{}, fmt.Errorf("insert city %d: %w", st.City.ID, err)
		}
	}

	res.StationCreated, err = execCreated(ctx, tx, insertStationSQL,
		st.ID, st.Code, st.Name, st.Latitude, st.Longitude, st.Street, cityID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("insert station %d: %w", st.ID, err)
	}

	sn := snap.Sensor
	res.SensorCreated, err = execCreated(ctx, tx, insertSensorSQL,
		sn.ID, st.ID, sn.Indicator, sn.IndicatorFormula, sn.IndicatorCode, sn.IndicatorID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("insert sensor %d: %w", sn.ID, err)
	}

	for _, reading := range snap.Readings {
		if reading.Date == "" {
			continue
		}
		created, err := execCreated(ctx, tx, insertMeasurementSQL,
			sn.ID, reading.StationCode, reading.Date, reading.Value)
		if err != nil {
			return SaveResult{}, fmt.Errorf("insert measurement %s: %w", reading.Date, err)
		}
		if created {
			res.ReadingsInserted++
		}
	}

	if idx := snap.Index; idx != nil && idx.CalculationDate != "" {
		res.IndexInserted, err = execCreated(ctx, tx, insertStationIndexSQL,
			st.ID, idx.CalculationDate, idx.Value, idx.Category, idx.SourceDate)
		if err != nil {
			return SaveResult{}, fmt.Errorf("insert index %s: %w", idx.CalculationDate, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// InsertMeasurement stores a single reading of a known sensor. A reading for
// the same sensor and date is replaced.
func (r *repositoryImpl) InsertMeasurement(ctx context.Context, reading types.Reading) error {
	if reading.Date == "" {
		return errors.New("insert measurement: date is required")
	}
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(countSensorSQL), reading.SensorID); err != nil {
		return fmt.Errorf("lookup sensor %d: %w", reading.SensorID, err)
	}
	if n == 0 {
		return fmt.Errorf("sensor %d: %w", reading.SensorID, ErrUnknownSensor)
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertMeasurementSQL),
		reading.SensorID, reading.StationCode, reading.Date, reading.Value)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// execCreated runs an insert-if-missing statement and reports whether a row
// was written.
func execCreated(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (bool, error) {
	result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
