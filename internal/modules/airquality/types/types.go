package types

// City is the administrative location of a station. Only used for labelling.
type City struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Commune  string `json:"commune" db:"commune"`
	District string `json:"district" db:"district"`
	Province string `json:"province" db:"province"`
}

// Station is a monitoring station. Coordinates stay as delivered upstream and
// are only parsed by the geo filter.
type Station struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Street    string `json:"street,omitempty"`
	City      City   `json:"city"`
}

// Sensor is a measurement position of a station for one indicator (PM10, NO2, ...).
type Sensor struct {
	ID               int    `json:"id" db:"id"`
	StationID        int    `json:"stationId" db:"station_id"`
	Indicator        string `json:"indicator" db:"indicator"`
	IndicatorFormula string `json:"indicatorFormula,omitempty" db:"indicator_formula"`
	IndicatorCode    string `json:"indicatorCode" db:"indicator_code"`
	IndicatorID      int    `json:"indicatorId" db:"indicator_id"`
}

// Reading is a single sensor measurement. Value is nil when upstream reported no value.
type Reading struct {
	SensorID    int      `json:"sensorId,omitempty" db:"sensor_id"`
	StationCode string   `json:"stationCode,omitempty" db:"station_code"`
	Date        string   `json:"date" db:"date"`
	Value       *float64 `json:"value" db:"value"`
}

// StationIndex is the air-quality index computed upstream for a station.
type StationIndex struct {
	StationID       int    `json:"stationId" db:"station_id"`
	CalculationDate string `json:"calculationDate" db:"calculation_date"`
	Value           *int   `json:"value" db:"index_value"`
	Category        string `json:"category" db:"index_category"`
	SourceDate      string `json:"sourceDate" db:"source_date"`
}

// Telemetry is a measurement pushed by a local collector over MQTT.
type Telemetry struct {
	SensorID    int      `json:"sensor_id"`
	StationCode string   `json:"station_code,omitempty"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
}

func (t Telemetry) Reading() Reading {
	return Reading{
		SensorID:    t.SensorID,
		StationCode: t.StationCode,
		Date:        t.Date,
		Value:       t.Value,
	}
}
