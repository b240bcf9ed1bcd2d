package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"airwatch/internal/modules/airquality/geo"
	"airwatch/internal/modules/airquality/gios"
	"airwatch/internal/modules/airquality/repository"
	"airwatch/internal/modules/airquality/stats"
	"airwatch/internal/modules/airquality/types"
	"airwatch/internal/modules/airquality/views"
	"airwatch/internal/utils"
)

func writePage(w http.ResponseWriter, name string, render func(io.Writer) error) {
	if err := utils.WriteHTML(w, http.StatusOK, render); err != nil {
		slog.Error("template render failed", "page", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

// liveStations returns the upstream station list, or an empty list when the
// upstream is unavailable.
func liveStations(ctx context.Context, scope *gios.Scope) []types.Station {
	stations, err := scope.Stations(ctx)
	if err != nil {
		slog.WarnContext(ctx, "fetch stations failed", "error", err)
		return []types.Station{}
	}
	return stations
}

func summarize(readings []types.Reading) *stats.Summary {
	s, err := stats.New(readings).Summarize()
	if err != nil {
		return nil
	}
	return &s
}

func (c *airQualityControllerImpl) renderStations(w http.ResponseWriter, r *http.Request, data views.StationsData, selector geo.Selector) {
	data.Stations = selector.Select(r.Context(), data.Stations)
	data.Map = views.NewMap(data.Stations)
	writePage(w, "stations", func(out io.Writer) error { return views.RenderStations(out, &data) })
}

func (c *airQualityControllerImpl) handleHome(w http.ResponseWriter, r *http.Request) {
	writePage(w, "home", views.RenderHome)
}

func (c *airQualityControllerImpl) handleLiveStations(w http.ResponseWriter, r *http.Request) {
	scope := gios.NewScope(c.api)
	c.renderStations(w, r, views.StationsData{
		Title:    "Live stations",
		Source:   views.SourceLive,
		Stations: liveStations(r.Context(), scope),
	}, geo.All{})
}

func (c *airQualityControllerImpl) handleArchiveStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.ListStations(r.Context())
	if err != nil {
		slog.Error("archive: list stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	c.renderStations(w, r, views.StationsData{
		Title:    "Archived stations",
		Source:   views.SourceArchive,
		Stations: stations,
	}, geo.All{})
}

func (c *airQualityControllerImpl) handleCityStations(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(r.URL.Query().Get("city"))
	stations := []types.Station{}
	if city != "" {
		scope := gios.NewScope(c.api)
		var err error
		stations, err = scope.StationsByCity(r.Context(), city)
		if err != nil {
			slog.WarnContext(r.Context(), "fetch stations by city failed", "city", city, "error", err)
			stations = []types.Station{}
		}
	}
	c.renderStations(w, r, views.StationsData{
		Title:    "Stations by city",
		Source:   views.SourceLive,
		Stations: stations,
		Search:   "city",
		City:     city,
	}, geo.All{})
}

func (c *airQualityControllerImpl) handleNearbyStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := strings.TrimSpace(q.Get("location"))
	radius := parseRadius(q.Get("radius"))

	stations := []types.Station{}
	if location != "" && radius > 0 {
		stations = liveStations(r.Context(), gios.NewScope(c.api))
	}
	c.renderStations(w, r, views.StationsData{
		Title:    "Nearby stations",
		Source:   views.SourceLive,
		Stations: stations,
		Search:   "nearby",
		Location: location,
		Radius:   q.Get("radius"),
	}, geo.NewFilter(c.geocoder, nil, location, radius))
}

// liveLookupFailed writes the response for a failed upstream station or
// sensor lookup.
func liveLookupFailed(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, gios.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, what+" not found")
		return
	}
	slog.WarnContext(r.Context(), "live lookup failed", "what", what, "error", err)
	utils.WriteError(w, http.StatusBadGateway, "air quality service unavailable")
}

func (c *airQualityControllerImpl) handleLiveStation(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	scope := gios.NewScope(c.api)
	station, err := scope.Station(ctx, stationID)
	if err != nil {
		liveLookupFailed(w, r, "station", err)
		return
	}

	sensors, err := scope.Sensors(ctx, stationID)
	if err != nil {
		slog.WarnContext(ctx, "fetch sensors failed", "station_id", stationID, "error", err)
		sensors = []types.Sensor{}
	}

	data := views.StationData{Source: views.SourceLive, Station: station, Sensors: sensors}
	index, err := scope.StationIndex(ctx, stationID)
	switch {
	case err == nil:
		data.Index = &index
	case !errors.Is(err, gios.ErrNotFound):
		slog.WarnContext(ctx, "fetch station index failed", "station_id", stationID, "error", err)
	}

	writePage(w, "station", func(out io.Writer) error { return views.RenderStation(out, &data) })
}

func (c *airQualityControllerImpl) handleLiveSensor(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	scope := gios.NewScope(c.api)
	station, err := scope.Station(ctx, stationID)
	if err != nil {
		liveLookupFailed(w, r, "station", err)
		return
	}
	sensor, err := scope.Sensor(ctx, stationID, sensorID)
	if err != nil {
		liveLookupFailed(w, r, "sensor", err)
		return
	}

	readings, err := scope.Measurements(ctx, sensorID)
	if err != nil {
		slog.WarnContext(ctx, "fetch measurements failed", "sensor_id", sensorID, "error", err)
		readings = []types.Reading{}
	}

	data := views.SensorData{
		Source:   views.SourceLive,
		Station:  station,
		Sensor:   sensor,
		Readings: readings,
		Summary:  summarize(readings),
		Saved:    savedResult(r),
	}
	writePage(w, "sensor", func(out io.Writer) error { return views.RenderSensor(out, &data) })
}

func (c *airQualityControllerImpl) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := c.saver.SaveSensorSnapshot(r.Context(), gios.NewScope(c.api), stationID, sensorID)
	if err != nil {
		if errors.Is(err, gios.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "station or sensor not found")
			return
		}
		slog.Error("save snapshot failed", "station_id", stationID, "sensor_id", sensorID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	http.Redirect(w, r, views.SensorURL(views.SourceLive, stationID, sensorID)+savedQuery(res), http.StatusSeeOther)
}

// archiveLookupFailed writes the response for a failed repository lookup.
func archiveLookupFailed(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, what+" not found")
		return
	}
	slog.Error("archive lookup failed", "what", what, "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to load "+what)
}

func (c *airQualityControllerImpl) handleArchiveStation(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	station, err := c.repository.GetStation(ctx, stationID)
	if err != nil {
		archiveLookupFailed(w, "station", err)
		return
	}
	sensors, err := c.repository.ListSensors(ctx, stationID)
	if err != nil {
		archiveLookupFailed(w, "sensors", err)
		return
	}
	indexes, err := c.repository.ListStationIndexes(ctx, stationID)
	if err != nil {
		archiveLookupFailed(w, "indexes", err)
		return
	}

	data := views.StationData{Source: views.SourceArchive, Station: station, Sensors: sensors, Indexes: indexes}
	writePage(w, "station", func(out io.Writer) error { return views.RenderStation(out, &data) })
}

// archiveSensor loads a stored station, sensor and its readings. It writes
// the error response itself and reports false on failure.
func (c *airQualityControllerImpl) archiveSensor(w http.ResponseWriter, r *http.Request) (views.SensorData, bool) {
	stationID, err := pathID(r, "stationID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return views.SensorData{}, false
	}
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return views.SensorData{}, false
	}

	ctx := r.Context()
	station, err := c.repository.GetStation(ctx, stationID)
	if err != nil {
		archiveLookupFailed(w, "station", err)
		return views.SensorData{}, false
	}
	sensors, err := c.repository.ListSensors(ctx, stationID)
	if err != nil {
		archiveLookupFailed(w, "sensors", err)
		return views.SensorData{}, false
	}
	var sensor *types.Sensor
	for i := range sensors {
		if sensors[i].ID == sensorID {
			sensor = &sensors[i]
			break
		}
	}
	if sensor == nil {
		utils.WriteError(w, http.StatusNotFound, "sensor not found")
		return views.SensorData{}, false
	}
	readings, err := c.repository.ListMeasurements(ctx, sensorID)
	if err != nil {
		archiveLookupFailed(w, "measurements", err)
		return views.SensorData{}, false
	}

	return views.SensorData{
		Source:   views.SourceArchive,
		Station:  station,
		Sensor:   *sensor,
		Readings: readings,
	}, true
}

func (c *airQualityControllerImpl) handleArchiveSensor(w http.ResponseWriter, r *http.Request) {
	data, ok := c.archiveSensor(w, r)
	if !ok {
		return
	}
	data.Summary = summarize(data.Readings)
	writePage(w, "sensor", func(out io.Writer) error { return views.RenderSensor(out, &data) })
}

func (c *airQualityControllerImpl) handleArchiveSensorFiltered(w http.ResponseWriter, r *http.Request) {
	data, ok := c.archiveSensor(w, r)
	if !ok {
		return
	}
	if start, end, ok := dateBounds(r); ok {
		data.Readings = stats.InDateRange(data.Readings, start, end)
		data.Filtered = true
		data.StartDate = start
		data.EndDate = end
	}
	data.Summary = summarize(data.Readings)
	writePage(w, "sensor", func(out io.Writer) error { return views.RenderSensor(out, &data) })
}

func (c *airQualityControllerImpl) handleAPIStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := strings.TrimSpace(q.Get("location"))
	radius, err := parseStrictRadius(q.Get("radius"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var selector geo.Selector = geo.All{}
	if location != "" || q.Has("radius") {
		selector = geo.NewFilter(c.geocoder, nil, location, radius)
	}
	stations := selector.Select(r.Context(), liveStations(r.Context(), gios.NewScope(c.api)))
	utils.WriteJSON(w, http.StatusOK, stations)
}

type sensorSummaryResponse struct {
	SensorID int           `json:"sensorId"`
	Count    int           `json:"count"`
	Summary  stats.Summary `json:"summary"`
}

func (c *airQualityControllerImpl) handleAPISensorSummary(w http.ResponseWriter, r *http.Request) {
	sensorID, err := pathID(r, "sensorID")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings, err := c.api.Measurements(r.Context(), sensorID)
	if err != nil {
		liveLookupFailed(w, r, "sensor", err)
		return
	}

	calc := stats.New(readings)
	summary, err := calc.Summarize()
	if errors.Is(err, stats.ErrInsufficientData) {
		utils.WriteError(w, http.StatusUnprocessableEntity, "insufficient data")
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, sensorSummaryResponse{
		SensorID: sensorID,
		Count:    calc.Count(),
		Summary:  summary,
	})
}
