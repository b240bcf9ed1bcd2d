package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strconv"

	"airwatch/internal/modules/airquality/repository"
	"airwatch/internal/modules/airquality/stats"
	"airwatch/internal/modules/airquality/types"
)

const (
	SourceLive    = "live"
	SourceArchive = "archive"
)

var pagesTmpl *template.Template

var funcs = template.FuncMap{
	"stationURL": StationURL,
	"sensorURL":  SensorURL,
	"value":      formatValue,
}

// loadTemplatesFromFS loads page templates from the given fs and dir.
// Tests use it to simulate failures.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	pagesTmpl, err = template.New("pages").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func StationURL(prefix string, stationID int) string {
	return "/" + prefix + "/" + strconv.Itoa(stationID)
}

func SensorURL(prefix string, stationID, sensorID int) string {
	return StationURL(prefix, stationID) + "/" + strconv.Itoa(sensorID)
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// StationsData is the view model of the station list pages.
type StationsData struct {
	Title    string
	Source   string
	Stations []types.Station
	Map      Map

	// Search names the form shown above the map ("city" or "nearby").
	// Its inputs echo the submitted values.
	Search   string
	City     string
	Location string
	Radius   string
}

// StationData is the view model of a single station page. Index is set for
// live stations, Indexes for archived ones.
type StationData struct {
	Source  string
	Station types.Station
	Sensors []types.Sensor
	Index   *types.StationIndex
	Indexes []types.StationIndex
}

// SensorData is the view model of a sensor page.
type SensorData struct {
	Source   string
	Station  types.Station
	Sensor   types.Sensor
	Readings []types.Reading
	// Summary is nil when there are not enough values to summarize.
	Summary *stats.Summary
	Saved   *repository.SaveResult

	Filtered  bool
	StartDate string
	EndDate   string
}

func render(w io.Writer, name string, data any) error {
	if pagesTmpl == nil {
		return errors.New(name + " template not loaded: call views.LoadTemplates during startup")
	}
	return pagesTmpl.ExecuteTemplate(w, name, data)
}

func RenderHome(w io.Writer) error {
	return render(w, "home.html", nil)
}

func RenderStations(w io.Writer, data *StationsData) error {
	return render(w, "stations.html", data)
}

func RenderStation(w io.Writer, data *StationData) error {
	return render(w, "station.html", data)
}

func RenderSensor(w io.Writer, data *SensorData) error {
	return render(w, "sensor.html", data)
}
