// Package gios is a client for the GIOŚ air-quality monitoring REST API.
package gios

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"airwatch/internal/modules/airquality/types"
)

const DefaultBaseURL = "https://api.gios.gov.pl/pjp-api/v1/rest"

var ErrNotFound = errors.New("not found")

// API is the subset of the GIOŚ API the application reads.
type API interface {
	Stations(ctx context.Context) ([]types.Station, error)
	Sensors(ctx context.Context, stationID int) ([]types.Sensor, error)
	Measurements(ctx context.Context, sensorID int) ([]types.Reading, error)
	StationIndex(ctx context.Context, stationID int) (types.StationIndex, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type stationDTO struct {
	ID        int        `json:"Identyfikator stacji"`
	Code      string     `json:"Kod stacji"`
	Name      string     `json:"Nazwa stacji"`
	Latitude  coordinate `json:"WGS84 φ N"`
	Longitude coordinate `json:"WGS84 λ E"`
	CityID    int        `json:"Identyfikator miasta"`
	CityName  string     `json:"Nazwa miasta"`
	Commune   string     `json:"Gmina"`
	District  string     `json:"Powiat"`
	Province  string     `json:"Województwo"`
	Street    *string    `json:"Ulica"`
}

type stationsResponse struct {
	Stations []stationDTO `json:"Lista stacji pomiarowych"`
}

type sensorDTO struct {
	ID               int    `json:"Identyfikator stanowiska"`
	StationID        int    `json:"Identyfikator stacji"`
	Indicator        string `json:"Wskaźnik"`
	IndicatorFormula string `json:"Wskaźnik - wzór"`
	IndicatorCode    string `json:"Wskaźnik - kod"`
	IndicatorID      int    `json:"Id wskaźnika"`
}

type sensorsResponse struct {
	Sensors []sensorDTO `json:"Lista stanowisk pomiarowych dla podanej stacji"`
}

type measurementDTO struct {
	Code  string   `json:"Kod stanowiska"`
	Date  string   `json:"Data"`
	Value *float64 `json:"Wartość"`
}

type measurementsResponse struct {
	Measurements []measurementDTO `json:"Lista danych pomiarowych"`
}

type indexDTO struct {
	StationID       int    `json:"Identyfikator stacji pomiarowej"`
	CalculationDate string `json:"Data wykonania obliczeń indeksu"`
	Value           *int   `json:"Wartość indeksu"`
	Category        string `json:"Nazwa kategorii indeksu"`
	SourceDate      string `json:"-"`
}

// indexSourceDateKey holds a comma, which struct tags cannot express.
const indexSourceDateKey = "Data danych źródłowych, z których policzono wartość indeksu dla wskaźnika st"

func (d *indexDTO) UnmarshalJSON(b []byte) error {
	type plain indexDTO
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw[indexSourceDateKey]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &p.SourceDate); err != nil {
			return fmt.Errorf("index source date: %w", err)
		}
	}
	*d = indexDTO(p)
	return nil
}

type indexResponse struct {
	Index *indexDTO `json:"AqIndex"`
}

// Stations fetches every monitoring station.
func (c *Client) Stations(ctx context.Context) ([]types.Station, error) {
	var resp stationsResponse
	if err := c.get(ctx, "station/findAll", &resp); err != nil {
		return nil, err
	}
	out := make([]types.Station, 0, len(resp.Stations))
	for _, s := range resp.Stations {
		st := types.Station{
			ID:        s.ID,
			Code:      s.Code,
			Name:      s.Name,
			Latitude:  string(s.Latitude),
			Longitude: string(s.Longitude),
			City: types.City{
				ID:       s.CityID,
				Name:     s.CityName,
				Commune:  s.Commune,
				District: s.District,
				Province: s.Province,
			},
		}
		if s.Street != nil {
			st.Street = *s.Street
		}
		out = append(out, st)
	}
	return out, nil
}

// StationsByCity fetches every station and keeps those whose city name
// matches exactly.
func (c *Client) StationsByCity(ctx context.Context, city string) ([]types.Station, error) {
	stations, err := c.Stations(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByCity(stations, city), nil
}

func (c *Client) Sensors(ctx context.Context, stationID int) ([]types.Sensor, error) {
	var resp sensorsResponse
	if err := c.get(ctx, "station/sensors/"+strconv.Itoa(stationID), &resp); err != nil {
		return nil, err
	}
	out := make([]types.Sensor, 0, len(resp.Sensors))
	for _, s := range resp.Sensors {
		out = append(out, types.Sensor{
			ID:               s.ID,
			StationID:        s.StationID,
			Indicator:        s.Indicator,
			IndicatorFormula: s.IndicatorFormula,
			IndicatorCode:    s.IndicatorCode,
			IndicatorID:      s.IndicatorID,
		})
	}
	return out, nil
}

// Measurements fetches the recent readings of a sensor in the order the API
// returns them.
func (c *Client) Measurements(ctx context.Context, sensorID int) ([]types.Reading, error) {
	var resp measurementsResponse
	if err := c.get(ctx, "data/getData/"+strconv.Itoa(sensorID), &resp); err != nil {
		return nil, err
	}
	out := make([]types.Reading, 0, len(resp.Measurements))
	for _, m := range resp.Measurements {
		out = append(out, types.Reading{
			SensorID:    sensorID,
			StationCode: m.Code,
			Date:        m.Date,
			Value:       m.Value,
		})
	}
	return out, nil
}

// StationIndex fetches the current air-quality index of a station. It returns
// ErrNotFound when the API has no index for it.
func (c *Client) StationIndex(ctx context.Context, stationID int) (types.StationIndex, error) {
	var resp indexResponse
	if err := c.get(ctx, "aqindex/getIndex/"+strconv.Itoa(stationID), &resp); err != nil {
		return types.StationIndex{}, err
	}
	if resp.Index == nil {
		return types.StationIndex{}, fmt.Errorf("station %d index: %w", stationID, ErrNotFound)
	}
	return types.StationIndex{
		StationID:       resp.Index.StationID,
		CalculationDate: resp.Index.CalculationDate,
		Value:           resp.Index.Value,
		Category:        resp.Index.Category,
		SourceDate:      resp.Index.SourceDate,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gios %s: %w", path, err)
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gios %s: gzip: %w", path, err)
		}
		defer zr.Close()
		body = zr
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("gios %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return fmt.Errorf("gios %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("gios %s: decode: %w", path, err)
	}
	return nil
}

// FilterByCity keeps the stations located in the named city. Order is kept.
func FilterByCity(stations []types.Station, city string) []types.Station {
	out := make([]types.Station, 0)
	for _, s := range stations {
		if s.City.Name == city {
			out = append(out, s)
		}
	}
	return out
}

// coordinate keeps a JSON number or string verbatim as text.
type coordinate string

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*c = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*c = coordinate(v)
	default:
		*c = coordinate(s)
	}
	return nil
}
