package views

import (
	"strings"

	"airwatch/internal/modules/airquality/geo"
	"airwatch/internal/modules/airquality/types"
)

const (
	DefaultCenterLat = 52.0
	DefaultCenterLon = 19.0
	DefaultZoom      = 6
	DefaultHeight    = 600
)

// Marker is one station pin on the map.
type Marker struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Popup     string  `json:"popup"`
	StationID int     `json:"stationId"`
}

// Map is the view model handed to the Leaflet script.
type Map struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Height    int
	Markers   []Marker
}

// NewMap builds a map centred on Poland with a marker per station that has
// usable coordinates.
func NewMap(stations []types.Station) Map {
	m := Map{
		CenterLat: DefaultCenterLat,
		CenterLon: DefaultCenterLon,
		Zoom:      DefaultZoom,
		Height:    DefaultHeight,
		Markers:   make([]Marker, 0, len(stations)),
	}
	for _, s := range stations {
		lat, lon, ok := geo.Coordinates(s)
		if !ok {
			continue
		}
		m.Markers = append(m.Markers, Marker{Lat: lat, Lon: lon, Popup: Popup(s), StationID: s.ID})
	}
	return m
}

// Popup is "<name> (<city>)", with the city part omitted when unknown.
func Popup(s types.Station) string {
	city := strings.TrimSpace(s.City.Name)
	if city == "" {
		return s.Name
	}
	return s.Name + " (" + city + ")"
}
