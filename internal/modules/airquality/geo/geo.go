// Package geo filters stations by great-circle distance from a geocoded place.
package geo

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"airwatch/internal/modules/airquality/types"
)

// EarthRadiusKm is the sphere radius used by Distance.
const EarthRadiusKm = 6371

// Point is a resolved (latitude, longitude) pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a free-text query to its best match. ok is false when
// the service returned no match; err is reserved for transport failures.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (p Point, ok bool, err error)
}

// Selector picks the stations a map view shows.
type Selector interface {
	Select(ctx context.Context, stations []types.Station) []types.Station
}

// All selects every station unchanged.
type All struct{}

func (All) Select(_ context.Context, stations []types.Station) []types.Station {
	return stations
}

// Distance returns the haversine distance in kilometres between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dlat := radians(lat2 - lat1)
	dlon := radians(lon2 - lon1)
	sinLat := math.Sin(dlat / 2)
	sinLon := math.Sin(dlon / 2)
	a := sinLat*sinLat + math.Cos(radians(lat1))*math.Cos(radians(lat2))*(sinLon*sinLon)
	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Coordinates parses a station's latitude and longitude. ok is false when
// either is missing or not a finite number.
func Coordinates(s types.Station) (lat, lon float64, ok bool) {
	lat, ok = parseCoordinate(s.Latitude)
	if !ok {
		return 0, 0, false
	}
	lon, ok = parseCoordinate(s.Longitude)
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// State is the resolution state of a Filter.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateResolved
	StateResolutionFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateResolutionFailed:
		return "resolution failed"
	default:
		return "unknown"
	}
}

// Filter selects the stations within a radius of a free-text location.
// A Filter serves one request and is not safe for concurrent use.
type Filter struct {
	geocoder Geocoder
	stations []types.Station
	location string
	radiusKm float64

	state  State
	center Point
}

func NewFilter(geocoder Geocoder, stations []types.Station, location string, radiusKm float64) *Filter {
	return &Filter{
		geocoder: geocoder,
		stations: stations,
		location: strings.TrimSpace(location),
		radiusKm: radiusKm,
	}
}

func (f *Filter) State() State {
	return f.state
}

// Center returns the resolved point; ok is false unless the filter is resolved.
func (f *Filter) Center() (Point, bool) {
	return f.center, f.state == StateResolved
}

// Resolve geocodes the location with exactly one lookup.
func (f *Filter) Resolve(ctx context.Context) (Point, bool, error) {
	f.state = StateResolving
	p, ok, err := f.geocoder.Geocode(ctx, f.location)
	if err != nil || !ok {
		f.state = StateResolutionFailed
		return Point{}, false, err
	}
	f.state = StateResolved
	f.center = p
	return p, true, nil
}

// FilterByRadius returns the stations whose distance to center is at most the
// radius. Stations without usable coordinates are skipped.
func (f *Filter) FilterByRadius(center Point) []types.Station {
	out := make([]types.Station, 0)
	for _, s := range f.stations {
		lat, lon, ok := Coordinates(s)
		if !ok {
			continue
		}
		if Distance(lat, lon, center.Lat, center.Lon) <= f.radiusKm {
			out = append(out, s)
		}
	}
	return out
}

// Rank returns the stations within the radius of the location. It returns an
// empty slice when the location or radius is unset, when the location has no
// match, or when geocoding fails.
func (f *Filter) Rank(ctx context.Context) []types.Station {
	if f.location == "" || f.radiusKm <= 0 {
		return []types.Station{}
	}
	center, ok, err := f.Resolve(ctx)
	if err != nil {
		slog.WarnContext(ctx, "geocoding failed", "location", f.location, "error", err)
		return []types.Station{}
	}
	if !ok {
		slog.InfoContext(ctx, "location not found", "location", f.location)
		return []types.Station{}
	}
	return f.FilterByRadius(center)
}

// Select implements Selector. The stations given replace the ones the
// filter was built with.
func (f *Filter) Select(ctx context.Context, stations []types.Station) []types.Station {
	f.stations = stations
	return f.Rank(ctx)
}
