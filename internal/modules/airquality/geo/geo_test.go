package geo

import (
	"context"
	"errors"
	"math"
	"testing"

	"airwatch/internal/modules/airquality/types"
)

type fakeGeocoder struct {
	point Point
	ok    bool
	err   error
	calls int
	query string
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (Point, bool, error) {
	f.calls++
	f.query = query
	return f.point, f.ok, f.err
}

var warsaw = Point{Lat: 52.2297, Lon: 21.0122}

func testStations() []types.Station {
	return []types.Station{
		{ID: 1, Name: "Warszawa-Centrum", Latitude: "52.2297", Longitude: "21.0122"},
		{ID: 2, Name: "Piaseczno", Latitude: "52.0800", Longitude: "21.0240"},
		{ID: 3, Name: "Kraków", Latitude: "50.0647", Longitude: "19.9450"},
		{ID: 4, Name: "Broken", Latitude: "not-a-number", Longitude: "21.0"},
		{ID: 5, Name: "Missing", Latitude: "", Longitude: ""},
	}
}

func ids(stations []types.Station) []int {
	out := make([]int, 0, len(stations))
	for _, s := range stations {
		out = append(out, s.ID)
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDistance(t *testing.T) {
	if d := Distance(52.0, 19.0, 52.0, 19.0); d != 0 {
		t.Errorf("Distance(same point) = %v, want 0", d)
	}

	d := Distance(0, 0, 1, 0)
	if math.Abs(d-111.195) > 0.01 {
		t.Errorf("Distance(1 degree of latitude) = %v, want ~111.195", d)
	}

	ab := Distance(52.2297, 21.0122, 50.0647, 19.9450)
	ba := Distance(50.0647, 19.9450, 52.2297, 21.0122)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("Distance is not symmetric: %v vs %v", ab, ba)
	}
	if ab < 250 || ab > 260 {
		t.Errorf("Distance(Warszawa, Kraków) = %v, want about 252", ab)
	}
}

func TestCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		lat    string
		lon    string
		wantOK bool
	}{
		{name: "valid", lat: "52.1", lon: "21.0", wantOK: true},
		{name: "padded", lat: " 52.1 ", lon: "21.0", wantOK: true},
		{name: "empty latitude", lat: "", lon: "21.0"},
		{name: "garbage longitude", lat: "52.1", lon: "abc"},
		{name: "nan", lat: "NaN", lon: "21.0"},
		{name: "infinite", lat: "52.1", lon: "+Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := Coordinates(types.Station{Latitude: tt.lat, Longitude: tt.lon})
			if ok != tt.wantOK {
				t.Errorf("Coordinates(%q, %q) ok = %v, want %v", tt.lat, tt.lon, ok, tt.wantOK)
			}
		})
	}
}

func TestFilterByRadius(t *testing.T) {
	f := NewFilter(&fakeGeocoder{}, testStations(), "Warszawa", 20)

	got := ids(f.FilterByRadius(warsaw))
	if !equalIDs(got, []int{1, 2}) {
		t.Errorf("FilterByRadius() = %v, want [1 2]", got)
	}
}

func TestFilterByRadius_StationsAtCenterAreKept(t *testing.T) {
	stations := []types.Station{
		{ID: 1, Latitude: "52.2297", Longitude: "21.0122"},
		{ID: 2, Latitude: "52.2297", Longitude: "21.0122"},
		{ID: 3, Latitude: " 52.2297 ", Longitude: "21.0122"},
		{ID: 4, Latitude: "not a number", Longitude: "21.0122"},
		{ID: 5, Latitude: "52.2297", Longitude: ""},
	}

	f := NewFilter(&fakeGeocoder{}, stations, "Warszawa", 100)
	got := ids(f.FilterByRadius(Point{Lat: 52.2297, Lon: 21.0122}))
	if !equalIDs(got, []int{1, 2, 3}) {
		t.Errorf("FilterByRadius() = %v, want [1 2 3]", got)
	}
}

func TestFilterByRadius_BoundaryIsInclusive(t *testing.T) {
	stations := []types.Station{{ID: 7, Latitude: "1", Longitude: "0"}}
	radius := Distance(1, 0, 0, 0)

	f := NewFilter(&fakeGeocoder{}, stations, "x", radius)
	if got := f.FilterByRadius(Point{}); len(got) != 1 {
		t.Errorf("FilterByRadius() at exact radius returned %d stations, want 1", len(got))
	}
}

func TestFilterByRadius_NoneInRangeIsEmptyNotNil(t *testing.T) {
	f := NewFilter(&fakeGeocoder{}, testStations(), "x", 1)
	got := f.FilterByRadius(Point{Lat: -33.9, Lon: 18.4})
	if got == nil || len(got) != 0 {
		t.Errorf("FilterByRadius() = %#v, want empty non-nil slice", got)
	}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name      string
		geocoder  *fakeGeocoder
		location  string
		radius    float64
		want      []int
		wantCalls int
		wantState State
	}{
		{
			name:      "resolved",
			geocoder:  &fakeGeocoder{point: warsaw, ok: true},
			location:  "Warszawa",
			radius:    20,
			want:      []int{1, 2},
			wantCalls: 1,
			wantState: StateResolved,
		},
		{
			name:      "empty location",
			geocoder:  &fakeGeocoder{point: warsaw, ok: true},
			location:  "   ",
			radius:    20,
			want:      []int{},
			wantState: StateUnresolved,
		},
		{
			name:      "zero radius",
			geocoder:  &fakeGeocoder{point: warsaw, ok: true},
			location:  "Warszawa",
			radius:    0,
			want:      []int{},
			wantState: StateUnresolved,
		},
		{
			name:      "no match",
			geocoder:  &fakeGeocoder{},
			location:  "Atlantis",
			radius:    20,
			want:      []int{},
			wantCalls: 1,
			wantState: StateResolutionFailed,
		},
		{
			name:      "geocoder error",
			geocoder:  &fakeGeocoder{err: errors.New("connection refused")},
			location:  "Warszawa",
			radius:    20,
			want:      []int{},
			wantCalls: 1,
			wantState: StateResolutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.geocoder, testStations(), tt.location, tt.radius)
			got := f.Rank(context.Background())
			if got == nil {
				t.Fatal("Rank() returned nil, want a non-nil slice")
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("Rank() = %v, want %v", ids(got), tt.want)
			}
			if tt.geocoder.calls != tt.wantCalls {
				t.Errorf("geocoder calls = %d, want %d", tt.geocoder.calls, tt.wantCalls)
			}
			if f.State() != tt.wantState {
				t.Errorf("State() = %v, want %v", f.State(), tt.wantState)
			}
		})
	}
}

func TestRank_TrimsLocation(t *testing.T) {
	g := &fakeGeocoder{point: warsaw, ok: true}
	NewFilter(g, testStations(), "  Warszawa ", 5).Rank(context.Background())
	if g.query != "Warszawa" {
		t.Errorf("geocoder query = %q, want %q", g.query, "Warszawa")
	}
}

func TestCenter(t *testing.T) {
	f := NewFilter(&fakeGeocoder{point: warsaw, ok: true}, nil, "Warszawa", 10)
	if _, ok := f.Center(); ok {
		t.Error("Center() ok = true before resolution")
	}
	if _, _, err := f.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	c, ok := f.Center()
	if !ok || c != warsaw {
		t.Errorf("Center() = %v, %v; want %v, true", c, ok, warsaw)
	}
}

func TestSelectors(t *testing.T) {
	stations := testStations()

	if got := (All{}).Select(context.Background(), stations); len(got) != len(stations) {
		t.Errorf("All.Select() returned %d stations, want %d", len(got), len(stations))
	}

	var sel Selector = NewFilter(&fakeGeocoder{point: warsaw, ok: true}, nil, "Warszawa", 20)
	if got := ids(sel.Select(context.Background(), stations)); !equalIDs(got, []int{1, 2}) {
		t.Errorf("Filter.Select() = %v, want [1 2]", got)
	}
}

func TestStateString(t *testing.T) {
	if StateResolutionFailed.String() != "resolution failed" {
		t.Errorf("String() = %q", StateResolutionFailed.String())
	}
	if State(42).String() != "unknown" {
		t.Errorf("String() = %q", State(42).String())
	}
}
