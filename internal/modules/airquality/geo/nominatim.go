package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim geocodes through the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	return NewNominatimWithHTTP(baseURL, userAgent, &http.Client{Timeout: timeout})
}

func NewNominatimWithHTTP(baseURL, userAgent string, httpClient *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

type nominatimPlace struct {
	Lat decimal `json:"lat"`
	Lon decimal `json:"lon"`
}

// Geocode implements Geocoder.
func (n *Nominatim) Geocode(ctx context.Context, query string) (Point, bool, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Point{}, false, fmt.Errorf("build nominatim request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Point{}, false, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Point{}, false, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Point{}, false, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return Point{}, false, nil
	}
	return Point{Lat: float64(places[0].Lat), Lon: float64(places[0].Lon)}, true, nil
}

// decimal accepts a JSON number or a string holding one.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", string(b), err)
	}
	*d = decimal(v)
	return nil
}
