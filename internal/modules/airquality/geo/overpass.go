package geo

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/serjvanilla/go-overpass"
)

const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// Overpass geocodes by looking up a named OSM place node.
type Overpass struct {
	client *overpass.Client
}

func NewOverpass(endpoint string, timeout time.Duration) *Overpass {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)
	return &Overpass{client: &client}
}

type overpassResult struct {
	result overpass.Result
	err    error
}

// Geocode implements Geocoder. The node with the lowest id wins when several
// places share the name. The client has no context support, so a cancelled
// ctx returns at once while the query itself runs on until the http timeout.
func (o *Overpass) Geocode(ctx context.Context, query string) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}
	q := fmt.Sprintf(`[out:json];node["place"]["name"="%s"];out 1;`, escapeOverpass(query))

	done := make(chan overpassResult, 1)
	go func() {
		result, err := o.client.Query(q)
		done <- overpassResult{result: result, err: err}
	}()

	var res overpassResult
	select {
	case <-ctx.Done():
		return Point{}, false, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return Point{}, false, fmt.Errorf("overpass query failed: %w", res.err)
	}
	result := res.result
	if len(result.Nodes) == 0 {
		return Point{}, false, nil
	}

	ids := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	node := result.Nodes[ids[0]]
	return Point{Lat: node.Lat, Lon: node.Lon}, true, nil
}

func escapeOverpass(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(strings.TrimSpace(s))
}
