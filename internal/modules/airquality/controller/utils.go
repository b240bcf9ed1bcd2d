package controller

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"airwatch/internal/modules/airquality/repository"
)

// maxDate is the upper bound used when a date filter has no end.
const maxDate = "9999-12-31 23:59:59"

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int, error) {
	s := r.PathValue(name)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q (expected positive integer)", name, s)
	}
	return n, nil
}

// parseRadius returns the radius in kilometres, or 0 (unset) when s is empty,
// not a number or not positive.
func parseRadius(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}

// parseStrictRadius is parseRadius for the JSON API, where a malformed value
// is a client error instead of an unset radius.
func parseStrictRadius(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("invalid 'radius' (expected number of kilometres)")
	}
	if v < 0 {
		return 0, errors.New("'radius' must be >= 0")
	}
	return v, nil
}

// dateBounds reads startDate and endDate. A missing start matches from the
// first reading and a missing end up to the last; an end given as a bare
// date covers that whole day.
func dateBounds(r *http.Request) (start, end string, ok bool) {
	q := r.URL.Query()
	start = strings.TrimSpace(q.Get("startDate"))
	end = strings.TrimSpace(q.Get("endDate"))
	if start == "" && end == "" {
		return "", "", false
	}
	if end == "" {
		end = maxDate
	} else if len(end) == len("2006-01-02") {
		end += " 23:59:59"
	}
	return start, end, true
}

// savedResult reads the outcome of a save that redirected back to the
// sensor page. It is nil when the request did not come from a save.
func savedResult(r *http.Request) *repository.SaveResult {
	q := r.URL.Query()
	s := q.Get("saved")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &repository.SaveResult{ReadingsInserted: n, IndexInserted: q.Get("index") == "1"}
}

func savedQuery(res repository.SaveResult) string {
	q := "?saved=" + strconv.Itoa(res.ReadingsInserted)
	if res.IndexInserted {
		q += "&index=1"
	}
	return q
}
