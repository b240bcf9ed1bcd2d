// Package stats summarizes a sequence of sensor readings.
package stats

import (
	"errors"
	"strconv"

	"airwatch/internal/modules/airquality/types"
)

// Trend is a coarse net-direction classification of a reading sequence.
type Trend string

const (
	TrendIncreasing   Trend = "increasing"
	TrendDecreasing   Trend = "decreasing"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient data"
)

// ErrInsufficientData is returned when there is no non-null value to summarize.
var ErrInsufficientData = errors.New("insufficient data")

// Summary is the combined result of a Calculator.
type Summary struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Trend Trend   `json:"trend"`
}

// Calculator holds the non-null values of one reading sequence, in input order.
// It is built per computation and never shared.
type Calculator struct {
	values []float64
}

func New(readings []types.Reading) *Calculator {
	values := make([]float64, 0, len(readings))
	for _, r := range readings {
		if r.Value != nil {
			values = append(values, *r.Value)
		}
	}
	return &Calculator{values: values}
}

// Count returns the number of non-null values.
func (c *Calculator) Count() int {
	return len(c.values)
}

func (c *Calculator) Minimum() (float64, error) {
	if len(c.values) == 0 {
		return 0, ErrInsufficientData
	}
	m := c.values[0]
	for _, v := range c.values[1:] {
		if v < m {
			m = v
		}
	}
	return round3(m), nil
}

func (c *Calculator) Maximum() (float64, error) {
	if len(c.values) == 0 {
		return 0, ErrInsufficientData
	}
	m := c.values[0]
	for _, v := range c.values[1:] {
		if v > m {
			m = v
		}
	}
	return round3(m), nil
}

func (c *Calculator) Mean() (float64, error) {
	if len(c.values) == 0 {
		return 0, ErrInsufficientData
	}
	var sum float64
	for _, v := range c.values {
		sum += v
	}
	return round3(sum / float64(len(c.values))), nil
}

// Trend sums the consecutive differences of the values. A sequence that rises
// and falls back by the same amount is stable.
func (c *Calculator) Trend() Trend {
	if len(c.values) < 2 {
		return TrendInsufficient
	}
	var sum float64
	for i := 0; i < len(c.values)-1; i++ {
		sum += c.values[i+1] - c.values[i]
	}
	switch {
	case sum > 0:
		return TrendIncreasing
	case sum < 0:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func (c *Calculator) Summarize() (Summary, error) {
	minimum, err := c.Minimum()
	if err != nil {
		return Summary{Trend: TrendInsufficient}, err
	}
	maximum, err := c.Maximum()
	if err != nil {
		return Summary{Trend: TrendInsufficient}, err
	}
	mean, err := c.Mean()
	if err != nil {
		return Summary{Trend: TrendInsufficient}, err
	}
	return Summary{
		Min:   minimum,
		Max:   maximum,
		Mean:  mean,
		Trend: c.Trend(),
	}, nil
}

// InDateRange keeps readings with start <= date <= end, comparing the date
// strings lexicographically. Order is preserved.
func InDateRange(readings []types.Reading, start, end string) []types.Reading {
	out := make([]types.Reading, 0, len(readings))
	for _, r := range readings {
		if r.Date >= start && r.Date <= end {
			out = append(out, r)
		}
	}
	return out
}

// round3 rounds to three decimal places on the decimal representation of v.
func round3(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}
