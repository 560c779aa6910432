package entities

import (
	"errors"
	"fmt"
	"time"
)

// StaleAfter is how old a reading may get before the monitor ignores it.
const StaleAfter = 5 * time.Minute

var (
	ErrZeroTimestamp    = errors.New("reading timestamp cannot be zero")
	ErrAncientTimestamp = errors.New("reading timestamp predates device clock sync")
	ErrFutureTimestamp  = errors.New("reading timestamp cannot be in the future")
	ErrMalformedReading = errors.New("malformed reading")
)

// Sensor clocks that lost sync report dates around the epoch.
var earliestPlausibleTimestamp = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   time.Time `json:"timestamp"`
	SensorID    string    `json:"sensorId"`
}

// Validate reports whether the reading carries a usable timestamp relative to now.
func (r Reading) Validate(now time.Time) error {
	if r.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if r.Timestamp.Before(earliestPlausibleTimestamp) {
		return ErrAncientTimestamp
	}
	if r.Timestamp.After(now.Add(time.Minute)) {
		return ErrFutureTimestamp
	}
	return nil
}

// Age is the time elapsed between the reading and now.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// IsStale is true when the reading is strictly older than StaleAfter.
func (r Reading) IsStale(now time.Time) bool {
	return r.Age(now) > StaleAfter
}

func (r Reading) String() string {
	return fmt.Sprintf("SensorID: %s, Timestamp: %s, Temperature: %v°C, Humidity: %v%%",
		r.SensorID,
		r.Timestamp.Format(time.RFC3339),
		r.Temperature,
		r.Humidity)
}
