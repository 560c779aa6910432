package entities

import "time"

const (
	AlertTemperature string = "temperature"
	AlertHumidity    string = "humidity"

	SeverityWarning  string = "warning"
	SeverityCritical string = "critical"
)

// AlertRecord is an alert as written to the store. Metric fields are pointers so a
// reading of exactly zero is distinguishable from an absent metric.
type AlertRecord struct {
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	TempRange    string   `json:"temp_range,omitempty"`
	HumRange     string   `json:"hum_range,omitempty"`
	Timestamp    int64    `json:"timestamp"`
	Acknowledged bool     `json:"acknowledged,omitempty"`
}

type AlertEvent struct {
	ID           int64     `json:"id"`
	DeviceID     string    `json:"deviceId"`
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	Message      string    `json:"message"`
	Value        float64   `json:"value"`
	Threshold    string    `json:"threshold"`
	Acknowledged bool      `json:"acknowledged"`
	Timestamp    time.Time `json:"timestamp"`
}
