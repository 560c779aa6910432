package entities

import "time"

const (
	StatusOnline  string = "online"
	StatusOffline string = "offline"
)

type DeviceStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	IsOnline   bool      `json:"isOnline"`
	LastSeen   time.Time `json:"lastSeen"`
	MinutesAgo int       `json:"minutesAgo"`
}

// OfflineStatus is what a status source reports when it knows nothing about the device.
func OfflineStatus(deviceID string) DeviceStatus {
	return DeviceStatus{ID: deviceID, Status: StatusOffline}
}

type ThresholdConfig struct {
	TempMin float64 `json:"temp_min" yaml:"tempMin"`
	TempMax float64 `json:"temp_max" yaml:"tempMax"`
	HumMin  float64 `json:"hum_min" yaml:"humMin"`
	HumMax  float64 `json:"hum_max" yaml:"humMax"`
}
