package monitor

import (
	"context"
	"errors"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
)

var (
	ErrAlertNotFound = errors.New("alert record not found")
	ErrReadOnly      = errors.New("alert store is read only")
)

type StatusSource interface {
	GetDeviceStatus(ctx context.Context, deviceID string) (entities.DeviceStatus, error)
}

// ReadingSource returns nil, nil when the device has no reading yet.
type ReadingSource interface {
	GetLatestReading(ctx context.Context, deviceID string) (*entities.Reading, error)
}

// ConfigSource returns nil, nil when the device has no threshold configuration.
type ConfigSource interface {
	GetDeviceConfig(ctx context.Context, deviceID string) (*entities.ThresholdConfig, error)
}

// ScheduleSource returns the schedule as stored; defaults are applied by the caller.
type ScheduleSource interface {
	GetNotificationSchedule(ctx context.Context, deviceID string) (*entities.ScheduleRecord, error)
}

// Store is everything one tick reads.
type Store interface {
	StatusSource
	ReadingSource
	ConfigSource
	ScheduleSource
}

type AlertSource interface {
	FetchAlertRecords(ctx context.Context, deviceID string) (map[string]entities.AlertRecord, error)
}

type AlertSink interface {
	SaveAlertRecord(ctx context.Context, deviceID, key string, record entities.AlertRecord) error
	// AcknowledgeAlert reports whether the record changed; ErrAlertNotFound when absent.
	AcknowledgeAlert(ctx context.Context, deviceID, key string) (bool, error)
}

// Notifier delivers a text message. A nil error means the transport confirmed delivery.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}
