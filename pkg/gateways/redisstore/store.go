package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/monitor"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	statusOnlineWindow  = 2 * time.Minute
	readingOnlineWindow = 5 * time.Minute
	statusMaximumAge    = 24 * time.Hour

	// MaxStoredReadings bounds the reading history kept per device.
	MaxStoredReadings = 1000

	fieldLastSeen = "last_seen"
	fieldName     = "name"
)

// storedReading is the reading as the sensor firmware writes it.
type storedReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   int64   `json:"timestamp"`
}

// Store keeps every device's data under the "device:<id>:" key prefix:
// readings (list of JSON readings, newest last), status (hash), config and
// schedule (JSON strings) and alerts (hash of JSON alert records).
type Store struct {
	client *redis.Client
	now    func() time.Time
	log    *logrus.Entry
}

var (
	_ monitor.Store       = (*Store)(nil)
	_ monitor.AlertSource = (*Store)(nil)
	_ monitor.AlertSink   = (*Store)(nil)
)

func NewStore(client *redis.Client, log *logrus.Entry) *Store {
	return &Store{client: client, now: time.Now, log: log}
}

func deviceKey(deviceID, suffix string) string {
	return fmt.Sprintf("device:%s:%s", deviceID, suffix)
}

func (s *Store) GetLatestReading(ctx context.Context, deviceID string) (*entities.Reading, error) {
	raw, err := s.client.LIndex(ctx, deviceKey(deviceID, "readings"), -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetching latest reading of %s", deviceID)
	}
	return decodeReading(deviceID, raw)
}

func decodeReading(deviceID, raw string) (*entities.Reading, error) {
	var stored storedReading
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, errors.Wrapf(entities.ErrMalformedReading, "decoding reading of %s: %v", deviceID, err)
	}

	reading := &entities.Reading{
		Temperature: stored.Temperature,
		Humidity:    stored.Humidity,
		SensorID:    deviceID,
	}
	if stored.Timestamp != 0 {
		reading.Timestamp = time.Unix(stored.Timestamp, 0)
	}
	return reading, nil
}

// SaveReading appends a reading and trims the history to MaxStoredReadings.
func (s *Store) SaveReading(ctx context.Context, deviceID string, reading entities.Reading) error {
	payload, err := json.Marshal(storedReading{
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		Timestamp:   reading.Timestamp.Unix(),
	})
	if err != nil {
		return errors.Wrap(err, "encoding reading")
	}

	key := deviceKey(deviceID, "readings")
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.LTrim(ctx, key, -MaxStoredReadings, -1)
		return nil
	})
	return errors.Wrapf(err, "saving reading of %s", deviceID)
}

// TouchStatus records that the device was seen at the given time.
func (s *Store) TouchStatus(ctx context.Context, deviceID, name string, seen time.Time) error {
	values := map[string]interface{}{fieldLastSeen: seen.Unix()}
	if name != "" {
		values[fieldName] = name
	}
	err := s.client.HSet(ctx, deviceKey(deviceID, "status"), values).Err()
	return errors.Wrapf(err, "touching status of %s", deviceID)
}

// GetDeviceStatus derives the online state from the status heartbeat and falls
// back to the age of the latest reading when no usable heartbeat exists.
func (s *Store) GetDeviceStatus(ctx context.Context, deviceID string) (entities.DeviceStatus, error) {
	now := s.now()
	status := entities.OfflineStatus(deviceID)

	values, err := s.client.HGetAll(ctx, deviceKey(deviceID, "status")).Result()
	if err != nil {
		return status, errors.Wrapf(err, "fetching status of %s", deviceID)
	}
	status.Name = values[fieldName]
	if status.Name == "" {
		status.Name = deviceID
	}

	if lastSeen, err := strconv.ParseInt(values[fieldLastSeen], 10, 64); err == nil && lastSeen > 0 {
		seen := time.Unix(lastSeen, 0)
		if age := now.Sub(seen); age >= 0 && age < statusMaximumAge {
			return withLastSeen(status, seen, age, statusOnlineWindow), nil
		}
	}

	reading, err := s.GetLatestReading(ctx, deviceID)
	if err != nil && !errors.Is(err, entities.ErrMalformedReading) {
		return status, err
	}
	if reading != nil && reading.Validate(now) == nil {
		return withLastSeen(status, reading.Timestamp, reading.Age(now), readingOnlineWindow), nil
	}

	s.log.Debugf("no usable heartbeat or reading for %s", deviceID)
	return status, nil
}

func withLastSeen(status entities.DeviceStatus, seen time.Time, age, window time.Duration) entities.DeviceStatus {
	status.LastSeen = seen
	status.MinutesAgo = int(age / time.Minute)
	status.IsOnline = age < window
	if status.IsOnline {
		status.Status = entities.StatusOnline
	}
	return status
}

func (s *Store) GetDeviceConfig(ctx context.Context, deviceID string) (*entities.ThresholdConfig, error) {
	var config entities.ThresholdConfig
	found, err := s.getJSON(ctx, deviceKey(deviceID, "config"), &config)
	if err != nil || !found {
		return nil, err
	}
	return &config, nil
}

func (s *Store) SaveDeviceConfig(ctx context.Context, deviceID string, config entities.ThresholdConfig) error {
	return s.setJSON(ctx, deviceKey(deviceID, "config"), config)
}

// EnsureDeviceConfig stores config only when the device has none. It reports
// whether it was stored.
func (s *Store) EnsureDeviceConfig(ctx context.Context, deviceID string, config entities.ThresholdConfig) (bool, error) {
	return s.setJSONIfMissing(ctx, deviceKey(deviceID, "config"), config)
}

func (s *Store) GetNotificationSchedule(ctx context.Context, deviceID string) (*entities.ScheduleRecord, error) {
	var record entities.ScheduleRecord
	found, err := s.getJSON(ctx, deviceKey(deviceID, "schedule"), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

func (s *Store) SaveNotificationSchedule(ctx context.Context, deviceID string, record entities.ScheduleRecord) error {
	return s.setJSON(ctx, deviceKey(deviceID, "schedule"), record)
}

func (s *Store) EnsureNotificationSchedule(ctx context.Context, deviceID string, record entities.ScheduleRecord) (bool, error) {
	return s.setJSONIfMissing(ctx, deviceKey(deviceID, "schedule"), record)
}

// FetchAlertRecords skips records that cannot be decoded.
func (s *Store) FetchAlertRecords(ctx context.Context, deviceID string) (map[string]entities.AlertRecord, error) {
	values, err := s.client.HGetAll(ctx, deviceKey(deviceID, "alerts")).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "fetching alerts of %s", deviceID)
	}

	records := make(map[string]entities.AlertRecord, len(values))
	for key, raw := range values {
		var record entities.AlertRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			s.log.WithError(err).Warnf("skipping malformed alert record %s", key)
			continue
		}
		records[key] = record
	}
	return records, nil
}

func (s *Store) SaveAlertRecord(ctx context.Context, deviceID, key string, record entities.AlertRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encoding alert record")
	}
	err = s.client.HSet(ctx, deviceKey(deviceID, "alerts"), key, payload).Err()
	return errors.Wrapf(err, "saving alert record %s", key)
}

// AcknowledgeAlert marks an alert as acknowledged. Acknowledging twice leaves the
// record untouched and reports false.
func (s *Store) AcknowledgeAlert(ctx context.Context, deviceID, key string) (bool, error) {
	hashKey := deviceKey(deviceID, "alerts")
	changed := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.HGet(ctx, hashKey, key).Result()
		if errors.Is(err, redis.Nil) {
			return monitor.ErrAlertNotFound
		}
		if err != nil {
			return err
		}

		var record entities.AlertRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return errors.Wrapf(err, "decoding alert record %s", key)
		}
		if record.Acknowledged {
			return nil
		}

		record.Acknowledged = true
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, key, payload)
			return nil
		})
		if err == nil {
			changed = true
		}
		return err
	}, hashKey)

	if err != nil {
		return false, errors.Wrapf(err, "acknowledging alert %s", key)
	}
	return changed, nil
}

func (s *Store) getJSON(ctx context.Context, key string, target interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "fetching %s", key)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(s.client.Set(ctx, key, payload, 0).Err(), "saving %s", key)
}

func (s *Store) setJSONIfMissing(ctx context.Context, key string, value interface{}) (bool, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrapf(err, "encoding %s", key)
	}
	stored, err := s.client.SetNX(ctx, key, payload, 0).Result()
	if err != nil {
		return false, errors.Wrapf(err, "saving %s", key)
	}
	return stored, nil
}
