package monitor

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	criticalTemperature = 28.0
	criticalHumidity    = 80.0
	randomIDRange       = 1000
)

// AlertQuery projects stored alert records into display events.
type AlertQuery struct {
	source   AlertSource
	sink     AlertSink
	randomID func() int64
	log      *logrus.Entry
}

// NewAlertQuery accepts a nil sink; Acknowledge then fails with ErrReadOnly.
func NewAlertQuery(source AlertSource, sink AlertSink, log *logrus.Entry) *AlertQuery {
	return &AlertQuery{
		source:   source,
		sink:     sink,
		randomID: func() int64 { return rand.Int63n(randomIDRange) },
		log:      log,
	}
}

// GetAlerts never fails: a store error yields an empty list.
func (q *AlertQuery) GetAlerts(ctx context.Context, deviceID string) []entities.AlertEvent {
	records, err := q.source.FetchAlertRecords(ctx, deviceID)
	if err != nil {
		q.log.WithError(err).Errorf("failed to fetch alerts for %s", deviceID)
		return []entities.AlertEvent{}
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	events := make([]entities.AlertEvent, 0, len(keys))
	for _, key := range keys {
		events = append(events, ProjectAlert(deviceID, key, records[key], q.randomID))
	}
	return events
}

func (q *AlertQuery) Acknowledge(ctx context.Context, deviceID, key string) (bool, error) {
	if q.sink == nil {
		return false, ErrReadOnly
	}
	changed, err := q.sink.AcknowledgeAlert(ctx, deviceID, key)
	if err != nil {
		return false, errors.Wrapf(err, "acknowledging %s", key)
	}
	if changed {
		q.log.Infof("alert %s acknowledged", key)
	}
	return changed, nil
}

// ProjectAlert converts one stored record. randomID supplies the id of keys that
// carry no usable digits.
func ProjectAlert(deviceID, key string, record entities.AlertRecord, randomID func() int64) entities.AlertEvent {
	event := entities.AlertEvent{
		ID:           alertID(key, randomID),
		DeviceID:     deviceID,
		Type:         entities.AlertHumidity,
		Severity:     entities.SeverityWarning,
		Message:      "Humidity threshold violation",
		Threshold:    "N/A",
		Acknowledged: record.Acknowledged,
		Timestamp:    time.Unix(record.Timestamp, 0),
	}

	if record.Temperature != nil {
		event.Type = entities.AlertTemperature
	}

	temperatureCritical := record.Temperature != nil && *record.Temperature > criticalTemperature
	humidityCritical := record.Humidity != nil && *record.Humidity > criticalHumidity
	if temperatureCritical || humidityCritical {
		event.Severity = entities.SeverityCritical
	}
	if temperatureCritical {
		event.Message = "Temperature exceeded maximum threshold"
	}

	switch {
	case record.Temperature != nil && *record.Temperature != 0:
		event.Value = *record.Temperature
	case record.Humidity != nil:
		event.Value = *record.Humidity
	}

	switch {
	case record.TempRange != "":
		event.Threshold = record.TempRange
	case record.HumRange != "":
		event.Threshold = record.HumRange
	}
	return event
}

func alertID(key string, randomID func() int64) int64 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, key)

	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id == 0 {
		return randomID()
	}
	return id
}
