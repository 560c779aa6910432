package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/monitor/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertSource struct {
	records map[string]entities.AlertRecord
	err     error
}

func (f fakeAlertSource) FetchAlertRecords(ctx context.Context, deviceID string) (map[string]entities.AlertRecord, error) {
	return f.records, f.err
}

func float(value float64) *float64 {
	return &value
}

func fixedID(id int64) func() int64 {
	return func() int64 { return id }
}

func TestGivenTemperatureOnlyRecordAboveTwentyEightThenCritical(t *testing.T) {
	record := entities.AlertRecord{Temperature: float(30), TempRange: "18-26", Timestamp: baseTime.Unix()}

	event := ProjectAlert(testDeviceID, "alert_1710057600_01", record, fixedID(7))

	assert.Equal(t, entities.AlertTemperature, event.Type)
	assert.Equal(t, entities.SeverityCritical, event.Severity)
	assert.Equal(t, "Temperature exceeded maximum threshold", event.Message)
	assert.Equal(t, 30.0, event.Value)
	assert.Equal(t, "18-26", event.Threshold)
	assert.Equal(t, int64(171005760001), event.ID)
	assert.Equal(t, testDeviceID, event.DeviceID)
	assert.True(t, event.Timestamp.Equal(baseTime))
	assert.False(t, event.Acknowledged)
}

func TestGivenHumidityOnlyRecordBelowEightyThenWarning(t *testing.T) {
	record := entities.AlertRecord{Humidity: float(75), HumRange: "30-70", Timestamp: baseTime.Unix()}

	event := ProjectAlert(testDeviceID, "alert_1710057600_02", record, fixedID(7))

	assert.Equal(t, entities.AlertHumidity, event.Type)
	assert.Equal(t, entities.SeverityWarning, event.Severity)
	assert.Equal(t, "Humidity threshold violation", event.Message)
	assert.Equal(t, 75.0, event.Value)
	assert.Equal(t, "30-70", event.Threshold)
}

func TestGivenHighHumidityThenCriticalWithHumidityMessage(t *testing.T) {
	record := entities.AlertRecord{Humidity: float(85), Timestamp: baseTime.Unix()}

	event := ProjectAlert(testDeviceID, "alert_1", record, fixedID(7))

	assert.Equal(t, entities.SeverityCritical, event.Severity)
	assert.Equal(t, "Humidity threshold violation", event.Message)
	assert.Equal(t, "N/A", event.Threshold)
}

func TestGivenZeroTemperatureThenValueFallsBackToHumidity(t *testing.T) {
	record := entities.AlertRecord{Temperature: float(0), Humidity: float(55), Timestamp: baseTime.Unix()}

	event := ProjectAlert(testDeviceID, "alert_2", record, fixedID(7))

	assert.Equal(t, entities.AlertTemperature, event.Type)
	assert.Equal(t, 55.0, event.Value)
}

func TestGivenKeyWithoutUsableDigitsThenRandomID(t *testing.T) {
	record := entities.AlertRecord{Temperature: float(27)}

	assert.Equal(t, int64(42), ProjectAlert(testDeviceID, "manual-alert", record, fixedID(42)).ID)
	assert.Equal(t, int64(42), ProjectAlert(testDeviceID, "alert_000", record, fixedID(42)).ID)
	assert.Equal(t, int64(42), ProjectAlert(testDeviceID, "alert_99999999999999999999", record, fixedID(42)).ID)
	assert.Equal(t, int64(12), ProjectAlert(testDeviceID, "a1b2", record, fixedID(42)).ID)
}

func TestGivenRecordsThenAlertsSortedByKey(t *testing.T) {
	source := fakeAlertSource{records: map[string]entities.AlertRecord{
		"alert_3": {Humidity: float(90)},
		"alert_1": {Temperature: float(29)},
		"alert_2": {Temperature: float(10), Acknowledged: true},
	}}
	query := NewAlertQuery(source, nil, newTestLogger())

	alerts := query.GetAlerts(context.Background(), testDeviceID)

	require.Len(t, alerts, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{alerts[0].ID, alerts[1].ID, alerts[2].ID})
	assert.True(t, alerts[1].Acknowledged)
	assert.Equal(t, entities.SeverityWarning, alerts[1].Severity)
}

func TestGivenRandomFallbackThenIDWithinRange(t *testing.T) {
	source := fakeAlertSource{records: map[string]entities.AlertRecord{"manual": {Temperature: float(29)}}}
	query := NewAlertQuery(source, nil, newTestLogger())

	alerts := query.GetAlerts(context.Background(), testDeviceID)

	require.Len(t, alerts, 1)
	assert.GreaterOrEqual(t, alerts[0].ID, int64(0))
	assert.Less(t, alerts[0].ID, int64(1000))
}

func TestGivenFetchFailureThenEmptyAlerts(t *testing.T) {
	query := NewAlertQuery(fakeAlertSource{err: errors.New("timeout")}, nil, newTestLogger())

	alerts := query.GetAlerts(context.Background(), testDeviceID)

	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestGivenSinkThenAcknowledgeDelegates(t *testing.T) {
	sink := new(mocks.AlertSinkMock)
	sink.On("AcknowledgeAlert", testDeviceID, "alert_1").Return(true, nil).Once()
	sink.On("AcknowledgeAlert", testDeviceID, "alert_1").Return(false, nil).Once()
	query := NewAlertQuery(fakeAlertSource{}, sink, newTestLogger())

	changed, err := query.Acknowledge(context.Background(), testDeviceID, "alert_1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = query.Acknowledge(context.Background(), testDeviceID, "alert_1")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGivenMissingAlertThenAcknowledgeReturnsNotFound(t *testing.T) {
	sink := new(mocks.AlertSinkMock)
	sink.On("AcknowledgeAlert", testDeviceID, "alert_9").Return(false, ErrAlertNotFound)
	query := NewAlertQuery(fakeAlertSource{}, sink, newTestLogger())

	_, err := query.Acknowledge(context.Background(), testDeviceID, "alert_9")

	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestGivenNoSinkThenAcknowledgeIsReadOnly(t *testing.T) {
	query := NewAlertQuery(fakeAlertSource{}, nil, newTestLogger())

	_, err := query.Acknowledge(context.Background(), testDeviceID, "alert_1")

	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestAlertTimestampIsUnixSeconds(t *testing.T) {
	event := ProjectAlert(testDeviceID, "alert_5", entities.AlertRecord{Humidity: float(20), Timestamp: 60}, fixedID(0))

	assert.Equal(t, time.Unix(60, 0), event.Timestamp)
}
