package redisstore

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/logging"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/monitor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const deviceID = "ESP-SERVER-01"

var now = time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)

type redisStoreSuite struct {
	suite.Suite
	server *miniredis.Miniredis
	client *redis.Client
	store  *Store
	ctx    context.Context
}

func (r *redisStoreSuite) SetupTest() {
	r.server = miniredis.RunT(r.T())
	r.client = redis.NewClient(&redis.Options{Addr: r.server.Addr()})
	r.store = NewStore(r.client, logging.NewLogrus("error", io.Discard).Get("redis_test"))
	r.store.now = func() time.Time { return now }
	r.ctx = context.Background()
}

func (r *redisStoreSuite) TearDownTest() {
	r.client.Close()
}

func (r *redisStoreSuite) TestGivenNoReadingsThenNil() {
	reading, err := r.store.GetLatestReading(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.Nil(r.T(), reading)
}

func (r *redisStoreSuite) TestGivenSavedReadingsThenLatestReturned() {
	require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: 21, Humidity: 40, Timestamp: now.Add(-time.Minute)}))
	require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: 23.5, Humidity: 45, Timestamp: now}))

	reading, err := r.store.GetLatestReading(r.ctx, deviceID)

	require.NoError(r.T(), err)
	require.NotNil(r.T(), reading)
	assert.Equal(r.T(), 23.5, reading.Temperature)
	assert.Equal(r.T(), 45.0, reading.Humidity)
	assert.True(r.T(), reading.Timestamp.Equal(now))
	assert.Equal(r.T(), deviceID, reading.SensorID)
}

func (r *redisStoreSuite) TestReadingHistoryIsTrimmed() {
	for i := 0; i < MaxStoredReadings+5; i++ {
		require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: float64(i), Timestamp: now}))
	}

	length, err := r.client.LLen(r.ctx, "device:"+deviceID+":readings").Result()

	require.NoError(r.T(), err)
	assert.Equal(r.T(), int64(MaxStoredReadings), length)
}

func (r *redisStoreSuite) TestGivenMalformedReadingThenMalformedError() {
	r.server.RPush("device:"+deviceID+":readings", "{not json")

	_, err := r.store.GetLatestReading(r.ctx, deviceID)

	assert.ErrorIs(r.T(), err, entities.ErrMalformedReading)
}

func (r *redisStoreSuite) TestGivenReadingWithoutTimestampThenZeroTime() {
	r.server.RPush("device:"+deviceID+":readings", `{"temperature":22,"humidity":50}`)

	reading, err := r.store.GetLatestReading(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.True(r.T(), reading.Timestamp.IsZero())
}

func (r *redisStoreSuite) TestGivenRecentHeartbeatThenOnline() {
	require.NoError(r.T(), r.store.TouchStatus(r.ctx, deviceID, "Server Room Main", now.Add(-90*time.Second)))

	status, err := r.store.GetDeviceStatus(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.True(r.T(), status.IsOnline)
	assert.Equal(r.T(), entities.StatusOnline, status.Status)
	assert.Equal(r.T(), "Server Room Main", status.Name)
	assert.Equal(r.T(), 1, status.MinutesAgo)
}

func (r *redisStoreSuite) TestGivenOldHeartbeatThenOffline() {
	require.NoError(r.T(), r.store.TouchStatus(r.ctx, deviceID, "", now.Add(-3*time.Minute)))
	require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: 22, Timestamp: now}))

	status, err := r.store.GetDeviceStatus(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.False(r.T(), status.IsOnline)
	assert.Equal(r.T(), entities.StatusOffline, status.Status)
	assert.Equal(r.T(), 3, status.MinutesAgo)
	assert.Equal(r.T(), deviceID, status.Name)
}

func (r *redisStoreSuite) TestGivenNoHeartbeatThenRecentReadingMeansOnline() {
	require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: 22, Timestamp: now.Add(-4 * time.Minute)}))

	status, err := r.store.GetDeviceStatus(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.True(r.T(), status.IsOnline)
}

func (r *redisStoreSuite) TestGivenHeartbeatFromFutureThenReadingDecides() {
	require.NoError(r.T(), r.store.TouchStatus(r.ctx, deviceID, "", now.Add(time.Hour)))
	require.NoError(r.T(), r.store.SaveReading(r.ctx, deviceID, entities.Reading{Temperature: 22, Timestamp: now.Add(-6 * time.Minute)}))

	status, err := r.store.GetDeviceStatus(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.False(r.T(), status.IsOnline)
	assert.Equal(r.T(), 6, status.MinutesAgo)
}

func (r *redisStoreSuite) TestGivenNothingKnownThenOffline() {
	status, err := r.store.GetDeviceStatus(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.False(r.T(), status.IsOnline)
	assert.True(r.T(), status.LastSeen.IsZero())
}

func (r *redisStoreSuite) TestDeviceConfigRoundTrip() {
	missing, err := r.store.GetDeviceConfig(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.Nil(r.T(), missing)

	config := entities.ThresholdConfig{TempMin: 18, TempMax: 27, HumMin: 40, HumMax: 70}
	require.NoError(r.T(), r.store.SaveDeviceConfig(r.ctx, deviceID, config))

	stored, err := r.store.GetDeviceConfig(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.Equal(r.T(), &config, stored)
}

func (r *redisStoreSuite) TestEnsureDeviceConfigKeepsExisting() {
	existing := entities.ThresholdConfig{TempMin: 10, TempMax: 20, HumMin: 10, HumMax: 20}
	require.NoError(r.T(), r.store.SaveDeviceConfig(r.ctx, deviceID, existing))

	stored, err := r.store.EnsureDeviceConfig(r.ctx, deviceID, entities.ThresholdConfig{TempMin: 18, TempMax: 27})

	require.NoError(r.T(), err)
	assert.False(r.T(), stored)
	config, err := r.store.GetDeviceConfig(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.Equal(r.T(), &existing, config)
}

func (r *redisStoreSuite) TestGivenCorruptConfigThenError() {
	require.NoError(r.T(), r.server.Set("device:"+deviceID+":config", "[]"))

	_, err := r.store.GetDeviceConfig(r.ctx, deviceID)

	assert.Error(r.T(), err)
}

func (r *redisStoreSuite) TestNotificationScheduleKeepsAbsentFields() {
	enabled := false
	require.NoError(r.T(), r.store.SaveNotificationSchedule(r.ctx, deviceID, entities.ScheduleRecord{Enabled: &enabled}))

	record, err := r.store.GetNotificationSchedule(r.ctx, deviceID)

	require.NoError(r.T(), err)
	require.NotNil(r.T(), record.Enabled)
	assert.False(r.T(), *record.Enabled)
	assert.Nil(r.T(), record.EmergencyEnabled)
	assert.Empty(r.T(), record.FixedTimes)
}

func (r *redisStoreSuite) TestEnsureNotificationScheduleStoresWhenMissing() {
	stored, err := r.store.EnsureNotificationSchedule(r.ctx, deviceID, entities.ScheduleRecord{FixedTimes: []string{"09:00"}})
	require.NoError(r.T(), err)
	assert.True(r.T(), stored)

	record, err := r.store.GetNotificationSchedule(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.Equal(r.T(), []string{"09:00"}, record.FixedTimes)
}

func (r *redisStoreSuite) TestAlertRecordsRoundTrip() {
	temperature := 30.0
	record := entities.AlertRecord{Temperature: &temperature, TempRange: "18-26", Timestamp: now.Unix()}
	require.NoError(r.T(), r.store.SaveAlertRecord(r.ctx, deviceID, "alert_1710057600_01", record))
	r.server.HSet("device:"+deviceID+":alerts", "broken", "{")

	records, err := r.store.FetchAlertRecords(r.ctx, deviceID)

	require.NoError(r.T(), err)
	assert.Equal(r.T(), map[string]entities.AlertRecord{"alert_1710057600_01": record}, records)
}

func (r *redisStoreSuite) TestAcknowledgeAlertOnce() {
	humidity := 85.0
	require.NoError(r.T(), r.store.SaveAlertRecord(r.ctx, deviceID, "alert_1", entities.AlertRecord{Humidity: &humidity, Timestamp: now.Unix()}))

	changed, err := r.store.AcknowledgeAlert(r.ctx, deviceID, "alert_1")
	require.NoError(r.T(), err)
	assert.True(r.T(), changed)

	changed, err = r.store.AcknowledgeAlert(r.ctx, deviceID, "alert_1")
	require.NoError(r.T(), err)
	assert.False(r.T(), changed)

	records, err := r.store.FetchAlertRecords(r.ctx, deviceID)
	require.NoError(r.T(), err)
	assert.True(r.T(), records["alert_1"].Acknowledged)
}

func (r *redisStoreSuite) TestAcknowledgeMissingAlert() {
	_, err := r.store.AcknowledgeAlert(r.ctx, deviceID, "alert_404")

	assert.ErrorIs(r.T(), err, monitor.ErrAlertNotFound)
}

func (r *redisStoreSuite) TestAlertQueryOverRedis() {
	temperature := 30.0
	require.NoError(r.T(), r.store.SaveAlertRecord(r.ctx, deviceID, "alert_1710057600_01", entities.AlertRecord{Temperature: &temperature, TempRange: "18-26", Timestamp: now.Unix()}))
	query := monitor.NewAlertQuery(r.store, r.store, logging.NewLogrus("error", io.Discard).Get("alerts_test"))

	alerts := query.GetAlerts(r.ctx, deviceID)

	require.Len(r.T(), alerts, 1)
	assert.Equal(r.T(), entities.SeverityCritical, alerts[0].Severity)
	assert.Equal(r.T(), int64(171005760001), alerts[0].ID)
}

func (r *redisStoreSuite) TestGivenServerDownThenErrors() {
	r.server.Close()

	_, err := r.store.GetLatestReading(r.ctx, deviceID)
	assert.Error(r.T(), err)
	_, err = r.store.GetDeviceStatus(r.ctx, deviceID)
	assert.Error(r.T(), err)
}

func TestNewClient(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := NewClient(context.Background(), entities.RedisConfig{Addr: server.Addr()})

	require.NoError(t, err)
	client.Close()
}

func TestGivenUnreachableRedisThenNewClientFails(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewClient(context.Background(), entities.RedisConfig{Addr: addr})

	assert.Error(t, err)
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(redisStoreSuite))
}
