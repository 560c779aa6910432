package monitor

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultInterval        = 30 * time.Second
	DefaultFirstCheckDelay = 5 * time.Second
	DefaultTickTimeout     = 20 * time.Second
)

type TickOutcome string

const (
	OutcomeCompleted TickOutcome = "completed"
	OutcomeOffline   TickOutcome = "offline"
	OutcomeNoReading TickOutcome = "no_reading"
	OutcomeStale     TickOutcome = "stale"
	OutcomeNoConfig  TickOutcome = "no_config"
	OutcomeDisabled  TickOutcome = "disabled"
	OutcomeFailed    TickOutcome = "failed"
)

type Config struct {
	DeviceID        string
	Interval        time.Duration
	FirstCheckDelay time.Duration
	TickTimeout     time.Duration
	Location        *time.Location
}

type Option func(*Monitor)

func WithRecorder(recorder *AlertRecorder) Option {
	return func(m *Monitor) {
		m.recorder = recorder
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithEmergencyState starts the monitor from a previously observed state.
func WithEmergencyState(state EmergencyState) Option {
	return func(m *Monitor) {
		m.initialEmergency = state
	}
}

// Monitor polls one device and drives its emergency alerts and status reports.
type Monitor struct {
	conf             Config
	store            Store
	notifier         Notifier
	emergency        *EmergencyAlerter
	reports          *ReportDispatcher
	recorder         *AlertRecorder
	initialEmergency EmergencyState
	now              func() time.Time
	log              *logrus.Entry

	lifecycle sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}

	tickMutex sync.Mutex
}

func New(conf Config, store Store, notifier Notifier, log *logrus.Entry, opts ...Option) *Monitor {
	if conf.Interval <= 0 {
		conf.Interval = DefaultInterval
	}
	if conf.FirstCheckDelay <= 0 {
		conf.FirstCheckDelay = DefaultFirstCheckDelay
	}
	if conf.TickTimeout <= 0 {
		conf.TickTimeout = DefaultTickTimeout
	}
	if conf.Location == nil {
		conf.Location = time.Local
	}

	m := &Monitor{
		conf:     conf,
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.emergency = NewEmergencyAlerter(conf.DeviceID, notifier, log, m.initialEmergency)
	m.reports = NewReportDispatcher(conf.DeviceID, notifier, conf.Location, log)
	return m
}

// Start is a no-op when the monitor is already running.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.running {
		m.log.Debugln("monitor already running")
		return
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
	m.log.Infof("monitor started, checking every %s", m.conf.Interval)
}

// Stop cancels the pending checks and waits for a running one to finish. It is a
// no-op when the monitor is not running.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running {
		return
	}

	close(m.stop)
	<-m.done
	m.running = false
	m.log.Infoln("monitor stopped")
}

func (m *Monitor) IsRunning() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.running
}

func (m *Monitor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	firstCheck := time.NewTimer(m.conf.FirstCheckDelay)
	defer firstCheck.Stop()
	ticker := time.NewTicker(m.conf.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-firstCheck.C:
			m.tick(stop)
		case <-ticker.C:
			m.tick(stop)
		}
	}
}

func (m *Monitor) tick(stop <-chan struct{}) {
	select {
	case <-stop:
		return
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.conf.TickTimeout)
	defer cancel()
	m.RunOnce(ctx)
}

// RunOnce performs a single check. Concurrent calls are serialised with each
// other and with the loop.
func (m *Monitor) RunOnce(ctx context.Context) (outcome TickOutcome) {
	m.tickMutex.Lock()
	defer m.tickMutex.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.log.WithField("stack", string(debug.Stack())).Errorf("panic recovered in monitor check: %v", r)
			metrics.PanicsRecovered.WithLabelValues("monitor").Inc()
			outcome = OutcomeFailed
		}
		metrics.TicksTotal.WithLabelValues(m.conf.DeviceID, string(outcome)).Inc()
		metrics.TickDuration.WithLabelValues(m.conf.DeviceID).Observe(time.Since(start).Seconds())
	}()

	return m.check(ctx)
}

func (m *Monitor) check(ctx context.Context) TickOutcome {
	now := m.now()
	deviceID := m.conf.DeviceID

	m.reports.ResetIfNewDay(now)

	status, err := m.store.GetDeviceStatus(ctx, deviceID)
	if err != nil {
		m.log.WithError(err).Errorln("failed to fetch device status")
		return OutcomeFailed
	}
	if !status.IsOnline {
		m.log.Debugf("device %s is offline, skipping check", deviceID)
		return OutcomeOffline
	}

	reading, err := m.store.GetLatestReading(ctx, deviceID)
	if errors.Is(err, entities.ErrMalformedReading) {
		m.log.WithError(err).Warnln("ignoring unusable reading")
		return OutcomeNoReading
	}
	if err != nil {
		m.log.WithError(err).Errorln("failed to fetch latest reading")
		return OutcomeFailed
	}
	if reading == nil {
		m.log.Debugln("no sensor data available")
		return OutcomeNoReading
	}
	// Readings ahead of the server clock have a negative age and are still checked.
	if reading.Timestamp.IsZero() {
		m.log.WithError(entities.ErrZeroTimestamp).Warnln("ignoring unusable reading")
		return OutcomeNoReading
	}
	if reading.IsStale(now) {
		m.log.Debugf("reading is stale (%s old), skipping check", reading.Age(now).Truncate(time.Second))
		return OutcomeStale
	}

	config, err := m.store.GetDeviceConfig(ctx, deviceID)
	if err != nil {
		m.log.WithError(err).Errorln("failed to fetch threshold configuration")
		return OutcomeFailed
	}
	if config == nil {
		m.log.Debugln("no threshold configuration found")
		return OutcomeNoConfig
	}

	record, err := m.store.GetNotificationSchedule(ctx, deviceID)
	if err != nil {
		m.log.WithError(err).Warnln("failed to fetch notification schedule, using defaults")
	}
	schedule := entities.ResolveSchedule(record, err)
	if !schedule.Enabled {
		m.log.Debugln("notifications disabled")
		return OutcomeDisabled
	}

	evaluation := Evaluate(*reading, *config)
	m.log.Debugf("checked %s: alert=%t", reading, evaluation.HasAlert)

	if schedule.EmergencyEnabled {
		m.emergency.Handle(ctx, evaluation.HasAlert, *reading, *config, now)
	}

	if m.recorder != nil && evaluation.HasAlert {
		if _, err := m.recorder.Record(ctx, *reading, *config, evaluation); err != nil {
			m.log.WithError(err).Errorln("failed to record alert")
		}
	}

	m.reports.Dispatch(ctx, *reading, schedule, now)
	return OutcomeCompleted
}

// SendTest sends a test notification through the configured transport.
func (m *Monitor) SendTest(ctx context.Context) error {
	err := m.notifier.Notify(ctx, "🧪 Test Alert", "This is a test notification from your monitoring system.")
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(m.conf.DeviceID, "test", "failed").Inc()
		return errors.Wrap(err, "sending test notification")
	}
	metrics.NotificationsTotal.WithLabelValues(m.conf.DeviceID, "test", "sent").Inc()
	return nil
}

// EmergencyState returns a snapshot of the emergency state.
func (m *Monitor) EmergencyState() EmergencyState {
	m.tickMutex.Lock()
	defer m.tickMutex.Unlock()
	return m.emergency.State()
}

// Tracker returns a snapshot of today's sent report slots.
func (m *Monitor) Tracker() DailySentTracker {
	m.tickMutex.Lock()
	defer m.tickMutex.Unlock()
	return m.reports.Tracker()
}
