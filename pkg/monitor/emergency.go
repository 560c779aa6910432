package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const (
	MaxEmergencyAlerts = 3
	EmergencyCooldown  = 15 * time.Minute
)

// EmergencyAlerter sends at most MaxEmergencyAlerts notifications per excursion,
// EmergencyCooldown apart. It is not safe for concurrent use; the Monitor
// serialises every call.
type EmergencyAlerter struct {
	deviceID    string
	state       EmergencyState
	notifier    Notifier
	transitions transitionHandler
	log         *logrus.Entry
}

func NewEmergencyAlerter(deviceID string, notifier Notifier, log *logrus.Entry, initial EmergencyState) *EmergencyAlerter {
	return &EmergencyAlerter{
		deviceID:    deviceID,
		state:       initial,
		notifier:    notifier,
		transitions: newTransitionChain(log),
		log:         log,
	}
}

func (e *EmergencyAlerter) State() EmergencyState {
	return e.state
}

// Handle consumes one tick's classification. It reports whether a notification
// was attempted; a failed delivery still counts against the excursion's budget.
func (e *EmergencyAlerter) Handle(ctx context.Context, hasAlert bool, reading entities.Reading, config entities.ThresholdConfig, now time.Time) bool {
	e.transitions.execute(&e.state, hasAlert)
	e.state.LastAlertState = hasAlert
	defer e.publishState()

	if !e.state.IsActive || !hasAlert {
		return false
	}

	if e.state.SentCount >= MaxEmergencyAlerts {
		e.log.Infof("max emergency alerts reached (%d/%d)", e.state.SentCount, MaxEmergencyAlerts)
		return false
	}
	if e.state.SentCount > 0 && now.Sub(e.state.LastSentTime) < EmergencyCooldown {
		e.log.Debugf("emergency cooldown, next alert after %s", e.state.LastSentTime.Add(EmergencyCooldown).Format(time.RFC3339))
		return false
	}

	e.state.SentCount++
	e.state.LastSentTime = now

	title := fmt.Sprintf("🚨 EMERGENCY ALERT (%d/%d)", e.state.SentCount, MaxEmergencyAlerts)
	body := strings.Join(BreachMessages(reading, config), "\n")
	if err := e.notifier.Notify(ctx, title, body); err != nil {
		e.log.WithError(err).Errorf("failed to send emergency alert (%d/%d)", e.state.SentCount, MaxEmergencyAlerts)
		metrics.NotificationsTotal.WithLabelValues(e.deviceID, "emergency", "failed").Inc()
		return true
	}

	e.log.Infof("emergency alert sent (%d/%d)", e.state.SentCount, MaxEmergencyAlerts)
	metrics.NotificationsTotal.WithLabelValues(e.deviceID, "emergency", "sent").Inc()
	return true
}

func (e *EmergencyAlerter) publishState() {
	metrics.EmergencyActive.WithLabelValues(e.deviceID).Set(metrics.BoolToGauge(e.state.IsActive))
	metrics.EmergencySentCount.WithLabelValues(e.deviceID).Set(float64(e.state.SentCount))
}
