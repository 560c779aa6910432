package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const (
	slotLayout = "15:04"
	dateLayout = "2006-01-02"
)

type DailySentTracker struct {
	LastResetDate string
	SentToday     map[string]bool
}

func (t DailySentTracker) copy() DailySentTracker {
	sent := make(map[string]bool, len(t.SentToday))
	for slot, value := range t.SentToday {
		sent[slot] = value
	}
	return DailySentTracker{LastResetDate: t.LastResetDate, SentToday: sent}
}

// ReportDispatcher sends the fixed-time status reports, each slot at most once per
// calendar day in its location. It is not safe for concurrent use.
type ReportDispatcher struct {
	deviceID string
	tracker  DailySentTracker
	notifier Notifier
	location *time.Location
	log      *logrus.Entry
}

func NewReportDispatcher(deviceID string, notifier Notifier, location *time.Location, log *logrus.Entry) *ReportDispatcher {
	if location == nil {
		location = time.Local
	}
	return &ReportDispatcher{
		deviceID: deviceID,
		tracker:  DailySentTracker{SentToday: map[string]bool{}},
		notifier: notifier,
		location: location,
		log:      log,
	}
}

func (d *ReportDispatcher) Tracker() DailySentTracker {
	return d.tracker.copy()
}

// ResetIfNewDay clears the sent slots when now falls on a different date than the
// last reset. It reports whether a reset happened.
func (d *ReportDispatcher) ResetIfNewDay(now time.Time) bool {
	today := now.In(d.location).Format(dateLayout)
	if d.tracker.LastResetDate == today {
		return false
	}
	d.log.Infof("resetting daily report tracking for %s", today)
	d.tracker = DailySentTracker{LastResetDate: today, SentToday: map[string]bool{}}
	return true
}

// Dispatch sends the report for the first configured slot matching now's minute
// that has not gone out today. The slot is marked even when delivery fails.
func (d *ReportDispatcher) Dispatch(ctx context.Context, reading entities.Reading, schedule entities.NotificationSchedule, now time.Time) (string, bool) {
	d.ResetIfNewDay(now)

	currentTime := now.In(d.location).Format(slotLayout)
	d.log.Debugf("current time %s, fixed times %v", currentTime, schedule.FixedTimes)

	for _, slot := range schedule.FixedTimes {
		if slot != currentTime || d.tracker.SentToday[slot] {
			continue
		}

		body := fmt.Sprintf("Temperature: %v°C\nHumidity: %v%%\nTime: %s", reading.Temperature, reading.Humidity, currentTime)
		if err := d.notifier.Notify(ctx, "📈 Status Report", body); err != nil {
			d.log.WithError(err).Errorf("failed to send status report for %s", slot)
			metrics.NotificationsTotal.WithLabelValues(d.deviceID, "report", "failed").Inc()
		} else {
			d.log.Infof("status report sent for %s", slot)
			metrics.NotificationsTotal.WithLabelValues(d.deviceID, "report", "sent").Inc()
		}
		d.tracker.SentToday[slot] = true
		return slot, true
	}
	return "", false
}
