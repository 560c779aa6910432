package entities

const (
	ScheduleFixed    string = "fixed"
	ScheduleInterval string = "interval"

	defaultIntervalHours = 4
	defaultMaxPerDay     = 3
)

type QuietHours struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// ScheduleRecord is the notification schedule as stored; any field may be missing.
type ScheduleRecord struct {
	Enabled          *bool       `json:"enabled,omitempty" yaml:"enabled"`
	ScheduleType     string      `json:"scheduleType,omitempty" yaml:"scheduleType"`
	FixedTimes       []string    `json:"fixedTimes,omitempty" yaml:"fixedTimes"`
	IntervalHours    int         `json:"intervalHours,omitempty" yaml:"intervalHours"`
	MaxPerDay        int         `json:"maxPerDay,omitempty" yaml:"maxPerDay"`
	EmergencyEnabled *bool       `json:"emergencyEnabled,omitempty" yaml:"emergencyEnabled"`
	QuietHours       *QuietHours `json:"quietHours,omitempty" yaml:"quietHours"`
}

// NotificationSchedule is a fully resolved schedule. IntervalHours, MaxPerDay and
// QuietHours are carried for the settings surface; dispatch only reads Enabled,
// FixedTimes and EmergencyEnabled.
type NotificationSchedule struct {
	Enabled          bool       `json:"enabled"`
	ScheduleType     string     `json:"scheduleType"`
	FixedTimes       []string   `json:"fixedTimes"`
	IntervalHours    int        `json:"intervalHours"`
	MaxPerDay        int        `json:"maxPerDay"`
	EmergencyEnabled bool       `json:"emergencyEnabled"`
	QuietHours       QuietHours `json:"quietHours"`
}

func DefaultFixedTimes() []string {
	return []string{"08:00", "13:00", "18:00"}
}

func DefaultQuietHours() QuietHours {
	return QuietHours{Start: "22:00", End: "06:00"}
}

func DefaultNotificationSchedule() NotificationSchedule {
	return NotificationSchedule{
		Enabled:          true,
		ScheduleType:     ScheduleFixed,
		FixedTimes:       DefaultFixedTimes(),
		IntervalHours:    defaultIntervalHours,
		MaxPerDay:        defaultMaxPerDay,
		EmergencyEnabled: false,
		QuietHours:       DefaultQuietHours(),
	}
}

// ResolveSchedule applies the default-substitution policy to a fetched schedule.
// A fetch error or a missing record yields the defaults; otherwise every absent
// field is replaced by its default individually.
func ResolveSchedule(record *ScheduleRecord, err error) NotificationSchedule {
	schedule := DefaultNotificationSchedule()
	if err != nil || record == nil {
		return schedule
	}

	if record.Enabled != nil {
		schedule.Enabled = *record.Enabled
	}
	if record.ScheduleType != "" {
		schedule.ScheduleType = record.ScheduleType
	}
	if len(record.FixedTimes) > 0 {
		schedule.FixedTimes = append([]string(nil), record.FixedTimes...)
	}
	if record.IntervalHours != 0 {
		schedule.IntervalHours = record.IntervalHours
	}
	if record.MaxPerDay != 0 {
		schedule.MaxPerDay = record.MaxPerDay
	}
	if record.EmergencyEnabled != nil {
		schedule.EmergencyEnabled = *record.EmergencyEnabled
	}
	if record.QuietHours != nil {
		schedule.QuietHours = *record.QuietHours
	}
	return schedule
}
