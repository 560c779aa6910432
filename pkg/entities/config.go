package entities

import "time"

type MonitorConfig struct {
	DeviceID        string           `yaml:"deviceId"`
	LogLevel        string           `yaml:"logLevel"`
	LogFormat       string           `yaml:"logFormat"`
	Timezone        string           `yaml:"timezone"`
	PollInterval    time.Duration    `yaml:"pollInterval"`
	FirstCheckDelay time.Duration    `yaml:"firstCheckDelay"`
	TickTimeout     time.Duration    `yaml:"tickTimeout"`
	Redis           RedisConfig      `yaml:"redis"`
	AMQP            AMQPConfig       `yaml:"amqp"`
	Telegram        TelegramConfig   `yaml:"telegram"`
	Recorder        RecorderConfig   `yaml:"recorder"`
	Metrics         MetricsConfig    `yaml:"metrics"`
	Thresholds      *ThresholdConfig `yaml:"thresholds"`
	Schedule        *ScheduleRecord  `yaml:"schedule"`
	ThresholdsFile  string           `yaml:"thresholdsFile"`
	ScheduleFile    string           `yaml:"scheduleFile"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AMQPConfig struct {
	URL            string        `yaml:"url"`
	Exchange       string        `yaml:"exchange"`
	AckExchange    string        `yaml:"ackExchange"`
	AckQueue       string        `yaml:"ackQueue"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

type RecorderConfig struct {
	Enabled              bool    `yaml:"enabled"`
	Capacity             uint    `yaml:"capacity"`
	FalsePositiveRate    float64 `yaml:"falsePositiveRate"`
	ResetUsagePercentage float32 `yaml:"resetUsagePercentage"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DeviceID:        "ESP-SERVER-01",
		LogLevel:        "info",
		LogFormat:       "text",
		Timezone:        "Local",
		PollInterval:    30 * time.Second,
		FirstCheckDelay: 5 * time.Second,
		TickTimeout:     20 * time.Second,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		AMQP: AMQPConfig{
			Exchange:       "room.notifications",
			AckExchange:    "room.acks",
			AckQueue:       "room-monitor-acks",
			ConnectTimeout: time.Minute,
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Recorder: RecorderConfig{
			Enabled:              true,
			Capacity:             100000,
			FalsePositiveRate:    0.01,
			ResetUsagePercentage: 75,
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
	}
}
