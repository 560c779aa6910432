package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type config interface {
	entities.MonitorConfig | entities.ThresholdConfig | entities.ScheduleRecord
}

func readTextFile(filepathName string) ([]byte, error) {
	fileContent, err := os.ReadFile(filepath.Clean(filepathName))
	return fileContent, err
}

// ConfigurationParser decodes the YAML file on top of configEntity, so fields the
// file omits keep the values configEntity already carries.
func ConfigurationParser[T config](filepathName string, configEntity T) (T, error) {
	fileContent, err := readTextFile(filepathName)
	if err != nil {
		return configEntity, err
	}

	err = yaml.Unmarshal(fileContent, &configEntity)
	return configEntity, err
}

func GetValueFromEnvironmentVariable(variableName, defaultValue string) string {
	value := os.Getenv(variableName)
	if value != "" {
		return value
	}
	return defaultValue
}

// LoadMonitorConfig reads the YAML file (when filepathName is not empty) over the
// defaults, applies environment overrides and then reads the seed files.
func LoadMonitorConfig(filepathName string) (entities.MonitorConfig, error) {
	conf := entities.DefaultMonitorConfig()
	if filepathName != "" {
		var err error
		conf, err = ConfigurationParser(filepathName, conf)
		if err != nil {
			return conf, errors.Wrapf(err, "parse monitor configuration %s", filepathName)
		}
	}
	conf, err := applyEnvironment(conf)
	if err != nil {
		return conf, err
	}
	return loadSeedFiles(conf)
}

// loadSeedFiles replaces the inline thresholds and schedule with the content of
// their seed files when those are configured.
func loadSeedFiles(conf entities.MonitorConfig) (entities.MonitorConfig, error) {
	if conf.ThresholdsFile != "" {
		thresholds, err := ConfigurationParser(conf.ThresholdsFile, entities.ThresholdConfig{})
		if err != nil {
			return conf, errors.Wrapf(err, "parse thresholds %s", conf.ThresholdsFile)
		}
		conf.Thresholds = &thresholds
	}
	if conf.ScheduleFile != "" {
		schedule, err := ConfigurationParser(conf.ScheduleFile, entities.ScheduleRecord{})
		if err != nil {
			return conf, errors.Wrapf(err, "parse notification schedule %s", conf.ScheduleFile)
		}
		conf.Schedule = &schedule
	}
	return conf, nil
}

func applyEnvironment(conf entities.MonitorConfig) (entities.MonitorConfig, error) {
	conf.DeviceID = GetValueFromEnvironmentVariable("DEVICE_ID", conf.DeviceID)
	conf.LogLevel = GetValueFromEnvironmentVariable("LOG_LEVEL", conf.LogLevel)
	conf.Timezone = GetValueFromEnvironmentVariable("TZ_NAME", conf.Timezone)
	conf.Redis.Addr = GetValueFromEnvironmentVariable("REDIS_ADDR", conf.Redis.Addr)
	conf.Redis.Password = GetValueFromEnvironmentVariable("REDIS_PASSWORD", conf.Redis.Password)
	conf.AMQP.URL = GetValueFromEnvironmentVariable("AMQP_URL", conf.AMQP.URL)
	conf.Telegram.BotToken = GetValueFromEnvironmentVariable("TELEGRAM_BOT_TOKEN", conf.Telegram.BotToken)
	conf.Telegram.ChatID = GetValueFromEnvironmentVariable("TELEGRAM_CHAT_ID", conf.Telegram.ChatID)
	conf.ThresholdsFile = GetValueFromEnvironmentVariable("THRESHOLDS_FILE", conf.ThresholdsFile)
	conf.ScheduleFile = GetValueFromEnvironmentVariable("SCHEDULE_FILE", conf.ScheduleFile)

	redisDB, err := strconv.Atoi(GetValueFromEnvironmentVariable("REDIS_DB", strconv.Itoa(conf.Redis.DB)))
	if err != nil {
		return conf, errors.Wrap(err, "REDIS_DB environment variable with invalid value")
	}
	conf.Redis.DB = redisDB

	pollInterval, err := time.ParseDuration(GetValueFromEnvironmentVariable("POLL_INTERVAL", conf.PollInterval.String()))
	if err != nil {
		return conf, errors.Wrap(err, "POLL_INTERVAL environment variable with invalid value")
	}
	conf.PollInterval = pollInterval

	return conf, nil
}

// LoadLocation resolves the configured timezone name; "" and "Local" mean the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", name)
	}
	return location, nil
}
