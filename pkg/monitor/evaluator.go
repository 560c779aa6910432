package monitor

import (
	"fmt"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
)

type Evaluation struct {
	TempAlert bool
	HumAlert  bool
	HasAlert  bool
}

// Evaluate classifies a reading against the thresholds. A value equal to a
// minimum or maximum is within range and never a breach.
func Evaluate(reading entities.Reading, config entities.ThresholdConfig) Evaluation {
	tempAlert := reading.Temperature < config.TempMin || reading.Temperature > config.TempMax
	humAlert := reading.Humidity < config.HumMin || reading.Humidity > config.HumMax
	return Evaluation{
		TempAlert: tempAlert,
		HumAlert:  humAlert,
		HasAlert:  tempAlert || humAlert,
	}
}

// BreachMessages describes every bound the reading crosses, temperature first.
func BreachMessages(reading entities.Reading, config entities.ThresholdConfig) []string {
	var messages []string
	switch {
	case reading.Temperature < config.TempMin:
		messages = append(messages, fmt.Sprintf("Temperature %v°C is below minimum (%v°C)", reading.Temperature, config.TempMin))
	case reading.Temperature > config.TempMax:
		messages = append(messages, fmt.Sprintf("Temperature %v°C exceeds maximum (%v°C)", reading.Temperature, config.TempMax))
	}
	switch {
	case reading.Humidity < config.HumMin:
		messages = append(messages, fmt.Sprintf("Humidity %v%% is below minimum (%v%%)", reading.Humidity, config.HumMin))
	case reading.Humidity > config.HumMax:
		messages = append(messages, fmt.Sprintf("Humidity %v%% exceeds maximum (%v%%)", reading.Humidity, config.HumMax))
	}
	return messages
}
