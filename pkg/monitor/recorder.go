package monitor

import (
	"context"
	"fmt"

	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/janael-pinheiro/room-monitor-golang/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	temperatureCode = 1
	humidityCode    = 2
)

// AlertRecorder persists one alert record per breached metric of a reading. A
// reading seen again on a later tick is filtered out before touching the store.
type AlertRecorder struct {
	deviceID                     string
	sink                         AlertSink
	filter                       *bloomFilter.BloomFilter
	filterCapacity               uint
	maximumPercentageFilterUsage float32
	log                          *logrus.Entry
}

func NewAlertRecorder(deviceID string, sink AlertSink, conf entities.RecorderConfig, log *logrus.Entry) *AlertRecorder {
	return &AlertRecorder{
		deviceID:                     deviceID,
		sink:                         sink,
		filter:                       bloomFilter.NewWithEstimates(conf.Capacity, conf.FalsePositiveRate),
		filterCapacity:               conf.Capacity,
		maximumPercentageFilterUsage: conf.ResetUsagePercentage,
		log:                          log,
	}
}

// Record stores the breaches of evaluation and returns how many records were written.
func (r *AlertRecorder) Record(ctx context.Context, reading entities.Reading, config entities.ThresholdConfig, evaluation Evaluation) (int, error) {
	unix := reading.Timestamp.Unix()
	written := 0

	if evaluation.TempAlert {
		temperature := reading.Temperature
		record := entities.AlertRecord{
			Temperature: &temperature,
			TempRange:   fmt.Sprintf("%v-%v", config.TempMin, config.TempMax),
			Timestamp:   unix,
		}
		ok, err := r.save(ctx, unix, temperatureCode, entities.AlertTemperature, record)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}

	if evaluation.HumAlert {
		humidity := reading.Humidity
		record := entities.AlertRecord{
			Humidity:  &humidity,
			HumRange:  fmt.Sprintf("%v-%v", config.HumMin, config.HumMax),
			Timestamp: unix,
		}
		ok, err := r.save(ctx, unix, humidityCode, entities.AlertHumidity, record)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (r *AlertRecorder) save(ctx context.Context, unix int64, code int, metric string, record entities.AlertRecord) (bool, error) {
	fingerprint := []byte(fmt.Sprintf("%d_%s", unix, metric))
	if r.filter.Test(fingerprint) {
		r.log.Debugf("%s alert for reading at %d already recorded", metric, unix)
		metrics.AlertRecordsTotal.WithLabelValues(r.deviceID, "duplicate").Inc()
		return false, nil
	}

	key := AlertKey(unix, code)
	if err := r.sink.SaveAlertRecord(ctx, r.deviceID, key, record); err != nil {
		metrics.AlertRecordsTotal.WithLabelValues(r.deviceID, "failed").Inc()
		return false, errors.Wrapf(err, "saving alert record %s", key)
	}

	r.resetFilter()
	r.filter.Add(fingerprint)
	r.log.Infof("%s alert recorded as %s", metric, key)
	metrics.AlertRecordsTotal.WithLabelValues(r.deviceID, "written").Inc()
	return true, nil
}

func (r *AlertRecorder) resetFilter() {
	if r.filterCapacity == 0 {
		return
	}
	currentPercentageFilterUsage := (float32(r.filter.ApproximatedSize()) / float32(r.filterCapacity)) * 100
	if currentPercentageFilterUsage >= r.maximumPercentageFilterUsage {
		r.log.Infof("duplication filter at %.1f%% of capacity, clearing", currentPercentageFilterUsage)
		r.filter.ClearAll()
	}
}

// AlertKey names the record of one metric of the reading taken at unix seconds.
func AlertKey(unix int64, code int) string {
	return fmt.Sprintf("alert_%d_%02d", unix, code)
}
