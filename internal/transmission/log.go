package transmission

import (
	"github.com/sirupsen/logrus"

	"github.com/tbrandt/iiobridge/internal/sensor"
)

// LogTransmitter is the fallback publisher used when no MQTT broker is
// configured: readings are only logged.
type LogTransmitter struct {
	logger *logrus.Logger
}

// NewLogTransmitter creates a log-only publisher.
func NewLogTransmitter(logger *logrus.Logger) *LogTransmitter {
	return &LogTransmitter{logger: logger}
}

// Announce logs the new sensor.
func (t *LogTransmitter) Announce(meta sensor.Metadata) error {
	t.logger.WithFields(logrus.Fields{
		"sensor":   meta.Name,
		"modality": meta.Modality,
		"schema":   meta.Schema,
	}).Info("sensor active")
	return nil
}

// Publish logs the reading.
func (t *LogTransmitter) Publish(r sensor.Reading) error {
	fields := logrus.Fields{"sensor": r.Sensor, "value": r.Value}
	if len(r.Alarms) > 0 {
		fields["alarms"] = r.Alarms
	}
	t.logger.WithFields(fields).Info("reading")
	return nil
}
