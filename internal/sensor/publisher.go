package sensor

import "github.com/tbrandt/iiobridge/internal/hwmon"

// Metadata describes a sensor to the outbound side before readings flow.
type Metadata struct {
	Name     string
	Modality hwmon.Modality
	Schema   string
}

// Reading is one polled sensor value. Alarms carries the severities of
// any thresholds the value currently exceeds.
type Reading struct {
	Sensor string
	Value  float64
	Alarms []string
}

// Publisher is the outbound side of a sensor. Implementations must be
// safe for use from multiple sensor goroutines.
type Publisher interface {
	// Announce registers the sensor with the downstream consumer, for
	// example by publishing a discovery document. Called once per sensor
	// instance before the first reading.
	Announce(meta Metadata) error
	// Publish delivers one reading.
	Publish(r Reading) error
}
