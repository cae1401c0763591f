package config

import "time"

// Central place for all application-wide defaults and timing constants.
// The debounce window and default poll rate are policy, not protocol:
// both can be overridden from the config file.

const (
	// DefaultScanRoot is where the kernel exposes IIO devices.
	DefaultScanRoot = "/sys/bus/iio/devices"

	// DefaultRecordDir holds the JSON sensor configuration records.
	DefaultRecordDir = "/etc/iiobridge/sensors.d"

	// DefaultDebounceWindow is the quiet period after a burst of
	// configuration changes before a reconciliation pass runs.
	DefaultDebounceWindow = 1 * time.Second

	// DefaultPollRate replaces absent or non-positive per-sensor poll
	// rates.
	DefaultPollRate = 500 * time.Millisecond

	// AvailabilityInterval is how often device availability is
	// re-published to the broker.
	AvailabilityInterval = 60 * time.Second
)
