package configdb

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Threshold is one alarm boundary attached to a sensor.
type Threshold struct {
	Severity  Severity
	Direction Direction
	Value     float64
}

// Severity of a crossed threshold.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// Direction a reading must move to trip the threshold.
type Direction int

const (
	DirectionHigh Direction = iota // trips when reading > value
	DirectionLow                   // trips when reading < value
)

// Exceeded reports whether the reading trips the threshold.
func (t Threshold) Exceeded(reading float64) bool {
	if t.Direction == DirectionLow {
		return reading < t.Value
	}
	return reading > t.Value
}

// ParseThresholds extracts the threshold sub-records from a configuration
// record. Threshold schemas are recognized by name ("...Thresholds",
// "...Thresholds0", ...). A malformed entry is logged and skipped; it
// never fails the whole record.
func ParseThresholds(rec Record, logger *logrus.Logger) []Threshold {
	names := make([]string, 0, len(rec))
	for schema := range rec {
		if strings.Contains(schema, "Thresholds") {
			names = append(names, schema)
		}
	}
	sort.Strings(names)

	var thresholds []Threshold
	for _, schema := range names {
		fields := rec[schema]

		valueField, ok := fields["Value"]
		if !ok {
			logger.WithField("schema", schema).Warn("threshold entry missing Value")
			continue
		}
		value, err := valueField.AsFloat64()
		if err != nil {
			logger.WithField("schema", schema).WithError(err).Warn("unusable threshold Value")
			continue
		}

		t := Threshold{Value: value}

		if v, ok := fields["Severity"]; ok {
			if sev, err := v.AsUint64(); err == nil && sev > 0 {
				t.Severity = SeverityCritical
			}
		}
		if v, ok := fields["Direction"]; ok {
			if dir, err := v.AsString(); err == nil && dir == "less than" {
				t.Direction = DirectionLow
			}
		}

		thresholds = append(thresholds, t)
	}
	return thresholds
}
