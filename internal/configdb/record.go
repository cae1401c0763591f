package configdb

import (
	"errors"
	"fmt"
	"time"
)

// Fields is one schema's typed field map.
type Fields map[string]Value

// Record is one externally supplied configuration entry: a map from
// schema name to that schema's fields.
type Record map[string]Fields

// Snapshot is a full configuration view at one point in time, keyed by
// record identifier.
type Snapshot map[string]Record

// SensorSchemas lists the recognized sensor schemas in fixed probe
// priority order. A record must carry one of these to be eligible.
var SensorSchemas = []string{"DPS310", "SI7020"}

// ErrNoSchema is returned when a record carries none of the recognized
// sensor schemas.
var ErrNoSchema = errors.New("record has no recognized sensor schema")

// ProbeSchema returns the first recognized schema present in the record,
// in SensorSchemas priority order, together with its field map.
func ProbeSchema(rec Record) (string, Fields, error) {
	for _, schema := range SensorSchemas {
		if fields, ok := rec[schema]; ok {
			return schema, fields, nil
		}
	}
	return "", nil, ErrNoSchema
}

// Name returns the mandatory sensor name field.
func (f Fields) Name() (string, error) {
	v, ok := f["Name"]
	if !ok {
		return "", errors.New("missing Name field")
	}
	name, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("Name field: %w", err)
	}
	return name, nil
}

// BusAddress returns the mandatory Bus and Address fields as unsigned
// integers.
func (f Fields) BusAddress() (uint64, uint64, error) {
	busVal, ok := f["Bus"]
	if !ok {
		return 0, 0, errors.New("missing Bus field")
	}
	addrVal, ok := f["Address"]
	if !ok {
		return 0, 0, errors.New("missing Address field")
	}
	bus, err := busVal.AsUint64()
	if err != nil {
		return 0, 0, fmt.Errorf("Bus field: %w", err)
	}
	addr, err := addrVal.AsUint64()
	if err != nil {
		return 0, 0, fmt.Errorf("Address field: %w", err)
	}
	return bus, addr, nil
}

// SensorType returns the declared sensor type, if present.
func (f Fields) SensorType() (string, bool) {
	v, ok := f["SensorType"]
	if !ok {
		return "", false
	}
	s, err := v.AsString()
	if err != nil {
		return "", false
	}
	return s, true
}

// PollRate returns the configured poll interval. The field is a duration
// in seconds; absent or non-positive values yield the supplied default.
func (f Fields) PollRate(def time.Duration) time.Duration {
	v, ok := f["PollRate"]
	if !ok {
		return def
	}
	seconds, err := v.AsFloat64()
	if err != nil || seconds <= 0 {
		return def
	}
	return time.Duration(seconds * float64(time.Second))
}

// PowerPolicy describes when a sensor's hardware may be read.
type PowerPolicy int

const (
	// PowerAlways reads regardless of host power state.
	PowerAlways PowerPolicy = iota
	// PowerOn reads only while the host is powered on.
	PowerOn
	// PowerBiasedOn reads while the host is on or transitioning.
	PowerBiasedOn
)

func (p PowerPolicy) String() string {
	switch p {
	case PowerOn:
		return "On"
	case PowerBiasedOn:
		return "BiasedOn"
	default:
		return "Always"
	}
}

// ParsePowerPolicy maps a PowerState field value to a policy.
// Unrecognized values fall back to always-on.
func ParsePowerPolicy(s string) PowerPolicy {
	switch s {
	case "On":
		return PowerOn
	case "BiasedOn":
		return PowerBiasedOn
	default:
		return PowerAlways
	}
}

// PowerPolicy returns the configured power-gating policy, defaulting to
// always-on.
func (f Fields) PowerPolicy() PowerPolicy {
	v, ok := f["PowerState"]
	if !ok {
		return PowerAlways
	}
	s, err := v.AsString()
	if err != nil {
		return PowerAlways
	}
	return ParsePowerPolicy(s)
}

// PermitLabels returns the optional Labels permission set.
func (f Fields) PermitLabels() []string {
	v, ok := f["Labels"]
	if !ok {
		return nil
	}
	labels, err := v.AsStringList()
	if err != nil {
		return nil
	}
	return labels
}
