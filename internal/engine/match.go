package engine

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/tbrandt/iiobridge/internal/configdb"
	"github.com/tbrandt/iiobridge/internal/hwmon"
)

// Match is the configuration record chosen for a discovered device.
type Match struct {
	Identifier string
	Record     configdb.Record
	Schema     string
	Fields     configdb.Fields
}

// match finds the configuration record whose recognized schema carries
// the device's bus and address. Records are probed in sorted identifier
// order so the winner for a contested device is deterministic; any
// further record claiming the same device is reported as a conflict. A
// declared SensorType disagreeing with the discovered modality is a
// warning only; the match proceeds on bus and address alone.
func match(snapshot configdb.Snapshot, key hwmon.DeviceKey, modality hwmon.Modality, logger *logrus.Logger) (Match, bool) {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var winner Match
	found := false
	for _, id := range ids {
		rec := snapshot[id]

		schema, fields, err := configdb.ProbeSchema(rec)
		if err != nil {
			logger.WithField("record", id).Debug("record has no recognized sensor schema")
			continue
		}
		bus, addr, err := fields.BusAddress()
		if err != nil {
			logger.WithField("record", id).WithError(err).Warn("record unusable for matching")
			continue
		}
		if bus != key.Bus || addr != key.Address {
			continue
		}

		if found {
			logger.WithFields(logrus.Fields{
				"device": key.String(),
				"record": id,
				"winner": winner.Identifier,
			}).Warn("additional record claims the same device, ignoring it")
			continue
		}
		winner = Match{Identifier: id, Record: rec, Schema: schema, Fields: fields}
		found = true
	}
	if !found {
		return Match{}, false
	}

	if declared, ok := winner.Fields.SensorType(); ok && declared != string(modality) {
		logger.WithFields(logrus.Fields{
			"record":     winner.Identifier,
			"declared":   declared,
			"discovered": modality,
		}).Warn("configured sensor type does not match discovered channel modality")
	}
	return winner, true
}
