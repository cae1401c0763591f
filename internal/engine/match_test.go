package engine

import (
	"testing"

	"github.com/tbrandt/iiobridge/internal/configdb"
	"github.com/tbrandt/iiobridge/internal/hwmon"
)

func record(name string, bus, addr uint64) configdb.Record {
	return configdb.Record{
		"DPS310": configdb.Fields{
			"Name":    configdb.String(name),
			"Bus":     configdb.Uint(bus),
			"Address": configdb.Uint(addr),
		},
	}
}

func TestMatchFindsRecordByBusAddress(t *testing.T) {
	snapshot := configdb.Snapshot{
		"/records/Other": record("Other", 1, 0x40),
		"/records/TempA": record("TempA", 7, 0x76),
	}

	m, ok := match(snapshot, hwmon.DeviceKey{Bus: 7, Address: 0x76}, hwmon.ModalityTemperature, testLogger())
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Identifier != "/records/TempA" {
		t.Errorf("matched %s", m.Identifier)
	}
	if m.Schema != "DPS310" {
		t.Errorf("schema = %s", m.Schema)
	}
}

func TestMatchNoCandidate(t *testing.T) {
	snapshot := configdb.Snapshot{
		"/records/Other": record("Other", 1, 0x40),
	}
	if _, ok := match(snapshot, hwmon.DeviceKey{Bus: 7, Address: 0x76}, hwmon.ModalityTemperature, testLogger()); ok {
		t.Fatal("expected no match")
	}
}

func TestMatchContestedDeviceIsDeterministic(t *testing.T) {
	// Two records claim the same device; the winner is the first in
	// sorted identifier order, regardless of map iteration order.
	snapshot := configdb.Snapshot{
		"/records/b": record("Second", 7, 0x76),
		"/records/a": record("First", 7, 0x76),
	}

	for i := 0; i < 20; i++ {
		m, ok := match(snapshot, hwmon.DeviceKey{Bus: 7, Address: 0x76}, hwmon.ModalityTemperature, testLogger())
		if !ok {
			t.Fatal("expected a match")
		}
		if m.Identifier != "/records/a" {
			t.Fatalf("iteration %d: winner = %s, want /records/a", i, m.Identifier)
		}
	}
}

func TestMatchSkipsUnusableRecords(t *testing.T) {
	snapshot := configdb.Snapshot{
		// No recognized schema.
		"/records/alien": {"Custom": configdb.Fields{"Bus": configdb.Uint(7), "Address": configdb.Uint(0x76)}},
		// Recognized schema but no Address.
		"/records/partial": {"DPS310": configdb.Fields{"Name": configdb.String("P"), "Bus": configdb.Uint(7)}},
		"/records/zz-good": record("Good", 7, 0x76),
	}

	m, ok := match(snapshot, hwmon.DeviceKey{Bus: 7, Address: 0x76}, hwmon.ModalityTemperature, testLogger())
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Identifier != "/records/zz-good" {
		t.Errorf("matched %s", m.Identifier)
	}
}
