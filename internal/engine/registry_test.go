package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/tbrandt/iiobridge/internal/hwmon"
	"github.com/tbrandt/iiobridge/internal/sensor"
)

func newIdleSensor(name string) *sensor.Sensor {
	return sensor.New(sensor.Config{
		Name:     name,
		PollRate: time.Second,
		Modality: hwmon.ModalityTemperature,
	}, &fakePublisher{}, clockz.NewFakeClock(), nil, testLogger())
}

func TestRegistryInstallAndGet(t *testing.T) {
	r := NewRegistry()
	s := newIdleSensor("TempA")
	r.Install("TempA", s)

	got, ok := r.Get("TempA")
	if !ok || got != s {
		t.Fatal("installed sensor not retrievable")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRegistryInstallReplaces(t *testing.T) {
	r := NewRegistry()
	first := newIdleSensor("TempA")
	second := newIdleSensor("TempA")

	r.Install("TempA", first)
	r.Install("TempA", second)

	got, _ := r.Get("TempA")
	if got != second {
		t.Fatal("slot not owned by replacement")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryTake(t *testing.T) {
	r := NewRegistry()
	s := newIdleSensor("TempA")
	r.Install("TempA", s)

	got, ok := r.Take("TempA")
	if !ok || got != s {
		t.Fatal("Take did not hand over the sensor")
	}
	if _, ok := r.Get("TempA"); ok {
		t.Fatal("sensor still registered after Take")
	}
	if _, ok := r.Take("TempA"); ok {
		t.Fatal("second Take should miss")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Install("b", newIdleSensor("b"))
	r.Install("a", newIdleSensor("a"))
	r.Install("c", newIdleSensor("c"))

	want := []string{"a", "b", "c"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry()
	r.Install("a", newIdleSensor("a"))
	r.Install("b", newIdleSensor("b"))

	r.CloseAll()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d after CloseAll", r.Len())
	}
}
