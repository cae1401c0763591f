package configdb

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestParseThresholds(t *testing.T) {
	rec := Record{
		"DPS310": Fields{"Name": String("TempA")},
		"DPS310.Thresholds0": Fields{
			"Severity":  Uint(0),
			"Direction": String("greater than"),
			"Value":     Float(80),
		},
		"DPS310.Thresholds1": Fields{
			"Severity":  Uint(1),
			"Direction": String("less than"),
			"Value":     Float(5),
		},
	}

	thresholds := ParseThresholds(rec, testLogger())
	if len(thresholds) != 2 {
		t.Fatalf("expected 2 thresholds, got %d", len(thresholds))
	}

	// Entries come back in sorted schema-name order.
	warn, crit := thresholds[0], thresholds[1]
	if warn.Severity != SeverityWarning || warn.Direction != DirectionHigh || warn.Value != 80 {
		t.Errorf("warning threshold = %+v", warn)
	}
	if crit.Severity != SeverityCritical || crit.Direction != DirectionLow || crit.Value != 5 {
		t.Errorf("critical threshold = %+v", crit)
	}
}

func TestParseThresholdsSkipsMalformed(t *testing.T) {
	rec := Record{
		"DPS310":             Fields{"Name": String("TempA")},
		"DPS310.Thresholds0": Fields{"Severity": Uint(1)}, // no Value
		"DPS310.Thresholds1": Fields{"Value": String("hot")},
		"DPS310.Thresholds2": Fields{"Value": Float(70)},
	}

	thresholds := ParseThresholds(rec, testLogger())
	if len(thresholds) != 1 {
		t.Fatalf("expected 1 threshold, got %d", len(thresholds))
	}
	if thresholds[0].Value != 70 {
		t.Errorf("kept wrong threshold: %+v", thresholds[0])
	}
}

func TestThresholdExceeded(t *testing.T) {
	high := Threshold{Direction: DirectionHigh, Value: 80}
	if !high.Exceeded(81) || high.Exceeded(80) || high.Exceeded(79) {
		t.Error("high threshold comparison wrong")
	}
	low := Threshold{Direction: DirectionLow, Value: 5}
	if !low.Exceeded(4) || low.Exceeded(5) || low.Exceeded(6) {
		t.Error("low threshold comparison wrong")
	}
}
