package hwmon

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestIdentifyWellFormedDevice(t *testing.T) {
	scanRoot, _ := buildDeviceTree(t, "7-0076", "in_temp0_input")
	channel := filepath.Join(scanRoot, "iio:device0", "in_temp0_input")

	key, err := Identify(channel)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if key.Bus != 7 {
		t.Errorf("bus = %d, want 7", key.Bus)
	}
	if key.Address != 0x76 {
		t.Errorf("address = %#x, want 0x76", key.Address)
	}
	if key.String() != "7-0076" {
		t.Errorf("String() = %q, want 7-0076", key.String())
	}
}

func TestIdentifyHexAddress(t *testing.T) {
	scanRoot, _ := buildDeviceTree(t, "11-00ff", "in_humidity_input")
	channel := filepath.Join(scanRoot, "iio:device0", "in_humidity_input")

	key, err := Identify(channel)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if key.Bus != 11 || key.Address != 0xff {
		t.Errorf("key = %+v, want bus 11 address 0xff", key)
	}
}

func TestIdentifyMalformedNames(t *testing.T) {
	cases := []struct {
		name       string
		deviceName string
	}{
		{"no separator", "platform"},
		{"bus not decimal", "x-0076"},
		{"address not hex", "7-zz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scanRoot, _ := buildDeviceTree(t, tc.deviceName, "in_temp0_input")
			channel := filepath.Join(scanRoot, "iio:device0", "in_temp0_input")

			_, err := Identify(channel)
			var malformed *MalformedDeviceError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedDeviceError, got %v", err)
			}
			if malformed.Name != tc.deviceName {
				t.Errorf("error names device %q, want %q", malformed.Name, tc.deviceName)
			}
		})
	}
}

func TestIdentifyMissingChannel(t *testing.T) {
	_, err := Identify(filepath.Join(t.TempDir(), "gone", "in_temp0_input"))
	if err == nil {
		t.Fatal("expected error for missing channel path")
	}
	var malformed *MalformedDeviceError
	if errors.As(err, &malformed) {
		t.Fatal("resolution failure must not be reported as a malformed name")
	}
}
