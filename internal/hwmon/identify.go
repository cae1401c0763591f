package hwmon

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DeviceKey identifies the hardware device owning a channel by its
// position on an I2C-style bus.
type DeviceKey struct {
	Bus     uint64
	Address uint64
}

func (k DeviceKey) String() string {
	return fmt.Sprintf("%d-%04x", k.Bus, k.Address)
}

// MalformedDeviceError reports a device directory name that does not
// follow the `<bus>-<hexaddress>` convention. Channels owned by such
// devices are skipped, never fatal.
type MalformedDeviceError struct {
	Name   string
	Reason string
}

func (e *MalformedDeviceError) Error() string {
	return fmt.Sprintf("malformed device name %q: %s", e.Name, e.Reason)
}

// Identify resolves the device that owns the given channel file.
//
// The channel's directory is typically a symlink like
// /sys/bus/iio/devices/iio:device0 pointing into the real device
// hierarchy at /sys/devices/<platform>/<bus>-<hexaddress>/iio:device0.
// The canonicalized directory's parent therefore carries the bus and
// address in its name.
func Identify(channel string) (DeviceKey, error) {
	device, err := filepath.EvalSymlinks(filepath.Dir(channel))
	if err != nil {
		return DeviceKey{}, fmt.Errorf("resolving device directory for %s: %w", channel, err)
	}

	name := filepath.Base(filepath.Dir(device))
	busStr, addrStr, ok := strings.Cut(name, "-")
	if !ok {
		return DeviceKey{}, &MalformedDeviceError{Name: name, Reason: "no bus-address separator"}
	}

	bus, err := strconv.ParseUint(busStr, 10, 64)
	if err != nil {
		return DeviceKey{}, &MalformedDeviceError{Name: name, Reason: "bus is not a decimal integer"}
	}
	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return DeviceKey{}, &MalformedDeviceError{Name: name, Reason: "address is not a hexadecimal integer"}
	}

	return DeviceKey{Bus: bus, Address: addr}, nil
}
