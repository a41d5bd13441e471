package devpool

import (
	"go.bug.st/serial/enumerator"
)

// PortLocator maps a device serial number to its serial port path.
type PortLocator interface {
	// PortBySerial returns the port path for the given serial id.
	// found is false when no connected port carries that serial id.
	PortBySerial(serial string) (port string, found bool, err error)
}

// SerialLocator enumerates the host's USB serial ports.
type SerialLocator struct{}

// NewSerialLocator returns the production PortLocator.
func NewSerialLocator() *SerialLocator {
	return &SerialLocator{}
}

// PortBySerial scans connected serial ports for a matching serial number.
func (l *SerialLocator) PortBySerial(serial string) (string, bool, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", false, err
	}
	for _, p := range ports {
		if p.IsUSB && p.SerialNumber == serial {
			return p.Name, true, nil
		}
	}
	return "", false, nil
}

// StaticLocator resolves ports from a fixed serial->port map. Used by
// tests and by tools that already know the mapping.
type StaticLocator map[string]string

// PortBySerial looks the serial id up in the map.
func (l StaticLocator) PortBySerial(serial string) (string, bool, error) {
	port, ok := l[serial]
	return port, ok, nil
}
