// Package devpool models the pool of physical HIL devices a test plan
// can draw from: boards grouped by type, each with a hardware revision
// tag, a resolved serial port, and a lease state.
package devpool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Infineon/mpy-test-ext/internal/errors"
)

// Role describes what a suite uses a device for.
type Role string

const (
	RoleDUT  Role = "dut"
	RoleStub Role = "stub"
)

// Requirement is a suite's declared need for one device.
// An empty Version matches any revision of the board type.
type Requirement struct {
	Board   string
	Version string
	Role    Role
}

// Device is one real board instance in the pool.
//
// The pool is static for the lifetime of a plan run; only Leased and the
// port resolution change after construction.
type Device struct {
	// SerialID uniquely identifies the board (USB serial number). For
	// ad-hoc direct-mode devices it is the port path itself.
	SerialID string

	// Board is the board type name. Empty on ad-hoc direct-mode devices,
	// which match any requirement.
	Board string

	// Version is the optional hardware revision tag.
	Version string

	// Port is the tty path handed to harnesses. Empty until resolved.
	Port string

	// Connected reports whether a serial port was found for this device.
	// Unconnected devices are never lease candidates.
	Connected bool

	// Leased marks an active lease. Mutated only by the allocator.
	Leased bool
}

// Free reports whether the device can be leased.
func (d *Device) Free() bool {
	return d.Connected && !d.Leased
}

// Matches reports whether the device satisfies a board/version constraint.
// Ad-hoc devices (empty Board) match everything; an empty constraint
// version matches any revision.
func (d *Device) Matches(board, version string) bool {
	if d.Board == "" {
		return true
	}
	if board != "" && d.Board != board {
		return false
	}
	if version != "" && d.Version != version {
		return false
	}
	return true
}

// Pool is the in-memory device registry. Listing order is stable: file
// order within a board type, board types in document order.
type Pool struct {
	devices []*Device
}

// New builds a pool from explicit devices. Used by tests and direct mode.
func New(devices ...*Device) *Pool {
	return &Pool{devices: devices}
}

// NewDirect synthesizes a pool from explicit port paths (direct mode).
// The resulting ad-hoc devices match any requirement. stubPort may be
// empty for single-device setups.
func NewDirect(dutPort, stubPort string) *Pool {
	p := &Pool{}
	p.devices = append(p.devices, &Device{
		SerialID:  dutPort,
		Port:      dutPort,
		Connected: true,
	})
	if stubPort != "" {
		p.devices = append(p.devices, &Device{
			SerialID:  stubPort,
			Port:      stubPort,
			Connected: true,
		})
	}
	return p
}

// Devices returns all devices in pool order.
func (p *Pool) Devices() []*Device {
	return p.devices
}

// Candidates returns the Free devices matching board/version, in pool
// order. No side effects.
func (p *Pool) Candidates(board, version string) []*Device {
	var out []*Device
	for _, d := range p.devices {
		if d.Free() && d.Matches(board, version) {
			out = append(out, d)
		}
	}
	return out
}

// Restrict drops every device that is not of the given board type.
// Ad-hoc wildcard devices are kept. Used by the --board CLI filter.
func (p *Pool) Restrict(board string) {
	if board == "" {
		return
	}
	var kept []*Device
	for _, d := range p.devices {
		if d.Board == "" || d.Board == board {
			kept = append(kept, d)
		}
	}
	p.devices = kept
}

// ResolvePorts maps each device's serial id to its tty port via the
// locator. Devices whose port cannot be found are marked not connected
// and never become lease candidates.
func (p *Pool) ResolvePorts(loc PortLocator) error {
	for _, d := range p.devices {
		if d.Port != "" {
			continue
		}
		port, found, err := loc.PortBySerial(d.SerialID)
		if err != nil {
			return err
		}
		d.Port = port
		d.Connected = found
	}
	return nil
}

// Load parses a device-pool document: a mapping from board type to an
// ordered sequence of {serial, version} entries. Document order is
// preserved so candidate selection stays deterministic.
func Load(data []byte) (*Pool, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.EDevsInvalid, "unable to parse device pool file", err)
	}
	if len(doc.Content) == 0 {
		return &Pool{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.EDevsInvalid, "device pool file must map board types to device lists")
	}

	p := &Pool{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		board := root.Content[i].Value
		list := root.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return nil, errors.NewWithDetails(errors.EDevsInvalid,
				"device list for board must be a sequence",
				map[string]string{"board": board})
		}

		for _, item := range list.Content {
			var entry struct {
				Serial  string `yaml:"serial"`
				Version string `yaml:"version"`
			}
			if err := item.Decode(&entry); err != nil {
				return nil, errors.WrapWithDetails(errors.EDevsInvalid,
					"invalid device entry", err,
					map[string]string{"board": board})
			}
			if entry.Serial == "" {
				return nil, errors.NewWithDetails(errors.EDevsInvalid,
					"device entry is missing a serial id",
					map[string]string{"board": board})
			}
			p.devices = append(p.devices, &Device{
				SerialID: entry.Serial,
				Board:    board,
				Version:  entry.Version,
			})
		}
	}

	return p, nil
}

// LoadFile reads and parses a device-pool file.
func LoadFile(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.EDevsNotFound,
			fmt.Sprintf("device pool file %q does not exist", path), err)
	}
	return Load(data)
}
