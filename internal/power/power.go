// Package power controls USB port power through the external uhubctl
// tool, so devices can be power-cycled between plan runs. Only hubs
// supported by uhubctl are controllable.
package power

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

// Action is a uhubctl power action.
type Action string

const (
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionCycle  Action = "cycle"
	ActionToggle Action = "toggle"
)

// PortStatus is the parsed power state of one hub port.
type PortStatus string

const (
	StatusOff         PortStatus = "off"
	StatusOn          PortStatus = "on"
	StatusOnConnected PortStatus = "on connected"
	StatusUnknown     PortStatus = "unknown"
)

// HubPort addresses one switchable USB port.
type HubPort struct {
	// Hub is the uhubctl hub location, e.g. "1-1.3".
	Hub string

	// Port is the 1-based port number on that hub.
	Port int
}

// Uhubctl wraps the uhubctl command-line tool.
type Uhubctl struct {
	CR exec.CommandRunner

	// Binary overrides the uhubctl executable name.
	Binary string
}

// New returns a Uhubctl using the given command runner.
func New(cr exec.CommandRunner) *Uhubctl {
	return &Uhubctl{CR: cr}
}

func (u *Uhubctl) binary() string {
	if u.Binary != "" {
		return u.Binary
	}
	return "uhubctl"
}

// run invokes uhubctl and returns its stdout. A non-zero exit with "no
// compatible devices" on stderr is not an error, it just means no
// controllable hub is attached; the output is then empty.
func (u *Uhubctl) run(ctx context.Context, args []string) (string, error) {
	res, err := u.CR.Run(ctx, u.binary(), args, exec.RunOpts{})
	if err != nil {
		return "", errors.Wrap(errors.EUhubctlFailed, "failed to start uhubctl", err)
	}
	if res.ExitCode != 0 {
		if strings.Contains(res.Stderr, "No compatible devices detected!") {
			return "", nil
		}
		return "", errors.NewWithDetails(errors.EUhubctlFailed,
			"uhubctl command failed",
			map[string]string{
				"command":   u.binary() + " " + strings.Join(args, " "),
				"exit_code": strconv.Itoa(res.ExitCode),
			})
	}
	return res.Stdout, nil
}

// RunAction applies a power action. An empty hub applies it to every
// hub; port 0 applies it to every port of the hub. At least one of the
// two must be set.
func (u *Uhubctl) RunAction(ctx context.Context, action Action, hub string, port int) error {
	if hub == "" && port == 0 {
		return errors.New(errors.EUsage, "power action needs a hub location or a port")
	}

	args := []string{"--action", string(action)}
	if hub != "" {
		args = append(args, "--location", hub)
	}
	if port != 0 {
		args = append(args, "--port", strconv.Itoa(port))
	}

	_, err := u.run(ctx, args)
	return err
}

// FindByDescription searches all hubs for a port whose connected device
// description contains desc (typically the USB serial number). found is
// false when no port matches.
func (u *Uhubctl) FindByDescription(ctx context.Context, desc string) (HubPort, bool, error) {
	out, err := u.run(ctx, []string{"--search", desc})
	if err != nil {
		return HubPort{}, false, err
	}
	return searchByDescription(out, desc)
}

// Status reads the power state of one hub port.
func (u *Uhubctl) Status(ctx context.Context, hp HubPort) (PortStatus, error) {
	out, err := u.run(ctx, []string{"--location", hp.Hub, "--port", strconv.Itoa(hp.Port)})
	if err != nil {
		return StatusUnknown, err
	}
	return parseStatus(out, hp), nil
}

// Scan lists every controllable hub port on the host.
func (u *Uhubctl) Scan(ctx context.Context) ([]HubPort, error) {
	out, err := u.run(ctx, nil)
	if err != nil {
		return nil, err
	}
	return parseScan(out), nil
}

var (
	hubLineRe  = regexp.MustCompile(`hub (\S+)`)
	portLineRe = regexp.MustCompile(`^Port (\d+):`)
)

// walkOutput drives fn over every port line of a uhubctl listing,
// tracking which hub section the line belongs to. fn returning false
// stops the walk.
func walkOutput(output string, fn func(hp HubPort, line string) bool) {
	hub := ""
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "Current status for hub") {
			if m := hubLineRe.FindStringSubmatch(line); m != nil {
				hub = m[1]
			}
			continue
		}

		m := portLineRe.FindStringSubmatch(line)
		if m == nil || hub == "" {
			continue
		}
		port, _ := strconv.Atoi(m[1])
		if !fn(HubPort{Hub: hub, Port: port}, line) {
			return
		}
	}
}

func searchByDescription(output, desc string) (HubPort, bool, error) {
	var found HubPort
	ok := false
	walkOutput(output, func(hp HubPort, line string) bool {
		if strings.Contains(line, desc) {
			found, ok = hp, true
			return false
		}
		return true
	})
	return found, ok, nil
}

func parseStatus(output string, want HubPort) PortStatus {
	status := StatusUnknown
	walkOutput(output, func(hp HubPort, line string) bool {
		if hp != want {
			return true
		}
		switch {
		case strings.Contains(line, " off"):
			status = StatusOff
		case strings.Contains(line, " power") && strings.Contains(line, "enable connect"):
			status = StatusOnConnected
		case strings.Contains(line, " power"):
			status = StatusOn
		}
		return false
	})
	return status
}

func parseScan(output string) []HubPort {
	var ports []HubPort
	walkOutput(output, func(hp HubPort, line string) bool {
		ports = append(ports, hp)
		return true
	})
	return ports
}

// DevSwitch binds one device, identified by its USB serial id, to the
// hub port that powers it.
type DevSwitch struct {
	Uid string
	HP  HubPort

	ctl *Uhubctl
}

// SwitchForDevice locates the hub port powering the device with the
// given uid. found is false when the device is not behind a
// controllable hub.
func SwitchForDevice(ctx context.Context, ctl *Uhubctl, uid string) (*DevSwitch, bool, error) {
	hp, found, err := ctl.FindByDescription(ctx, uid)
	if err != nil || !found {
		return nil, false, err
	}
	return &DevSwitch{Uid: uid, HP: hp, ctl: ctl}, true, nil
}

// On powers the device's port on.
func (s *DevSwitch) On(ctx context.Context) error {
	return s.ctl.RunAction(ctx, ActionOn, s.HP.Hub, s.HP.Port)
}

// Off powers the device's port off.
func (s *DevSwitch) Off(ctx context.Context) error {
	return s.ctl.RunAction(ctx, ActionOff, s.HP.Hub, s.HP.Port)
}

// Reset power-cycles the device's port.
func (s *DevSwitch) Reset(ctx context.Context) error {
	return s.ctl.RunAction(ctx, ActionCycle, s.HP.Hub, s.HP.Port)
}

// Status reads the power state of the device's port.
func (s *DevSwitch) Status(ctx context.Context) (PortStatus, error) {
	return s.ctl.Status(ctx, s.HP)
}

// String renders the switch address for logs and CLI output.
func (s *DevSwitch) String() string {
	return fmt.Sprintf("hub %s port %d", s.HP.Hub, s.HP.Port)
}

// ResetAll power-cycles every controllable hub once. A hub that shows
// up under several locations (USB 3.0 duality) is cycled once per
// location.
func ResetAll(ctx context.Context, ctl *Uhubctl) error {
	ports, err := ctl.Scan(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, hp := range ports {
		if seen[hp.Hub] {
			continue
		}
		seen[hp.Hub] = true
		if err := ctl.RunAction(ctx, ActionCycle, hp.Hub, 0); err != nil {
			return err
		}
	}
	return nil
}
