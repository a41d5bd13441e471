package power

import (
	"context"
	"strings"
	"testing"

	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

type fakeCommandRunner struct {
	calls  []string
	result exec.CmdResult
	err    error
}

func (f *fakeCommandRunner) Run(ctx context.Context, name string, args []string, opts exec.RunOpts) (exec.CmdResult, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	return f.result, f.err
}

const searchOutput = `Current status for hub 2-1 [0bda:0411 Generic USB3.2 Hub, USB 3.20, 4 ports, ppps]
  Port 2: 02a0 power 5gbps Rx.Detect
Current status for hub 1-1 [0bda:5411 Generic USB2.1 Hub, USB 2.10, 4 ports, ppps]
  Port 2: 0103 power enable connect [04b4:f155 Cypress Semiconductor KitProg3 CMSIS-DAP 1106035A012D2400]
`

const statusOutput = `Current status for hub 2-1 [0bda:0411 Generic USB3.2 Hub, USB 3.20, 4 ports, ppps]
  Port 1: 02a0 power 5gbps Rx.Detect
  Port 2: 02a0 power 5gbps Rx.Detect
  Port 3: 0263 power 5gbps U3 enable connect [0bda:0411 Generic USB3.2 Hub, USB 3.20, 4 ports, ppps]
  Port 4: 0263 power 5gbps U3 enable connect [0bda:0411 Generic USB3.2 Hub, USB 3.20, 4 ports, ppps]
Current status for hub 1-1.3 [0bda:5411 Generic USB2.1 Hub, USB 2.10, 4 ports, ppps]
  Port 1: 0100 off
  Port 2: 0100 power
  Port 3: 0103 power enable connect [04b4:f155 Cypress Semiconductor KitProg3 CMSIS-DAP 0D170C5A012D2400]
  Port 4: 0100 power
`

func TestRunActionArgs(t *testing.T) {
	cr := &fakeCommandRunner{}
	u := New(cr)

	if err := u.RunAction(context.Background(), ActionCycle, "1-1.3", 2); err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	want := "uhubctl --action cycle --location 1-1.3 --port 2"
	if len(cr.calls) != 1 || cr.calls[0] != want {
		t.Errorf("calls = %v, want [%q]", cr.calls, want)
	}
}

func TestRunActionWholeHub(t *testing.T) {
	cr := &fakeCommandRunner{}
	u := New(cr)

	if err := u.RunAction(context.Background(), ActionOff, "1-1", 0); err != nil {
		t.Fatalf("RunAction failed: %v", err)
	}
	if strings.Contains(cr.calls[0], "--port") {
		t.Errorf("whole-hub action must not pass --port: %q", cr.calls[0])
	}
}

func TestRunActionNeedsTarget(t *testing.T) {
	u := New(&fakeCommandRunner{})
	err := u.RunAction(context.Background(), ActionOn, "", 0)
	if errors.GetCode(err) != errors.EUsage {
		t.Errorf("error code = %q, want E_USAGE", errors.GetCode(err))
	}
}

func TestFindByDescription(t *testing.T) {
	cr := &fakeCommandRunner{result: exec.CmdResult{Stdout: searchOutput}}
	u := New(cr)

	hp, found, err := u.FindByDescription(context.Background(), "1106035A012D2400")
	if err != nil {
		t.Fatalf("FindByDescription failed: %v", err)
	}
	if !found {
		t.Fatal("found = false, want the KitProg3 port")
	}
	if hp.Hub != "1-1" || hp.Port != 2 {
		t.Errorf("hub/port = %s/%d, want 1-1/2", hp.Hub, hp.Port)
	}
	if !strings.Contains(cr.calls[0], "--search 1106035A012D2400") {
		t.Errorf("call = %q, want a --search invocation", cr.calls[0])
	}
}

func TestFindByDescriptionNotFound(t *testing.T) {
	u := New(&fakeCommandRunner{result: exec.CmdResult{Stdout: searchOutput}})

	_, found, err := u.FindByDescription(context.Background(), "DEADBEEF")
	if err != nil {
		t.Fatalf("FindByDescription failed: %v", err)
	}
	if found {
		t.Error("found = true for a serial that is not connected")
	}
}

func TestStatusParsing(t *testing.T) {
	tests := []struct {
		name string
		hp   HubPort
		want PortStatus
	}{
		{"off", HubPort{"1-1.3", 1}, StatusOff},
		{"powered no device", HubPort{"1-1.3", 2}, StatusOn},
		{"connected", HubPort{"1-1.3", 3}, StatusOnConnected},
		{"usb3 idle", HubPort{"2-1", 1}, StatusOn},
		{"usb3 connected", HubPort{"2-1", 3}, StatusOnConnected},
		{"absent port", HubPort{"1-1.3", 9}, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(&fakeCommandRunner{result: exec.CmdResult{Stdout: statusOutput}})
			got, err := u.Status(context.Background(), tt.hp)
			if err != nil {
				t.Fatalf("Status failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Status(%s/%d) = %q, want %q", tt.hp.Hub, tt.hp.Port, got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	u := New(&fakeCommandRunner{result: exec.CmdResult{Stdout: statusOutput}})

	ports, err := u.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ports) != 8 {
		t.Fatalf("got %d ports, want 8", len(ports))
	}
	if ports[0] != (HubPort{"2-1", 1}) || ports[7] != (HubPort{"1-1.3", 4}) {
		t.Errorf("scan order wrong: %v", ports)
	}
}

func TestNoCompatibleDevicesIsNotAnError(t *testing.T) {
	u := New(&fakeCommandRunner{result: exec.CmdResult{
		ExitCode: 1,
		Stderr:   "No compatible devices detected!\nRun with -h to get usage info.\n",
	}})

	ports, err := u.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("got %d ports from an empty host, want 0", len(ports))
	}
}

func TestOtherFailuresAreErrors(t *testing.T) {
	u := New(&fakeCommandRunner{result: exec.CmdResult{
		ExitCode: 1,
		Stderr:   "permission denied\n",
	}})

	_, err := u.Scan(context.Background())
	if errors.GetCode(err) != errors.EUhubctlFailed {
		t.Errorf("error code = %q, want E_UHUBCTL_FAILED", errors.GetCode(err))
	}
}

func TestSwitchForDevice(t *testing.T) {
	cr := &fakeCommandRunner{result: exec.CmdResult{Stdout: searchOutput}}
	u := New(cr)

	sw, found, err := SwitchForDevice(context.Background(), u, "1106035A012D2400")
	if err != nil || !found {
		t.Fatalf("SwitchForDevice = (%v, %v), want found", found, err)
	}

	if err := sw.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	last := cr.calls[len(cr.calls)-1]
	want := "uhubctl --action cycle --location 1-1 --port 2"
	if last != want {
		t.Errorf("reset call = %q, want %q", last, want)
	}
}

func TestResetAllCyclesEachHubOnce(t *testing.T) {
	cr := &fakeCommandRunner{result: exec.CmdResult{Stdout: statusOutput}}
	u := New(cr)

	if err := ResetAll(context.Background(), u); err != nil {
		t.Fatalf("ResetAll failed: %v", err)
	}

	var cycles []string
	for _, call := range cr.calls {
		if strings.Contains(call, "--action cycle") {
			cycles = append(cycles, call)
		}
	}
	if len(cycles) != 2 {
		t.Fatalf("cycle calls = %v, want one per hub", cycles)
	}
	if !strings.Contains(cycles[0], "--location 2-1") || !strings.Contains(cycles[1], "--location 1-1.3") {
		t.Errorf("cycle calls = %v, want hubs 2-1 and 1-1.3", cycles)
	}
}
