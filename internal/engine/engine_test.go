package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
	"github.com/Infineon/mpy-test-ext/internal/exec"
)

type fakeCommandRunner struct {
	calls   []string
	handler func(call string) (exec.CmdResult, error)
}

func (f *fakeCommandRunner) Run(ctx context.Context, name string, args []string, opts exec.RunOpts) (exec.CmdResult, error) {
	call := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, call)
	if f.handler == nil {
		return exec.CmdResult{}, nil
	}
	return f.handler(call)
}

const samplePlan = `
- name: basics
  type: single
  test:
    script:
      - basics/int.py
      - basics/float.py
    device:
      - board: psoc6

- name: ble
  type: multi
  test:
    script: multi_bluetooth/ble_gap.py
    device:
      - board: psoc6

- name: zephyr_only
  type: single
  test:
    script: z.py
    device:
      - board: zephyr
`

const sampleDevs = `
psoc6:
  - serial: "0001"
  - serial: "0002"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseOptions(t *testing.T, cr *fakeCommandRunner) (Options, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	out := &bytes.Buffer{}
	return Options{
		PlanFile: writeFile(t, dir, "test-plan.yml", samplePlan),
		DevsFile: writeFile(t, dir, "hil-devs.yml", sampleDevs),
		TestDir:  t.TempDir(),
		Out:      out,
		CR:       cr,
		Locator: devpool.StaticLocator{
			"0001": "/dev/ttyACM0",
			"0002": "/dev/ttyACM1",
		},
		Log: zerolog.Nop(),
	}, out
}

func TestRunSkipsUnsatisfiableSuite(t *testing.T) {
	cr := &fakeCommandRunner{}
	opts, out := baseOptions(t, cr)

	err := Run(context.Background(), opts)

	// zephyr_only can never run on this pool, so the plan did not fully
	// pass even though every attempted suite succeeded.
	if errors.GetCode(err) != errors.ESuitesFailed {
		t.Fatalf("error code = %q, want E_SUITES_FAILED", errors.GetCode(err))
	}
	if !strings.Contains(out.String(), "skipped") || !strings.Contains(out.String(), "zephyr_only") {
		t.Errorf("output missing skip report:\n%s", out.String())
	}

	for _, call := range cr.calls {
		if strings.Contains(call, "z.py") {
			t.Errorf("skipped suite was attempted: %q", call)
		}
	}
}

func TestRunSelectedSuitesPass(t *testing.T) {
	cr := &fakeCommandRunner{}
	opts, out := baseOptions(t, cr)
	opts.Suites = []string{"basics", "ble"}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(cr.calls) != 2 {
		t.Fatalf("calls = %v, want one per suite", cr.calls)
	}
	if !strings.Contains(cr.calls[0], "run-tests.py -t port:/dev/ttyACM0") {
		t.Errorf("first call = %q, want the single-device harness on the first pool device", cr.calls[0])
	}
	if !strings.Contains(cr.calls[1], "run-multitests.py -t /dev/ttyACM0 -t /dev/ttyACM1") {
		t.Errorf("second call = %q, want the multi-device harness on both devices", cr.calls[1])
	}
	if !strings.Contains(out.String(), "passed") {
		t.Errorf("output missing pass summary:\n%s", out.String())
	}
}

func TestRunDirectMode(t *testing.T) {
	cr := &fakeCommandRunner{}
	opts, _ := baseOptions(t, cr)
	opts.DevsFile = ""
	opts.DutPort = "/dev/ttyUSB7"
	opts.StubPort = "/dev/ttyUSB8"
	opts.Suites = []string{"basics"}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(cr.calls) != 1 || !strings.Contains(cr.calls[0], "port:/dev/ttyUSB7") {
		t.Errorf("calls = %v, want the explicit DUT port used", cr.calls)
	}
}

func TestRunBoardRestrictionSkipsEverything(t *testing.T) {
	cr := &fakeCommandRunner{}
	opts, out := baseOptions(t, cr)
	opts.Board = "esp32"
	opts.Suites = []string{"basics"}

	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.ESuitesFailed {
		t.Fatalf("error code = %q, want E_SUITES_FAILED", errors.GetCode(err))
	}
	if len(cr.calls) != 0 {
		t.Errorf("harness invoked with an empty restricted pool: %v", cr.calls)
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Errorf("output missing skip report:\n%s", out.String())
	}
}

func TestRunFailedSuiteFailsThePlan(t *testing.T) {
	cr := &fakeCommandRunner{handler: func(call string) (exec.CmdResult, error) {
		if strings.Contains(call, "-t port:") && strings.Contains(call, "basics") {
			return exec.CmdResult{ExitCode: 1}, nil
		}
		return exec.CmdResult{}, nil
	}}
	opts, out := baseOptions(t, cr)
	opts.Suites = []string{"basics"}
	opts.MaxRetries = 1

	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.ESuitesFailed {
		t.Fatalf("error code = %q, want E_SUITES_FAILED", errors.GetCode(err))
	}
	if !strings.Contains(out.String(), "attempt 2 of 2") {
		t.Errorf("output missing retry notice:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "failed") {
		t.Errorf("output missing failure summary:\n%s", out.String())
	}
}

func TestRunAdhocScripts(t *testing.T) {
	cr := &fakeCommandRunner{}
	opts, out := baseOptions(t, cr)
	opts.PlanFile = ""
	opts.DevsFile = ""
	opts.DutPort = "/dev/ttyUSB7"
	opts.AdhocScripts = []string{"basics/int.py", "basics/float.py"}

	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(cr.calls) != 1 {
		t.Fatalf("calls = %v, want one synthesized single-suite batch", cr.calls)
	}
	if !strings.Contains(cr.calls[0], "run-tests.py -t port:/dev/ttyUSB7 basics/int.py basics/float.py") {
		t.Errorf("call = %q, want the ad-hoc scripts on the DUT port", cr.calls[0])
	}
	if !strings.Contains(out.String(), "(ad-hoc)") {
		t.Errorf("banner missing ad-hoc plan marker:\n%s", out.String())
	}
}

func TestRunPoolModeNeedsDeclaredDevices(t *testing.T) {
	planContent := `
- name: nodecl
  type: single
  test:
    script: x.py
`
	cr := &fakeCommandRunner{}
	opts, out := baseOptions(t, cr)
	opts.PlanFile = writeFile(t, t.TempDir(), "test-plan.yml", planContent)

	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.ESuitesFailed {
		t.Fatalf("error code = %q, want E_SUITES_FAILED", errors.GetCode(err))
	}
	if len(cr.calls) != 0 {
		t.Errorf("suite without declared devices ran against the pool: %v", cr.calls)
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Errorf("output missing skip report:\n%s", out.String())
	}

	// The same suite is runnable in direct mode, where the ad-hoc
	// devices match anything.
	cr2 := &fakeCommandRunner{}
	opts2, _ := baseOptions(t, cr2)
	opts2.PlanFile = opts.PlanFile
	opts2.DevsFile = ""
	opts2.DutPort = "/dev/ttyUSB0"
	if err := Run(context.Background(), opts2); err != nil {
		t.Fatalf("direct-mode Run failed: %v", err)
	}
	if len(cr2.calls) != 1 {
		t.Errorf("calls = %v, want the suite to run in direct mode", cr2.calls)
	}
}

func TestRunMultiPairsStayOnOneBoard(t *testing.T) {
	planContent := `
- name: link
  type: multi
  test:
    script: multi_net/link.py
    device:
      - board: psoc6
      - board: esp32
`
	devsContent := `
psoc6:
  - serial: "0001"
esp32:
  - serial: "0002"
`
	cr := &fakeCommandRunner{}
	dir := t.TempDir()
	opts, out := baseOptions(t, cr)
	opts.PlanFile = writeFile(t, dir, "test-plan.yml", planContent)
	opts.DevsFile = writeFile(t, dir, "hil-devs.yml", devsContent)

	// One board of each type: no alternative yields two same-board
	// devices, so the suite must skip rather than mix board types.
	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.ESuitesFailed {
		t.Fatalf("error code = %q, want E_SUITES_FAILED", errors.GetCode(err))
	}
	if len(cr.calls) != 0 {
		t.Errorf("multi suite ran on a mixed-board pair: %v", cr.calls)
	}
	if !strings.Contains(out.String(), "skipped") {
		t.Errorf("output missing skip report:\n%s", out.String())
	}
}

func TestRunMissingPlanFile(t *testing.T) {
	opts, _ := baseOptions(t, &fakeCommandRunner{})
	opts.PlanFile = filepath.Join(t.TempDir(), "nope.yml")

	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.EPlanNotFound {
		t.Errorf("error code = %q, want E_PLAN_NOT_FOUND", errors.GetCode(err))
	}
}

func TestRunUnknownSuiteName(t *testing.T) {
	opts, _ := baseOptions(t, &fakeCommandRunner{})
	opts.Suites = []string{"basics", "nonexistent"}

	err := Run(context.Background(), opts)
	if errors.GetCode(err) != errors.ESuiteNotFound {
		t.Errorf("error code = %q, want E_SUITE_NOT_FOUND", errors.GetCode(err))
	}
}
