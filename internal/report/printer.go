package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// decoratorLen is the width of the banner and separator lines.
const decoratorLen = 41

var (
	styleBanner = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	stylePass   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleSkip   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
)

// Printer renders the test plan's progress and summary.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PlanInfo prints the run banner: plan file, optional devs file and
// board filter.
func (p *Printer) PlanInfo(planFile, devsFile, board string) {
	fmt.Fprintln(p.w, styleBanner.Render(strings.Repeat("#", decoratorLen)))
	if board != "" {
		fmt.Fprintln(p.w, styleBanner.Render("> board        : "+board))
	}
	if planFile != "" {
		fmt.Fprintf(p.w, "test plan file : %s\n", relPath(planFile))
	} else {
		fmt.Fprintln(p.w, "test plan file : (ad-hoc)")
	}
	if devsFile != "" {
		fmt.Fprintf(p.w, "hil devs file  : %s\n", relPath(devsFile))
	}
	fmt.Fprintln(p.w, styleBanner.Render(strings.Repeat("#", decoratorLen)))
}

// SuiteInfo prints the header for one suite attempt.
func (p *Printer) SuiteInfo(name, dutPort, stubPort string) {
	fmt.Fprintln(p.w, strings.Repeat("-", decoratorLen))
	fmt.Fprintln(p.w, styleBanner.Render("> running test : "+name))
	fmt.Fprintf(p.w, "dut port       : %s\n", dutPort)
	if stubPort != "" {
		fmt.Fprintf(p.w, "stub port      : %s\n", stubPort)
	}
	fmt.Fprintln(p.w, dashedLine())
}

// SuitePass prints the pass footer for a suite.
func (p *Printer) SuitePass(name string) {
	fmt.Fprintln(p.w, dashedLine())
	fmt.Fprintln(p.w, stylePass.Render("> passed test  : "+name))
}

// SuiteFail prints the fail footer for a suite attempt.
func (p *Printer) SuiteFail(name string) {
	fmt.Fprintln(p.w, dashedLine())
	fmt.Fprintln(p.w, styleFail.Render("> failed test  : "+name))
}

// SuiteSkip reports a suite that cannot run on the active pool.
func (p *Printer) SuiteSkip(name string) {
	fmt.Fprintln(p.w, strings.Repeat("-", decoratorLen))
	fmt.Fprintln(p.w, styleSkip.Render("> skipped test : "+name))
}

// RetryNotice reports that a failed suite is being retried.
func (p *Printer) RetryNotice(name string, attempt, maxAttempts int) {
	fmt.Fprintln(p.w, strings.Repeat("#", decoratorLen))
	fmt.Fprintln(p.w, styleSkip.Render(fmt.Sprintf("> retry test   : %s (attempt %d of %d)", name, attempt, maxAttempts)))
	fmt.Fprintln(p.w, strings.Repeat("#", decoratorLen))
}

// Summary prints the final report: the overall verdict and the pass,
// skip, and fail name lists, followed by failure details.
func (p *Printer) Summary(sum Summary) {
	passed := sum.byStatus(StatusPassed)
	skipped := sum.byStatus(StatusSkipped)
	failed := sum.byStatus(StatusFailed)
	total := len(sum.Outcomes)

	fmt.Fprintln(p.w, styleBanner.Render(strings.Repeat("#", decoratorLen)))
	fmt.Fprint(p.w, "> test summary : ")

	switch {
	case len(failed) == 0 && len(skipped) == 0:
		fmt.Fprintf(p.w, "all %s tests %s\n",
			stylePass.Render(fmt.Sprintf("%d", len(passed))), stylePass.Render("passed"))
	case len(passed) > 0:
		fmt.Fprintf(p.w, "only %s out of %s tests passed\n",
			stylePass.Render(fmt.Sprintf("%d", len(passed))),
			styleBanner.Render(fmt.Sprintf("%d", total)))
	case len(skipped) == 0:
		fmt.Fprintf(p.w, "all %s tests %s\n",
			styleFail.Render(fmt.Sprintf("%d", len(failed))), styleFail.Render("failed"))
	default:
		fmt.Fprintln(p.w)
	}

	if len(failed) > 0 || len(skipped) > 0 {
		if len(passed) > 0 {
			fmt.Fprintln(p.w, stylePass.Render(" - passed      : "+strings.Join(passed, " ")))
		}
		if len(skipped) > 0 {
			fmt.Fprintln(p.w, styleSkip.Render(" - skipped     : "+strings.Join(skipped, " ")))
		}
		if len(failed) > 0 {
			fmt.Fprintln(p.w, styleFail.Render(" - failed      : "+strings.Join(failed, " ")))
		}
	}

	for _, o := range sum.Outcomes {
		if o.Status == StatusFailed && o.Detail != "" {
			fmt.Fprintln(p.w, styleFail.Render(fmt.Sprintf("   %s (%d attempts): %s", o.Suite, o.Attempts, o.Detail)))
		}
	}

	fmt.Fprintln(p.w, styleBanner.Render(strings.Repeat("#", decoratorLen)))
}

func dashedLine() string {
	return strings.TrimRight(strings.Repeat("- ", decoratorLen/2)+"-", " ")
}

func relPath(path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(".", path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
