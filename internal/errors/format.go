// Package errors provides error formatting for mpytest CLI output.
package errors

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrintOptions controls error output formatting.
type PrintOptions struct {
	// Verbose enables detailed error output: all context keys and the
	// cause chain.
	Verbose bool
}

// Context key whitelist for default (non-verbose) output, in display order.
var defaultContextKeys = []string{
	"suite",
	"board",
	"version",
	"command",
	"script",
	"port",
	"exit_code",
	"attempts",
	"missing",
}

// Max chars for a single-line context value before truncation.
const maxValueLen = 256

// Format formats an error for display. Pure function, no I/O.
func Format(err error, opts PrintOptions) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	he, ok := AsHILError(err)
	if !ok {
		sb.WriteString(err.Error())
		sb.WriteString("\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "error_code: %s\n", he.Code)
	sb.WriteString(he.Msg)
	sb.WriteString("\n")

	writeDetails(&sb, he.Details, opts.Verbose)

	if opts.Verbose && he.Cause != nil {
		sb.WriteString("caused by:\n")
		for cause := he.Cause; cause != nil; cause = errors.Unwrap(cause) {
			fmt.Fprintf(&sb, "  %s\n", truncateValue(cause.Error()))
		}
	}

	return sb.String()
}

// PrintWithOptions writes the formatted error to w.
func PrintWithOptions(w io.Writer, err error, opts PrintOptions) {
	if err == nil {
		return
	}
	_, _ = io.WriteString(w, Format(err, opts))
}

// writeDetails writes context key/value lines. In default mode only
// whitelisted keys are shown, in whitelist order; verbose mode shows all
// keys sorted.
func writeDetails(sb *strings.Builder, details map[string]string, verbose bool) {
	if len(details) == 0 {
		return
	}

	if verbose {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(sb, "  %s: %s\n", k, truncateValue(details[k]))
		}
		return
	}

	for _, k := range defaultContextKeys {
		if v, ok := details[k]; ok && v != "" {
			fmt.Fprintf(sb, "  %s: %s\n", k, truncateValue(v))
		}
	}
}

func truncateValue(v string) string {
	// Keep context values single-line.
	if i := strings.IndexByte(v, '\n'); i >= 0 {
		v = v[:i] + " ..."
	}
	if len(v) > maxValueLen {
		v = v[:maxValueLen-3] + "..."
	}
	return v
}
