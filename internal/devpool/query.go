package devpool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Infineon/mpy-test-ext/internal/errors"
)

// Query attribute names accepted by Query and Filter.Key.
const (
	AttrSerial    = "serial"
	AttrBoard     = "board"
	AttrVersion   = "version"
	AttrPort      = "port"
	AttrState     = "state"
	AttrConnected = "connected"
)

// Filter restricts a device query to devices whose attribute has an
// exact value.
type Filter struct {
	Key   string
	Value string
}

// ParseFilters parses "key=value" strings into Filters.
func ParseFilters(args []string) ([]Filter, error) {
	var filters []Filter
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.NewWithDetails(errors.EInvalidQuery,
				"filter must be in format 'attribute=value'",
				map[string]string{"filter": arg})
		}
		if !validAttr(key) {
			return nil, unknownAttrErr(key)
		}
		filters = append(filters, Filter{Key: key, Value: value})
	}
	return filters, nil
}

// Query returns the named attribute of every device passing all filters,
// in pool order. Devices without a resolved port are skipped unless
// includeDisconnected is set.
func (p *Pool) Query(attr string, filters []Filter, includeDisconnected bool) ([]string, error) {
	if !validAttr(attr) {
		return nil, unknownAttrErr(attr)
	}

	var out []string
	for _, d := range p.devices {
		if !d.Connected && !includeDisconnected {
			continue
		}
		if !matchesFilters(d, filters) {
			continue
		}
		out = append(out, attrValue(d, attr))
	}
	return out, nil
}

func matchesFilters(d *Device, filters []Filter) bool {
	for _, f := range filters {
		if attrValue(d, f.Key) != f.Value {
			return false
		}
	}
	return true
}

func attrValue(d *Device, attr string) string {
	switch attr {
	case AttrSerial:
		return d.SerialID
	case AttrBoard:
		return d.Board
	case AttrVersion:
		return d.Version
	case AttrPort:
		return d.Port
	case AttrState:
		if d.Leased {
			return "leased"
		}
		return "free"
	case AttrConnected:
		if d.Connected {
			return "true"
		}
		return "false"
	}
	return ""
}

func validAttr(attr string) bool {
	switch attr {
	case AttrSerial, AttrBoard, AttrVersion, AttrPort, AttrState, AttrConnected:
		return true
	}
	return false
}

// QueryAttrs lists the valid query attribute names, sorted.
func QueryAttrs() []string {
	attrs := []string{AttrSerial, AttrBoard, AttrVersion, AttrPort, AttrState, AttrConnected}
	sort.Strings(attrs)
	return attrs
}

func unknownAttrErr(attr string) error {
	return errors.NewWithDetails(errors.EInvalidQuery,
		fmt.Sprintf("unknown device attribute %q (valid: %s)", attr, strings.Join(QueryAttrs(), ", ")),
		map[string]string{"attribute": attr})
}
