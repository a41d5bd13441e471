package plan

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Infineon/mpy-test-ext/internal/devpool"
	"github.com/Infineon/mpy-test-ext/internal/errors"
)

// stringList accepts either a YAML scalar or a sequence of scalars, so
// plans can write `script: foo.py` and `script: [a.py, b.py]`
// interchangeably.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = stringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("expected scalar or sequence at line %d", node.Line)
	}
}

type rawDevice struct {
	Board   string `yaml:"board"`
	Version string `yaml:"version"`
}

type rawSuite struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Test struct {
		Script          stringList  `yaml:"script"`
		Exclude         stringList  `yaml:"exclude"`
		Device          []rawDevice `yaml:"device"`
		PostTestDelayMs int         `yaml:"post_test_delay_ms"`
		PostStubDelayMs int         `yaml:"post_stub_delay_ms"`
		Args            stringList  `yaml:"args"`
	} `yaml:"test"`
	Stub struct {
		Script          string      `yaml:"script"`
		Device          []rawDevice `yaml:"device"`
		PostStubDelayMs int         `yaml:"post_stub_delay_ms"`
	} `yaml:"stub"`
}

// Load parses a test plan document: an ordered sequence of suite
// declarations.
func Load(data []byte) ([]Suite, error) {
	var raw []rawSuite
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.EPlanInvalid, "unable to parse test plan file", err)
	}

	suites := make([]Suite, 0, len(raw))
	for i, rs := range raw {
		s, err := buildSuite(rs, i)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// LoadFile reads and parses a test plan file.
func LoadFile(path string) ([]Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.EPlanNotFound,
			fmt.Sprintf("test plan file %q does not exist", path), err)
	}
	return Load(data)
}

func buildSuite(rs rawSuite, index int) (Suite, error) {
	if rs.Name == "" {
		return Suite{}, errors.NewWithDetails(errors.EPlanInvalid,
			fmt.Sprintf("plan entry %d has no name", index),
			map[string]string{"entry": fmt.Sprintf("%d", index)})
	}

	s := Suite{
		Name:          rs.Name,
		Kind:          Kind(rs.Type),
		Scripts:       rs.Test.Script,
		Excludes:      rs.Test.Exclude,
		PostTestDelay: time.Duration(rs.Test.PostTestDelayMs) * time.Millisecond,
		Args:          rs.Test.Args,
		SupportedDUT:  toRequirements(rs.Test.Device, devpool.RoleDUT),
		SupportedStub: toRequirements(rs.Stub.Device, devpool.RoleStub),
		StubScript:    rs.Stub.Script,
	}

	// The stub delay historically appeared under both blocks; the stub
	// block wins.
	if rs.Stub.PostStubDelayMs > 0 {
		s.PostStubDelay = time.Duration(rs.Stub.PostStubDelayMs) * time.Millisecond
	} else {
		s.PostStubDelay = time.Duration(rs.Test.PostStubDelayMs) * time.Millisecond
	}

	if s.Kind == "" {
		s.Kind = inferKind(s)
	}
	if !s.Kind.Valid() {
		return Suite{}, errors.NewWithDetails(errors.EPlanInvalid,
			fmt.Sprintf("suite %q has unknown type %q", s.Name, rs.Type),
			map[string]string{"suite": s.Name})
	}
	if len(s.Scripts) == 0 {
		return Suite{}, errors.NewWithDetails(errors.EPlanInvalid,
			fmt.Sprintf("suite %q declares no test scripts", s.Name),
			map[string]string{"suite": s.Name})
	}

	return s, nil
}

// inferKind determines the test kind when the plan omits an explicit
// type: a stub script implies multi_stub, a post-test delay implies
// single_post_delay, everything else is single.
func inferKind(s Suite) Kind {
	if s.StubScript != "" {
		return KindMultiStub
	}
	if s.PostTestDelay > 0 {
		return KindSingleDelay
	}
	return KindSingle
}

func toRequirements(devices []rawDevice, role devpool.Role) []devpool.Requirement {
	var reqs []devpool.Requirement
	for _, d := range devices {
		reqs = append(reqs, devpool.Requirement{
			Board:   d.Board,
			Version: d.Version,
			Role:    role,
		})
	}
	return reqs
}
