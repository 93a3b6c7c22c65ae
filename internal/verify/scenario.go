package verify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is one verification: load Document, type Input into the element
// at InputLocator, activate ActionLocator, and save a screenshot to Output.
type Scenario struct {
	Name          string  `yaml:"name"`
	Document      string  `yaml:"document,omitempty"`
	Input         string  `yaml:"input"`
	InputLocator  Locator `yaml:"input_locator"`
	ActionLocator Locator `yaml:"action_locator"`
	// WaitFor, when set, must become visible after the action before capture.
	WaitFor Locator `yaml:"wait_for,omitempty"`
	Output  string  `yaml:"output,omitempty"`
}

// Validate checks that the scenario can be run.
func (s *Scenario) Validate() error {
	var errs []error
	if s.Document == "" {
		errs = append(errs, errors.New("document is required"))
	}
	if s.InputLocator.IsZero() {
		errs = append(errs, errors.New("input_locator is required"))
	}
	if s.ActionLocator.IsZero() {
		errs = append(errs, errors.New("action_locator is required"))
	}
	if s.Output == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return nil
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Scenario   string
	State      State
	Output     string
	Width      int
	Height     int
	Bytes      int
	BrowserPID int
	Duration   time.Duration
}

// Suite is an ordered list of scenarios.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadSuite reads a suite from a YAML file. Unknown keys are rejected.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite decodes a suite from YAML.
func ParseSuite(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Suite
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if len(s.Scenarios) == 0 {
		return nil, errors.New("suite has no scenarios")
	}
	for i := range s.Scenarios {
		if s.Scenarios[i].Name == "" {
			s.Scenarios[i].Name = fmt.Sprintf("scenario-%d", i+1)
		}
	}
	return &s, nil
}

// ApplyDefaults fills in a missing document and output for every scenario.
// When the suite has several scenarios, each default output gets the
// scenario name as a suffix so that runs do not overwrite each other.
func (s *Suite) ApplyDefaults(document, output string) {
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		if sc.Document == "" {
			sc.Document = document
		}
		if sc.Output == "" {
			sc.Output = output
			if len(s.Scenarios) > 1 {
				sc.Output = suffixed(output, sc.Name)
			}
		}
	}
}

func suffixed(path, name string) string {
	ext := filepath.Ext(path)
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '-'
		}
		return r
	}, name)
	return strings.TrimSuffix(path, ext) + "-" + name + ext
}

// DefaultSuite reproduces the two decoder checks: one addresses the controls
// by id, the other finds the button by role and accessible name.
func DefaultSuite() *Suite {
	waitFor := MustParseLocator("css:#output-payload:not(:empty)")
	return &Suite{Scenarios: []Scenario{
		{
			Name:          "info-status",
			Input:         "0x74 0x72 0x6C",
			InputLocator:  MustParseLocator("#input"),
			ActionLocator: MustParseLocator("#decode"),
			WaitFor:       waitFor,
		},
		{
			Name:          "decoder-state",
			Input:         "2E 93 93 78 E4 B4",
			InputLocator:  MustParseLocator("#input"),
			ActionLocator: MustParseLocator("role:button:Decode"),
			WaitFor:       waitFor,
		},
	}}
}
