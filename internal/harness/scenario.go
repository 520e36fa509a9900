package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/jsonsql/internal/policy"
)

// Scenario defines a conformance test scenario: one policy and the
// requests compiled against it.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is an inline policy. Exactly one of Policy or PolicyFile is set.
	Policy *policy.Config `yaml:"policy,omitempty"`

	// PolicyFile is a YAML, JSON or CUE policy file.
	// Relative paths are resolved against the scenario file's directory.
	PolicyFile string `yaml:"policy_file,omitempty"`

	// Fixture holds SQL statements run before the cases. Accepted cases
	// are then executed against it.
	Fixture []string `yaml:"fixture,omitempty"`

	// Cases are compiled in order.
	Cases []Case `yaml:"cases"`
}

// Case is a single request and its expected outcome.
type Case struct {
	Name string `yaml:"name"`

	// Request is the request as a YAML mapping.
	Request map[string]any `yaml:"request,omitempty"`

	// RequestJSON is the raw request text, for inputs YAML cannot express
	// (malformed JSON, non-object requests).
	RequestJSON string `yaml:"request_json,omitempty"`

	Expect Expect `yaml:"expect"`
}

// Expect is the expected compilation outcome.
type Expect struct {
	OK bool `yaml:"ok"`

	// SQL, if set, must equal the compiled SQL exactly.
	SQL string `yaml:"sql,omitempty"`

	// Params, if set, must equal the bound parameters.
	// Integers and floats compare by JSON value.
	Params []any `yaml:"params,omitempty"`

	// Rows, if set, is the number of rows the fixture returns.
	Rows *int `yaml:"rows,omitempty"`

	// Code is the expected error code of a rejection.
	Code string `yaml:"code,omitempty"`

	// ReasonContains must be a substring of the rejection reason.
	ReasonContains string `yaml:"reason_contains,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "case:" vs "cases:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.PolicyFile != "" && !filepath.IsAbs(scenario.PolicyFile) {
		scenario.PolicyFile = filepath.Join(filepath.Dir(path), scenario.PolicyFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("listing scenarios: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Policy == nil && s.PolicyFile == "":
		return fmt.Errorf("one of policy or policy_file is required")
	case s.Policy != nil && s.PolicyFile != "":
		return fmt.Errorf("policy and policy_file are mutually exclusive")
	}

	if s.PolicyFile != "" {
		if _, err := os.Stat(s.PolicyFile); os.IsNotExist(err) {
			return fmt.Errorf("policy file not found: %s", s.PolicyFile)
		}
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		seen[c.Name] = true

		if (c.Request == nil) == (c.RequestJSON == "") {
			return fmt.Errorf("cases[%d]: exactly one of request or request_json is required", i)
		}
		if err := validateExpect(c.Expect, len(s.Fixture) > 0); err != nil {
			return fmt.Errorf("cases[%d].expect: %w", i, err)
		}
	}

	return nil
}

func validateExpect(e Expect, hasFixture bool) error {
	if e.OK {
		if e.Code != "" || e.ReasonContains != "" {
			return fmt.Errorf("code and reason_contains only apply when ok is false")
		}
		if e.Rows != nil && !hasFixture {
			return fmt.Errorf("rows requires a fixture")
		}
		return nil
	}
	if e.Code == "" {
		return fmt.Errorf("code is required when ok is false")
	}
	if e.SQL != "" || e.Params != nil || e.Rows != nil {
		return fmt.Errorf("sql, params and rows only apply when ok is true")
	}
	return nil
}
