package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/envelope/internal/ir"
)

// Scenario defines a planning scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock is the fixed wall-clock time, RFC 3339. Defaults to DefaultClock.
	Clock string `yaml:"clock,omitempty"`

	// KeyPrefix prefixes generated keys ("key-1", "key-2", ...).
	// Defaults to DefaultKeyPrefix.
	KeyPrefix string `yaml:"key_prefix,omitempty"`

	// Config is the application configuration, nested or dotted.
	Config map[string]any `yaml:"config"`

	// Setup batches are applied before the flow and must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow batches are applied in order and traced.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final stored state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one arriving batch.
type Step struct {
	Records []map[string]any `yaml:"records"`

	// Expect checks the batch outcome. If nil, the batch must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Counts is the expected number of planned records per operation type.
	// Operation types not listed are not checked.
	Counts map[string]int `yaml:"counts,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of row_count, row_contains, plan_count.
	Type string `yaml:"type"`

	// Count is the expected number (row_count, plan_count).
	Count int `yaml:"count,omitempty"`

	// Where holds the fields a stored row must match (row_contains).
	Where map[string]any `yaml:"where,omitempty"`

	// Step is the flow step index (plan_count).
	Step int `yaml:"step,omitempty"`

	// Op is the operation type (plan_count).
	Op string `yaml:"op,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertRowContains = "row_contains"
	AssertPlanCount   = "plan_count"
)

// Defaults for scenarios that do not set them.
const (
	DefaultClock     = "2024-01-01T00:00:00Z"
	DefaultKeyPrefix = "key"
)

// records converts the step's YAML maps to records.
func (s Step) records() []ir.Record {
	out := make([]ir.Record, len(s.Records))
	for i, m := range s.Records {
		out[i] = ir.Record(m)
	}
	return out
}

// clockTime parses the scenario clock.
func (s *Scenario) clockTime() (time.Time, error) {
	v := s.Clock
	if v == "" {
		v = DefaultClock
	}
	return time.Parse(time.RFC3339Nano, v)
}

func (s *Scenario) keyPrefix() string {
	if s.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return s.KeyPrefix
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Config) == 0 {
		return fmt.Errorf("config is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if _, err := s.clockTime(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}

	for i, step := range s.Setup {
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is only allowed in flow steps", i)
		}
	}
	for i, step := range s.Flow {
		if step.Expect == nil {
			continue
		}
		for op := range step.Expect.Counts {
			if !ir.OperationType(op).Valid() {
				return fmt.Errorf("flow[%d].expect: unknown operation %q", i, op)
			}
		}
		if step.Expect.Error != "" && len(step.Expect.Counts) > 0 {
			return fmt.Errorf("flow[%d].expect: error and counts are mutually exclusive", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, len(s.Flow)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, flowLen int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be >= 0", index)
		}
	case AssertRowContains:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for row_contains", index)
		}
	case AssertPlanCount:
		if a.Step < 0 || a.Step >= flowLen {
			return fmt.Errorf("assertions[%d]: step %d out of range", index, a.Step)
		}
		if !ir.OperationType(a.Op).Valid() {
			return fmt.Errorf("assertions[%d]: unknown operation %q", index, a.Op)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
