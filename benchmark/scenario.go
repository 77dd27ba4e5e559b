package benchmark

import (
	"fmt"
	"image"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is one benchmark configuration.
type Scenario struct {
	Name string `json:"name" yaml:"name"`
	// Resolution resizes every corpus image before detection; zero keeps
	// the native size.
	Resolution image.Point `json:"resolution" yaml:"resolution"`
	Iterations int         `json:"iterations" yaml:"iterations"`
	WarmupRuns int         `json:"warmup_runs" yaml:"warmup_runs"`
}

// Validate reports whether the scenario can run.
func (s Scenario) Validate() error {
	if s.Iterations <= 0 {
		return errors.Errorf("scenario %q: iterations must be positive", s.Name)
	}
	if s.WarmupRuns < 0 {
		return errors.Errorf("scenario %q: warmup runs must not be negative", s.Name)
	}
	if s.Resolution.X < 0 || s.Resolution.Y < 0 || (s.Resolution.X == 0) != (s.Resolution.Y == 0) {
		return errors.Errorf("scenario %q: invalid resolution %dx%d", s.Name, s.Resolution.X, s.Resolution.Y)
	}
	return nil
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the image resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = image.Pt(width, height)
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ScenarioSet represents a collection of related test scenarios
type ScenarioSet struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Scenarios   []Scenario `json:"scenarios" yaml:"scenarios"`
}

// CommonResolutions are the square network input sizes YOLO models are
// usually exported at.
var CommonResolutions = []image.Point{
	image.Pt(320, 320),
	image.Pt(416, 416),
	image.Pt(608, 608),
}

// QuickScenarios runs the native size and each common resolution briefly.
func QuickScenarios() *ScenarioSet {
	scenarios := []Scenario{
		NewScenarioBuilder("native").WithIterations(20).WithWarmupRuns(2).Build(),
	}
	for _, r := range CommonResolutions {
		scenarios = append(scenarios, NewScenarioBuilder(fmt.Sprintf("%dx%d", r.X, r.Y)).
			WithResolution(r.X, r.Y).
			WithIterations(20).
			WithWarmupRuns(2).
			Build())
	}
	return &ScenarioSet{
		Name:        "Quick Performance Test",
		Description: "Native size and common network input sizes",
		Scenarios:   scenarios,
	}
}

// LoadScenarioSet reads a YAML scenario set and validates every scenario.
func LoadScenarioSet(path string) (*ScenarioSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenarios %s", path)
	}
	set := &ScenarioSet{}
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, errors.Wrapf(err, "parse scenarios %s", path)
	}
	if len(set.Scenarios) == 0 {
		return nil, errors.Errorf("no scenarios in %s", path)
	}
	for _, s := range set.Scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return set, nil
}
