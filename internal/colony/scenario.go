package colony

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

// ScenarioEntity is one world entity present every tick of a scenario.
type ScenarioEntity struct {
	ID     string  `yaml:"id"`
	Kind   string  `yaml:"kind"`
	Energy float64 `yaml:"energy"`
}

// ScenarioProcessSpec declares one simulated process.
type ScenarioProcessSpec struct {
	Name       string  `yaml:"name"`
	Priority   int     `yaml:"priority"`
	Singleton  bool    `yaml:"singleton"`
	Cost       float64 `yaml:"cost"`
	FailAtTick uint64  `yaml:"fail_at_tick"`
}

// Scenario is a simulator run description loaded from YAML.
type Scenario struct {
	Ticks     uint64                `yaml:"ticks"`
	CPULimit  float64               `yaml:"cpu_limit"`
	Bucket    float64               `yaml:"bucket"`
	Entities  []ScenarioEntity      `yaml:"entities"`
	Processes []ScenarioProcessSpec `yaml:"processes"`
}

// LoadScenario parses and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Ticks == 0 {
		return fmt.Errorf("scenario: ticks must be positive")
	}
	if s.CPULimit <= 0 {
		return fmt.Errorf("scenario: cpu_limit must be positive")
	}
	if len(s.Processes) == 0 {
		return fmt.Errorf("scenario: at least one process required")
	}
	for _, p := range s.Processes {
		if p.Name == "" {
			return fmt.Errorf("scenario: process without a name")
		}
		if p.Cost < 0 {
			return fmt.Errorf("scenario: process %s has negative cost", p.Name)
		}
	}
	return nil
}

// Register wires the scenario's processes into a kernel.
func (s *Scenario) Register(k *kernel.Kernel) error {
	for _, spec := range s.Processes {
		spec := spec
		err := k.RegisterProcess(spec.Name, spec.Priority, spec.Singleton, func() kernel.Process {
			return ScenarioProcess{Cost: spec.Cost, FailAtTick: spec.FailAtTick}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// EntityMap builds the per-tick entity view.
func (s *Scenario) EntityMap() map[string]world.Entity {
	entities := make(map[string]world.Entity, len(s.Entities))
	for _, e := range s.Entities {
		entities[e.ID] = world.Entity{ID: e.ID, Kind: e.Kind, Energy: e.Energy}
	}
	return entities
}
