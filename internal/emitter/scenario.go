// Package emitter generates synthetic telemetry traffic for exercising
// a pipeline against a live or staged collector.
package emitter

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes a synthetic traffic run.
type Scenario struct {
	Version string  `yaml:"version"`
	Seed    uint64  `yaml:"seed"`
	Phases  []Phase `yaml:"phases"`
}

// Phase is one burst of events of a single collection.
type Phase struct {
	Name       string        `yaml:"name"`
	Collection string        `yaml:"collection"`
	Count      int           `yaml:"count"`
	Interval   time.Duration `yaml:"interval"`
}

// UnmarshalYAML accepts interval as a duration string ("50ms", "2s").
func (p *Phase) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name       string `yaml:"name"`
		Collection string `yaml:"collection"`
		Count      int    `yaml:"count"`
		Interval   string `yaml:"interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.Name = raw.Name
	p.Collection = raw.Collection
	p.Count = raw.Count
	p.Interval = 0
	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("phase %s: invalid interval %q: %w", raw.Name, raw.Interval, err)
		}
		p.Interval = d
	}
	return nil
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for holes that would make a run
// meaningless.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("scenario has no phases")
	}
	for i, phase := range s.Phases {
		if phase.Collection == "" {
			return fmt.Errorf("phase %d (%s): missing collection", i, phase.Name)
		}
		if phase.Count <= 0 {
			return fmt.Errorf("phase %d (%s): count must be positive", i, phase.Name)
		}
	}
	return nil
}

// DefaultScenario is a short mixed browse-and-ping run.
func DefaultScenario() *Scenario {
	return &Scenario{
		Version: "1",
		Phases: []Phase{
			{Name: "browse", Collection: "PAGEVIEW", Count: 20, Interval: 100 * time.Millisecond},
			{Name: "heartbeat", Collection: "PING", Count: 5, Interval: 200 * time.Millisecond},
			{Name: "signup", Collection: "ENROLLMENT", Count: 1},
		},
	}
}
