// Package rtsploadtest drives many concurrent client.Client sessions
// against one server to exercise the session engine under load, grounded
// on the rate-paced spawner/semaphore pattern of a bench-style load
// generator rather than anything spec.md names directly.
package rtsploadtest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is the yaml-driven load description for one run.
type Scenario struct {
	URL       string        `yaml:"url"`
	Readers   int           `yaml:"readers"`
	Rate      float64       `yaml:"rate"` // connections per second
	Duration  time.Duration `yaml:"duration"`
	Transport string        `yaml:"transport"` // "udp" or "tcp"
}

func (s *Scenario) setDefaults() {
	if s.Readers == 0 {
		s.Readers = 1
	}
	if s.Rate == 0 {
		s.Rate = 10
	}
	if s.Duration == 0 {
		s.Duration = 10 * time.Second
	}
	if s.Transport == "" {
		s.Transport = "udp"
	}
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	sc.setDefaults()

	if sc.URL == "" {
		return nil, fmt.Errorf("scenario missing required field: url")
	}
	return &sc, nil
}
