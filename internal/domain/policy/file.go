package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a policy definition from YAML, e.g.
//
//	name: standard
//	rules:
//	  - {min_hours: 0, max_hours: 4, refund_percent: 0}
//	  - {min_hours: 4, max_hours: 24, refund_percent: 50}
//	  - {min_hours: 24, refund_percent: 100}
func LoadFile(path string) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cancellation policy file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML policy definition
func Parse(raw []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse cancellation policy: %w", err)
	}
	if p.Name == "" {
		p.Name = "default"
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
