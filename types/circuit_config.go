package types

import "fmt"

// CircuitConfig carries the maximum lengths the circuit was compiled with
type CircuitConfig struct {
	MaxLengths            map[string]int `yaml:"max_lengths" json:"max_lengths"`
	HasInputSkipAudChecks bool           `yaml:"has_input_skip_aud_checks" json:"has_input_skip_aud_checks"`
}

func (c *CircuitConfig) MaxLength(name string) (int, error) {
	if c == nil || c.MaxLengths == nil {
		return 0, fmt.Errorf("circuit config is empty, missing max length for %q", name)
	}
	v, ok := c.MaxLengths[name]
	if !ok || v <= 0 {
		return 0, fmt.Errorf("circuit config has no max length for %q", name)
	}
	return v, nil
}
