package util

import (
	"os"

	"github.com/zkkeyless/go-keyless-prover/types"
	"gopkg.in/yaml.v3"
)

// LoadCircuitConfig reads circuit_config.yml
func LoadCircuitConfig(path string) (*types.CircuitConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cc types.CircuitConfig
	if err := yaml.Unmarshal(b, &cc); err != nil {
		return nil, err
	}
	return &cc, nil
}

// DefaultCircuitConfig matches the lengths of the production keyless circuit
func DefaultCircuitConfig() *types.CircuitConfig {
	return &types.CircuitConfig{
		MaxLengths: map[string]int{
			"epk":                       3,
			"iss_value":                 120,
			"aud_value":                 120,
			"override_aud_value":        120,
			"uid_key":                   30,
			"uid_value":                 330,
			"jwt_header_with_separator": 300,
			"jwt_payload":               1472,
			"extra_field":               350,
			"jwt_signature_limbs":       32,
			"jwk_modulus_limbs":         32,
		},
		HasInputSkipAudChecks: true,
	}
}
