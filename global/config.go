package global

import (
	cfg "github.com/mailio/go-web3-kit/config"
)

// Conf global config
var Conf Config

type Config struct {
	cfg.YamlConfig `yaml:",inline"`
	Prover         ProverConfig     `yaml:"prover"`
	Prometheus     PrometheusConfig `yaml:"prometheus"`
	Storage        StorageConfig    `yaml:"storage"`
	Cors           CorsConfig       `yaml:"cors"`
}

type ProverConfig struct {
	OidcProviders       []OidcProvider `yaml:"oidcProviders"`
	JwkRefreshRateSecs  int            `yaml:"jwkRefreshRateSecs"`
	ResourcesDir        string         `yaml:"resourcesDir"`
	ZkeyPath            string         `yaml:"zkeyPath"`
	VerificationKeyPath string         `yaml:"verificationKeyPath"`
	// native witness generator produced by circom --c
	WitnessGenBinaryPath string `yaml:"witnessGenBinaryPath"`
	// rapidsnark compatible prover binary
	ProverBinaryPath      string `yaml:"proverBinaryPath"`
	CircuitConfigPath     string `yaml:"circuitConfigPath"`
	TrainingWheelsKeyPath string `yaml:"trainingWheelsKeyPath"`

	EnableFederatedJwks           bool `yaml:"enableFederatedJwks"`
	EnableJwtExpNotInThePastCheck bool `yaml:"enableJwtExpNotInThePastCheck"`
	EnableJwtIatNotInFutureCheck  bool `yaml:"enableJwtIatNotInFutureCheck"`
	EnableDebugChecks             bool `yaml:"enableDebugChecks"`
	// writes circuit inputs (sensitive!) into the log. never in production
	EnableDangerousLogging bool `yaml:"enableDangerousLogging"`
}

// OidcProvider is an issuer whose keys are mirrored into the local key cache
type OidcProvider struct {
	Iss         string `yaml:"iss" json:"iss"`
	EndpointUrl string `yaml:"endpointUrl" json:"endpoint_url"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StorageConfig describes an optional bucket holding the circuit resources (zkey, vk, witness generator)
type StorageConfig struct {
	Type   string `yaml:"type"`
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type CorsConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
}
