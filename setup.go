package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/api"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/repository"
	"github.com/zkkeyless/go-keyless-prover/services"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

const (
	envTrainingWheelsKey = "PRIVATE_KEY_0"
	envOidcProviders     = "OIDC_PROVIDERS"

	defaultJwkRefreshRateSecs = 10
)

// ApplyEnvOverrides replaces the provider list with OIDC_PROVIDERS when set
func ApplyEnvOverrides(conf *global.Config) error {
	raw := os.Getenv(envOidcProviders)
	if raw == "" {
		return nil
	}
	var providers []global.OidcProvider
	if err := json.Unmarshal([]byte(raw), &providers); err != nil {
		return fmt.Errorf("%s: %w", envOidcProviders, err)
	}
	conf.Prover.OidcProviders = providers
	return nil
}

// resolves p against the resources directory unless it is absolute
func resourcePath(conf *global.Config, p string) string {
	if p == "" || filepath.IsAbs(p) || conf.Prover.ResourcesDir == "" {
		return p
	}
	return filepath.Join(conf.Prover.ResourcesDir, p)
}

// LoadTrainingWheelsKey prefers PRIVATE_KEY_0 (hex seed) over the configured key file
func LoadTrainingWheelsKey(conf *global.Config) (ed25519.PrivateKey, error) {
	if seed := os.Getenv(envTrainingWheelsKey); seed != "" {
		return util.TrainingWheelsKeyFromHex(seed)
	}
	if conf.Prover.TrainingWheelsKeyPath == "" {
		return nil, fmt.Errorf("no training wheels key: set %s or prover.trainingWheelsKeyPath", envTrainingWheelsKey)
	}
	return util.LoadTrainingWheelsKey(conf.Prover.TrainingWheelsKeyPath)
}

func ConfigS3Storage(conf *global.Config, env *types.Environment) {
	// configure S3 storage
	credentials := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(conf.Storage.Key, conf.Storage.Secret, ""))
	awsConf, err := config.LoadDefaultConfig(context.TODO(), config.WithCredentialsProvider(credentials), config.WithRegion(conf.Storage.Region))
	if err != nil {
		panic(err)
	}
	s3Client := s3.NewFromConfig(awsConf)
	downloader := manager.NewDownloader(s3Client)
	env.AddS3Downloader(downloader)

	env.S3Client = s3Client
}

// DownloadResources fetches missing circuit resources from the configured bucket
func DownloadResources(conf *global.Config, env *types.Environment) error {
	if conf.Storage.Type != "s3" {
		return nil
	}
	ConfigS3Storage(conf, env)
	rs := services.NewResourceService(env)
	resources := []services.Resource{
		{Name: filepath.Base(conf.Prover.ZkeyPath), LocalPath: resourcePath(conf, conf.Prover.ZkeyPath)},
		{Name: filepath.Base(conf.Prover.VerificationKeyPath), LocalPath: resourcePath(conf, conf.Prover.VerificationKeyPath)},
		{Name: filepath.Base(conf.Prover.CircuitConfigPath), LocalPath: resourcePath(conf, conf.Prover.CircuitConfigPath)},
		{Name: filepath.Base(conf.Prover.WitnessGenBinaryPath), LocalPath: resourcePath(conf, conf.Prover.WitnessGenBinaryPath), Executable: true},
	}
	return rs.Download(context.Background(), conf.Storage.Bucket, conf.Storage.Prefix, resources)
}

// ConfigProver loads the circuit resources and wires the proving pipeline
func ConfigProver(conf *global.Config) (*api.ProverApi, *services.JwkCacheService, error) {
	circuitConfig := util.DefaultCircuitConfig()
	if conf.Prover.CircuitConfigPath != "" {
		cc, err := util.LoadCircuitConfig(resourcePath(conf, conf.Prover.CircuitConfigPath))
		if err != nil {
			return nil, nil, fmt.Errorf("circuit config: %w", err)
		}
		circuitConfig = cc
	}

	vk, err := util.LoadVerificationKey(resourcePath(conf, conf.Prover.VerificationKeyPath))
	if err != nil {
		return nil, nil, fmt.Errorf("verification key: %w", err)
	}

	twKey, err := LoadTrainingWheelsKey(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("training wheels key: %w", err)
	}
	attestation, err := services.NewAttestationService(twKey)
	if err != nil {
		return nil, nil, err
	}
	level.Info(global.Logger).Log("msg", "training wheels key loaded", "public_key", fmt.Sprintf("%x", attestation.PublicKey()))

	jwksRepo := repository.NewHttpJwksRepository(10 * time.Second)
	jwkCache := services.NewJwkCacheService(jwksRepo, conf.Prover.OidcProviders)

	trainingWheels := services.NewTrainingWheelsService(jwkCache, jwksRepo, circuitConfig, conf.Prover)
	circuitInputs := services.NewCircuitInputService(circuitConfig, conf.Prover.EnableDangerousLogging)
	witnessGen := services.NewBinaryWitnessGenerator(resourcePath(conf, conf.Prover.WitnessGenBinaryPath))
	engine := services.NewRapidsnarkEngine(conf.Prover.ProverBinaryPath, resourcePath(conf, conf.Prover.ZkeyPath))
	prover := services.NewProverService(witnessGen, engine, vk)

	proverApi := api.NewProverApi(trainingWheels, circuitInputs, prover, attestation, conf.Prover.EnableDebugChecks)
	return proverApi, jwkCache, nil
}

func jwkRefreshInterval(conf *global.Config) time.Duration {
	secs := conf.Prover.JwkRefreshRateSecs
	if secs <= 0 {
		secs = defaultJwkRefreshRateSecs
	}
	return time.Duration(secs) * time.Second
}
