package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tj/assert"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/testutil"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

func TestApplyEnvOverrides(t *testing.T) {
	conf := &global.Config{}
	conf.Prover.OidcProviders = []global.OidcProvider{{Iss: "https://from-file.example.com", EndpointUrl: "https://from-file.example.com/certs"}}

	t.Setenv("OIDC_PROVIDERS", "")
	assert.NoError(t, ApplyEnvOverrides(conf))
	assert.Equal(t, "https://from-file.example.com", conf.Prover.OidcProviders[0].Iss)

	t.Setenv("OIDC_PROVIDERS", `[{"iss":"https://accounts.google.com","endpoint_url":"https://www.googleapis.com/oauth2/v3/certs"}]`)
	assert.NoError(t, ApplyEnvOverrides(conf))
	assert.Equal(t, []global.OidcProvider{{Iss: "https://accounts.google.com", EndpointUrl: "https://www.googleapis.com/oauth2/v3/certs"}}, conf.Prover.OidcProviders)

	t.Setenv("OIDC_PROVIDERS", `{"iss":`)
	assert.Error(t, ApplyEnvOverrides(conf))
}

func TestLoadTrainingWheelsKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	assert.NoError(t, err)
	b, err := util.MarshalTrainingWheelsKey(priv, "tw", false)
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tw.jwk")
	assert.NoError(t, os.WriteFile(path, b, 0600))

	conf := &global.Config{}
	t.Setenv("PRIVATE_KEY_0", "")
	_, err = LoadTrainingWheelsKey(conf)
	assert.Error(t, err)

	conf.Prover.TrainingWheelsKeyPath = path
	loaded, err := LoadTrainingWheelsKey(conf)
	assert.NoError(t, err)
	assert.True(t, priv.Equal(loaded))

	// the environment wins over the key file
	seed := make([]byte, ed25519.SeedSize)
	t.Setenv("PRIVATE_KEY_0", "0x"+hex.EncodeToString(seed))
	loaded, err = LoadTrainingWheelsKey(conf)
	assert.NoError(t, err)
	assert.True(t, ed25519.NewKeyFromSeed(seed).Equal(loaded))
}

func TestResourcePath(t *testing.T) {
	conf := &global.Config{}
	assert.Equal(t, "vk.json", resourcePath(conf, "vk.json"))

	conf.Prover.ResourcesDir = "/srv/resources"
	assert.Equal(t, "/srv/resources/vk.json", resourcePath(conf, "vk.json"))
	assert.Equal(t, "/opt/vk.json", resourcePath(conf, "/opt/vk.json"))
	assert.Equal(t, "", resourcePath(conf, ""))
}

func TestJwkRefreshInterval(t *testing.T) {
	conf := &global.Config{}
	assert.Equal(t, 10*time.Second, jwkRefreshInterval(conf))
	conf.Prover.JwkRefreshRateSecs = 300
	assert.Equal(t, 5*time.Minute, jwkRefreshInterval(conf))
}

func TestConfigProver(t *testing.T) {
	dir := t.TempDir()
	td := testutil.NewGroth16Trapdoor(t)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "verification_key.json"), td.VerificationKeyJSON(t), 0600))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "circuit_config.yml"), []byte("max_lengths:\n  epk: 3\n"), 0600))

	conf := &global.Config{}
	conf.Prover.ResourcesDir = dir
	conf.Prover.VerificationKeyPath = "verification_key.json"
	conf.Prover.CircuitConfigPath = "circuit_config.yml"
	conf.Prover.OidcProviders = []global.OidcProvider{{Iss: "https://accounts.example.com", EndpointUrl: "https://accounts.example.com/certs"}}
	t.Setenv("PRIVATE_KEY_0", hex.EncodeToString(make([]byte, ed25519.SeedSize)))

	proverApi, cache, err := ConfigProver(conf)
	assert.NoError(t, err)
	assert.NotNil(t, proverApi)
	assert.Empty(t, cache.Issuers())

	conf.Prover.VerificationKeyPath = "missing.json"
	_, _, err = ConfigProver(conf)
	assert.Error(t, err)
}

func TestDownloadResourcesSkippedWithoutStorage(t *testing.T) {
	assert.NoError(t, DownloadResources(&global.Config{}, types.NewEnvironment()))
}
