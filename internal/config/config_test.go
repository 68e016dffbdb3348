package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("OSTEST_TEST_SECRET", "s3cr3t")

	path := filepath.Join(t.TempDir(), "ostest.yaml")
	content := `
log_level: trace
engine:
  max_retries: 2
  retry_interval: 50ms
backends:
  COS:
    type: cos
    bucket: osstest-bucket
    s3:
      endpoint: http://cos.local:9000
      region: us-east-1
      access_key_id: ak
      secret_access_key: ${OSTEST_TEST_SECRET}
  SWIFT2D:
    type: swift
    swift:
      auth_url: ${OSTEST_TEST_AUTH:-http://swift.local/auth/v1.0}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Engine.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.RetryInterval)
	assert.Equal(t, "s3cr3t", cfg.Backends["COS"].S3.SecretAccessKey)
	assert.Equal(t, "http://swift.local/auth/v1.0", cfg.Backends["SWIFT2D"].Swift.AuthURL)
	assert.True(t, cfg.Backends["COS"].Live())
	assert.True(t, cfg.Backends["SWIFT2D"].Live())
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ostest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"debug","buffer":{"size":64}}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 64, cfg.Buffer.Size)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OSTEST_S3A_ENDPOINT", "http://s3a.local:9000")
	t.Setenv("OSTEST_S3A_BUCKET", "live-bucket")
	t.Setenv("OSTEST_SWIFT2D_AUTH_URL", "http://swift.local/auth/v1.0")
	t.Setenv("OSTEST_DATA_DIR", "/data")

	cfg := &Config{}
	ApplyEnv(cfg)

	s3a := cfg.Backends["S3A"]
	assert.Equal(t, "s3a", s3a.Type)
	assert.Equal(t, "live-bucket", s3a.Bucket)
	assert.True(t, s3a.Live())

	assert.Equal(t, "swift", cfg.Backends["SWIFT2D"].Type)
	assert.Equal(t, "/data", cfg.TestData.Dir)

	_, ok := cfg.Backends["COS"]
	assert.False(t, ok, "untouched backend should stay unset")
}

func TestLive(t *testing.T) {
	assert.False(t, ObjectStoreConfig{}.Live())
	assert.False(t, ObjectStoreConfig{Type: "memory"}.Live())
	assert.False(t, ObjectStoreConfig{Type: "cos"}.Live())
	assert.True(t, ObjectStoreConfig{Type: "local", LocalDir: "/tmp/x"}.Live())
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("OSTEST_A", "alpha")
	assert.Equal(t, "x=alpha", SubstituteEnvVars("x=${OSTEST_A}"))
	assert.Equal(t, "y=fallback", SubstituteEnvVars("y=${OSTEST_UNSET_VAR:-fallback}"))
	assert.Equal(t, "z=", SubstituteEnvVars("z=${OSTEST_UNSET_VAR}"))
	assert.Equal(t, "plain $HOME", SubstituteEnvVars("plain $HOME"))
}
