package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qrpdf/internal/config"
	"qrpdf/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

const (
	validYAML = `
camera:
  root: "/srv/cameras"
  frame_pattern: "*.png"
download:
  directory: "/tmp/pdfs"
  timeout: 12
  gcs_bucket: "scanned-pdfs"
  inspect: false
  max_bytes: 1048576
  s3:
    bucket: "scans/incoming"
    region: "eu-west-1"
server:
  listen: "127.0.0.1:9000"
log:
  debug: true
  json: true
theme:
  name: dark
`
	invalidSyntaxYAML = `
camera:
  root: "/srv/cameras
download: [
`
	invalidPatternYAML = `
camera:
  frame_pattern: "*.[png"
`
	invalidTimeoutYAML = `
download:
  timeout: -5
`
	negativeMaxBytesYAML = `
download:
  max_bytes: -1
`
	endpointWithoutBucketYAML = `
download:
  s3:
    endpoint: "http://localhost:9000"
`
	unknownThemeYAML = `
theme:
  name: neon
`
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvCameraRoot, config.EnvDownloadDir, config.EnvGCSBucket, config.EnvS3Bucket, config.EnvListen, config.EnvDebug} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	t.Run("load valid config", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "/srv/cameras", cfg.Camera.Root)
		assert.Equal(t, "*.png", cfg.Camera.FramePattern)
		assert.Equal(t, "/tmp/pdfs", cfg.Download.Directory)
		assert.Equal(t, 12*time.Second, cfg.DownloadTimeout())
		assert.Equal(t, "scanned-pdfs", cfg.Download.GCSBucket)
		assert.False(t, cfg.Download.Inspect)
		assert.Equal(t, int64(1048576), cfg.Download.MaxBytes)
		assert.Equal(t, "scans/incoming", cfg.Download.S3.Bucket)
		assert.Equal(t, "eu-west-1", cfg.Download.S3.Region)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
		assert.True(t, cfg.Log.Debug)
		assert.True(t, cfg.Log.JSON)
		assert.Equal(t, "dark", cfg.Theme.Name)
		assert.Equal(t, "105", cfg.Theme.Primary)
	})

	t.Run("load non-existent file", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "does_not_exist.yaml"))
		require.NoError(t, err, "Loading non-existent file should return default config, not an error")

		defaults := config.New()
		assert.Equal(t, defaults.Camera, cfg.Camera)
		assert.Equal(t, defaults.Download.Timeout, cfg.Download.Timeout)
		assert.Equal(t, defaults.Server.Listen, cfg.Server.Listen)
		assert.Equal(t, "default", cfg.Theme.Name)
	})

	t.Run("load file with invalid YAML syntax", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidSyntaxYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error parsing config file")
	})

	t.Run("load file with invalid frame pattern", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidPatternYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.True(t, errors.IsInvalidConfig(err))

		var cfgErr *errors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "camera.frame_pattern", cfgErr.Param())
	})

	t.Run("load file with invalid timeout", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidTimeoutYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "download timeout")
	})

	t.Run("load file with negative max_bytes", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, negativeMaxBytesYAML))
		require.Error(t, err)

		var cfgErr *errors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "download.max_bytes", cfgErr.Param())
	})

	t.Run("load file with s3 endpoint but no bucket", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, endpointWithoutBucketYAML))
		require.Error(t, err)

		var cfgErr *errors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "download.s3.bucket", cfgErr.Param())
	})

	t.Run("load file with unknown theme", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, unknownThemeYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown theme")
	})
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvCameraRoot, "/dev/shm/cams")
	t.Setenv(config.EnvDownloadDir, "/var/tmp/pdf")
	t.Setenv(config.EnvGCSBucket, "env-bucket")
	t.Setenv(config.EnvS3Bucket, "env-s3")
	t.Setenv(config.EnvListen, ":7000")
	t.Setenv(config.EnvDebug, "true")

	cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/dev/shm/cams", cfg.Camera.Root)
	assert.Equal(t, "/var/tmp/pdf", cfg.Download.Directory)
	assert.Equal(t, "env-bucket", cfg.Download.GCSBucket)
	assert.Equal(t, "env-s3", cfg.Download.S3.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Download.S3.Region)
	assert.Equal(t, ":7000", cfg.Server.Listen)
	assert.True(t, cfg.Log.Debug)
}

func TestSaveConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.New()
	cfg.Camera.Root = "/opt/cams"
	cfg.Download.Timeout = 45
	cfg.ApplyTheme("light")
	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/cams", loaded.Camera.Root)
	assert.Equal(t, 45, loaded.Download.Timeout)
	assert.Equal(t, "light", loaded.Theme.Name)
}

func TestValidate(t *testing.T) {
	var nilCfg *config.Config
	assert.Error(t, nilCfg.Validate())

	cfg := config.New()
	require.NoError(t, cfg.Validate())

	cfg.Server.Listen = ""
	assert.Error(t, cfg.Validate())
}

func TestThemes(t *testing.T) {
	assert.Equal(t, config.GetTheme("default"), config.GetTheme("missing"))
	for _, name := range config.ListThemes() {
		theme := config.GetTheme(name)
		assert.Len(t, theme, 7, name)
	}
}
