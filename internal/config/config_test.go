package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/tract/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configYAML = `
env: local
server:
  port: 9090
provider:
  type: google
geocoder:
  api_key: fileKey
census:
  url: http://localhost:9999/block/find
request_timeout: 3s
postgres:
  host: testHost
  port: "12345"
  user: admin
  password: adminpass
  db_name: testName
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := filet.TmpDir(t, "")
	path := filepath.Join(dir, "config.yaml")
	filet.File(t, path, content)

	return path
}

func Test_LoadFromFile(t *testing.T) {
	defer filet.CleanUp(t)

	cfg, err := config.Load(writeConfig(t, configYAML))

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, "fileKey", cfg.Geocoder.APIKey)
	assert.Empty(t, cfg.Geocoder.URL)
	assert.Equal(t, "http://localhost:9999/block/find", cfg.Census.URL)
	assert.Empty(t, cfg.Census.APIKey)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
	assert.True(t, cfg.Database.Enabled())
}

func Test_LoadEnvOverridesFile(t *testing.T) {
	defer filet.CleanUp(t)
	t.Setenv("TRACT_GEOCODER_API_KEY", "envKey")
	t.Setenv("TRACT_SERVER_PORT", "8181")
	t.Setenv("TRACT_REQUEST_TIMEOUT", "1m")

	cfg, err := config.Load(writeConfig(t, configYAML))

	require.NoError(t, err)
	assert.Equal(t, "envKey", cfg.Geocoder.APIKey)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.RequestTimeout)
}

func Test_LoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACT_GEOCODER_API_KEY", "testAPIKey")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, config.EnvProd, cfg.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, config.DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.False(t, cfg.Database.Enabled())
}

func Test_LoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.ErrorContains(t, err, "failed to read config file")
}

func Test_Validate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Env:            config.EnvDev,
			Provider:       config.ProviderConfig{Type: "google"},
			Geocoder:       config.APIConfig{APIKey: "key"},
			RequestTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{
			name:    "unknown env",
			mutate:  func(c *config.Config) { c.Env = "staging" },
			wantErr: `invalid env "staging"`,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *config.Config) { c.RequestTimeout = 0 },
			wantErr: "invalid request_timeout",
		},
		{
			name:    "missing google key",
			mutate:  func(c *config.Config) { c.Geocoder.APIKey = "" },
			wantErr: "geocoder.api_key is required for the google provider",
		},
		{
			name:    "missing googlemaps key",
			mutate:  func(c *config.Config) { c.Provider.Type = "googlemaps"; c.Geocoder.APIKey = "" },
			wantErr: "geocoder.api_key is required for the googlemaps provider",
		},
		{
			name:   "nominatim needs no key",
			mutate: func(c *config.Config) { c.Provider.Type = "nominatim"; c.Geocoder.APIKey = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func Test_LoadMissingKeyError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACT_GEOCODER_API_KEY", "")

	cfg, err := config.Load("")

	assert.Nil(t, cfg)
	require.EqualError(t, err, "geocoder.api_key is required for the google provider")
}

func Test_LoadTimeoutError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACT_GEOCODER_API_KEY", "testAPIKey")
	t.Setenv("TRACT_REQUEST_TIMEOUT", "error_value")

	cfg, err := config.Load("")

	assert.Nil(t, cfg)
	require.ErrorContains(t, err, "failed to decode config")
}
