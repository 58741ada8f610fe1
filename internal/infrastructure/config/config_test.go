package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/horizon/internal/ipc"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Diagnostics config
	assert.Equal(t, "127.0.0.1:8090", cfg.Diagnostics.Addr)
	assert.True(t, cfg.Diagnostics.Enabled)
	assert.Empty(t, cfg.Diagnostics.CORSOrigins)
	assert.Equal(t, 20, cfg.Diagnostics.RateLimitRPS)
	assert.Equal(t, 40, cfg.Diagnostics.RateLimitBurst)
	assert.Equal(t, time.Second, cfg.Diagnostics.StreamInterval)

	// Runtime config
	assert.Empty(t, cfg.Runtime.ManifestPath)
	assert.Equal(t, ipc.Addr32, cfg.Runtime.Width())
	assert.Equal(t, 0x800, cfg.Runtime.StaticBufferSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	// Should return default when no env vars set
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1:8090", cfg.Diagnostics.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"LOG_LEVEL":            "debug",
		"LOG_DEV":              "true",
		"DIAG_ADDR":            ":9100",
		"DIAG_ENABLED":         "false",
		"DIAG_CORS_ORIGINS":    "http://a.test,http://b.test",
		"DIAG_STREAM_INTERVAL": "250ms",
		"MANIFEST_PATH":        "/etc/horizon/services.toml",
		"ADDR_WIDTH":           "64",
		"STATIC_BUFFER_SIZE":   "4096",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, ":9100", cfg.Diagnostics.Addr)
	assert.False(t, cfg.Diagnostics.Enabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Diagnostics.CORSOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.Diagnostics.StreamInterval)
	assert.Equal(t, "/etc/horizon/services.toml", cfg.Runtime.ManifestPath)
	assert.Equal(t, ipc.Addr64, cfg.Runtime.Width())
	assert.Equal(t, 4096, cfg.Runtime.StaticBufferSize)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"odd width", "ADDR_WIDTH", "48"},
		{"zero static size", "STATIC_BUFFER_SIZE", "0"},
		{"huge static size", "STATIC_BUFFER_SIZE", "262144"},
		{"not a number", "ADDR_WIDTH", "wide"},
		{"zero interval", "DIAG_STREAM_INTERVAL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
			assert.Equal(t, Default(), LoadOrDefault())
		})
	}
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
[[service]]
name = "echo:u"
max_sessions = 4
kind = "echo"

[[service]]
name = "echo:s"
max_sessions = 1
kind = "echo"

[notifications]
subscribe = [0x104, 0x105]
`))
	require.NoError(t, err)
	assert.Equal(t, []ServiceSpec{
		{Name: "echo:u", MaxSessions: 4, Kind: "echo"},
		{Name: "echo:s", MaxSessions: 1, Kind: "echo"},
	}, m.Services)
	assert.Equal(t, []uint32{0x104, 0x105}, m.Notifications.Subscribe)
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"empty", ``},
		{"unknown key", "[[service]]\nname = \"a\"\nmax_sessions = 1\nkind = \"echo\"\ncolour = \"red\"\n"},
		{"long name", "[[service]]\nname = \"much-too-long\"\nmax_sessions = 1\nkind = \"echo\"\n"},
		{"duplicate", "[[service]]\nname = \"a\"\nmax_sessions = 1\nkind = \"echo\"\n[[service]]\nname = \"a\"\nmax_sessions = 1\nkind = \"echo\"\n"},
		{"no sessions", "[[service]]\nname = \"a\"\nmax_sessions = 0\nkind = \"echo\"\n"},
		{"no kind", "[[service]]\nname = \"a\"\nmax_sessions = 1\n"},
		{"syntax", "[[service]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest("")
	require.NoError(t, err)
	assert.Equal(t, DefaultManifest(), m)
	assert.NoError(t, m.Validate())

	path := filepath.Join(t.TempDir(), "services.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[service]]\nname = \"fs:USER\"\nmax_sessions = 2\nkind = \"echo\"\n"), 0o600))
	m, err = LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "fs:USER", m.Services[0].Name)

	path = filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  - name: "echo:u"
    max_sessions: 2
    kind: echo
notifications:
  subscribe: [0x104]
`), 0o600))
	m, err = LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []ServiceSpec{{Name: "echo:u", MaxSessions: 2, Kind: "echo"}}, m.Services)
	assert.Equal(t, []uint32{0x104}, m.Notifications.Subscribe)

	_, err = ParseManifestYAML([]byte("service:\n  - name: a\n    max_sessions: 1\n    kind: echo\n    colour: red\n"))
	assert.Error(t, err)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
