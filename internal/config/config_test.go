package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/homematic-exporter/internal/model"
)

// writeTempConfig writes content to a file with the given name inside a
// fresh temp dir and returns its path.
func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestDefault verifies the built-in defaults: no device mapping, non-empty
// supported types, and the known fault-tolerated switch actuator channels.
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.HasDeviceMapping())
	assert.NotEmpty(t, cfg.SupportedDeviceTypes)
	assert.True(t, cfg.SupportsDeviceType("HmIP-eTRV-2"))
	assert.False(t, cfg.SupportsDeviceType("HmIP-DOES-NOT-EXIST"))

	assert.True(t, cfg.ChannelErrorAllowed("HmIP-FSM", 4))
	assert.False(t, cfg.ChannelErrorAllowed("HmIP-FSM", 1))
	assert.False(t, cfg.ChannelErrorAllowed("HmIP-eTRV", 4))
}

// TestLoad_JSONCWithComments verifies that a JSONC config with comments and
// a trailing comma parses, and that present keys override the defaults.
func TestLoad_JSONCWithComments(t *testing.T) {
	path := writeTempConfig(t, "config.json", `{
	// Friendly names for the Grafana dashboards.
	"device_mapping": {
		"000955699D3D84": "Living room thermostat",
		"0001D8A9A34BBC": "Bathroom window",
	},
	"supported_device_types": ["HmIP-eTRV-2"],
	"channels_with_errors_allowed": {"HmIP-BSM": [4]}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.HasDeviceMapping())
	assert.Equal(t, "Living room thermostat", cfg.DeviceMapping["000955699D3D84"])

	// The supported type list is replaced wholesale, not merged.
	assert.Equal(t, []string{"HmIP-eTRV-2"}, cfg.SupportedDeviceTypes)
	assert.False(t, cfg.SupportsDeviceType("HmIP-WTH-2"))

	assert.True(t, cfg.ChannelErrorAllowed("HmIP-BSM", 4))
	assert.False(t, cfg.ChannelErrorAllowed("HmIP-FSM", 4))
}

// TestLoad_YAML verifies the YAML format selected by file extension.
func TestLoad_YAML(t *testing.T) {
	path := writeTempConfig(t, "config.yaml", `
device_mapping:
  000955699D3D84: Living room thermostat
supported_device_types:
  - HmIP-WTH-2
  - HmIP-eTRV
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Living room thermostat", cfg.DeviceMapping["000955699D3D84"])
	assert.True(t, cfg.SupportsDeviceType("HmIP-WTH-2"))

	// channels_with_errors_allowed was absent, so defaults apply.
	assert.True(t, cfg.ChannelErrorAllowed("HmIP-FSM", 3))
}

// TestLoad_PartialFallsBackToDefaults verifies that a config file that only
// sets a device mapping keeps the default type and channel tables.
func TestLoad_PartialFallsBackToDefaults(t *testing.T) {
	path := writeTempConfig(t, "mapping-only.json", `{"device_mapping": {"A": "B"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.HasDeviceMapping())
	assert.Equal(t, DefaultSupportedDeviceTypes, cfg.SupportedDeviceTypes)
	assert.Equal(t, DefaultChannelsWithErrorsAllowed, cfg.ChannelsWithErrorsAllowed)
}

// TestLoad_EmptyListDisablesWalk verifies that an explicit empty list is
// preserved rather than replaced by defaults.
func TestLoad_EmptyListDisablesWalk(t *testing.T) {
	path := writeTempConfig(t, "empty.json", `{"supported_device_types": []}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.SupportedDeviceTypes)
	assert.False(t, cfg.SupportsDeviceType("HmIP-eTRV"))
}

// TestLoad_MissingFile verifies that a nonexistent path yields a CLIError
// carrying the config exit code.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}

// TestLoad_MalformedJSON verifies that broken JSON is reported as a config
// error rather than a generic one.
func TestLoad_MalformedJSON(t *testing.T) {
	path := writeTempConfig(t, "broken.json", `{"device_mapping": `)

	_, err := Load(path)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
}
