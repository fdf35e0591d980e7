package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/homematic-exporter/internal/model"
)

// DefaultSupportedDeviceTypes lists the top-level Homematic (BidCos-RF and
// HmIP) device types the legacy collector walks when no config file narrows
// or extends the set. Channels of unsupported device types are skipped.
var DefaultSupportedDeviceTypes = []string{
	"HM-CC-RT-DN",
	"HM-ES-PMSw1-Pl",
	"HM-Sec-SC-2",
	"HM-WDS10-TH-O",
	"HMIP-PSM",
	"HmIP-BSM",
	"HmIP-FSM",
	"HmIP-PSM",
	"HmIP-SRH",
	"HmIP-STH",
	"HmIP-STHD",
	"HmIP-SWDO",
	"HmIP-SWSD",
	"HmIP-WTH",
	"HmIP-WTH-2",
	"HmIP-eTRV",
	"HmIP-eTRV-2",
}

// DefaultChannelsWithErrorsAllowed maps a parent device type to the channel
// numbers that are known to reject getParamset with a fault. Switch
// actuators report virtual channels that exist in the device tree but
// cannot be read; a fault on one of these channels is tolerated instead of
// failing the whole scrape.
var DefaultChannelsWithErrorsAllowed = map[string][]int{
	"HmIP-BSM": {4, 5, 6},
	"HmIP-FSM": {3, 4, 5},
}

// Config holds the exporter configuration. All fields are optional in the
// config file; absent fields fall back to the built-in defaults.
type Config struct {
	// DeviceMapping maps a device address to a human-readable name. When
	// set, it replaces the name lookup against the CCU JSON-RPC API
	// entirely — the exporter never contacts the CCU for names.
	DeviceMapping map[string]string `json:"device_mapping" yaml:"device_mapping"`

	// SupportedDeviceTypes replaces DefaultSupportedDeviceTypes when present.
	SupportedDeviceTypes []string `json:"supported_device_types" yaml:"supported_device_types"`

	// ChannelsWithErrorsAllowed replaces DefaultChannelsWithErrorsAllowed
	// when present.
	ChannelsWithErrorsAllowed map[string][]int `json:"channels_with_errors_allowed" yaml:"channels_with_errors_allowed"`
}

// Default returns a Config populated with the built-in defaults and no
// device name mapping.
func Default() *Config {
	return &Config{
		SupportedDeviceTypes:      DefaultSupportedDeviceTypes,
		ChannelsWithErrorsAllowed: DefaultChannelsWithErrorsAllowed,
	}
}

// Load reads a config file and merges it over the defaults.
//
// Files ending in .yaml or .yml are parsed as YAML; everything else is
// treated as JSONC (JSON with comments and trailing commas), which keeps
// hand-maintained device mappings annotatable.
//
// Returns a CLIError with ExitConfigError if the file does not exist or
// cannot be parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("config file not found: %s", path),
				err,
			)
		}
		return nil, model.WrapCLIError(model.ExitConfigError, "failed to read config file", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("failed to parse YAML config %s", path),
				err,
			)
		}
	default:
		// Strip comments and trailing commas before parsing. encoding/json
		// silently ignores unknown keys, so older config files with extra
		// fields keep working.
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, model.WrapCLIError(
				model.ExitConfigError,
				fmt.Sprintf("failed to parse config %s", path),
				err,
			)
		}
	}

	// Absent keys fall back to the defaults. A present-but-empty list is
	// respected: an explicit "supported_device_types": [] disables the
	// legacy collector's device walk.
	if cfg.SupportedDeviceTypes == nil {
		cfg.SupportedDeviceTypes = DefaultSupportedDeviceTypes
	}
	if cfg.ChannelsWithErrorsAllowed == nil {
		cfg.ChannelsWithErrorsAllowed = DefaultChannelsWithErrorsAllowed
	}

	return cfg, nil
}

// SupportsDeviceType reports whether the given device type is in the
// supported set.
func (c *Config) SupportsDeviceType(deviceType string) bool {
	for _, t := range c.SupportedDeviceTypes {
		if t == deviceType {
			return true
		}
	}
	return false
}

// ChannelErrorAllowed reports whether a paramset read fault on the given
// channel of a device with the given parent type is tolerated.
func (c *Config) ChannelErrorAllowed(parentType string, channel int) bool {
	for _, ch := range c.ChannelsWithErrorsAllowed[parentType] {
		if ch == channel {
			return true
		}
	}
	return false
}

// HasDeviceMapping reports whether a static device name mapping was
// configured. When true, the collector must not fetch names from the CCU.
func (c *Config) HasDeviceMapping() bool {
	return len(c.DeviceMapping) > 0
}
