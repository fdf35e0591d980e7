// Package config handles loading and defaulting of the exporter
// configuration file.
//
// The config file narrows or extends what the legacy collector exports:
// which top-level device types are walked, which channels are allowed to
// fail their paramset read, and an optional static address→name mapping
// that replaces the name lookup against the CCU.
//
// Two formats are accepted: JSON with comments (JSONC, parsed via
// github.com/tidwall/jsonc before handing off to encoding/json) and YAML
// (gopkg.in/yaml.v3), selected by file extension.
package config
