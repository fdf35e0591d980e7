package ccu

import (
	"strconv"
	"strings"
)

// Device is one entry of the interface daemon's listDevices response.
// Top-level devices have an empty Parent and list their channels in
// Children; channels carry the parent's device type in ParentType.
//
// Only the fields the exporter consumes are mapped; the daemon reports a
// number of additional members (RF_ADDRESS, ROAMING, ...) that are ignored
// during decoding.
type Device struct {
	// Address is the serial-based device or channel address,
	// e.g. "000955699D3D84" or "000955699D3D84:1".
	Address string `xmlrpc:"ADDRESS"`

	// Type is the device or channel type, e.g. "HmIP-eTRV-2" for a
	// top-level device or "HEATING_CLIMATECONTROL_TRANSCEIVER" for one of
	// its channels.
	Type string `xmlrpc:"TYPE"`

	// Parent is the address of the parent device. Empty for top-level
	// devices.
	Parent string `xmlrpc:"PARENT"`

	// ParentType is the device type of the parent. Empty for top-level
	// devices.
	ParentType string `xmlrpc:"PARENT_TYPE"`

	// Children lists the channel addresses of a top-level device.
	Children []string `xmlrpc:"CHILDREN"`

	// Paramsets names the paramsets the channel offers ("MASTER",
	// "VALUES", ...). Only channels listing "VALUES" are scraped.
	Paramsets []string `xmlrpc:"PARAMSETS"`

	// Version is the device description version.
	Version int `xmlrpc:"VERSION"`

	// Flags carries the UI flags bitmask (visible, internal, dontdelete).
	Flags int `xmlrpc:"FLAGS"`

	// Firmware is the firmware revision of a top-level device.
	Firmware string `xmlrpc:"FIRMWARE"`
}

// IsTopLevel reports whether the entry is a physical device rather than
// one of its channels.
func (d *Device) IsTopLevel() bool {
	return d.Parent == ""
}

// HasValues reports whether the channel offers a VALUES paramset.
func (d *Device) HasValues() bool {
	for _, p := range d.Paramsets {
		if p == "VALUES" {
			return true
		}
	}
	return false
}

// Channel returns the channel number encoded in the address suffix
// (after the colon). The second return value is false for top-level
// device addresses, which carry no channel suffix.
func (d *Device) Channel() (int, bool) {
	idx := strings.IndexByte(d.Address, ':')
	if idx < 0 {
		return 0, false
	}
	ch, err := strconv.Atoi(d.Address[idx+1:])
	if err != nil {
		return 0, false
	}
	return ch, true
}

// ParameterDescription is one entry of a getParamsetDescription response,
// describing a single parameter of a paramset.
type ParameterDescription struct {
	// ID is the parameter name, repeated from the map key.
	ID string `mapstructure:"ID"`

	// Type is the parameter type: FLOAT, INTEGER, BOOL, ENUM, ACTION,
	// STRING or a combined type.
	Type string `mapstructure:"TYPE"`

	// Operations is a bitmask of supported operations
	// (1 read, 2 write, 4 event).
	Operations int `mapstructure:"OPERATIONS"`

	// Flags is a bitmask of UI hints (visible, internal, service, ...).
	Flags int `mapstructure:"FLAGS"`

	// Unit is the display unit, e.g. "°C" or "%".
	Unit string `mapstructure:"UNIT"`

	// Default, Min and Max depend on Type and are kept untyped.
	Default interface{} `mapstructure:"DEFAULT"`
	Min     interface{} `mapstructure:"MIN"`
	Max     interface{} `mapstructure:"MAX"`

	// ValueList names the states of an ENUM parameter, indexed by the
	// parameter value.
	ValueList []string `mapstructure:"VALUE_LIST"`

	// TabOrder is the WebUI ordering hint.
	TabOrder int `mapstructure:"TAB_ORDER"`
}

// Readable reports whether the parameter supports the read operation.
// Write-only parameters (ACTION triggers) never appear in a getParamset
// response.
func (p *ParameterDescription) Readable() bool {
	return p.Operations&1 != 0
}
