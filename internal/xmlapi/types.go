package xmlapi

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// DatapointType identifies the kind of value a datapoint carries. The
// XML-API reports the interface-daemon parameter name in the type
// attribute; only the types the collector maps to metrics are named here,
// every other value passes through as-is.
type DatapointType string

const (
	TypeRSSIDevice        DatapointType = "RSSI_DEVICE"
	TypeRSSIPeer          DatapointType = "RSSI_PEER"
	TypeActualTemperature DatapointType = "ACTUAL_TEMPERATURE"
	TypeTemperature       DatapointType = "TEMPERATURE"
	TypeHumidity          DatapointType = "HUMIDITY"
	TypeLevel             DatapointType = "LEVEL"
	TypeOperatingVoltage  DatapointType = "OPERATING_VOLTAGE"
	TypeEnergyCounter     DatapointType = "ENERGY_COUNTER"
	TypeCurrent           DatapointType = "CURRENT"
	TypeVoltage           DatapointType = "VOLTAGE"
	TypePower             DatapointType = "POWER"
)

// DatapointUnit is the valueunit attribute of a datapoint. The CCU is not
// consistent here: LEVEL reports "100%" with values already scaled to 0-1,
// while HUMIDITY reports "%" with values 0-100. Battery powered devices
// leave the unit of OPERATING_VOLTAGE empty; socket powered ones set "V".
type DatapointUnit string

const (
	UnitUnknown        DatapointUnit = ""
	UnitPercent        DatapointUnit = "100%"
	UnitDecimalPercent DatapointUnit = "%"
	UnitCelsius        DatapointUnit = "°C"
	UnitVolt           DatapointUnit = "V"
	UnitMilliAmpere    DatapointUnit = "mA"
	UnitWatt           DatapointUnit = "W"
	UnitWattHour       DatapointUnit = "Wh"
	UnitDBm            DatapointUnit = "dBm"
)

// Floatify converts a datapoint value string into a float64. Numeric
// strings parse as-is, booleans map to 1/0, and everything unparseable
// (party dates, IP addresses, empty strings) collapses to 0.
func Floatify(value string) float64 {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return 1
	case "false", "":
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// StateList is the root of a statelist.cgi document: every device with its
// channels and their current datapoint values.
type StateList struct {
	XMLName xml.Name      `xml:"stateList"`
	Devices []StateDevice `xml:"device"`
}

// StateDevice is one device entry in a statelist document.
type StateDevice struct {
	Name     string         `xml:"name,attr"`
	IseID    int            `xml:"ise_id,attr"`
	Channels []StateChannel `xml:"channel"`
}

// StateChannel is one channel of a device in a statelist document.
type StateChannel struct {
	Name       string      `xml:"name,attr"`
	IseID      int         `xml:"ise_id,attr"`
	Datapoints []Datapoint `xml:"datapoint"`
}

// Datapoint is a single current value of a channel.
type Datapoint struct {
	Name      string        `xml:"name,attr"`
	IseID     int           `xml:"ise_id,attr"`
	Type      DatapointType `xml:"type,attr"`
	Value     string        `xml:"value,attr"`
	ValueType int           `xml:"valuetype,attr"`
	ValueUnit DatapointUnit `xml:"valueunit,attr"`
	Timestamp int64         `xml:"timestamp,attr"`
}

// Float returns the datapoint value as a float64 via Floatify.
func (d *Datapoint) Float() float64 {
	return Floatify(d.Value)
}

// DeviceList is the root of a devicelist.cgi document: device metadata
// including the radio address, which the statelist omits.
type DeviceList struct {
	XMLName xml.Name      `xml:"deviceList"`
	Devices []DeviceEntry `xml:"device"`
}

// DeviceEntry is one device in a devicelist document.
type DeviceEntry struct {
	Name       string       `xml:"name,attr"`
	Address    string       `xml:"address,attr"`
	IseID      int          `xml:"ise_id,attr"`
	Interface  string       `xml:"interface,attr"`
	DeviceType string       `xml:"device_type,attr"`
	Channels   []ChannelRef `xml:"channel"`
}

// RoomList is the root of a roomlist.cgi document.
type RoomList struct {
	XMLName xml.Name `xml:"roomList"`
	Rooms   []Room   `xml:"room"`
}

// Room is one room with the channels assigned to it.
type Room struct {
	Name     string       `xml:"name,attr"`
	IseID    int          `xml:"ise_id,attr"`
	Channels []ChannelRef `xml:"channel"`
}

// FunctionList is the root of a functionlist.cgi document.
type FunctionList struct {
	XMLName   xml.Name   `xml:"functionList"`
	Functions []Function `xml:"function"`
}

// Function is one function ("Gewerk") with the channels assigned to it.
type Function struct {
	Name        string       `xml:"name,attr"`
	IseID       int          `xml:"ise_id,attr"`
	Description string       `xml:"description,attr"`
	Channels    []ChannelRef `xml:"channel"`
}

// ChannelRef is a channel reference inside a device, room or function
// entry. Only the ise_id matters for cross-document resolution.
type ChannelRef struct {
	Name  string `xml:"name,attr"`
	IseID int    `xml:"ise_id,attr"`
}
