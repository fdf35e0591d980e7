package collector

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/homematic-exporter/internal/xmlapi"
)

// Cache TTLs for the topology documents and the per-channel resolutions
// derived from them. The topology changes only when devices are taught in
// or rooms are rearranged, so an hour is plenty; the derived per-channel
// entries are kept short so a topology refresh propagates quickly.
const (
	roomsTTL     = 3600 * time.Second
	functionsTTL = 3100 * time.Second
	devicesTTL   = 3200 * time.Second

	channelRoomTTL     = 60 * time.Second
	channelAddressTTL  = 100 * time.Second
	channelFunctionTTL = 94 * time.Second
)

// xmlapiLabels are the labels shared by every XML-API metric family.
var xmlapiLabels = []string{"ccu", "device_name", "device_address", "device_type", "channel_name", "room", "function"}

// withDirection appends the rssi direction label.
func withDirection(labels []string) []string {
	return append(append([]string{}, labels...), "direction")
}

var (
	rssiDesc = prometheus.NewDesc(
		namespace+"_rssi_dbm",
		"The RSSI value from either ccu to device or device to ccu",
		withDirection(xmlapiLabels), nil,
	)
	temperatureDesc = prometheus.NewDesc(
		namespace+"_temperature_celsius",
		"The temperature of a sensor in Celsius",
		xmlapiLabels, nil,
	)
	humidityDesc = prometheus.NewDesc(
		namespace+"_humidity_ratio",
		"The measured humidity of a sensor from 0-1",
		xmlapiLabels, nil,
	)
	batteryDesc = prometheus.NewDesc(
		namespace+"_battery_volts",
		"The battery voltage of the device, 0 means no battery installed",
		xmlapiLabels, nil,
	)
	levelDesc = prometheus.NewDesc(
		namespace+"_level_ratio",
		"The level of blinds or heating circuits from 0 (closed) to 1 (open)",
		xmlapiLabels, nil,
	)
	energyDesc = prometheus.NewDesc(
		namespace+"_energy_joules_total",
		"The energy consumed by the device",
		xmlapiLabels, nil,
	)
	currentDesc = prometheus.NewDesc(
		namespace+"_circuit_amperes",
		"The current flowing through the circuit",
		xmlapiLabels, nil,
	)
	voltageDesc = prometheus.NewDesc(
		namespace+"_circuit_volts",
		"The voltage between the potentials of the circuit",
		xmlapiLabels, nil,
	)
	powerDesc = prometheus.NewDesc(
		namespace+"_circuit_joules_per_second",
		"The radiant flux in the circuit",
		xmlapiLabels, nil,
	)
)

// XMLAPIBackend is the slice of the XML-API client the collector needs.
// *xmlapi.Client satisfies it.
type XMLAPIBackend interface {
	StateList(ctx context.Context) (*xmlapi.StateList, error)
	DeviceList(ctx context.Context) (*xmlapi.DeviceList, error)
	RoomList(ctx context.Context) (*xmlapi.RoomList, error)
	FunctionList(ctx context.Context) (*xmlapi.FunctionList, error)
}

// deviceRef is the cached result of a channel→device resolution.
type deviceRef struct {
	address    string
	deviceType string
}

// XMLAPI collects metrics from the CCU XML-API addon.
type XMLAPI struct {
	backend XMLAPIBackend
	host    string
	cache   *gocache.Cache
	log     *logrus.Entry
}

// NewXMLAPI creates an XML-API collector for the given backend. The host
// is used as the value of the "ccu" label.
func NewXMLAPI(backend XMLAPIBackend, host string) *XMLAPI {
	return &XMLAPI{
		backend: backend,
		host:    host,
		cache:   gocache.New(roomsTTL, 10*time.Minute),
		log:     logrus.WithField("component", "xmlapi-collector").WithField("ccu", host),
	}
}

// Describe implements prometheus.Collector.
func (x *XMLAPI) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- rssiDesc
	ch <- temperatureDesc
	ch <- humidityDesc
	ch <- batteryDesc
	ch <- levelDesc
	ch <- energyDesc
	ch <- currentDesc
	ch <- voltageDesc
	ch <- powerDesc
}

// Collect implements prometheus.Collector. A failed scrape is reported
// through homematic_up instead of partial data.
func (x *XMLAPI) Collect(ch chan<- prometheus.Metric) {
	up := 1.0
	if err := x.scrape(ch); err != nil {
		x.log.WithError(err).Error("gathering metrics failed")
		up = 0
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up, x.host)
}

// scrape walks the statelist and maps the well-known datapoint types onto
// the metric families.
func (x *XMLAPI) scrape(ch chan<- prometheus.Metric) error {
	ctx := context.Background()

	states, err := x.backend.StateList(ctx)
	if err != nil {
		return err
	}

	for _, device := range states.Devices {
		for _, channel := range device.Channels {
			ref, err := x.deviceOf(ctx, channel.IseID)
			if err != nil {
				return err
			}
			room, err := x.roomOf(ctx, channel.IseID)
			if err != nil {
				return err
			}
			function, err := x.functionOf(ctx, channel.IseID)
			if err != nil {
				return err
			}

			labels := []string{x.host, device.Name, ref.address, ref.deviceType, channel.Name, room, function}
			for i := range channel.Datapoints {
				x.emitDatapoint(ch, labels, &channel.Datapoints[i])
			}
		}
	}
	return nil
}

// emitDatapoint maps a single datapoint to its metric family, applying
// the unit conversions the CCU leaves to the consumer.
func (x *XMLAPI) emitDatapoint(ch chan<- prometheus.Metric, labels []string, dp *xmlapi.Datapoint) {
	switch dp.Type {
	case xmlapi.TypeRSSIDevice, xmlapi.TypeRSSIPeer:
		direction := "ccu->device"
		if dp.Type == xmlapi.TypeRSSIPeer {
			direction = "device->ccu"
		}
		ch <- prometheus.MustNewConstMetric(rssiDesc, prometheus.GaugeValue, dp.Float(),
			append(append([]string{}, labels...), direction)...)

	case xmlapi.TypeActualTemperature, xmlapi.TypeTemperature:
		ch <- prometheus.MustNewConstMetric(temperatureDesc, prometheus.GaugeValue, dp.Float(), labels...)

	case xmlapi.TypeHumidity:
		value := dp.Float()
		if dp.ValueUnit == xmlapi.UnitDecimalPercent {
			value /= 100
		}
		ch <- prometheus.MustNewConstMetric(humidityDesc, prometheus.GaugeValue, value, labels...)

	case xmlapi.TypeLevel:
		// LEVEL carries unit "100%" with values already scaled to 0-1.
		if dp.ValueUnit == xmlapi.UnitPercent {
			ch <- prometheus.MustNewConstMetric(levelDesc, prometheus.GaugeValue, dp.Float(), labels...)
		}

	case xmlapi.TypeOperatingVoltage:
		// Only battery powered devices leave the unit empty; socket
		// powered ones report "V" and have no battery to watch.
		if dp.ValueUnit == xmlapi.UnitUnknown {
			ch <- prometheus.MustNewConstMetric(batteryDesc, prometheus.GaugeValue, dp.Float(), labels...)
		}

	case xmlapi.TypeEnergyCounter:
		value := dp.Float()
		if dp.ValueUnit == xmlapi.UnitWattHour {
			value *= 3600 // Wh → J
		}
		ch <- prometheus.MustNewConstMetric(energyDesc, prometheus.CounterValue, value, labels...)

	case xmlapi.TypeCurrent:
		value := dp.Float()
		if dp.ValueUnit == xmlapi.UnitMilliAmpere {
			value /= 1000
		}
		ch <- prometheus.MustNewConstMetric(currentDesc, prometheus.GaugeValue, value, labels...)

	case xmlapi.TypeVoltage:
		if dp.ValueUnit == xmlapi.UnitVolt {
			ch <- prometheus.MustNewConstMetric(voltageDesc, prometheus.GaugeValue, dp.Float(), labels...)
		}

	case xmlapi.TypePower:
		if dp.ValueUnit == xmlapi.UnitWatt {
			ch <- prometheus.MustNewConstMetric(powerDesc, prometheus.GaugeValue, dp.Float(), labels...)
		}
	}
}

// rooms returns the cached room list.
func (x *XMLAPI) rooms(ctx context.Context) ([]xmlapi.Room, error) {
	if cached, ok := x.cache.Get("rooms"); ok {
		return cached.([]xmlapi.Room), nil
	}
	list, err := x.backend.RoomList(ctx)
	if err != nil {
		return nil, err
	}
	x.cache.Set("rooms", list.Rooms, roomsTTL)
	return list.Rooms, nil
}

// functions returns the cached function list.
func (x *XMLAPI) functions(ctx context.Context) ([]xmlapi.Function, error) {
	if cached, ok := x.cache.Get("functions"); ok {
		return cached.([]xmlapi.Function), nil
	}
	list, err := x.backend.FunctionList(ctx)
	if err != nil {
		return nil, err
	}
	x.cache.Set("functions", list.Functions, functionsTTL)
	return list.Functions, nil
}

// devices returns the cached device list.
func (x *XMLAPI) devices(ctx context.Context) ([]xmlapi.DeviceEntry, error) {
	if cached, ok := x.cache.Get("devices"); ok {
		return cached.([]xmlapi.DeviceEntry), nil
	}
	list, err := x.backend.DeviceList(ctx)
	if err != nil {
		return nil, err
	}
	x.cache.Set("devices", list.Devices, devicesTTL)
	return list.Devices, nil
}

// roomOf resolves the room a channel is assigned to. Channels assigned to
// no room, or ambiguously to several, resolve to "unknown".
func (x *XMLAPI) roomOf(ctx context.Context, iseID int) (string, error) {
	key := fmt.Sprintf("room/%d", iseID)
	if cached, ok := x.cache.Get(key); ok {
		return cached.(string), nil
	}

	rooms, err := x.rooms(ctx)
	if err != nil {
		return "", err
	}

	name := "unknown"
	matches := 0
	for _, room := range rooms {
		for _, channel := range room.Channels {
			if channel.IseID == iseID {
				matches++
				name = room.Name
			}
		}
	}
	if matches != 1 {
		name = "unknown"
	}
	x.cache.Set(key, name, channelRoomTTL)
	return name, nil
}

// functionOf resolves the function a channel is assigned to.
func (x *XMLAPI) functionOf(ctx context.Context, iseID int) (string, error) {
	key := fmt.Sprintf("func/%d", iseID)
	if cached, ok := x.cache.Get(key); ok {
		return cached.(string), nil
	}

	functions, err := x.functions(ctx)
	if err != nil {
		return "", err
	}

	name := "unknown"
	matches := 0
	for _, function := range functions {
		for _, channel := range function.Channels {
			if channel.IseID == iseID {
				matches++
				name = function.Name
			}
		}
	}
	if matches != 1 {
		name = "unknown"
	}
	x.cache.Set(key, name, channelFunctionTTL)
	return name, nil
}

// deviceOf resolves the device a channel belongs to.
func (x *XMLAPI) deviceOf(ctx context.Context, iseID int) (deviceRef, error) {
	key := fmt.Sprintf("addr/%d", iseID)
	if cached, ok := x.cache.Get(key); ok {
		return cached.(deviceRef), nil
	}

	devices, err := x.devices(ctx)
	if err != nil {
		return deviceRef{}, err
	}

	ref := deviceRef{address: "unknown", deviceType: "unknown"}
	matches := 0
	for _, device := range devices {
		for _, channel := range device.Channels {
			if channel.IseID == iseID {
				matches++
				ref = deviceRef{address: device.Address, deviceType: device.DeviceType}
			}
		}
	}
	if matches != 1 {
		ref = deviceRef{address: "unknown", deviceType: "unknown"}
	}
	x.cache.Set(key, ref, channelAddressTTL)
	return ref, nil
}
