package collector

import (
	"context"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/homematic-exporter/internal/ccu"
	"github.com/mmr-tortoise/homematic-exporter/internal/config"
	"github.com/mmr-tortoise/homematic-exporter/internal/model"
)

// namespace prefixes every exported metric name.
const namespace = "homematic"

// defaultNameTTL is how long a fetched device name mapping is reused
// before the CCU is asked again.
const defaultNameTTL = time.Hour

// nameLookupTimeout bounds the JSON-RPC name lookup. Collect carries no
// context of its own, so the bound is applied here.
const nameLookupTimeout = 15 * time.Second

// nameCacheKey is the go-cache key of the device name mapping.
const nameCacheKey = "device-names"

var (
	// upDesc reports whether the last scrape of the CCU succeeded.
	upDesc = prometheus.NewDesc(
		namespace+"_up",
		"Whether the last scrape of the CCU succeeded",
		[]string{"ccu"}, nil,
	)

	// devicecountDesc counts the devices the interface daemon reported,
	// supported or not.
	devicecountDesc = prometheus.NewDesc(
		namespace+"_devicecount",
		"Number of processed/supported devices",
		[]string{"ccu"}, nil,
	)

	// legacyLabels are the labels of every parameter gauge emitted by the
	// legacy collector.
	legacyLabels = []string{"ccu", "device", "device_type", "parent_device_type", "mapped_name"}
)

// LegacyBackend is the slice of the CCU client the legacy collector
// needs. *ccu.Client satisfies it.
type LegacyBackend interface {
	ListDevices() ([]ccu.Device, error)
	Paramset(address, key string) (map[string]interface{}, error)
	ParamsetDescription(address, key string) (map[string]ccu.ParameterDescription, error)
	DeviceNames(ctx context.Context) (map[string]string, error)
}

// Legacy collects metrics from the CCU interface daemon over XML-RPC.
type Legacy struct {
	backend LegacyBackend
	host    string
	cfg     *config.Config
	nameTTL time.Duration
	cache   *gocache.Cache
	log     *logrus.Entry
}

// NewLegacy creates a legacy collector for the given backend. The host is
// used as the value of the "ccu" label. A zero nameTTL uses the one hour
// default.
func NewLegacy(backend LegacyBackend, host string, cfg *config.Config, nameTTL time.Duration) *Legacy {
	if cfg == nil {
		cfg = config.Default()
	}
	if nameTTL == 0 {
		nameTTL = defaultNameTTL
	}
	return &Legacy{
		backend: backend,
		host:    host,
		cfg:     cfg,
		nameTTL: nameTTL,
		cache:   gocache.New(nameTTL, 10*time.Minute),
		log:     logrus.WithField("component", "legacy-collector").WithField("ccu", host),
	}
}

// Describe implements prometheus.Collector. It sends nothing: the metric
// families depend on which parameters the devices expose, so the collector
// is registered unchecked.
func (l *Legacy) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector. A failed scrape is reported
// through homematic_up instead of partial data.
func (l *Legacy) Collect(ch chan<- prometheus.Metric) {
	up := 1.0
	if err := l.scrape(ch); err != nil {
		l.log.WithError(err).Error("gathering metrics failed")
		up = 0
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up, l.host)
}

// scrape walks the device tree and emits one metric per readable numeric
// parameter of every supported channel.
func (l *Legacy) scrape(ch chan<- prometheus.Metric) error {
	l.log.Info("gathering metrics")

	devices, err := l.backend.ListDevices()
	if err != nil {
		return err
	}
	ch <- prometheus.MustNewConstMetric(devicecountDesc, prometheus.GaugeValue, float64(len(devices)), l.host)

	names := l.mappedNames()

	for i := range devices {
		device := &devices[i]

		if device.IsTopLevel() {
			if l.cfg.SupportsDeviceType(device.Type) {
				l.log.WithFields(logrus.Fields{
					"device":   device.Address,
					"type":     device.Type,
					"children": len(device.Children),
				}).Info("found top-level device")
			} else {
				l.log.WithFields(logrus.Fields{
					"device": device.Address,
					"type":   device.Type,
				}).Info("found unsupported top-level device")
			}
			continue
		}

		if !l.cfg.SupportsDeviceType(device.ParentType) || !device.HasValues() {
			continue
		}

		if err := l.scrapeChannel(ch, device, names); err != nil {
			return err
		}
	}
	return nil
}

// scrapeChannel reads one channel's VALUES paramset and description and
// emits the resulting metrics.
func (l *Legacy) scrapeChannel(ch chan<- prometheus.Metric, device *ccu.Device, names map[string]string) error {
	paramset, err := l.backend.Paramset(device.Address, "VALUES")
	if err != nil {
		channel, hasChannel := device.Channel()
		if ccu.IsFault(err) && hasChannel && l.cfg.ChannelErrorAllowed(device.ParentType, channel) {
			// Virtual channels of some actuators refuse the read. Their
			// description is still emitted against an empty paramset,
			// which skips every value below.
			l.log.WithFields(logrus.Fields{
				"device":      device.Address,
				"parent_type": device.ParentType,
			}).Debug("paramset read failed on tolerated channel")
			paramset = nil
		} else {
			return err
		}
	}

	descriptions, err := l.backend.ParamsetDescription(device.Address, "VALUES")
	if err != nil {
		return err
	}

	for key, desc := range descriptions {
		paramType := model.ParseParameterType(desc.Type)
		switch {
		case paramType.IsNumeric():
			l.emitValue(ch, device, key, paramset[key], names)
		case paramType == model.TypeEnum:
			l.emitEnum(ch, device, key, paramset[key], desc.ValueList, names)
		default:
			// ACTION, STRING, COMBINED_PARAMETER and the party time
			// parameters of heating groups have no numeric representation.
			l.log.WithFields(logrus.Fields{
				"parameter": key,
				"type":      desc.Type,
			}).Debug("skipping parameter of unsupported type")
		}
	}
	return nil
}

// emitValue emits a single FLOAT/INTEGER/BOOL parameter as a gauge named
// after the lowercased parameter.
func (l *Legacy) emitValue(ch chan<- prometheus.Metric, device *ccu.Device, key string, value interface{}, names map[string]string) {
	v, ok := floatValue(value)
	if !ok {
		return
	}

	desc := prometheus.NewDesc(
		namespace+"_"+strings.ToLower(key),
		"Metrics for "+key,
		legacyLabels, nil,
	)
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v,
		l.host, device.Address, device.Type, device.ParentType, l.resolveMappedName(device, names))
}

// emitEnum emits an ENUM parameter as a one-hot gauge vector: one sample
// per state in the VALUE_LIST, with 1 on the active state.
func (l *Legacy) emitEnum(ch chan<- prometheus.Metric, device *ccu.Device, key string, value interface{}, states []string, names map[string]string) {
	v, ok := floatValue(value)
	if !ok {
		l.log.WithField("parameter", key).Debug("skipping enum with empty value")
		return
	}
	active := int(v)
	if active < 0 || active >= len(states) {
		l.log.WithFields(logrus.Fields{
			"parameter": key,
			"value":     active,
			"states":    len(states),
		}).Warn("enum value outside its value list")
		return
	}

	desc := prometheus.NewDesc(
		namespace+"_"+strings.ToLower(key)+"_set",
		"Metrics for "+key,
		append(append([]string{}, legacyLabels...), "state"), nil,
	)
	mappedName := l.resolveMappedName(device, names)
	for i, state := range states {
		hot := 0.0
		if i == active {
			hot = 1.0
		}
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, hot,
			l.host, device.Address, device.Type, device.ParentType, mappedName, state)
	}
}

// resolveMappedName resolves the display name of a channel: the channel's
// own address first, then the parent device's address, then the address
// itself as fallback.
func (l *Legacy) resolveMappedName(device *ccu.Device, names map[string]string) string {
	if name, ok := names[device.Address]; ok {
		return name
	}
	if name, ok := names[device.Parent]; ok {
		return name
	}
	return device.Address
}

// mappedNames returns the address→name mapping: the static config mapping
// when one is configured, otherwise the cached CCU lookup. A failed lookup
// degrades to addresses-as-names rather than failing the scrape.
func (l *Legacy) mappedNames() map[string]string {
	if l.cfg.HasDeviceMapping() {
		return l.cfg.DeviceMapping
	}

	if cached, ok := l.cache.Get(nameCacheKey); ok {
		return cached.(map[string]string)
	}

	ctx, cancel := context.WithTimeout(context.Background(), nameLookupTimeout)
	defer cancel()

	names, err := l.backend.DeviceNames(ctx)
	if err != nil {
		l.log.WithError(err).Warn("device name lookup failed, falling back to addresses")
		return nil
	}
	l.cache.Set(nameCacheKey, names, l.nameTTL)
	return names
}

// floatValue converts an XML-RPC paramset value into a float64. The
// interface daemon delivers bool, int, double or string depending on the
// parameter type; empty strings and nils report ok=false and are skipped.
func floatValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		if v == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
