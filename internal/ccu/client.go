package ccu

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/mitchellh/mapstructure"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPort is the XML-RPC port of the HmIP interface daemon. BidCos-RF
// devices are served on 2001 instead.
const DefaultPort = 2010

// defaultTimeout bounds every HTTP round trip against the CCU. The CCU3 is
// a small ARM box; paramset walks over many devices can take a while, but
// anything beyond this indicates a hung interface daemon.
const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// Host is the hostname or IP of the CCU. Required.
	Host string

	// Port is the XML-RPC port. Zero uses DefaultPort.
	Port int

	// APIPort is the port of the CCU web server that hosts the JSON-RPC
	// API. Zero uses 80.
	APIPort int

	// Username and Password enable HTTP basic auth for CCUs with
	// authentication turned on. Both the XML-RPC endpoint and the JSON-RPC
	// name lookup use these credentials.
	Username string
	Password string

	// Timeout bounds a single request. Zero uses a 30 second default.
	Timeout time.Duration
}

// Client talks to a single CCU over XML-RPC and JSON-RPC.
//
// Usage:
//
//	c, err := ccu.NewClient(ccu.Options{Host: "ccu3.fritz.box"})
//	if err != nil { /* handle */ }
//	devices, err := c.ListDevices()
type Client struct {
	host     string
	username string
	password string

	rpc  *xmlrpc.Client
	http *http.Client
	api  string // JSON-RPC endpoint URL

	log *logrus.Entry
}

// Fault represents an XML-RPC fault returned by the CCU interface daemon,
// e.g. when reading the paramset of a virtual channel that rejects reads.
type Fault struct {
	// Code is the numeric fault code from the CCU.
	Code int

	// Message is the fault string from the CCU.
	Message string
}

// Error satisfies the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("CCU fault %d: %s", f.Code, f.Message)
}

// IsFault reports whether err is (or wraps) a CCU XML-RPC fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// basicAuthTransport injects HTTP basic auth credentials into every
// request. The request is cloned before modification, as required by the
// http.RoundTripper contract.
type basicAuthTransport struct {
	username string
	password string
	next     http.RoundTripper
}

// RoundTrip satisfies http.RoundTripper.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	authed := req.Clone(req.Context())
	authed.SetBasicAuth(t.username, t.password)
	return t.next.RoundTrip(authed)
}

// NewClient creates a Client for the CCU at opts.Host.
//
// The XML-RPC connection is established lazily on the first call, so
// NewClient succeeds even while the CCU is still booting. Returns an error
// only when the options are unusable.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("ccu: host must not be empty")
	}

	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	apiPort := opts.APIPort
	if apiPort == 0 {
		apiPort = 80
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	var transport http.RoundTripper = &http.Transport{
		// A scrape issues one paramset request per channel against the same
		// host, so keep the connection alive between calls.
		MaxIdleConnsPerHost: 2,
	}
	if opts.Username != "" {
		transport = &basicAuthTransport{
			username: opts.Username,
			password: opts.Password,
			next:     transport,
		}
	}

	endpoint := fmt.Sprintf("http://%s:%d", opts.Host, port)
	rpc, err := xmlrpc.NewClient(endpoint, transport)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create XML-RPC client for %s", endpoint)
	}

	return &Client{
		host:     opts.Host,
		username: opts.Username,
		password: opts.Password,
		rpc:      rpc,
		http:     &http.Client{Transport: transport, Timeout: timeout},
		api:      fmt.Sprintf("http://%s:%d/api/homematic.cgi", opts.Host, apiPort),
		log:      logrus.WithField("component", "ccu").WithField("host", opts.Host),
	}, nil
}

// Host returns the CCU hostname this client was created for. The
// collectors use it as the value of the "ccu" metric label.
func (c *Client) Host() string {
	return c.host
}

// Close releases the underlying XML-RPC connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// call performs an XML-RPC call and converts faults into *Fault.
func (c *Client) call(method string, args interface{}, reply interface{}) error {
	err := c.rpc.Call(method, args, reply)
	if err == nil {
		return nil
	}

	var faultErr xmlrpc.FaultError
	if errors.As(err, &faultErr) {
		return &Fault{Code: faultErr.Code, Message: faultErr.String}
	}
	return pkgerrors.Wrapf(err, "XML-RPC call %s failed", method)
}

// ListDevices returns the full device tree known to the interface daemon.
// The list contains both top-level devices and their channels; channels
// reference their parent via the Parent field.
func (c *Client) ListDevices() ([]Device, error) {
	var devices []Device
	if err := c.call("listDevices", nil, &devices); err != nil {
		return nil, err
	}
	c.log.WithField("count", len(devices)).Debug("listed devices")
	return devices, nil
}

// Paramset reads a paramset (usually "VALUES") of the given channel
// address. The result maps parameter names to their current values; the
// concrete value types follow the paramset description (bool, int64,
// float64 or string).
//
// A *Fault error indicates the channel refused the read, which is expected
// for some virtual channels; everything else is a transport problem.
func (c *Client) Paramset(address, key string) (map[string]interface{}, error) {
	var paramset map[string]interface{}
	if err := c.call("getParamset", []interface{}{address, key}, &paramset); err != nil {
		return nil, err
	}
	return paramset, nil
}

// ParamsetDescription reads the description of a paramset, mapping each
// parameter name to its typed metadata (TYPE, VALUE_LIST, ...).
func (c *Client) ParamsetDescription(address, key string) (map[string]ParameterDescription, error) {
	var raw map[string]interface{}
	if err := c.call("getParamsetDescription", []interface{}{address, key}, &raw); err != nil {
		return nil, err
	}

	descriptions := make(map[string]ParameterDescription, len(raw))
	for name, entry := range raw {
		var desc ParameterDescription
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result: &desc,
			// The interface daemon is loose about integer widths and
			// represents some numeric fields as strings depending on
			// firmware version.
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to build paramset description decoder")
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to decode description of parameter %s on %s", name, address)
		}
		descriptions[name] = desc
	}
	return descriptions, nil
}
