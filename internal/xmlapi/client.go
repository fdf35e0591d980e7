package xmlapi

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// defaultTimeout bounds a single document fetch. A statelist for a large
// installation runs to a few hundred kilobytes, well within this.
const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// Host is the hostname or IP of the CCU. Required.
	Host string

	// SessionID is the XML-API security token provisioned in the addon
	// settings. Required.
	SessionID string

	// Scheme selects http or https. Empty uses https, which is what the
	// addon recommends since the session id travels as a query parameter.
	Scheme string

	// InsecureSkipVerify disables TLS certificate verification. CCUs ship
	// with a self-signed certificate, so this is commonly needed.
	InsecureSkipVerify bool

	// Timeout bounds a single request. Zero uses a 30 second default.
	Timeout time.Duration
}

// Client fetches XML-API addon documents from a CCU.
type Client struct {
	base    string
	session string
	http    *http.Client
	host    string
	log     *logrus.Entry
}

// NewClient creates a Client for the XML-API addon on opts.Host.
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("xmlapi: host must not be empty")
	}
	if opts.SessionID == "" {
		return nil, fmt.Errorf("xmlapi: session id must not be empty")
	}

	scheme := opts.Scheme
	if scheme == "" {
		scheme = "https"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := &http.Transport{}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		base:    fmt.Sprintf("%s://%s/addons/xmlapi", scheme, opts.Host),
		session: opts.SessionID,
		http:    &http.Client{Transport: transport, Timeout: timeout},
		host:    opts.Host,
		log:     logrus.WithField("component", "xmlapi").WithField("host", opts.Host),
	}, nil
}

// Host returns the CCU hostname this client was created for.
func (c *Client) Host() string {
	return c.host
}

// StateList fetches the current values of all channels.
func (c *Client) StateList(ctx context.Context) (*StateList, error) {
	var list StateList
	if err := c.get(ctx, "statelist.cgi", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeviceList fetches the device metadata (addresses, device types).
func (c *Client) DeviceList(ctx context.Context) (*DeviceList, error) {
	var list DeviceList
	if err := c.get(ctx, "devicelist.cgi", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// RoomList fetches the room assignments.
func (c *Client) RoomList(ctx context.Context) (*RoomList, error) {
	var list RoomList
	if err := c.get(ctx, "roomlist.cgi", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// FunctionList fetches the function ("Gewerk") assignments.
func (c *Client) FunctionList(ctx context.Context) (*FunctionList, error) {
	var list FunctionList
	if err := c.get(ctx, "functionlist.cgi", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// get fetches one addon document and decodes it into out.
func (c *Client) get(ctx context.Context, document string, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?sid=%s", c.base, document, url.QueryEscape(c.session))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to build request for %s", document)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to fetch %s", document)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", document, resp.Status)
	}

	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(out); err != nil {
		// The addon answers an invalid session id with an HTML error page
		// and status 200, which fails XML decoding.
		return pkgerrors.Wrapf(err, "failed to decode %s (invalid session id?)", document)
	}

	c.log.WithFields(logrus.Fields{
		"document": document,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("fetched XML-API document")
	return nil
}

// charsetReader lets encoding/xml consume the ISO-8859-1 documents the
// addon emits. Room and device names regularly contain umlauts, so the
// transcoding is not optional.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8":
		return input, nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported XML charset %q", charset)
	}
}
