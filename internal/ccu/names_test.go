package ccu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonRPCServer fakes the CCU JSON-RPC API. It requires a Session.login
// before Device.listAllDetail and records the Session.logout.
type jsonRPCServer struct {
	t *testing.T

	session   string
	loggedOut bool
	username  string
	password  string
}

func (s *jsonRPCServer) handler(w http.ResponseWriter, r *http.Request) {
	var req jsonRequest
	require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))

	write := func(result interface{}, rpcErr *jsonError) {
		resp := map[string]interface{}{"result": result, "error": rpcErr, "id": req.ID}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(s.t, json.NewEncoder(w).Encode(resp))
	}

	switch req.Method {
	case "Session.login":
		s.username, _ = req.Params["username"].(string)
		s.password, _ = req.Params["password"].(string)
		s.session = "UoBZx8dLcV"
		write(s.session, nil)

	case "Device.listAllDetail":
		if req.Params["_session_id_"] != s.session {
			write(nil, &jsonError{Name: "JSONRPCError", Code: 400, Message: "access denied"})
			return
		}
		write([]map[string]interface{}{
			{"id": "1412", "name": "Living room thermostat", "address": "000955699D3D84", "type": "HmIP-eTRV-2"},
			{"id": "1501", "name": "Bathroom window", "address": "0001D8A9A34BBC", "type": "HmIP-SWDO"},
			{"id": "1600", "name": "Virtual remote", "address": ""},
		}, nil)

	case "Session.logout":
		s.loggedOut = req.Params["_session_id_"] == s.session
		write(true, nil)

	default:
		s.t.Errorf("unexpected JSON-RPC method %q", req.Method)
		write(nil, &jsonError{Name: "JSONRPCError", Code: 404, Message: "unknown method"})
	}
}

// newNamesTestClient wires a Client's JSON-RPC endpoint to the fake server.
func newNamesTestClient(t *testing.T, opts Options, srv *jsonRPCServer) *Client {
	t.Helper()
	srv.t = t

	ts := httptest.NewServer(http.HandlerFunc(srv.handler))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	apiPort, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	opts.Host = u.Hostname()
	opts.APIPort = apiPort
	client, err := NewClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// TestDeviceNames verifies the full login → list → logout flow and the
// address-keyed result. Entries without an address (virtual devices) are
// dropped.
func TestDeviceNames(t *testing.T) {
	srv := &jsonRPCServer{}
	client := newNamesTestClient(t, Options{Username: "Admin", Password: "hunter2"}, srv)

	names, err := client.DeviceNames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"000955699D3D84": "Living room thermostat",
		"0001D8A9A34BBC": "Bathroom window",
	}, names)

	assert.Equal(t, "Admin", srv.username)
	assert.Equal(t, "hunter2", srv.password)
	assert.True(t, srv.loggedOut, "the session must be closed after the lookup")
}

// TestDeviceNames_EmptyCredentials verifies that a CCU without
// authentication is queried with empty credentials rather than skipped.
func TestDeviceNames_EmptyCredentials(t *testing.T) {
	srv := &jsonRPCServer{}
	client := newNamesTestClient(t, Options{}, srv)

	names, err := client.DeviceNames(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 2)
	assert.Empty(t, srv.username)
}

// TestDeviceNames_RPCError verifies that a JSON-RPC level error is
// surfaced to the caller.
func TestDeviceNames_RPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result": null, "error": {"name": "JSONRPCError", "code": 501, "message": "internal error"}, "id": 1}`))
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	apiPort, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client, err := NewClient(Options{Host: u.Hostname(), APIPort: apiPort})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.DeviceNames(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
}
