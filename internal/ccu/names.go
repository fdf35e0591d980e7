package ccu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// jsonRequest is the envelope of a CCU JSON-RPC call. The CCU web server
// implements JSON-RPC 1.1 on /api/homematic.cgi.
type jsonRequest struct {
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      int                    `json:"id"`
	Version string                 `json:"version"`
}

// jsonResponse is the envelope of a CCU JSON-RPC response.
type jsonResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonError      `json:"error"`
	ID     int             `json:"id"`
}

// jsonError is the error object of a failed CCU JSON-RPC call.
type jsonError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error satisfies the error interface.
func (e *jsonError) Error() string {
	return fmt.Sprintf("CCU JSON-RPC error %d (%s): %s", e.Code, e.Name, e.Message)
}

// deviceDetail is the subset of a Device.listAllDetail entry the exporter
// consumes.
type deviceDetail struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DeviceNames resolves the display names configured in the CCU WebUI,
// keyed by device address. It logs into the JSON-RPC API, lists all
// devices and logs out again; the session is never reused because the
// lookup result is cached by the caller for an hour anyway.
func (c *Client) DeviceNames(ctx context.Context) (map[string]string, error) {
	session, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	defer c.logout(session)

	var details []deviceDetail
	if err := c.jsonCall(ctx, "Device.listAllDetail", map[string]interface{}{
		"_session_id_": session,
	}, &details); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(details))
	for _, d := range details {
		if d.Address == "" {
			continue
		}
		names[d.Address] = d.Name
	}
	c.log.WithField("count", len(names)).Debug("resolved device names")
	return names, nil
}

// login opens a JSON-RPC session. CCUs without authentication accept empty
// credentials.
func (c *Client) login(ctx context.Context) (string, error) {
	var session string
	err := c.jsonCall(ctx, "Session.login", map[string]interface{}{
		"username": c.username,
		"password": c.password,
	}, &session)
	if err != nil {
		return "", pkgerrors.Wrap(err, "JSON-RPC login failed")
	}
	return session, nil
}

// logout closes a JSON-RPC session. Failures are logged, not returned:
// the CCU expires stale sessions on its own and the name lookup result is
// already in hand.
func (c *Client) logout(session string) {
	err := c.jsonCall(context.Background(), "Session.logout", map[string]interface{}{
		"_session_id_": session,
	}, nil)
	if err != nil {
		c.log.WithError(err).Debug("JSON-RPC logout failed")
	}
}

// jsonCall performs a single JSON-RPC call and decodes the result into
// out (which may be nil to discard it).
func (c *Client) jsonCall(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(jsonRequest{
		Method:  method,
		Params:  params,
		ID:      1,
		Version: "1.1",
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode JSON-RPC request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to build JSON-RPC request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "JSON-RPC call %s failed", method)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JSON-RPC call %s: unexpected status %s", method, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read JSON-RPC response for %s", method)
	}

	var envelope jsonResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return pkgerrors.Wrapf(err, "failed to decode JSON-RPC response for %s", method)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return pkgerrors.Wrapf(err, "failed to decode JSON-RPC result for %s", method)
	}
	return nil
}
