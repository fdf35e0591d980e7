package xmlapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateListDocument is a minimal statelist.cgi response. The \xfc byte in
// "Küche" exercises the ISO-8859-1 charset handling.
const stateListDocument = "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
	"<stateList>" +
	"<device name=\"Thermostat K\xfcche\" ise_id=\"1412\">" +
	"<channel name=\"Thermostat K\xfcche:1\" ise_id=\"1417\">" +
	"<datapoint name=\"HmIP-RF.000955699D3D84:1.ACTUAL_TEMPERATURE\" ise_id=\"1450\" type=\"ACTUAL_TEMPERATURE\" value=\"21.500000\" valuetype=\"4\" valueunit=\"\xb0C\" timestamp=\"1772112000\"/>" +
	"<datapoint name=\"HmIP-RF.000955699D3D84:1.LEVEL\" ise_id=\"1451\" type=\"LEVEL\" value=\"0.35\" valuetype=\"4\" valueunit=\"100%\" timestamp=\"1772112000\"/>" +
	"</channel>" +
	"</device>" +
	"</stateList>"

// roomListDocument is a minimal roomlist.cgi response in UTF-8.
const roomListDocument = `<?xml version="1.0" encoding="UTF-8"?>
<roomList>
<room name="Kitchen" ise_id="1225"><channel ise_id="1417"/></room>
<room name="Bathroom" ise_id="1226"><channel ise_id="1800"/></room>
</roomList>`

// newDocumentServer serves canned documents keyed by path and asserts the
// session id on every request.
func newDocumentServer(t *testing.T, documents map[string]string) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SeCrEtT0ken", r.URL.Query().Get("sid"), "every request must carry the session id")

		doc, ok := documents[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	client, err := NewClient(Options{Host: host, SessionID: "SeCrEtT0ken", Scheme: "http"})
	require.NoError(t, err)

	return srv, client
}

// TestStateList verifies document fetching, the sid parameter, and the
// ISO-8859-1 transcoding of names.
func TestStateList(t *testing.T) {
	_, client := newDocumentServer(t, map[string]string{
		"/addons/xmlapi/statelist.cgi": stateListDocument,
	})

	list, err := client.StateList(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Devices, 1)

	device := list.Devices[0]
	assert.Equal(t, "Thermostat Küche", device.Name)
	require.Len(t, device.Channels, 1)

	channel := device.Channels[0]
	assert.Equal(t, 1417, channel.IseID)
	require.Len(t, channel.Datapoints, 2)

	temp := channel.Datapoints[0]
	assert.Equal(t, TypeActualTemperature, temp.Type)
	assert.Equal(t, UnitCelsius, temp.ValueUnit)
	assert.Equal(t, 21.5, temp.Float())

	level := channel.Datapoints[1]
	assert.Equal(t, TypeLevel, level.Type)
	assert.Equal(t, UnitPercent, level.ValueUnit)
}

// TestRoomList verifies the room document decode.
func TestRoomList(t *testing.T) {
	_, client := newDocumentServer(t, map[string]string{
		"/addons/xmlapi/roomlist.cgi": roomListDocument,
	})

	list, err := client.RoomList(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "Kitchen", list.Rooms[0].Name)
	assert.Equal(t, 1417, list.Rooms[0].Channels[0].IseID)
}

// TestDeviceList verifies the device document decode.
func TestDeviceList(t *testing.T) {
	_, client := newDocumentServer(t, map[string]string{
		"/addons/xmlapi/devicelist.cgi": `<?xml version="1.0" encoding="UTF-8"?>
<deviceList>
<device name="Thermostat" address="000955699D3D84" ise_id="1412" interface="HmIP-RF" device_type="HmIP-eTRV-2">
<channel name="Thermostat:1" ise_id="1417"/>
</device>
</deviceList>`,
	})

	list, err := client.DeviceList(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Devices, 1)
	assert.Equal(t, "000955699D3D84", list.Devices[0].Address)
	assert.Equal(t, "HmIP-eTRV-2", list.Devices[0].DeviceType)
}

// TestFunctionList verifies the function document decode.
func TestFunctionList(t *testing.T) {
	_, client := newDocumentServer(t, map[string]string{
		"/addons/xmlapi/functionlist.cgi": `<?xml version="1.0" encoding="UTF-8"?>
<functionList>
<function name="Heating" ise_id="1230" description=""><channel ise_id="1417"/></function>
</functionList>`,
	})

	list, err := client.FunctionList(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Functions, 1)
	assert.Equal(t, "Heating", list.Functions[0].Name)
}

// TestStateList_InvalidSession verifies the error when the addon answers
// with its HTML error page instead of XML (wrong session id).
func TestStateList_InvalidSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>not authenticated</body></html>"))
	}))
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	client, err := NewClient(Options{Host: host, SessionID: "wrong", Scheme: "http"})
	require.NoError(t, err)

	_, err = client.StateList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statelist.cgi")
}

// TestNewClient_Validation verifies the required options.
func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{SessionID: "x"})
	assert.Error(t, err)

	_, err = NewClient(Options{Host: "ccu.example"})
	assert.Error(t, err)
}
