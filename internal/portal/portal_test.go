package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, chan ipc.Command) {
	store := wifistate.NewStore()
	commands := make(chan ipc.Command, 8)
	return New(store, commands, "192.168.4.1", 8080, nil), commands
}

func TestHandleIndex_RendersPortalPage(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "HYPER RECOVERY")
}

func TestHandleAPIStatus_ReturnsSnapshot(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.handleAPIStatus(rec, req)

	var snapshot wifistate.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, wifistate.StatusInitializing, snapshot.Status)
}

func TestHandleAPIConnect_ForwardsCommand(t *testing.T) {
	t.Parallel()
	s, commands := newTestServer()

	body := strings.NewReader(`{"ssid":"home-wifi","password":"hunter2"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/connect", body)
	rec := httptest.NewRecorder()
	s.handleAPIConnect(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	cmd := <-commands
	assert.Equal(t, ipc.CommandConnect, cmd.Kind)
	assert.Equal(t, "home-wifi", cmd.SSID)
	assert.True(t, cmd.Save)
}

func TestHandleAPIConnect_RejectsNonPost(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/connect", nil)
	rec := httptest.NewRecorder()
	s.handleAPIConnect(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleAPIConnect_InvalidJSON(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/connect", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	s.handleAPIConnect(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestHandleGenerate204_RedirectsWhenNotConnected(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/generate_204", nil)
	rec := httptest.NewRecorder()
	s.handleGenerate204(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "192.168.4.1")
}

func TestHandleGenerate204_NoContentWhenConnected(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer()
	s.store.Update(func(st *wifistate.WifiState) { st.Status = wifistate.StatusConnected })

	req := httptest.NewRequest(http.MethodGet, "/generate_204", nil)
	rec := httptest.NewRecorder()
	s.handleGenerate204(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStatusClass(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "status-connected", statusClass(wifistate.StatusConnected))
	assert.Equal(t, "status-connecting", statusClass(wifistate.StatusConnecting))
	assert.Equal(t, "status-failed", statusClass(wifistate.StatusFailed))
	assert.Equal(t, "status-waiting", statusClass(wifistate.StatusAwaitingCredentials))
}

func TestStatusText(t *testing.T) {
	t.Parallel()
	ssid := "home-wifi"
	assert.Equal(t, "Connected to home-wifi", statusText(wifistate.Snapshot{Status: wifistate.StatusConnected, ConnectedSSID: &ssid}))
	assert.Equal(t, "Connected to network", statusText(wifistate.Snapshot{Status: wifistate.StatusConnected}))

	errMsg := "bad password"
	assert.Equal(t, "Failed: bad password", statusText(wifistate.Snapshot{Status: wifistate.StatusFailed, LastError: &errMsg}))
	assert.Equal(t, "Select a network to connect", statusText(wifistate.Snapshot{Status: wifistate.StatusAwaitingCredentials}))
}

func TestRenderPortalPage_IncludesNetworks(t *testing.T) {
	t.Parallel()
	snapshot := wifistate.Snapshot{
		Status: wifistate.StatusAwaitingCredentials,
		AvailableNetworks: []wifistate.NetworkInfo{
			{SSID: "home-wifi", SignalStrength: 80, Channel: 6, IsSecured: true, SecurityType: "WPA2/WPA3"},
		},
	}
	html := renderPortalPage(snapshot)
	assert.Contains(t, html, "home-wifi")
	assert.Contains(t, html, "80%")
}
