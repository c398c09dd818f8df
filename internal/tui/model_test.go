package tui

import (
	"testing"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"github.com/stretchr/testify/assert"
)

func TestNew_ReturnsUnfocusedListModel(t *testing.T) {
	t.Parallel()
	m := New("/run/hyper-recovery.sock")
	assert.Equal(t, focusList, m.focus)
	assert.Nil(t, m.status)
	assert.Equal(t, 0, m.cursor)
}

func TestModel_Networks_NilBeforeFirstStatus(t *testing.T) {
	t.Parallel()
	m := New("/run/hyper-recovery.sock")
	assert.Nil(t, m.networks())
}

func TestModel_Networks_ReflectsLatestSnapshot(t *testing.T) {
	t.Parallel()
	m := New("/run/hyper-recovery.sock")
	m.status = &wifistate.Snapshot{
		AvailableNetworks: []wifistate.NetworkInfo{
			{SSID: "home-wifi"},
			{SSID: "guest-wifi"},
		},
	}
	assert.Len(t, m.networks(), 2)
	assert.Equal(t, "home-wifi", m.networks()[0].SSID)
}

func TestModel_Update_StatusMsgError_SetsStatusLine(t *testing.T) {
	t.Parallel()
	m := New("/run/hyper-recovery.sock")
	next, cmd := m.Update(statusMsg{err: assertError("daemon down")})
	nm := next.(Model)
	assert.Nil(t, cmd)
	assert.Contains(t, nm.statusLine, "daemon down")
	assert.Nil(t, nm.status)
}

func TestModel_Update_StatusMsgSuccess_ClearsStatusLine(t *testing.T) {
	t.Parallel()
	m := New("/run/hyper-recovery.sock")
	m.statusLine = "stale error"
	snapshot := &wifistate.Snapshot{Status: wifistate.StatusConnected}

	next, _ := m.Update(statusMsg{snapshot: snapshot})
	nm := next.(Model)
	assert.Empty(t, nm.statusLine)
	assert.Equal(t, wifistate.StatusConnected, nm.status.Status)
}

type assertError string

func (e assertError) Error() string { return string(e) }
