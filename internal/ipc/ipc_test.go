package ipc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, *Client, <-chan Command) {
	t.Helper()
	store := wifistate.NewStore()
	commands := make(chan Command, 8)

	socketPath := filepath.Join(t.TempDir(), "hyper-recovery.sock")
	server := NewServer(socketPath, store, commands, nil)
	require.NoError(t, server.Listen())
	go server.Serve()
	t.Cleanup(func() { server.Close() })

	return server, NewClient(socketPath), commands
}

func TestClient_GetStatus(t *testing.T) {
	t.Parallel()
	_, client, _ := startTestServer(t)

	snapshot, err := client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, wifistate.StatusInitializing, snapshot.Status)
}

func TestClient_Scan_ForwardsCommand(t *testing.T) {
	t.Parallel()
	_, client, commands := startTestServer(t)

	require.NoError(t, client.Scan())

	select {
	case cmd := <-commands:
		assert.Equal(t, CommandScan, cmd.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
}

func TestClient_Connect_ForwardsSSIDAndPassword(t *testing.T) {
	t.Parallel()
	_, client, commands := startTestServer(t)

	require.NoError(t, client.Connect("home-wifi", "hunter2", false))

	select {
	case cmd := <-commands:
		assert.Equal(t, CommandConnect, cmd.Kind)
		assert.Equal(t, "home-wifi", cmd.SSID)
		assert.Equal(t, "hunter2", cmd.Password)
		assert.False(t, cmd.Save)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
}

func TestClient_SwitchBackend_ForwardsBackend(t *testing.T) {
	t.Parallel()
	_, client, commands := startTestServer(t)

	require.NoError(t, client.SwitchBackend("iwd"))

	select {
	case cmd := <-commands:
		assert.Equal(t, CommandSwitchBackend, cmd.Kind)
		assert.Equal(t, "iwd", cmd.Backend)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded command")
	}
}

func TestRequest_ShouldSave(t *testing.T) {
	t.Parallel()
	assert.True(t, Request{}.ShouldSave())

	no := false
	assert.False(t, Request{Save: &no}.ShouldSave())

	yes := true
	assert.True(t, Request{Save: &yes}.ShouldSave())
}

func TestServer_Handle_UnknownRequestType(t *testing.T) {
	t.Parallel()
	store := wifistate.NewStore()
	commands := make(chan Command, 1)
	server := NewServer("unused.sock", store, commands, nil)

	resp := server.handle(Request{Type: "bogus"})
	assert.Equal(t, ResponseError, resp.Type)
	assert.Contains(t, resp.Error, "bogus")
}
