package wifistate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_InitialState(t *testing.T) {
	t.Parallel()
	s := NewStore()
	state := s.Get()
	assert.Equal(t, StatusInitializing, state.Status)
	assert.Nil(t, state.ConnectedSSID)
	assert.False(t, state.APRunning)
}

func TestStore_UpdateAndGet(t *testing.T) {
	t.Parallel()
	s := NewStore()

	s.Update(func(st *WifiState) {
		st.Status = StatusConnected
		st.ConnectedSSID = StringPtr("home-network")
	})

	state := s.Get()
	assert.Equal(t, StatusConnected, state.Status)
	require.NotNil(t, state.ConnectedSSID)
	assert.Equal(t, "home-network", *state.ConnectedSSID)
}

func TestStore_SubscribeReceivesUpdates(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Update(func(st *WifiState) { st.Status = StatusScanning })

	select {
	case got := <-ch:
		assert.Equal(t, StatusScanning, got.Status)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscriber update")
	}
}

func TestStore_SubscribeCancelStopsDelivery(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ch, cancel := s.Subscribe()
	cancel()

	s.Update(func(st *WifiState) { st.Status = StatusFailed })

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")
}

func TestStore_SlowSubscriberDoesNotBlockWriter(t *testing.T) {
	t.Parallel()
	s := NewStore()
	_, cancel := s.Subscribe() // buffered channel, never read from
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Update(func(st *WifiState) { st.Status = StatusScanning })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("writer blocked on a slow subscriber")
	}
}

func TestWifiState_ToSnapshot(t *testing.T) {
	t.Parallel()
	scan := time.Now().Add(-5 * time.Second)
	state := WifiState{
		Status:            StatusAwaitingCredentials,
		AvailableNetworks: []NetworkInfo{{SSID: "test-net", SignalStrength: 80}},
		LastScan:          &scan,
	}

	snap := state.ToSnapshot()
	assert.Equal(t, StatusAwaitingCredentials, snap.Status)
	require.Len(t, snap.AvailableNetworks, 1)
	assert.Equal(t, "test-net", snap.AvailableNetworks[0].SSID)
	require.NotNil(t, snap.LastScanSecsAgo)
	assert.GreaterOrEqual(t, *snap.LastScanSecsAgo, uint64(4))
}

func TestWifiState_ToSnapshot_NoScanYet(t *testing.T) {
	t.Parallel()
	state := WifiState{Status: StatusInitializing}
	snap := state.ToSnapshot()
	assert.Nil(t, snap.LastScanSecsAgo)
}
