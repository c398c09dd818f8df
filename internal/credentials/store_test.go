package credentials

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

func TestLoadFrom_MissingFileYieldsEmptyStore(t *testing.T) {
	t.Parallel()
	s, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Networks)
	assert.Equal(t, uint32(currentVersion), s.Version)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "credentials.json")

	s := New()
	s.SaveCredential("home-network", "hunter2")
	require.NoError(t, s.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	password, ok := loaded.GetPassword("home-network")
	require.True(t, ok)
	assert.Equal(t, "hunter2", password)
}

func TestSaveCredential_UpdatesExisting(t *testing.T) {
	t.Parallel()
	s := New()
	s.SaveCredential("office", "first-pass")
	s.SaveCredential("office", "second-pass")

	password, ok := s.GetPassword("office")
	require.True(t, ok)
	assert.Equal(t, "second-pass", password)
	assert.Equal(t, uint32(2), s.Networks["office"].SuccessCount)
}

func TestHasCredentials(t *testing.T) {
	t.Parallel()
	s := New()
	assert.False(t, s.HasCredentials("unknown"))
	s.SaveCredential("known", "pw")
	assert.True(t, s.HasCredentials("known"))
}

func TestRemoveCredential(t *testing.T) {
	t.Parallel()
	s := New()
	s.SaveCredential("gone-soon", "pw")

	assert.True(t, s.RemoveCredential("gone-soon"))
	assert.False(t, s.HasCredentials("gone-soon"))
	assert.False(t, s.RemoveCredential("gone-soon"))
}

func TestFindKnownNetworks(t *testing.T) {
	t.Parallel()
	s := New()
	s.SaveCredential("known-net", "pw")

	available := []wifistate.NetworkInfo{
		{SSID: "known-net"},
		{SSID: "unknown-net"},
	}

	known := s.FindKnownNetworks(available)
	require.Len(t, known, 1)
	assert.Equal(t, "known-net", known[0].SSID)
}

func TestBestKnownNetwork_PrefersStrongerSignal(t *testing.T) {
	t.Parallel()
	s := New()
	s.SaveCredential("weak", "pw")
	s.SaveCredential("strong", "pw")

	available := []wifistate.NetworkInfo{
		{SSID: "weak", SignalStrength: 30},
		{SSID: "strong", SignalStrength: 90},
	}

	best, ok := s.BestKnownNetwork(available)
	require.True(t, ok)
	assert.Equal(t, "strong", best.SSID)
}

func TestBestKnownNetwork_TieBrokenBySuccessCount(t *testing.T) {
	t.Parallel()
	s := New()
	s.SaveCredential("veteran", "pw")
	s.SaveCredential("veteran", "pw") // success_count now 2
	s.SaveCredential("newcomer", "pw")

	available := []wifistate.NetworkInfo{
		{SSID: "newcomer", SignalStrength: 50},
		{SSID: "veteran", SignalStrength: 50},
	}

	best, ok := s.BestKnownNetwork(available)
	require.True(t, ok)
	assert.Equal(t, "veteran", best.SSID)
}

func TestBestKnownNetwork_NoneKnown(t *testing.T) {
	t.Parallel()
	s := New()
	_, ok := s.BestKnownNetwork([]wifistate.NetworkInfo{{SSID: "stranger"}})
	assert.False(t, ok)
}
