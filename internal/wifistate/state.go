// Package wifistate holds the single authoritative snapshot of WiFi state
// shared between the orchestrator (sole writer) and its readers (HTTP
// handlers, IPC handlers, the TUI).
package wifistate

import (
	"sync"
	"time"
)

// ConnectionStatus is the tagged status of the daemon's state machine.
type ConnectionStatus string

const (
	StatusInitializing       ConnectionStatus = "Initializing"
	StatusScanning           ConnectionStatus = "Scanning"
	StatusAwaitingCredentials ConnectionStatus = "AwaitingCredentials"
	StatusConnecting         ConnectionStatus = "Connecting"
	StatusConnected          ConnectionStatus = "Connected"
	StatusFailed             ConnectionStatus = "Failed"
	StatusDisconnected       ConnectionStatus = "Disconnected"
	StatusSwitchingBackend   ConnectionStatus = "SwitchingBackend"
)

// WifiBackend names the NetworkManager WiFi backend in use.
type WifiBackend string

const (
	BackendIwd           WifiBackend = "iwd"
	BackendWpaSupplicant WifiBackend = "wpa_supplicant"
)

// NetworkInfo describes one observed access point, deduplicated by SSID.
type NetworkInfo struct {
	SSID          string `json:"ssid"`
	BSSID         string `json:"bssid"`
	SignalStrength uint8  `json:"signal_strength"`
	Frequency     uint32 `json:"frequency"`
	Channel       uint8  `json:"channel"`
	IsSecured     bool   `json:"is_secured"`
	SecurityType  string `json:"security_type"`
}

// WifiState is the single in-memory snapshot. It is only ever mutated by
// the orchestrator's control loop.
type WifiState struct {
	Status            ConnectionStatus
	AvailableNetworks []NetworkInfo
	ConnectedSSID     *string
	ConnectingTo      *string
	APRunning         bool
	APSSID            *string
	PortalURL         *string
	LastError         *string
	LastScan          *time.Time
	WifiBackend       *WifiBackend
}

// Snapshot is the externally-serializable mirror of WifiState: the
// monotonic LastScan timestamp becomes a "seconds ago" duration so it
// survives JSON round-tripping meaningfully for a remote client.
type Snapshot struct {
	Status            ConnectionStatus `json:"status"`
	AvailableNetworks []NetworkInfo    `json:"available_networks"`
	ConnectedSSID     *string          `json:"connected_ssid,omitempty"`
	ConnectingTo      *string          `json:"connecting_to,omitempty"`
	APRunning         bool             `json:"ap_running"`
	APSSID            *string          `json:"ap_ssid,omitempty"`
	PortalURL         *string          `json:"portal_url,omitempty"`
	LastError         *string          `json:"last_error,omitempty"`
	LastScanSecsAgo   *uint64          `json:"last_scan_secs_ago,omitempty"`
	WifiBackend       *WifiBackend     `json:"wifi_backend,omitempty"`
}

// ToSnapshot converts a WifiState into its serializable form.
func (s WifiState) ToSnapshot() Snapshot {
	snap := Snapshot{
		Status:            s.Status,
		AvailableNetworks: s.AvailableNetworks,
		ConnectedSSID:     s.ConnectedSSID,
		ConnectingTo:      s.ConnectingTo,
		APRunning:         s.APRunning,
		APSSID:            s.APSSID,
		PortalURL:         s.PortalURL,
		LastError:         s.LastError,
		WifiBackend:       s.WifiBackend,
	}
	if s.LastScan != nil {
		secs := uint64(time.Since(*s.LastScan).Seconds())
		snap.LastScanSecsAgo = &secs
	}
	return snap
}

// Store guards a WifiState behind a reader-writer lock and broadcasts
// every update to subscribers registered with Subscribe. It is the Go
// analogue of a single watch::Sender plus an RwLock guarding the value
// underneath it.
type Store struct {
	mu   sync.RWMutex
	state WifiState

	subMu sync.Mutex
	subs  []chan WifiState
}

// NewStore creates a Store in its initial Initializing state.
func NewStore() *Store {
	return &Store{
		state: WifiState{Status: StatusInitializing},
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() WifiState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Update applies fn to the state under an exclusive lock, then
// broadcasts the resulting copy to all subscribers. fn must not block.
func (s *Store) Update(fn func(*WifiState)) {
	s.mu.Lock()
	fn(&s.state)
	stateCopy := s.state
	s.mu.Unlock()

	s.broadcast(stateCopy)
}

// Subscribe registers a channel that receives a copy of the state after
// every Update. The returned function unregisters it. The channel is
// buffered; a slow subscriber drops intermediate updates rather than
// blocking the writer.
func (s *Store) Subscribe() (<-chan WifiState, func()) {
	ch := make(chan WifiState, 4)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, c := range s.subs {
			if c == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel
}

func (s *Store) broadcast(state WifiState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// Drop the update for a subscriber that isn't keeping up;
			// it will pick up the latest state on its next read.
		}
	}
}

// StringPtr is a small convenience for building optional string fields.
func StringPtr(s string) *string { return &s }

// BackendPtr is a small convenience for building optional backend fields.
func BackendPtr(b WifiBackend) *WifiBackend { return &b }
