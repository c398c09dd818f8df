// Package credentials persists a mapping of SSID to saved WiFi password
// so the daemon can auto-join a previously configured network without
// showing the portal again.
//
// Security considerations: credentials are stored in plaintext, mode
// 0600, root-owned. That is a documented trade-off for a recovery
// environment where the alternative is re-entering a password on every
// boot; see SPEC_FULL.md Non-goals.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

// DefaultPath is the default on-disk location of the credentials file.
const DefaultPath = "/var/lib/hyper-recovery/credentials.json"

const currentVersion = 1

// SavedCredential is one remembered network.
type SavedCredential struct {
	SSID         string `json:"ssid"`
	Password     string `json:"password"`
	LastUsed     *int64 `json:"last_used,omitempty"`
	SuccessCount uint32 `json:"success_count"`
}

// Store is a durable SSID -> SavedCredential mapping.
type Store struct {
	Networks map[string]SavedCredential `json:"networks"`
	Version  uint32                     `json:"version"`
}

// New returns an empty store at the current schema version.
func New() *Store {
	return &Store{Networks: map[string]SavedCredential{}, Version: currentVersion}
}

// Load reads the store from DefaultPath. A missing file is not an
// error; it yields an empty store.
func Load() (*Store, error) {
	return LoadFrom(DefaultPath)
}

// LoadFrom reads the store from an arbitrary path.
func LoadFrom(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("credentials: read %s: %w", path, err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("credentials: parse %s: %w", path, err)
	}
	if store.Networks == nil {
		store.Networks = map[string]SavedCredential{}
	}
	if store.Version == 0 {
		store.Version = currentVersion
	}
	return &store, nil
}

// Save writes the store to DefaultPath.
func (s *Store) Save() error {
	return s.SaveTo(DefaultPath)
}

// SaveTo atomically writes the store to an arbitrary path: a temp file
// in the same directory, chmod 0600, then rename over the target so a
// reader never observes a partial write.
func (s *Store) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("credentials: create dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("credentials: marshal: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("credentials: write %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("credentials: chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("credentials: rename %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

// SaveCredential inserts or updates the saved password for ssid,
// stamping last_used and incrementing success_count.
func (s *Store) SaveCredential(ssid, password string) {
	now := time.Now().Unix()
	if existing, ok := s.Networks[ssid]; ok {
		existing.Password = password
		existing.LastUsed = &now
		existing.SuccessCount++
		s.Networks[ssid] = existing
		return
	}
	s.Networks[ssid] = SavedCredential{
		SSID:         ssid,
		Password:     password,
		LastUsed:     &now,
		SuccessCount: 1,
	}
}

// GetPassword returns the saved password for ssid, if any.
func (s *Store) GetPassword(ssid string) (string, bool) {
	c, ok := s.Networks[ssid]
	if !ok {
		return "", false
	}
	return c.Password, true
}

// HasCredentials reports whether ssid has a saved entry.
func (s *Store) HasCredentials(ssid string) bool {
	_, ok := s.Networks[ssid]
	return ok
}

// RemoveCredential deletes ssid's saved entry, if present.
func (s *Store) RemoveCredential(ssid string) bool {
	if _, ok := s.Networks[ssid]; !ok {
		return false
	}
	delete(s.Networks, ssid)
	return true
}

// FindKnownNetworks returns the subset of available networks this store
// has credentials for.
func (s *Store) FindKnownNetworks(available []wifistate.NetworkInfo) []wifistate.NetworkInfo {
	var known []wifistate.NetworkInfo
	for _, n := range available {
		if s.HasCredentials(n.SSID) {
			known = append(known, n)
		}
	}
	return known
}

// BestKnownNetwork picks the best candidate to auto-connect to:
// strongest signal first, ties broken by success_count descending.
func (s *Store) BestKnownNetwork(available []wifistate.NetworkInfo) (*wifistate.NetworkInfo, bool) {
	known := s.FindKnownNetworks(available)
	if len(known) == 0 {
		return nil, false
	}

	sort.SliceStable(known, func(i, j int) bool {
		if known[i].SignalStrength != known[j].SignalStrength {
			return known[i].SignalStrength > known[j].SignalStrength
		}
		return s.Networks[known[i].SSID].SuccessCount > s.Networks[known[j].SSID].SuccessCount
	})

	best := known[0]
	return &best, true
}
