package orchestrator

import (
	"testing"

	"github.com/balaclava-guy/hyper-recovery/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestWifiBackendUnit_Unset(t *testing.T) {
	t.Parallel()
	o := &Orchestrator{cfg: &config.DaemonConfig{WifiBackend: ""}}
	assert.Equal(t, "", o.wifiBackendUnit())
}

func TestWifiBackendUnit_Iwd(t *testing.T) {
	t.Parallel()
	o := &Orchestrator{cfg: &config.DaemonConfig{WifiBackend: "iwd"}}
	assert.Equal(t, "iwd.service", o.wifiBackendUnit())
}

func TestWifiBackendUnit_WpaSupplicant(t *testing.T) {
	t.Parallel()
	o := &Orchestrator{cfg: &config.DaemonConfig{WifiBackend: "wpa_supplicant"}}
	assert.Equal(t, "wpa_supplicant.service", o.wifiBackendUnit())
}
