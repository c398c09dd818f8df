package backend

import (
	"fmt"
	"testing"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"github.com/stretchr/testify/assert"
)

func TestUnitForBackend(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "iwd.service", UnitForBackend(wifistate.BackendIwd))
	assert.Equal(t, "wpa_supplicant.service", UnitForBackend(wifistate.BackendWpaSupplicant))
}

func TestSwitchScriptTemplate_RendersBothUnits(t *testing.T) {
	t.Parallel()
	script := fmt.Sprintf(switchScriptTemplate, wifistate.BackendIwd, wifistate.BackendWpaSupplicant)
	assert.Contains(t, script, `target="iwd"`)
	assert.Contains(t, script, `other="wpa_supplicant"`)
	assert.Contains(t, script, "systemctl restart NetworkManager.service")
}
