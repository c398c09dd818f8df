// Package backend queries and switches the host NetworkManager's WiFi
// backend between "iwd" and "wpa_supplicant".
package backend

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"go.uber.org/zap"
)

const confDropIn = "/etc/NetworkManager/conf.d/99-hyper-recovery-backend.conf"

// switchScriptTemplate stops the unit for the backend not in use, starts
// the target unit (skipping either if its systemd unit file doesn't
// exist on this host), and restarts NetworkManager so it picks up the
// conf.d drop-in.
const switchScriptTemplate = `set -e
target="%s"
other="%s"
if systemctl cat "${other}.service" >/dev/null 2>&1; then
  systemctl stop "${other}.service" || true
fi
if systemctl cat "${target}.service" >/dev/null 2>&1; then
  systemctl start "${target}.service" || true
fi
systemctl restart NetworkManager.service
`

// Query reads the network manager's printed configuration and returns
// the configured WiFi backend.
func Query() (wifistate.WifiBackend, error) {
	out, err := exec.Command("NetworkManager", "--print-config").Output()
	if err != nil {
		return "", fmt.Errorf("backend: NetworkManager --print-config: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "wifi.backend=") {
			continue
		}
		value := strings.TrimPrefix(line, "wifi.backend=")
		switch value {
		case string(wifistate.BackendIwd):
			return wifistate.BackendIwd, nil
		case string(wifistate.BackendWpaSupplicant):
			return wifistate.BackendWpaSupplicant, nil
		default:
			return "", fmt.Errorf("backend: unknown wifi.backend value %q", value)
		}
	}
	return "", fmt.Errorf("backend: wifi.backend not found in NetworkManager configuration")
}

// Switch writes the conf.d drop-in for the requested backend and runs a
// transient systemd-run oneshot unit to stop the other backend, start
// the requested one, and restart NetworkManager. It runs outside the
// daemon's own service-unit sandbox so the restart of NetworkManager
// (which may be the unit supervising the daemon itself) is not killed
// mid-flight by the daemon's own cgroup teardown.
func Switch(ctx context.Context, target wifistate.WifiBackend, log *zap.SugaredLogger) error {
	other := wifistate.BackendWpaSupplicant
	if target == wifistate.BackendWpaSupplicant {
		other = wifistate.BackendIwd
	}

	if err := os.MkdirAll(filepath.Dir(confDropIn), 0o755); err != nil {
		return fmt.Errorf("backend: create conf.d dir: %w", err)
	}
	content := fmt.Sprintf("[device]\nwifi.backend=%s\n", target)
	if err := os.WriteFile(confDropIn, []byte(content), 0o644); err != nil {
		return fmt.Errorf("backend: write drop-in %s: %w", confDropIn, err)
	}

	script := fmt.Sprintf(switchScriptTemplate, target, other)

	cmd := exec.CommandContext(ctx, "systemd-run",
		"--quiet", "--wait", "--collect",
		"--unit", "hyper-recovery-backend-switch",
		"--property", "Type=oneshot",
		"--property", "TimeoutStartSec=45s",
		"--", "/bin/bash", "-c", script,
	)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if log != nil {
		log.Infow("switching wifi backend", "target", target, "other", other)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("backend: switch to %s failed: %s: %w", target, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// WaitInactive polls `systemctl is-active --quiet <unit>` until it
// reports inactive or the timeout elapses.
func WaitInactive(ctx context.Context, unit string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		cmd := exec.CommandContext(ctx, "systemctl", "is-active", "--quiet", unit)
		if err := cmd.Run(); err != nil {
			// Non-zero exit means "not active" for is-active --quiet.
			return nil
		}
		time.Sleep(120 * time.Millisecond)
	}
	return fmt.Errorf("backend: timed out waiting for systemd unit %s to stop", unit)
}

// UnitForBackend returns the systemd service unit name driving a given
// WiFi backend.
func UnitForBackend(b wifistate.WifiBackend) string {
	return string(b) + ".service"
}
