package nmclient

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	activationRetries    = 3
	activationRetryDelay = 3 * time.Second
	activationTimeout    = 35 * time.Second

	// hiddenSSIDSentinel is the root object path passed as the specific
	// AP when no access point for the SSID was found; the profile is then
	// activated as a hidden network.
	hiddenSSIDSentinel = "/"
)

// ConnectRequest describes a station connection attempt.
type ConnectRequest struct {
	Interface string
	SSID      string
	Password  string
	// Hidden marks a network that doesn't broadcast its SSID; connect.go
	// skips AP discovery and lets NetworkManager probe for it directly.
	Hidden bool
	// BackendUnit, if non-empty, is started (best-effort) before each
	// connection attempt in case the configured WiFi backend's service
	// isn't already running.
	BackendUnit string
}

// Connect attempts to join a network, retrying up to activationRetries
// times with activationRetryDelay between attempts.
func (c *Client) Connect(ctx context.Context, req ConnectRequest) error {
	devicePath, err := c.GetWifiDevice(req.Interface)
	if err != nil {
		return err
	}

	if req.SSID == hiddenSSIDSentinel {
		return fmt.Errorf("nmclient: SSID %q is reserved as the hidden-network sentinel and cannot be joined directly", hiddenSSIDSentinel)
	}

	// Preamble: the WiFi-backend service may have been stopped for AP
	// mode, the device may still be unmanaged/disconnected from release,
	// and the interface may be carrying the AP's static address.
	if req.BackendUnit != "" {
		_ = exec.CommandContext(ctx, "systemctl", "start", req.BackendUnit).Run()
	}
	c.ReclaimDevice(req.Interface)
	if err := c.Disconnect(req.Interface); err != nil && c.log != nil {
		c.log.Debugw("station connect preamble: disconnect failed", "interface", req.Interface, "err", err)
	}
	if err := flushAndBringUpInterface(ctx, req.Interface); err != nil && c.log != nil {
		c.log.Warnw("station connect preamble: flush/bring-up interface failed", "interface", req.Interface, "err", err)
	}

	var lastErr error
	for attempt := 1; attempt <= activationRetries; attempt++ {
		if err := c.connectOnce(ctx, devicePath, req); err != nil {
			lastErr = err
			if c.log != nil {
				c.log.Warnw("connection attempt failed", "ssid", req.SSID, "attempt", attempt, "err", err)
			}
			if attempt < activationRetries {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(activationRetryDelay):
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("nmclient: failed to connect to %q after %d attempts: %w", req.SSID, activationRetries, lastErr)
}

func (c *Client) connectOnce(ctx context.Context, devicePath dbus.ObjectPath, req ConnectRequest) error {
	if _, err := c.Scan(ctx, devicePath); err != nil && c.log != nil {
		c.log.Debugw("pre-connect scan failed, searching current AP table anyway", "ssid", req.SSID, "err", err)
	}

	var apPath dbus.ObjectPath = dbus.ObjectPath(hiddenSSIDSentinel)
	hidden := req.Hidden
	if !hidden {
		path, found, err := c.FindBestAPForSSID(devicePath, req.SSID)
		if err == nil && found {
			apPath = path
		} else {
			hidden = true
		}
	}

	settings := buildConnectionSettings(req.SSID, req.Password, hidden)

	activeConnPath, err := c.activateConnection(devicePath, apPath, settings)
	if err != nil {
		return err
	}

	return c.waitForDeviceActivation(ctx, devicePath, activeConnPath)
}

// flushAndBringUpInterface drops any address left over from AP mode
// (e.g. the static AP IP) and brings the link up so NetworkManager can
// drive DHCP/SLAAC once a station connection activates.
func flushAndBringUpInterface(ctx context.Context, interfaceName string) error {
	if err := exec.CommandContext(ctx, "ip", "addr", "flush", "dev", interfaceName).Run(); err != nil {
		return fmt.Errorf("flush ipv4 on %s: %w", interfaceName, err)
	}
	if err := exec.CommandContext(ctx, "ip", "link", "set", interfaceName, "up").Run(); err != nil {
		return fmt.Errorf("bring up %s: %w", interfaceName, err)
	}
	return nil
}

func buildConnectionSettings(ssid, password string, hidden bool) map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"type":        dbus.MakeVariant("802-11-wireless"),
			"id":          dbus.MakeVariant(ssid),
			"uuid":        dbus.MakeVariant(uuid.NewString()),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid":   dbus.MakeVariant([]byte(ssid)),
			"mode":   dbus.MakeVariant("infrastructure"),
			"hidden": dbus.MakeVariant(hidden),
		},
		"ipv4": {
			"method": dbus.MakeVariant("auto"),
		},
		"ipv6": {
			"method": dbus.MakeVariant("auto"),
		},
	}
	if password != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(password),
		}
	}
	return settings
}

// activateConnection calls AddAndActivateConnection2 (persist=volatile so
// the ephemeral profile never touches disk), falling back to the legacy
// AddAndActivateConnection method on older NetworkManager releases that
// don't implement the v2 call.
func (c *Client) activateConnection(devicePath, apPath dbus.ObjectPath, settings map[string]map[string]dbus.Variant) (dbus.ObjectPath, error) {
	options := map[string]dbus.Variant{"persist": dbus.MakeVariant("volatile")}

	var pathResult, activeConnPath dbus.ObjectPath
	var extra map[string]dbus.Variant
	call := c.nmObject().Call(nmIface+".AddAndActivateConnection2", 0, settings, devicePath, apPath, options)
	if call.Err == nil {
		if err := call.Store(&pathResult, &activeConnPath, &extra); err != nil {
			return "", fmt.Errorf("nmclient: decode AddAndActivateConnection2 result: %w", err)
		}
		return activeConnPath, nil
	}

	if !isUnknownMethod(call.Err) {
		return "", fmt.Errorf("nmclient: AddAndActivateConnection2: %w", call.Err)
	}

	// Legacy fallback: same semantics, two return values, no persist option.
	if c.log != nil {
		c.log.Debugw("AddAndActivateConnection2 unsupported, falling back to legacy AddAndActivateConnection")
	}
	legacyCall := c.nmObject().Call(nmIface+".AddAndActivateConnection", 0, settings, devicePath, apPath)
	if legacyCall.Err != nil {
		return "", fmt.Errorf("nmclient: AddAndActivateConnection: %w", legacyCall.Err)
	}
	if err := legacyCall.Store(&pathResult, &activeConnPath); err != nil {
		return "", fmt.Errorf("nmclient: decode AddAndActivateConnection result: %w", err)
	}
	return activeConnPath, nil
}

func isUnknownMethod(err error) bool {
	dbusErr, ok := err.(dbus.Error)
	if !ok {
		return false
	}
	return strings.Contains(dbusErr.Name, "UnknownMethod") || strings.Contains(dbusErr.Name, "UnknownInterface")
}

// waitForDeviceActivation polls the device State property at ~1 Hz until
// it reports ACTIVATED (success), FAILED (immediate error with
// StateReason), or activationTimeout elapses.
func (c *Client) waitForDeviceActivation(ctx context.Context, devicePath dbus.ObjectPath, activeConnPath dbus.ObjectPath) error {
	deadline := time.Now().Add(activationTimeout)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		state, err := c.getUint32Property(devicePath, nmDeviceIface, "State")
		if err != nil {
			continue
		}
		switch state {
		case deviceStateActivated:
			return nil
		case deviceStateFailed:
			reason, _ := c.getStateReason(devicePath)
			return fmt.Errorf("nmclient: activation failed (reason=%d)", reason)
		}
	}
	return fmt.Errorf("nmclient: activation did not complete within %s", activationTimeout)
}

func (c *Client) getStateReason(devicePath dbus.ObjectPath) (uint32, error) {
	var state, reason uint32
	if err := c.deviceObject(devicePath).Call(nmDeviceIface+".StateReason", 0).Store(&state, &reason); err != nil {
		return 0, err
	}
	return reason, nil
}

// Disconnect tears down the device's active connection, if any.
func (c *Client) Disconnect(interfaceName string) error {
	devicePath, err := c.GetWifiDevice(interfaceName)
	if err != nil {
		return err
	}
	return c.deviceObject(devicePath).Call(nmDeviceIface+".Disconnect", 0).Err
}
