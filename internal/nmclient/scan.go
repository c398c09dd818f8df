package nmclient

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"github.com/godbus/dbus/v5"
)

const scanStalenessWindow = 6 * time.Second

// Scan requests a fresh AP scan on the device and waits for NetworkManager
// to update LastScan, then reads back the deduplicated, classified network
// list. If RequestScan fails or LastScan does not change within
// scanStalenessWindow, it reads the existing AP table.
func (c *Client) Scan(ctx context.Context, devicePath dbus.ObjectPath) ([]wifistate.NetworkInfo, error) {
	lastScan, err := c.getInt64Property(devicePath, nmWirelessIface, "LastScan")
	if err != nil {
		return nil, fmt.Errorf("nmclient: read LastScan: %w", err)
	}

	if err := c.deviceObject(devicePath).Call(nmWirelessIface+".RequestScan", 0, map[string]dbus.Variant{}).Err; err != nil {
		// A request already in flight is not fatal; fall through to read
		// whatever AP table NetworkManager currently has.
		if c.log != nil {
			c.log.Debugw("RequestScan returned an error, reading existing AP table", "err", err)
		}
	} else {
		if err := c.waitForScanUpdate(ctx, devicePath, lastScan); err != nil && c.log != nil {
			c.log.Warnw("timed out waiting for scan results to refresh, reading current AP table anyway", "err", err)
		}
	}

	return c.readAccessPoints(devicePath)
}

func (c *Client) waitForScanUpdate(ctx context.Context, devicePath dbus.ObjectPath, previous int64) error {
	deadline := time.Now().Add(scanStalenessWindow)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		current, err := c.getInt64Property(devicePath, nmWirelessIface, "LastScan")
		if err == nil && current != previous {
			return nil
		}
	}
	return fmt.Errorf("nmclient: scan did not complete within %s", scanStalenessWindow)
}

func (c *Client) readAccessPoints(devicePath dbus.ObjectPath) ([]wifistate.NetworkInfo, error) {
	var apPaths []dbus.ObjectPath
	if err := c.deviceObject(devicePath).Call(nmWirelessIface+".GetAllAccessPoints", 0).Store(&apPaths); err != nil {
		return nil, fmt.Errorf("nmclient: GetAllAccessPoints: %w", err)
	}

	bestBySSID := map[string]wifistate.NetworkInfo{}
	for _, path := range apPaths {
		info, err := c.readAccessPoint(path)
		if err != nil {
			if c.log != nil {
				c.log.Debugw("skipping unreadable access point", "path", path, "err", err)
			}
			continue
		}
		if info.SSID == "" {
			continue
		}
		existing, seen := bestBySSID[info.SSID]
		if !seen || info.SignalStrength > existing.SignalStrength {
			bestBySSID[info.SSID] = *info
		}
	}

	networks := make([]wifistate.NetworkInfo, 0, len(bestBySSID))
	for _, n := range bestBySSID {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		return networks[i].SignalStrength > networks[j].SignalStrength
	})
	return networks, nil
}

func (c *Client) readAccessPoint(path dbus.ObjectPath) (*wifistate.NetworkInfo, error) {
	var props map[string]dbus.Variant
	if err := c.apObject(path).Call(propsIface+".GetAll", 0, nmAPIface).Store(&props); err != nil {
		return nil, fmt.Errorf("GetAll on %s: %w", path, err)
	}

	ssidBytes, _ := props["Ssid"].Value().([]byte)
	ssid := string(ssidBytes)
	if ssid == "" {
		return nil, fmt.Errorf("empty SSID")
	}

	bssid, _ := props["HwAddress"].Value().(string)
	strength, _ := props["Strength"].Value().(byte)
	frequency, _ := props["Frequency"].Value().(uint32)
	flags, _ := props["Flags"].Value().(uint32)
	wpaFlags, _ := props["WpaFlags"].Value().(uint32)
	rsnFlags, _ := props["RsnFlags"].Value().(uint32)

	security := ClassifySecurity(flags, wpaFlags, rsnFlags)
	return &wifistate.NetworkInfo{
		SSID:           ssid,
		BSSID:          bssid,
		SignalStrength: uint8(strength),
		Frequency:      frequency,
		Channel:        FrequencyToChannel(frequency),
		IsSecured:      security != "Open",
		SecurityType:   security,
	}, nil
}

// FindBestAPForSSID returns the object path of the strongest-signal AP
// broadcasting ssid, or false if none is found. Ties keep the
// first-found AP (strict greater-than comparison).
func (c *Client) FindBestAPForSSID(devicePath dbus.ObjectPath, ssid string) (dbus.ObjectPath, bool, error) {
	var apPaths []dbus.ObjectPath
	if err := c.deviceObject(devicePath).Call(nmWirelessIface+".GetAllAccessPoints", 0).Store(&apPaths); err != nil {
		return "", false, fmt.Errorf("nmclient: GetAllAccessPoints: %w", err)
	}

	var best dbus.ObjectPath
	var bestStrength byte = 0
	found := false
	for _, path := range apPaths {
		var props map[string]dbus.Variant
		if err := c.apObject(path).Call(propsIface+".GetAll", 0, nmAPIface).Store(&props); err != nil {
			continue
		}
		ssidBytes, _ := props["Ssid"].Value().([]byte)
		if string(ssidBytes) != ssid {
			continue
		}
		strength, _ := props["Strength"].Value().(byte)
		if !found || strength > bestStrength {
			best, bestStrength, found = path, strength, true
		}
	}
	return best, found, nil
}

func (c *Client) getInt64Property(path dbus.ObjectPath, iface, name string) (int64, error) {
	variant, err := c.conn.Object(nmDest, path).GetProperty(iface + "." + name)
	if err != nil {
		return 0, err
	}
	switch v := variant.Value().(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("nmclient: property %s.%s is not an integer", iface, name)
	}
}
