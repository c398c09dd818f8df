// Package nmclient is the Device Controller, Network Scanner, and
// Station Connector: it drives org.freedesktop.NetworkManager over the
// system message bus to resolve a WiFi device, query connectivity,
// scan for access points, and activate client connections.
package nmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	nmDest           = "org.freedesktop.NetworkManager"
	nmPath           = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface          = "org.freedesktop.NetworkManager"
	nmDeviceIface    = "org.freedesktop.NetworkManager.Device"
	nmWirelessIface  = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAPIface        = "org.freedesktop.NetworkManager.AccessPoint"
	propsIface       = "org.freedesktop.DBus.Properties"

	// deviceTypeWifi is NM_DEVICE_TYPE_WIFI.
	deviceTypeWifi = uint32(2)
	// deviceStateActivated is NM_DEVICE_STATE_ACTIVATED.
	deviceStateActivated = uint32(100)
	// deviceStateFailed is NM_DEVICE_STATE_FAILED.
	deviceStateFailed = uint32(120)
	// connectivityFull is NM_CONNECTIVITY_FULL.
	connectivityFull = uint32(4)
	// apFlagPrivacy is NM_802_11_AP_FLAGS_PRIVACY.
	apFlagPrivacy = uint32(0x1)
)

// Client wraps a system-bus connection scoped to NetworkManager calls.
type Client struct {
	conn *dbus.Conn
	log  *zap.SugaredLogger
}

// New dials the system bus.
func New(log *zap.SugaredLogger) (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("nmclient: connect to system bus: %w", err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nmObject() dbus.BusObject {
	return c.conn.Object(nmDest, nmPath)
}

func (c *Client) deviceObject(path dbus.ObjectPath) dbus.BusObject {
	return c.conn.Object(nmDest, path)
}

func (c *Client) apObject(path dbus.ObjectPath) dbus.BusObject {
	return c.conn.Object(nmDest, path)
}

// GetWifiDevice resolves the device object path for a network interface
// name and validates it is a WiFi device.
func (c *Client) GetWifiDevice(interfaceName string) (dbus.ObjectPath, error) {
	var devicePath dbus.ObjectPath
	if err := c.nmObject().Call(nmIface+".GetDeviceByIpIface", 0, interfaceName).Store(&devicePath); err != nil {
		return "", fmt.Errorf("failed to resolve NetworkManager device for %q: %w", interfaceName, err)
	}

	deviceType, err := c.getUint32Property(devicePath, nmDeviceIface, "DeviceType")
	if err != nil {
		return "", fmt.Errorf("nmclient: read DeviceType for %q: %w", interfaceName, err)
	}
	if deviceType != deviceTypeWifi {
		return "", fmt.Errorf("interface %q is not a WiFi device according to NetworkManager (type=%d)", interfaceName, deviceType)
	}
	return devicePath, nil
}

// CheckConnectivity reports whether NetworkManager currently reports
// FULL (internet) connectivity.
func (c *Client) CheckConnectivity() (bool, error) {
	value, err := c.getUint32Property(nmPath, nmIface, "Connectivity")
	if err != nil {
		return false, fmt.Errorf("nmclient: read Connectivity: %w", err)
	}
	return value == connectivityFull, nil
}

// WaitForConnectivity polls Connectivity at ~1 Hz until it reports FULL,
// or ctx is cancelled.
func (c *Client) WaitForConnectivity(ctx context.Context) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		ok, err := c.CheckConnectivity()
		if err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReleaseDevice relinquishes NetworkManager's management of a device so
// hostapd/a beacon daemon can take exclusive control of the radio. Each
// step is best-effort; failures are logged, not propagated.
func (c *Client) ReleaseDevice(interfaceName string) {
	devicePath, err := c.GetWifiDevice(interfaceName)
	if err != nil {
		if c.log != nil {
			c.log.Warnw("release device: could not resolve device, skipping", "interface", interfaceName, "err", err)
		}
		return
	}

	dev := c.deviceObject(devicePath)
	if err := c.setProperty(devicePath, nmDeviceIface, "Autoconnect", false); err != nil {
		c.warn("release device: set Autoconnect=false", err)
	}
	if err := dev.Call(nmDeviceIface+".Disconnect", 0).Err; err != nil {
		c.warn("release device: Disconnect", err)
	}
	if err := c.setProperty(devicePath, nmDeviceIface, "Managed", false); err != nil {
		c.warn("release device: set Managed=false", err)
	}
}

// ReclaimDevice re-enables NetworkManager's management of a device
// after AP mode ends. Best-effort.
func (c *Client) ReclaimDevice(interfaceName string) {
	devicePath, err := c.GetWifiDevice(interfaceName)
	if err != nil {
		if c.log != nil {
			c.log.Warnw("reclaim device: could not resolve device, skipping", "interface", interfaceName, "err", err)
		}
		return
	}
	if err := c.setProperty(devicePath, nmDeviceIface, "Managed", true); err != nil {
		c.warn("reclaim device: set Managed=true", err)
	}
	if err := c.setProperty(devicePath, nmDeviceIface, "Autoconnect", true); err != nil {
		c.warn("reclaim device: set Autoconnect=true", err)
	}
}

func (c *Client) warn(op string, err error) {
	if c.log != nil {
		c.log.Warnw(op+" failed (best-effort, ignored)", "err", err)
	}
}

func (c *Client) getUint32Property(path dbus.ObjectPath, iface, name string) (uint32, error) {
	variant, err := c.conn.Object(nmDest, path).GetProperty(iface + "." + name)
	if err != nil {
		return 0, err
	}
	value, ok := variant.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("nmclient: property %s.%s is not a uint32", iface, name)
	}
	return value, nil
}

func (c *Client) setProperty(path dbus.ObjectPath, iface, name string, value interface{}) error {
	return c.conn.Object(nmDest, path).Call(propsIface+".Set", 0, iface, name, dbus.MakeVariant(value)).Err
}

// FrequencyToChannel derives an 802.11 channel number from a center
// frequency in MHz.
func FrequencyToChannel(freqMHz uint32) uint8 {
	switch {
	case freqMHz >= 2412 && freqMHz <= 2472:
		return uint8((freqMHz - 2407) / 5)
	case freqMHz == 2484:
		return 14
	case freqMHz >= 5000 && freqMHz <= 5900:
		return uint8((freqMHz - 5000) / 5)
	default:
		return 0
	}
}

// ClassifySecurity maps raw AP flag bitfields to the spec's security
// taxonomy.
func ClassifySecurity(flags, wpaFlags, rsnFlags uint32) string {
	switch {
	case rsnFlags != 0 && wpaFlags != 0:
		return "WPA/WPA2"
	case rsnFlags != 0:
		return "WPA2/WPA3"
	case wpaFlags != 0:
		return "WPA"
	case flags&apFlagPrivacy != 0:
		return "WEP/Protected"
	default:
		return "Open"
	}
}
