// Package ifaces resolves which wireless network interface the daemon
// should drive, from either an explicit name or "auto".
package ifaces

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const sysClassNet = "/sys/class/net"
const sysBusPCIDevices = "/sys/bus/pci/devices"

// wifiPCIClassPrefix is the class-code prefix (0x0280xx) the PCI bus
// assigns to network controllers in the "network controller: wireless"
// subclass.
const wifiPCIClassPrefix = "0x0280"

// Candidate describes one interface found under /sys/class/net.
type Candidate struct {
	Name        string
	DriverBound bool
	DeviceHint  string
}

// UnboundPCIDevice describes a wireless-class PCI device with no driver
// bound, usually indicating missing firmware.
type UnboundPCIDevice struct {
	Slot   string
	Vendor string
	Device string
}

func (d UnboundPCIDevice) String() string {
	return fmt.Sprintf("%s (vendor %s, device %s)", d.Slot, d.Vendor, d.Device)
}

// ListWirelessInterfaces enumerates /sys/class/net for entries exposing
// a "wireless" attribute, excluding "p2p-*" virtual interfaces.
func ListWirelessInterfaces() ([]Candidate, error) {
	entries, err := os.ReadDir(sysClassNet)
	if err != nil {
		return nil, fmt.Errorf("ifaces: read %s: %w", sysClassNet, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "p2p-") {
			continue
		}

		ifaceDir := filepath.Join(sysClassNet, name)
		if _, err := os.Stat(filepath.Join(ifaceDir, "wireless")); err != nil {
			continue
		}

		driverBound := false
		if _, err := os.Stat(filepath.Join(ifaceDir, "device", "driver")); err == nil {
			driverBound = true
		}

		hint := deviceHint(ifaceDir)
		candidates = append(candidates, Candidate{Name: name, DriverBound: driverBound, DeviceHint: hint})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates, nil
}

func deviceHint(ifaceDir string) string {
	target, err := os.Readlink(filepath.Join(ifaceDir, "device"))
	if err != nil {
		return "unknown"
	}
	return filepath.Base(target)
}

// DetectUnboundPCIWifiDevices scans the PCI bus for wireless-class
// devices with no driver bound, the usual signature of missing
// firmware or an unsupported adapter.
func DetectUnboundPCIWifiDevices() ([]UnboundPCIDevice, error) {
	entries, err := os.ReadDir(sysBusPCIDevices)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ifaces: read %s: %w", sysBusPCIDevices, err)
	}

	var unbound []UnboundPCIDevice
	for _, entry := range entries {
		slot := entry.Name()
		devDir := filepath.Join(sysBusPCIDevices, slot)

		class, err := readTrimmed(filepath.Join(devDir, "class"))
		if err != nil || !strings.HasPrefix(class, wifiPCIClassPrefix) {
			continue
		}

		if _, err := os.Stat(filepath.Join(devDir, "driver")); err == nil {
			continue // driver is bound, not a candidate
		}

		vendor, _ := readTrimmed(filepath.Join(devDir, "vendor"))
		device, _ := readTrimmed(filepath.Join(devDir, "device"))
		unbound = append(unbound, UnboundPCIDevice{Slot: slot, Vendor: vendor, Device: device})
	}
	return unbound, nil
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Resolve turns a configured interface name (or "auto"/"") into a
// concrete, driver-bound wireless interface name, per the rules in
// SPEC_FULL.md §4.1.
func Resolve(configured string, log *zap.SugaredLogger) (string, error) {
	candidates, err := ListWirelessInterfaces()
	if err != nil {
		return "", err
	}

	if configured == "" || configured == "auto" {
		// candidates are sorted by name, so the first driver-bound one is
		// the lexicographically first.
		for _, c := range candidates {
			if c.DriverBound {
				return c.Name, nil
			}
		}
		return resolveAuto(candidates, log)
	}

	for _, c := range candidates {
		if c.Name != configured {
			continue
		}
		if c.DriverBound {
			return c.Name, nil
		}
		return "", fmt.Errorf(
			"wireless card detected for interface %q (device: %s) but no kernel driver is bound. "+
				"This usually indicates missing firmware or driver support for the adapter.",
			c.Name, c.DeviceHint)
	}

	// The configured name is absent: fall back to the only driver-bound
	// interface when there is exactly one.
	if name, err := resolveAuto(candidates, log); err == nil {
		return name, nil
	}

	names := candidateNames(candidates)
	return "", fmt.Errorf(
		"configured interface %q was not found. Detected wireless interfaces: %s. "+
			"Set --interface explicitly or use --interface auto.",
		configured, strings.Join(names, ", "))
}

func resolveAuto(candidates []Candidate, log *zap.SugaredLogger) (string, error) {
	var bound []Candidate
	for _, c := range candidates {
		if c.DriverBound {
			bound = append(bound, c)
		}
	}

	switch len(bound) {
	case 0:
		unbound, err := DetectUnboundPCIWifiDevices()
		if err != nil {
			return "", err
		}
		if len(unbound) > 0 {
			parts := make([]string, len(unbound))
			for i, d := range unbound {
				parts[i] = d.String()
			}
			return "", fmt.Errorf(
				"no wireless interface with a bound driver was found. Detected wireless-class PCI devices "+
					"with no driver bound (likely missing firmware): %s", strings.Join(parts, "; "))
		}
		return "", fmt.Errorf("no wireless network interface was found on this system")
	case 1:
		if log != nil {
			log.Warnw("configured interface not found, falling back to the only driver-bound wireless interface",
				"interface", bound[0].Name)
		}
		return bound[0].Name, nil
	default:
		names := candidateNames(bound)
		return "", fmt.Errorf(
			"multiple wireless interfaces with bound drivers were found: %s. "+
				"Set --interface explicitly to choose one.", strings.Join(names, ", "))
	}
}

func candidateNames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}
