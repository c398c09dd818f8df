package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/backend"
	"github.com/balaclava-guy/hyper-recovery/internal/nmclient"
	"go.uber.org/zap"
)

const (
	runtimeDir     = "/run/hyper-recovery"
	hostapdConfig  = runtimeDir + "/hyper-hostapd.conf"
	dnsmasqConfig  = runtimeDir + "/hyper-dnsmasq.conf"
	dnsmasqLeases  = runtimeDir + "/dnsmasq.leases"
	dnsmasqPidFile = runtimeDir + "/dnsmasq.pid"

	hostapdSettle   = 2 * time.Second
	dnsmasqSettle   = 500 * time.Millisecond
	killGracePeriod = 3 * time.Second
	backendStopWait = 6 * time.Second
	linkWaitTimeout = 6 * time.Second
)

const hostapdConfigTemplate = `interface=%s
driver=nl80211
ssid=%s
hw_mode=g
channel=6
wmm_enabled=0
macaddr_acl=0
auth_algs=1
ignore_broadcast_ssid=0
wpa=0
`

const dnsmasqConfigTemplate = `interface=%s
listen-address=%s
bind-interfaces
dhcp-leasefile=%s
pid-file=%s
dhcp-range=%s,%s,255.255.255.0,12h
dhcp-option=option:router,%s
dhcp-option=option:dns-server,%s
address=/#/%s
`

// AccessPoint supervises the beacon daemon (hostapd) and DHCP/DNS
// daemon (dnsmasq) that together serve the recovery network.
type AccessPoint struct {
	log     *zap.SugaredLogger
	hostapd *Child
	dnsmasq *Child

	stoppedBackendUnit string
}

// NewAccessPoint returns an idle AccessPoint supervisor.
func NewAccessPoint(log *zap.SugaredLogger) *AccessPoint {
	return &AccessPoint{log: log}
}

// Start prepares the device and link (releasing it from NetworkManager,
// stopping the competing WiFi-backend service, waiting for the station
// link to settle), writes hostapd/dnsmasq configs, and launches both
// daemons, verifying each survives its settle period before considering
// the AP up. On any failure it restores the device and backend before
// returning.
func (a *AccessPoint) Start(ctx context.Context, nm *nmclient.Client, interfaceName, ssid, apIP string) error {
	if a.log != nil {
		a.log.Infow("starting access point", "interface", interfaceName, "ssid", ssid, "ip", apIP)
	}

	nm.ReleaseDevice(interfaceName)

	unit, err := a.stopBackendUnit(ctx, interfaceName)
	if err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return err
	}
	a.stoppedBackendUnit = unit

	if err := waitLinkNotConnected(ctx, interfaceName, linkWaitTimeout); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: %w", err)
	}

	_ = exec.CommandContext(ctx, "ip", "link", "set", interfaceName, "down").Run()
	_ = exec.CommandContext(ctx, "ip", "addr", "flush", "dev", interfaceName).Run()

	if err := exec.CommandContext(ctx, "ip", "addr", "add", apIP+"/24", "dev", interfaceName).Run(); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: set AP IP address: %w", err)
	}
	if err := exec.CommandContext(ctx, "ip", "link", "set", interfaceName, "up").Run(); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: bring up AP interface: %w", err)
	}

	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: create runtime dir: %w", err)
	}

	hostapdConf := fmt.Sprintf(hostapdConfigTemplate, interfaceName, ssid)
	if err := os.WriteFile(hostapdConfig, []byte(hostapdConf), 0o644); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: write hostapd config: %w", err)
	}

	dhcpStart, dhcpEnd, err := dhcpRange(apIP)
	if err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return err
	}
	dnsmasqConf := fmt.Sprintf(dnsmasqConfigTemplate, interfaceName, apIP, dnsmasqLeases, dnsmasqPidFile,
		dhcpStart, dhcpEnd, apIP, apIP, apIP)
	if err := os.WriteFile(dnsmasqConfig, []byte(dnsmasqConf), 0o644); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: write dnsmasq config: %w", err)
	}

	a.hostapd = NewChild(a.log, "hostapd", "hostapd", "-d", hostapdConfig)
	if err := a.hostapd.SettleAndCheck(ctx, hostapdSettle); err != nil {
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: hostapd: %w", err)
	}

	a.dnsmasq = NewChild(a.log, "dnsmasq", "dnsmasq", "--keep-in-foreground", "--no-daemon", "--conf-file="+dnsmasqConfig)
	if err := a.dnsmasq.SettleAndCheck(ctx, dnsmasqSettle); err != nil {
		a.hostapd.Kill(killGracePeriod)
		a.restoreDevice(ctx, nm, interfaceName)
		return fmt.Errorf("supervisor: dnsmasq: %w", err)
	}

	if a.log != nil {
		a.log.Infow("access point started")
	}
	return nil
}

// stopBackendUnit determines the currently configured WiFi backend
// service and stops it so it no longer competes with hostapd for
// exclusive control of the radio, waiting for systemd to report it
// inactive. Returns the unit name it stopped (empty if the backend
// could not be determined, which is logged but non-fatal).
func (a *AccessPoint) stopBackendUnit(ctx context.Context, interfaceName string) (string, error) {
	current, err := backend.Query()
	if err != nil {
		if a.log != nil {
			a.log.Warnw("could not determine active wifi backend, skipping explicit stop", "err", err)
		}
		return "", nil
	}

	unit := backend.UnitForBackend(current)
	_ = exec.CommandContext(ctx, "systemctl", "stop", unit).Run()
	if err := backend.WaitInactive(ctx, unit, backendStopWait); err != nil {
		return "", fmt.Errorf("supervisor: wait for %s to stop: %w", unit, err)
	}
	return unit, nil
}

// waitLinkNotConnected polls the station link state via the kernel
// WiFi CLI until it reports "Not connected" or the timeout elapses.
func waitLinkNotConnected(ctx context.Context, interfaceName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		out, err := exec.CommandContext(ctx, "iw", "dev", interfaceName, "link").Output()
		if err == nil && strings.Contains(string(out), "Not connected") {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for %s to report not connected", interfaceName)
}

// restoreDevice re-enables whichever WiFi-backend unit Start stopped
// and hands the device back to NetworkManager. Best-effort, used both
// on AP bring-up failure and on normal teardown.
func (a *AccessPoint) restoreDevice(ctx context.Context, nm *nmclient.Client, interfaceName string) {
	if a.stoppedBackendUnit != "" {
		if err := exec.CommandContext(ctx, "systemctl", "start", a.stoppedBackendUnit).Run(); err != nil && a.log != nil {
			a.log.Warnw("failed to restart wifi backend unit during restore", "unit", a.stoppedBackendUnit, "err", err)
		}
		a.stoppedBackendUnit = ""
	}
	nm.ReclaimDevice(interfaceName)
}

// Stop kills both daemons (SIGTERM then SIGKILL on timeout), sweeps for
// stray processes matching the config paths, removes runtime files, and
// restores the device/backend to NetworkManager's control.
func (a *AccessPoint) Stop(ctx context.Context, nm *nmclient.Client, interfaceName string) error {
	if a.log != nil {
		a.log.Infow("stopping access point")
	}

	if a.dnsmasq != nil {
		if err := a.dnsmasq.Kill(killGracePeriod); err != nil && a.log != nil {
			a.log.Warnw("error stopping dnsmasq", "err", err)
		}
	}
	_ = exec.CommandContext(ctx, "pkill", "-f", dnsmasqConfig).Run()

	if a.hostapd != nil {
		if err := a.hostapd.Kill(killGracePeriod); err != nil && a.log != nil {
			a.log.Warnw("error stopping hostapd", "err", err)
		}
	}
	_ = exec.CommandContext(ctx, "pkill", "-f", hostapdConfig).Run()

	for _, f := range []string{hostapdConfig, dnsmasqConfig, dnsmasqLeases, dnsmasqPidFile} {
		_ = os.Remove(f)
	}

	a.restoreDevice(ctx, nm, interfaceName)

	if a.log != nil {
		a.log.Infow("access point stopped")
	}
	return nil
}

func dhcpRange(apIP string) (start, end string, err error) {
	ip := net.ParseIP(apIP).To4()
	if ip == nil {
		return "", "", fmt.Errorf("supervisor: invalid AP IP %q", apIP)
	}
	start = fmt.Sprintf("%d.%d.%d.10", ip[0], ip[1], ip[2])
	end = fmt.Sprintf("%d.%d.%d.250", ip[0], ip[1], ip[2])
	return start, end, nil
}
