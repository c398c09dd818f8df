package nmclient

import (
	"time"

	ping "github.com/prometheus-community/pro-bing"
)

// reachabilityTarget is pinged to confirm a connection NetworkManager
// reports as "full connectivity" actually reaches the internet, not
// just a gateway that answers DHCP but drops everything past it.
const reachabilityTarget = "1.1.1.1"

// VerifyInternetReachability sends a small ICMP probe and reports
// whether it got any reply at all. It is a best-effort supplement to
// NetworkManager's own Connectivity property, not a replacement for
// it — a firewall that blocks ICMP produces a false negative here, so
// callers should treat failure as a warning sign, not a hard failure.
func VerifyInternetReachability() (bool, error) {
	pinger, err := ping.NewPinger(reachabilityTarget)
	if err != nil {
		return false, err
	}
	pinger.Count = 2
	pinger.Timeout = 3 * time.Second

	if err := pinger.Run(); err != nil {
		return false, err
	}

	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, nil
}
