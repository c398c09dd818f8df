// Package netres resolves a non-conflicting private /24 for the access
// point, consulting the host's current IPv4 address assignments via
// netlink rather than shelling out to "ip".
package netres

import (
	"fmt"
	"net"

	"github.com/jsimonetti/rtnetlink"
	"go.uber.org/zap"
)

// Candidates is the fixed priority list of AP IPs tried in order.
var Candidates = []string{
	"192.168.42.1",
	"10.42.0.1",
	"172.20.42.1",
	"192.168.88.1",
	"10.123.0.1",
}

// OccupiedIPv4Prefixes lists the /24 prefixes ("a.b.c") currently
// assigned to any interface on the host, read from the kernel's address
// table over rtnetlink.
func OccupiedIPv4Prefixes() (map[string]bool, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("netres: dial rtnetlink: %w", err)
	}
	defer conn.Close()

	addrs, err := conn.Address.List()
	if err != nil {
		return nil, fmt.Errorf("netres: list addresses: %w", err)
	}

	prefixes := map[string]bool{}
	for _, a := range addrs {
		ip := a.Attributes.Address
		if ip == nil {
			continue
		}
		v4 := ip.To4()
		if v4 == nil {
			continue
		}
		prefixes[fmt.Sprintf("%d.%d.%d", v4[0], v4[1], v4[2])] = true
	}
	return prefixes, nil
}

// Resolve turns a configured AP IP (or "auto"/"") into a concrete
// dotted-quad. For "auto" it picks the first candidate whose /24 isn't
// already occupied on the host; if all collide it warns and returns the
// first candidate anyway.
func Resolve(configured string, log *zap.SugaredLogger) (string, error) {
	if configured != "" && configured != "auto" {
		ip := net.ParseIP(configured).To4()
		if ip == nil {
			return "", fmt.Errorf("netres: invalid AP IP address: %q", configured)
		}
		return configured, nil
	}

	occupied, err := OccupiedIPv4Prefixes()
	if err != nil {
		// Best-effort: if we can't enumerate addresses, fall back to the
		// first candidate rather than failing AP setup outright.
		if log != nil {
			log.Warnw("could not enumerate host IPv4 addresses, using first AP IP candidate",
				"err", err, "candidate", Candidates[0])
		}
		return Candidates[0], nil
	}

	for _, candidate := range Candidates {
		prefix := prefixOf(candidate)
		if !occupied[prefix] {
			return candidate, nil
		}
	}

	if log != nil {
		log.Warnw("all AP IP candidates collide with existing host addresses, using the first anyway",
			"candidate", Candidates[0])
	}
	return Candidates[0], nil
}

func prefixOf(dottedQuad string) string {
	ip := net.ParseIP(dottedQuad).To4()
	if ip == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", ip[0], ip[1], ip[2])
}
