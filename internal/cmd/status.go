package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current state of a running daemon",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) error {
	client := ipc.NewClient(socketPathFlag(cmd))
	snapshot, err := client.GetStatus()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	printStatus(*snapshot)
	return nil
}

func printStatus(s wifistate.Snapshot) {
	fmt.Printf("status: %s\n", s.Status)

	if s.ConnectedSSID != nil {
		fmt.Printf("connected to: %s\n", *s.ConnectedSSID)
	}
	if s.ConnectingTo != nil {
		fmt.Printf("connecting to: %s\n", *s.ConnectingTo)
	}
	if s.WifiBackend != nil {
		fmt.Printf("wifi backend: %s\n", *s.WifiBackend)
	}
	if s.LastError != nil {
		fmt.Printf("last error: %s\n", *s.LastError)
	}

	if s.APRunning {
		fmt.Println("access point: running")
		if s.APSSID != nil {
			fmt.Printf("  ssid: %s\n", *s.APSSID)
		}
		if s.PortalURL != nil {
			fmt.Printf("  portal: %s\n", *s.PortalURL)
		}
	} else {
		fmt.Println("access point: stopped")
	}

	if s.LastScanSecsAgo != nil {
		fmt.Printf("last scan: %ds ago\n", *s.LastScanSecsAgo)
	}

	fmt.Printf("available networks: %d\n", len(s.AvailableNetworks))
	for _, n := range s.AvailableNetworks {
		security := "open"
		if n.IsSecured {
			security = n.SecurityType
		}
		fmt.Printf("  %-32s %3d%%  %s\n", n.SSID, n.SignalStrength, security)
	}
}
