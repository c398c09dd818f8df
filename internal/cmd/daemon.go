package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/balaclava-guy/hyper-recovery/internal/config"
	"github.com/balaclava-guy/hyper-recovery/internal/ifaces"
	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/logging"
	"github.com/balaclava-guy/hyper-recovery/internal/netres"
	"github.com/balaclava-guy/hyper-recovery/internal/nmclient"
	"github.com/balaclava-guy/hyper-recovery/internal/orchestrator"
	"github.com/balaclava-guy/hyper-recovery/internal/portal"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the recovery WiFi daemon in the foreground",
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().String("interface", "", "wireless interface to manage (default: auto-detect)")
	daemonCmd.Flags().String("ssid", "", "SSID to broadcast while in recovery mode")
	daemonCmd.Flags().String("ap-ip", "", "IPv4 address for the access point (default: auto-select)")
	daemonCmd.Flags().Uint16("http-port", 0, "captive portal HTTP port")
	daemonCmd.Flags().Duration("grace-period", 0, "how long to wait for existing connectivity before falling back to AP mode")
	daemonCmd.Flags().String("log-level", "", "log level: debug, info, warn, error")
	daemonCmd.Flags().String("wifi-backend", "", "WiFi backend (iwd or wpa_supplicant) whose service is started before each connection attempt")
	daemonCmd.Flags().Bool("dev", false, "use development-mode logging (console format)")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	cfg, err := config.Load(configPathFlag(cmd), flags)
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	devMode, _ := flags.GetBool("dev")
	log, err := logging.New(cfg.LogLevel, devMode)
	if err != nil {
		return fmt.Errorf("daemon: build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	resolvedIface, err := ifaces.Resolve(cfg.Interface, log)
	if err != nil {
		return fmt.Errorf("daemon: resolve interface: %w", err)
	}
	cfg.Interface = resolvedIface

	resolvedIP, err := netres.Resolve(cfg.APIP, log)
	if err != nil {
		return fmt.Errorf("daemon: resolve access point subnet: %w", err)
	}
	cfg.APIP = resolvedIP

	nm, err := nmclient.New(log)
	if err != nil {
		return fmt.Errorf("daemon: connect to NetworkManager: %w", err)
	}
	defer nm.Close() //nolint:errcheck

	orch, err := orchestrator.New(cfg, log, nm)
	if err != nil {
		return fmt.Errorf("daemon: build orchestrator: %w", err)
	}

	socketPath := cfg.SocketPath
	if s, _ := flags.GetString("socket"); s != "" {
		socketPath = s
	}

	ipcServer := ipc.NewServer(socketPath, orch.Store(), orch.Commands(), log)
	if err := ipcServer.Listen(); err != nil {
		return fmt.Errorf("daemon: listen on ipc socket: %w", err)
	}
	defer ipcServer.Close() //nolint:errcheck

	portalServer := portal.New(orch.Store(), orch.Commands(), cfg.APIP, cfg.HTTPPort, log)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ipcServer.Serve() })
	g.Go(func() error {
		<-gctx.Done()
		return ipcServer.Close()
	})
	g.Go(func() error { return portalServer.ListenAndServe(gctx) })

	var orchErr error
	g.Go(func() error {
		orchErr = orch.Run(gctx)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warnw("component exited with error", "err", err)
	}

	log.Infow("hyper-recovery daemon stopped")
	if errors.Is(orchErr, context.Canceled) || errors.Is(orchErr, context.DeadlineExceeded) {
		return nil
	}
	return orchErr
}
