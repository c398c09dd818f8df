// Package orchestrator is the top-level state machine: it checks for
// existing connectivity, waits out a grace period, scans and tries a
// saved network, falls back to AP mode plus the captive portal, and
// then serves a single-consumer command loop until told to shut down.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/backend"
	"github.com/balaclava-guy/hyper-recovery/internal/config"
	"github.com/balaclava-guy/hyper-recovery/internal/credentials"
	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/nmclient"
	"github.com/balaclava-guy/hyper-recovery/internal/supervisor"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"go.uber.org/zap"
)

// Orchestrator owns the state store, the NetworkManager client, the
// access point supervisor, and the command bus that the IPC server and
// HTTP portal post onto.
type Orchestrator struct {
	cfg      *config.DaemonConfig
	log      *zap.SugaredLogger
	store    *wifistate.Store
	nm       *nmclient.Client
	ap       *supervisor.AccessPoint
	creds    *credentials.Store
	commands chan ipc.Command
}

// New builds an Orchestrator around an already-resolved configuration
// (interface and AP IP must be concrete, not "auto", by this point).
func New(cfg *config.DaemonConfig, log *zap.SugaredLogger, nm *nmclient.Client) (*Orchestrator, error) {
	creds, err := credentials.LoadFrom(cfg.CredentialsDB)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load credentials: %w", err)
	}

	return &Orchestrator{
		cfg:      cfg,
		log:      log,
		store:    wifistate.NewStore(),
		nm:       nm,
		ap:       supervisor.NewAccessPoint(log),
		creds:    creds,
		commands: make(chan ipc.Command, 32),
	}, nil
}

// Store exposes the state store for the IPC server and HTTP portal to
// read (and subscribe to).
func (o *Orchestrator) Store() *wifistate.Store { return o.store }

// Commands exposes the send side of the command bus for the IPC
// server and HTTP portal.
func (o *Orchestrator) Commands() chan<- ipc.Command { return o.commands }

// Run drives the full daemon lifecycle until ctx is cancelled or a
// Shutdown command is received. It returns nil on a clean connect or
// shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	devicePath, err := o.nm.GetWifiDevice(o.cfg.Interface)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve device: %w", err)
	}

	o.log.Infow("checking for existing network connectivity")
	if connected, err := o.nm.CheckConnectivity(); err == nil && connected {
		o.log.Infow("already connected to a network, exiting")
		return nil
	}

	o.log.Infow("waiting grace period for network", "seconds", o.cfg.GracePeriod.Seconds())
	graceCtx, cancel := context.WithTimeout(ctx, o.cfg.GracePeriod)
	graceErr := o.nm.WaitForConnectivity(graceCtx)
	cancel()
	if graceErr == nil {
		o.log.Infow("network connected during grace period, exiting")
		return nil
	}

	o.log.Infow("no connectivity, scanning for networks")
	o.store.Update(func(s *wifistate.WifiState) { s.Status = wifistate.StatusScanning })

	networks, err := o.nm.Scan(ctx, devicePath)
	if err != nil {
		return fmt.Errorf("orchestrator: initial scan: %w", err)
	}

	if best, ok := o.creds.BestKnownNetwork(networks); ok {
		password, _ := o.creds.GetPassword(best.SSID)
		o.log.Infow("found saved credentials for available network, attempting auto-connect",
			"ssid", best.SSID, "signal", best.SignalStrength)

		err := o.nm.Connect(ctx, nmclient.ConnectRequest{
			Interface:   o.cfg.Interface,
			SSID:        best.SSID,
			Password:    password,
			BackendUnit: o.wifiBackendUnit(),
		})
		if err == nil {
			o.log.Infow("auto-connected using saved credentials", "ssid", best.SSID)
			o.creds.SaveCredential(best.SSID, password)
			if err := o.creds.SaveTo(o.cfg.CredentialsDB); err != nil {
				o.log.Warnw("failed to save credentials", "err", err)
			}
			return nil
		}
		o.log.Warnw("auto-connect failed, will start access point", "ssid", best.SSID, "err", err)
	}

	now := time.Now()
	o.store.Update(func(s *wifistate.WifiState) {
		s.AvailableNetworks = networks
		s.Status = wifistate.StatusAwaitingCredentials
		s.LastScan = &now
	})

	o.log.Infow("starting access point and portal")
	if err := o.ap.Start(ctx, o.nm, o.cfg.Interface, o.cfg.SSID, o.cfg.APIP); err != nil {
		return fmt.Errorf("orchestrator: start access point: %w", err)
	}

	portalURL := "http://" + o.cfg.APIP
	o.store.Update(func(s *wifistate.WifiState) {
		s.APRunning = true
		s.APSSID = wifistate.StringPtr(o.cfg.SSID)
		s.PortalURL = wifistate.StringPtr(portalURL)
	})

	return o.controlLoop(ctx)
}

// wifiBackendUnit returns the systemd unit to nudge before a connect
// attempt, if a backend was explicitly configured.
func (o *Orchestrator) wifiBackendUnit() string {
	if o.cfg.WifiBackend == "" {
		return ""
	}
	return backend.UnitForBackend(wifistate.WifiBackend(o.cfg.WifiBackend))
}

func (o *Orchestrator) controlLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			o.log.Infow("context cancelled, shutting down")
			o.teardown(context.Background())
			return ctx.Err()

		case cmd := <-o.commands:
			switch cmd.Kind {
			case ipc.CommandScan:
				o.handleScan(ctx)

			case ipc.CommandConnect:
				if done, err := o.handleConnect(ctx, cmd); done {
					o.teardown(context.Background())
					return err
				}

			case ipc.CommandSwitchBackend:
				o.handleSwitchBackend(ctx, cmd.Backend)

			case ipc.CommandShutdown:
				o.log.Infow("shutdown requested")
				o.teardown(context.Background())
				return nil
			}
		}
	}
}

func (o *Orchestrator) handleScan(ctx context.Context) {
	devicePath, err := o.nm.GetWifiDevice(o.cfg.Interface)
	if err != nil {
		o.log.Warnw("rescan: could not resolve device", "err", err)
		return
	}
	networks, err := o.nm.Scan(ctx, devicePath)
	if err != nil {
		o.log.Warnw("rescan failed", "err", err)
		return
	}
	now := time.Now()
	o.store.Update(func(s *wifistate.WifiState) {
		s.AvailableNetworks = networks
		s.LastScan = &now
	})
}

// handleConnect attempts to join the requested network. It returns
// done=true when the control loop should exit (a successful connection
// ends the recovery session).
func (o *Orchestrator) handleConnect(ctx context.Context, cmd ipc.Command) (done bool, err error) {
	o.log.Infow("connection requested", "ssid", cmd.SSID, "save", cmd.Save)

	o.store.Update(func(s *wifistate.WifiState) {
		s.Status = wifistate.StatusConnecting
		s.ConnectingTo = wifistate.StringPtr(cmd.SSID)
		s.LastError = nil
	})

	// Give the portal a short window to render "connecting" before AP teardown.
	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-time.After(1200 * time.Millisecond):
	}

	if stopErr := o.ap.Stop(ctx, o.nm, o.cfg.Interface); stopErr != nil {
		o.log.Warnw("failed to stop access point cleanly", "err", stopErr)
	}

	connectErr := o.nm.Connect(ctx, nmclient.ConnectRequest{
		Interface:   o.cfg.Interface,
		SSID:        cmd.SSID,
		Password:    cmd.Password,
		BackendUnit: o.wifiBackendUnit(),
	})

	if connectErr == nil {
		o.log.Infow("successfully connected to wifi", "ssid", cmd.SSID)

		if reachable, err := nmclient.VerifyInternetReachability(); err != nil {
			o.log.Debugw("reachability probe failed to run", "err", err)
		} else if !reachable {
			o.log.Warnw("connected but internet probe got no reply, network may be gated", "ssid", cmd.SSID)
		}

		if cmd.Save {
			o.creds.SaveCredential(cmd.SSID, cmd.Password)
			if err := o.creds.SaveTo(o.cfg.CredentialsDB); err != nil {
				o.log.Warnw("failed to save credentials", "err", err)
			} else {
				o.log.Infow("saved wifi credentials", "ssid", cmd.SSID)
			}
		}

		o.store.Update(func(s *wifistate.WifiState) {
			s.Status = wifistate.StatusConnected
			s.ConnectedSSID = wifistate.StringPtr(cmd.SSID)
			s.ConnectingTo = nil
			s.APRunning = false
		})

		// Give the client time to observe DHCP reassignment before exit.
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
		return true, nil
	}

	o.log.Errorw("failed to connect", "ssid", cmd.SSID, "err", connectErr)

	if startErr := o.ap.Start(ctx, o.nm, o.cfg.Interface, o.cfg.SSID, o.cfg.APIP); startErr != nil {
		o.log.Errorw("failed to restart access point", "err", startErr)
	}

	errMsg := connectErr.Error()
	o.store.Update(func(s *wifistate.WifiState) {
		s.Status = wifistate.StatusFailed
		s.ConnectingTo = nil
		s.LastError = &errMsg
		s.APRunning = true
	})
	return false, nil
}

func (o *Orchestrator) handleSwitchBackend(ctx context.Context, target string) {
	o.log.Infow("backend switch requested", "target", target)
	o.store.Update(func(s *wifistate.WifiState) { s.Status = wifistate.StatusSwitchingBackend })

	if err := backend.Switch(ctx, wifistate.WifiBackend(target), o.log); err != nil {
		o.log.Errorw("backend switch failed", "target", target, "err", err)
		errMsg := err.Error()
		o.store.Update(func(s *wifistate.WifiState) {
			s.Status = wifistate.StatusAwaitingCredentials
			s.LastError = &errMsg
		})
		return
	}

	o.store.Update(func(s *wifistate.WifiState) {
		s.Status = wifistate.StatusAwaitingCredentials
		s.WifiBackend = wifistate.BackendPtr(wifistate.WifiBackend(target))
	})
}

func (o *Orchestrator) teardown(ctx context.Context) {
	o.log.Infow("cleaning up")
	if err := o.ap.Stop(ctx, o.nm, o.cfg.Interface); err != nil {
		o.log.Warnw("error during final access point teardown", "err", err)
	}
}
