// Package portal serves the captive-portal HTTP surface: the
// self-rendered setup page, a small JSON API mirroring the IPC
// protocol, and the redirect/204 endpoints phones and laptops probe to
// detect a captive network.
package portal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"go.uber.org/zap"
)

// Server is the captive-portal HTTP server.
type Server struct {
	store    *wifistate.Store
	commands chan<- ipc.Command
	apIP     string
	log      *zap.SugaredLogger
	httpSrv  *http.Server
}

// New builds a portal server bound to 0.0.0.0:port.
func New(store *wifistate.Store, commands chan<- ipc.Command, apIP string, port uint16, log *zap.SugaredLogger) *Server {
	s := &Server{store: store, commands: commands, apIP: apIP, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/connect", s.handleAPIConnect)
	mux.HandleFunc("/api/scan", s.handleAPIScan)
	mux.HandleFunc("/api/backend", s.handleAPIBackend)
	mux.HandleFunc("/style.css", s.handleCSS)
	mux.HandleFunc("/generate_204", s.handleGenerate204)
	mux.HandleFunc("/hotspot-detect.html", s.handleCaptiveRedirect)
	mux.HandleFunc("/connecttest.txt", s.handleCaptiveRedirect)
	mux.HandleFunc("/ncsi.txt", s.handleCaptiveRedirect)
	mux.HandleFunc("/404", s.handleCaptiveRedirect)
	mux.Handle("/favicon.ico", http.NotFoundHandler())

	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: mux,
	}
	return s
}

// ListenAndServe runs the portal until ctx is cancelled or a fatal
// error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.log != nil {
			s.log.Infow("starting captive portal", "addr", s.httpSrv.Addr)
		}
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), portalShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
