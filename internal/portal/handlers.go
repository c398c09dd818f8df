package portal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

const portalShutdownTimeout = 5 * time.Second

type connectRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
	Save     *bool  `json:"save,omitempty"`
}

type backendRequest struct {
	Backend string `json:"backend"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// The "/" pattern also matches every unregistered path.
	if r.URL.Path != "/" {
		s.handleCaptiveRedirect(w, r)
		return
	}
	snapshot := s.store.Get().ToSnapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderPortalPage(snapshot))
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Get().ToSnapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (s *Server) handleAPIConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, apiResponse{Success: false, Message: "invalid request: " + err.Error()})
		return
	}

	save := true
	if req.Save != nil {
		save = *req.Save
	}

	select {
	case s.commands <- ipc.Command{Kind: ipc.CommandConnect, SSID: req.SSID, Password: req.Password, Save: save}:
		writeJSON(w, apiResponse{Success: true, Message: fmt.Sprintf("Connecting to %s...", req.SSID)})
	default:
		writeJSON(w, apiResponse{Success: false, Message: "daemon is busy, try again"})
	}
}

func (s *Server) handleAPIScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	select {
	case s.commands <- ipc.Command{Kind: ipc.CommandScan}:
		writeJSON(w, apiResponse{Success: true, Message: "Scan initiated"})
	default:
		writeJSON(w, apiResponse{Success: false, Message: "daemon is busy, try again"})
	}
}

func (s *Server) handleAPIBackend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req backendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, apiResponse{Success: false, Message: "invalid request: " + err.Error()})
		return
	}
	select {
	case s.commands <- ipc.Command{Kind: ipc.CommandSwitchBackend, Backend: req.Backend}:
		writeJSON(w, apiResponse{Success: true, Message: fmt.Sprintf("Switching WiFi backend to %s...", req.Backend)})
	default:
		writeJSON(w, apiResponse{Success: false, Message: "daemon is busy, try again"})
	}
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	fmt.Fprint(w, portalCSS)
}

// handleGenerate204 answers Android's captive-portal probe: a 204 means
// "no captive portal, you're free", which is only true once connected.
func (s *Server) handleGenerate204(w http.ResponseWriter, r *http.Request) {
	if s.store.Get().Status == wifistate.StatusConnected {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.redirectToPortal(w, r)
}

// handleCaptiveRedirect answers iOS/Windows captive-portal probes
// (hotspot-detect.html, connecttest.txt, ncsi.txt) and the catch-all
// fallback by redirecting to the portal root.
func (s *Server) handleCaptiveRedirect(w http.ResponseWriter, r *http.Request) {
	s.redirectToPortal(w, r)
}

func (s *Server) redirectToPortal(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, fmt.Sprintf("http://%s/", s.apIP), http.StatusFound)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
