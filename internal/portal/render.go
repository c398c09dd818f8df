package portal

import (
	"html/template"
	"strings"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

var portalTemplate = template.Must(template.New("portal").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0, user-scalable=no">
  <title>Hyper Recovery - WiFi Setup</title>
  <link rel="stylesheet" href="/style.css">
</head>
<body>
  <div class="container">
    <header class="header">
      <h1 class="title">HYPER RECOVERY</h1>
      <p class="subtitle">WIFI SETUP MODULE</p>
    </header>

    <div id="status" class="status-bar {{.StatusClass}}">
      <span id="status-text">{{.StatusText}}</span>
    </div>

    <main class="network-list" id="network-list">
    {{range .Networks}}
      <button class="network-card" onclick="selectNetwork('{{.SSID}}', {{.IsSecured}})">
        <div class="network-info">
          <span class="lock-icon">{{if .IsSecured}}&#128274;{{else}}&#128275;{{end}}</span>
          <div class="network-details">
            <span class="ssid">{{.SSID}}</span>
            <span class="meta">CH {{.Channel}} {{.SecurityType}}</span>
          </div>
        </div>
        <div class="signal">
          <span class="signal-pct">{{.SignalStrength}}%</span>
        </div>
      </button>
    {{end}}
    </main>

    <button class="manual-btn" onclick="showManualEntry()">Enter Network Manually</button>
  </div>

  <div id="password-modal" class="modal hidden">
    <div class="modal-content">
      <h2>Enter Password</h2>
      <p id="modal-ssid"></p>
      <form id="connect-form" onsubmit="submitConnect(event)">
        <div class="input-group">
          <input type="password" id="password-input" placeholder="Password" required minlength="8">
        </div>
        <div class="modal-actions">
          <button type="button" class="btn-cancel" onclick="hideModal()">Cancel</button>
          <button type="submit" class="btn-connect">Connect</button>
        </div>
      </form>
    </div>
  </div>

  <div id="manual-modal" class="modal hidden">
    <div class="modal-content">
      <h2>Manual Network Entry</h2>
      <form id="manual-form" onsubmit="submitManual(event)">
        <div class="input-group">
          <input type="text" id="manual-ssid" placeholder="Network Name (SSID)" required>
        </div>
        <div class="input-group">
          <input type="password" id="manual-password" placeholder="Password (leave empty for open)">
        </div>
        <div class="modal-actions">
          <button type="button" class="btn-cancel" onclick="hideManualModal()">Cancel</button>
          <button type="submit" class="btn-connect">Connect</button>
        </div>
      </form>
    </div>
  </div>

  <script>
    let selectedSsid = '';

    function selectNetwork(ssid, secured) {
      selectedSsid = ssid;
      if (secured) {
        document.getElementById('modal-ssid').textContent = ssid;
        document.getElementById('password-input').value = '';
        document.getElementById('password-modal').classList.remove('hidden');
      } else {
        connect(ssid, '');
      }
    }

    function hideModal() { document.getElementById('password-modal').classList.add('hidden'); }
    function showManualEntry() { document.getElementById('manual-modal').classList.remove('hidden'); }
    function hideManualModal() { document.getElementById('manual-modal').classList.add('hidden'); }

    function submitConnect(e) {
      e.preventDefault();
      connect(selectedSsid, document.getElementById('password-input').value);
      hideModal();
    }

    function submitManual(e) {
      e.preventDefault();
      connect(document.getElementById('manual-ssid').value, document.getElementById('manual-password').value);
      hideManualModal();
    }

    async function connect(ssid, password) {
      updateStatus('Connecting to ' + ssid + '...', 'status-connecting');
      try {
        const response = await fetch('/api/connect', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({ ssid, password })
        });
        const data = await response.json();
        if (data.success) {
          updateStatus(data.message, 'status-connecting');
          pollStatus();
        } else {
          updateStatus('Error: ' + data.message, 'status-failed');
        }
      } catch (err) {
        updateStatus('Connection error: ' + err.message, 'status-failed');
      }
    }

    function updateStatus(text, className) {
      const statusBar = document.getElementById('status');
      const statusText = document.getElementById('status-text');
      statusBar.className = 'status-bar ' + className;
      statusText.textContent = text;
    }

    async function pollStatus() {
      try {
        const response = await fetch('/api/status');
        const data = await response.json();
        if (data.status === 'Connected') {
          updateStatus('Connected! You can close this page.', 'status-connected');
        } else if (data.status === 'Failed') {
          updateStatus('Failed: ' + (data.last_error || 'Unknown error'), 'status-failed');
        } else if (data.status === 'Connecting') {
          updateStatus('Connecting to ' + (data.connecting_to || 'network') + '...', 'status-connecting');
          setTimeout(pollStatus, 1000);
        }
      } catch (err) {
        updateStatus('Connection in progress...', 'status-connecting');
      }
    }

    setInterval(() => {
      if (!document.querySelector('.modal:not(.hidden)')) {
        location.reload();
      }
    }, 30000);
  </script>
</body>
</html>`))

type portalView struct {
	StatusClass string
	StatusText  string
	Networks    []wifistate.NetworkInfo
}

func renderPortalPage(snapshot wifistate.Snapshot) string {
	view := portalView{
		StatusClass: statusClass(snapshot.Status),
		StatusText:  statusText(snapshot),
		Networks:    snapshot.AvailableNetworks,
	}

	var buf strings.Builder
	// template.Must already validated the template at package init; a
	// render-time error here would mean a data/template mismatch, which
	// is a programmer error, not a runtime condition to recover from.
	if err := portalTemplate.Execute(&buf, view); err != nil {
		return "<html><body>internal error rendering portal page</body></html>"
	}
	return buf.String()
}

func statusClass(status wifistate.ConnectionStatus) string {
	switch status {
	case wifistate.StatusConnected:
		return "status-connected"
	case wifistate.StatusConnecting:
		return "status-connecting"
	case wifistate.StatusFailed:
		return "status-failed"
	default:
		return "status-waiting"
	}
}

func statusText(s wifistate.Snapshot) string {
	switch s.Status {
	case wifistate.StatusConnected:
		if s.ConnectedSSID != nil {
			return "Connected to " + *s.ConnectedSSID
		}
		return "Connected to network"
	case wifistate.StatusConnecting:
		if s.ConnectingTo != nil {
			return "Connecting to " + *s.ConnectingTo + "..."
		}
		return "Connecting to network..."
	case wifistate.StatusFailed:
		if s.LastError != nil {
			return "Failed: " + *s.LastError
		}
		return "Failed: Unknown error"
	default:
		return "Select a network to connect"
	}
}

const portalCSS = `
body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background: #0d1117; color: #e6edf3; }
.container { max-width: 480px; margin: 0 auto; padding: 24px 16px; }
.header { text-align: center; margin-bottom: 24px; }
.title { font-size: 1.5rem; letter-spacing: 0.1em; margin: 0; }
.subtitle { color: #8b949e; margin: 4px 0 0; font-size: 0.8rem; letter-spacing: 0.15em; }
.status-bar { padding: 12px 16px; border-radius: 8px; margin-bottom: 16px; background: #21262d; text-align: center; }
.status-connected { background: #1a7f37; }
.status-connecting { background: #9a6700; }
.status-failed { background: #a40e26; }
.network-list { display: flex; flex-direction: column; gap: 8px; }
.network-card { display: flex; justify-content: space-between; align-items: center; padding: 12px 16px; background: #161b22; border: 1px solid #30363d; border-radius: 8px; color: inherit; cursor: pointer; }
.network-details { display: flex; flex-direction: column; align-items: flex-start; margin-left: 8px; }
.ssid { font-weight: 600; }
.meta { font-size: 0.75rem; color: #8b949e; }
.manual-btn { width: 100%; margin-top: 16px; padding: 12px; background: transparent; border: 1px dashed #30363d; border-radius: 8px; color: #8b949e; }
.modal { position: fixed; inset: 0; background: rgba(0,0,0,0.6); display: flex; align-items: center; justify-content: center; }
.modal.hidden { display: none; }
.modal-content { background: #161b22; padding: 24px; border-radius: 12px; width: 90%; max-width: 360px; }
.input-group { margin-bottom: 12px; }
.input-group input { width: 100%; padding: 10px; border-radius: 6px; border: 1px solid #30363d; background: #0d1117; color: inherit; }
.modal-actions { display: flex; justify-content: flex-end; gap: 8px; }
.btn-connect { background: #238636; color: white; border: none; padding: 8px 16px; border-radius: 6px; }
.btn-cancel { background: transparent; color: #8b949e; border: 1px solid #30363d; padding: 8px 16px; border-radius: 6px; }
`
