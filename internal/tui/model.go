// Package tui is a terminal client for the daemon: it polls status over
// the IPC socket and lets the operator pick a network, type a password,
// and dispatch a connect or scan command. It has no key that sends a
// shutdown command; quitting the client leaves the daemon running.
package tui

import (
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	"charm.land/lipgloss/v2"

	"github.com/balaclava-guy/hyper-recovery/internal/ipc"
	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

const pollInterval = 2 * time.Second

type focusMode int

const (
	focusList focusMode = iota
	focusPassword
)

// Model is the root bubbletea model for the `tui` subcommand.
type Model struct {
	client       *ipc.Client
	status       *wifistate.Snapshot
	cursor       int
	focus        focusMode
	password     textinput.Model
	spinner      spinner.Model
	selectedSSID string
	statusLine   string
	width        int
	height       int
	quitting     bool
}

// New returns a model bound to a running daemon's IPC socket.
func New(socketPath string) Model {
	pw := textinput.New()
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '*'

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{client: ipc.NewClient(socketPath), password: pw, spinner: sp}
}

type statusMsg struct {
	snapshot *wifistate.Snapshot
	err      error
}

type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.client.GetStatus()
		return statusMsg{snapshot: snapshot, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), tickCmd())

	case statusMsg:
		if msg.err != nil {
			m.statusLine = "daemon unreachable: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.snapshot
		m.statusLine = ""
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusPassword {
		return m.handlePasswordKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	networks := m.networks()

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(networks)-1 {
			m.cursor++
		}
		return m, nil

	case "r":
		return m, m.sendScan()

	case "enter":
		if m.cursor >= len(networks) {
			return m, nil
		}
		network := networks[m.cursor]
		if !network.IsSecured {
			return m, m.sendConnect(network.SSID, "")
		}
		m.focus = focusPassword
		m.selectedSSID = network.SSID
		m.password.SetValue("")
		return m, m.password.Focus()
	}
	return m, nil
}

func (m Model) handlePasswordKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusList
		m.password.Blur()
		m.password.SetValue("")
		return m, nil

	case "enter":
		ssid := m.selectedSSID
		password := m.password.Value()
		m.focus = focusList
		m.password.Blur()
		m.password.SetValue("")
		return m, m.sendConnect(ssid, password)

	default:
		var cmd tea.Cmd
		m.password, cmd = m.password.Update(msg)
		return m, cmd
	}
}

func (m Model) networks() []wifistate.NetworkInfo {
	if m.status == nil {
		return nil
	}
	return m.status.AvailableNetworks
}

func (m Model) sendScan() tea.Cmd {
	return func() tea.Msg {
		_ = m.client.Scan()
		return nil
	}
}

func (m Model) sendConnect(ssid, password string) tea.Cmd {
	return func() tea.Msg {
		_ = m.client.Connect(ssid, password, true)
		return nil
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	out := titleStyle.Render("hyper-recovery") + "\n\n"

	if m.status != nil {
		out += "status: " + string(m.status.Status)
		if m.status.Status == wifistate.StatusConnecting {
			out += " " + m.spinner.View()
		}
		if m.status.ConnectedSSID != nil {
			out += "  connected: " + *m.status.ConnectedSSID
		}
		if m.status.APRunning && m.status.APSSID != nil {
			out += "  ap: " + *m.status.APSSID
		}
		out += "\n\n"
	}

	if m.statusLine != "" {
		out += dimStyle.Render(m.statusLine) + "\n\n"
	}

	networks := m.networks()
	if len(networks) == 0 {
		out += dimStyle.Render("no networks found yet (press r to rescan)") + "\n"
	}
	for i, n := range networks {
		line := n.SSID
		if n.IsSecured {
			line += " [secured]"
		}
		if i == m.cursor {
			out += selectedStyle.Render("> "+line) + "\n"
		} else {
			out += "  " + line + "\n"
		}
	}

	if m.focus == focusPassword {
		out += "\npassword for " + m.selectedSSID + ": " + m.password.View() + "\n"
	}

	out += "\n" + dimStyle.Render("up/down: select  enter: connect  r: rescan  q: quit")
	return out
}
