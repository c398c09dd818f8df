package ipc

import (
	"bufio"
	"fmt"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
)

// Client is a short-lived connection to the daemon's IPC socket: each
// call dials, sends one request, reads one response, and closes the
// connection.
type Client struct {
	socketPath string
}

// NewClient returns a client bound to socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) roundTrip(req Request) (Response, error) {
	conn, err := Dial(c.socketPath)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	writer := bufio.NewWriter(conn)
	if err := writeLine(writer, req); err != nil {
		return Response{}, fmt.Errorf("ipc: send request: %w", err)
	}

	var resp Response
	if err := readLine(bufio.NewReader(conn), &resp); err != nil {
		return Response{}, fmt.Errorf("ipc: read response: %w", err)
	}
	if resp.Type == ResponseError {
		return Response{}, fmt.Errorf("ipc: daemon error: %s", resp.Error)
	}
	return resp, nil
}

// GetStatus fetches the daemon's current state snapshot.
func (c *Client) GetStatus() (*wifistate.Snapshot, error) {
	resp, err := c.roundTrip(Request{Type: RequestGetStatus})
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("ipc: daemon returned no status")
	}
	return resp.Status, nil
}

// Scan asks the daemon to rescan for networks.
func (c *Client) Scan() error {
	_, err := c.roundTrip(Request{Type: RequestScan})
	return err
}

// Connect asks the daemon to join ssid, optionally remembering the
// password for future auto-connect.
func (c *Client) Connect(ssid, password string, save bool) error {
	_, err := c.roundTrip(Request{Type: RequestConnect, SSID: ssid, Password: password, Save: &save})
	return err
}

// SwitchBackend asks the daemon to switch NetworkManager's WiFi backend.
func (c *Client) SwitchBackend(backend string) error {
	_, err := c.roundTrip(Request{Type: RequestSwitchBackend, Backend: backend})
	return err
}

// Shutdown asks the daemon to exit gracefully.
func (c *Client) Shutdown() error {
	_, err := c.roundTrip(Request{Type: RequestShutdown})
	return err
}
