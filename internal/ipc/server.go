package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"

	"github.com/balaclava-guy/hyper-recovery/internal/wifistate"
	"go.uber.org/zap"
)

// CommandKind discriminates the commands the IPC server forwards onto
// the orchestrator's command bus.
type CommandKind string

const (
	CommandScan          CommandKind = "scan"
	CommandConnect       CommandKind = "connect"
	CommandSwitchBackend CommandKind = "switch_backend"
	CommandShutdown      CommandKind = "shutdown"
)

// Command is what the IPC server (and the HTTP portal) hand to the
// orchestrator's single-consumer command loop.
type Command struct {
	Kind     CommandKind
	SSID     string
	Password string
	Save     bool
	Backend  string
}

// Server accepts client connections on a Unix socket, reads one
// newline-delimited JSON request at a time, and either answers directly
// from the state store (GetStatus) or forwards a Command onto the bus.
type Server struct {
	store      *wifistate.Store
	commands   chan<- Command
	log        *zap.SugaredLogger
	socketPath string
	listener   net.Listener
}

// NewServer prepares an IPC server bound to socketPath. The socket is
// removed and recreated on Listen to recover from an unclean shutdown.
func NewServer(socketPath string, store *wifistate.Store, commands chan<- Command, log *zap.SugaredLogger) *Server {
	return &Server{store: store, commands: commands, log: log, socketPath: socketPath}
}

// Listen binds the Unix socket. Call Serve afterward to accept
// connections.
func (s *Server) Listen() error {
	_ = os.Remove(s.socketPath)
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Serve accepts and handles connections until the listener is closed.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if s.log != nil {
				s.log.Warnw("ipc: accept failed", "err", err)
			}
			continue
		}
		go s.handleClient(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		var req Request
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF && s.log != nil {
				s.log.Debugw("ipc: client read error", "err", err)
			}
			return
		}

		var resp Response
		if err := json.Unmarshal(line, &req); err != nil {
			resp = Response{Type: ResponseError, Error: "malformed request: " + err.Error()}
		} else {
			resp = s.handle(req)
		}

		if err := writeLine(writer, resp); err != nil {
			if s.log != nil {
				s.log.Debugw("ipc: client write error", "err", err)
			}
			return
		}
	}
}

func (s *Server) handle(req Request) Response {
	switch req.Type {
	case RequestGetStatus:
		snapshot := s.store.Get().ToSnapshot()
		return Response{Type: ResponseStatus, Status: &snapshot}

	case RequestScan:
		s.send(Command{Kind: CommandScan})
		return Response{Type: ResponseOk}

	case RequestConnect:
		s.send(Command{Kind: CommandConnect, SSID: req.SSID, Password: req.Password, Save: req.ShouldSave()})
		return Response{Type: ResponseOk}

	case RequestSwitchBackend:
		s.send(Command{Kind: CommandSwitchBackend, Backend: req.Backend})
		return Response{Type: ResponseOk}

	case RequestShutdown:
		s.send(Command{Kind: CommandShutdown})
		return Response{Type: ResponseOk}

	default:
		return Response{Type: ResponseError, Error: "unknown request type: " + string(req.Type)}
	}
}

func (s *Server) send(cmd Command) {
	select {
	case s.commands <- cmd:
	default:
		if s.log != nil {
			s.log.Warnw("ipc: command bus full, dropping command", "kind", cmd.Kind)
		}
	}
}
