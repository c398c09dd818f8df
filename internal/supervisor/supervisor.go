// Package supervisor spawns, monitors, and tears down the two daemons
// that drive access-point mode: a beacon daemon (hostapd) and a
// DHCP/DNS daemon (dnsmasq). Each is tracked as a managed child process
// whose stdout/stderr are piped into the structured logger.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Child tracks one supervised subprocess: its command, its live
// *os.Process once started, and the pipe-drain goroutines relaying its
// output into the logger. The exit of the underlying process is
// observed exactly once by an internal goroutine started in Start, so
// Wait/Kill/SettleAndCheck can all consult the same result instead of
// racing the kernel's own reaping of the process.
type Child struct {
	name  string
	cmd   *exec.Cmd
	log   *zap.SugaredLogger
	pipes int
	pipeDone chan struct{}

	waitOnce sync.Once
	exitCh   chan struct{}
	exitErr  error

	mu     sync.Mutex
	exited bool
}

// NewChild prepares (but does not start) a supervised child process.
func NewChild(log *zap.SugaredLogger, name, execPath string, args ...string) *Child {
	return &Child{
		name:   name,
		cmd:    exec.Command(execPath, args...),
		log:    log,
		exitCh: make(chan struct{}),
	}
}

func (c *Child) handlePipe(level string, r io.ReadCloser) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if c.log != nil {
			switch level {
			case "stderr":
				c.log.Debugw(scanner.Text(), "component", c.name, "stream", "stderr")
			default:
				c.log.Debugw(scanner.Text(), "component", c.name, "stream", "stdout")
			}
		}
	}
	c.pipeDone <- struct{}{}
}

// Start launches the process, piping its stdout/stderr into the logger
// with a component-tagged prefix, and begins watching for its exit.
func (c *Child) Start() error {
	c.pipeDone = make(chan struct{})

	if stdout, err := c.cmd.StdoutPipe(); err == nil {
		c.pipes++
		go c.handlePipe("stdout", stdout)
	}
	if stderr, err := c.cmd.StderrPipe(); err == nil {
		c.pipes++
		go c.handlePipe("stderr", stderr)
	}

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: start %s: %w", c.name, err)
	}
	if c.log != nil {
		c.log.Infow("started child process", "component", c.name, "pid", c.cmd.Process.Pid)
	}

	go c.watch()
	return nil
}

// watch drains the output pipes, reaps the process, and records its
// exit exactly once so every caller of Wait/Kill/SettleAndCheck
// observes the same outcome.
func (c *Child) watch() {
	c.waitOnce.Do(func() {
		for i := 0; i < c.pipes; i++ {
			<-c.pipeDone
		}
		c.exitErr = c.cmd.Wait()
		c.mu.Lock()
		c.exited = true
		c.mu.Unlock()
		close(c.exitCh)
	})
}

// Wait blocks until the process exits and its output pipes drain.
func (c *Child) Wait() error {
	<-c.exitCh
	return c.exitErr
}

// Running reports whether the process is believed to still be alive,
// i.e. its exit has not yet been observed.
func (c *Child) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exited
}

// Pid returns the child's process ID, or 0 if it hasn't started.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Kill sends SIGTERM, then escalates to SIGKILL if the process hasn't
// exited within the grace period.
func (c *Child) Kill(grace time.Duration) error {
	if c.cmd.Process == nil {
		return nil
	}

	if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("supervisor: SIGTERM %s: %w", c.name, err)
	}

	select {
	case <-c.exitCh:
		return nil
	case <-time.After(grace):
		if err := c.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
			return fmt.Errorf("supervisor: SIGKILL %s: %w", c.name, err)
		}
		<-c.exitCh
		return nil
	}
}

// SettleAndCheck starts the process, waits a short settle period, and
// confirms it hasn't already exited (the usual signature of a bad
// config file or conflicting device lock).
func (c *Child) SettleAndCheck(ctx context.Context, settle time.Duration) error {
	if err := c.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.exitCh:
		return fmt.Errorf("supervisor: %s exited immediately after starting: %w", c.name, c.exitErr)
	case <-time.After(settle):
		return nil
	}
}
