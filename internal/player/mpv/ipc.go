package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/diniamo/gopv"
)

// conn is the subset of the mpv IPC protocol the element uses.
type conn interface {
	get(name string) (any, error)
	set(name string, value any) error
	loadFile(src string) error
	quit() error
}

type gopvConn struct {
	client *gopv.Client
}

func (c *gopvConn) get(name string) (any, error) {
	return c.client.Request("get_property", name)
}

func (c *gopvConn) set(name string, value any) error {
	_, err := c.client.Request("set_property", name, value)
	return err
}

func (c *gopvConn) loadFile(src string) error {
	_, err := c.client.Request("loadfile", src, "replace")
	return err
}

func (c *gopvConn) quit() error {
	_, err := c.client.Request("quit")
	return err
}

// session is one running mpv process.
type session struct {
	conn conn
	// exited receives the process exit status; nil for sessions without a
	// process.
	exited <-chan error
	stop   func()
}

// launcher starts a session.
type launcher func(ctx context.Context) (*session, error)

// processLauncher starts a real mpv process and connects to its IPC server.
func processLauncher(platform Platform, opts Options, logger *slog.Logger) launcher {
	return func(ctx context.Context) (*session, error) {
		exe, err := FindExecutable(platform, opts.Executable)
		if err != nil {
			return nil, err
		}
		ipc, err := NewIPCConfig(platform)
		if err != nil {
			return nil, fmt.Errorf("allocate ipc address: %w", err)
		}

		cmd := exec.Command(exe, buildArgs(ipc, opts)...)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
		detach(cmd)
		if err := cmd.Start(); err != nil {
			ipc.Cleanup()
			return nil, fmt.Errorf("start %s: %w", exe, err)
		}

		kill := func() {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
			ipc.Cleanup()
		}

		if err := waitForIPC(ctx, ipc); err != nil {
			kill()
			return nil, err
		}
		client, err := gopv.Connect(ipc.DialString(), func(err error) {
			logger.Debug("mpv ipc closed", "error", err)
		})
		if err != nil {
			kill()
			return nil, fmt.Errorf("connect to mpv ipc at %s: %w", ipc.Address, err)
		}

		exited := make(chan error, 1)
		go func() { exited <- cmd.Wait() }()

		c := &gopvConn{client: client}
		return &session{
			conn:   c,
			exited: exited,
			stop: func() {
				// gopv closes itself on EOF once mpv is gone.
				done := make(chan struct{})
				go func() {
					_ = c.quit()
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(500 * time.Millisecond):
				}
				kill()
			},
		}, nil
	}
}

// waitForIPC polls until the IPC endpoint accepts connections.
func waitForIPC(ctx context.Context, ipc *IPCConfig) error {
	limit := 5 * time.Second
	if ipc.Type != IPCUnixSocket {
		limit = 10 * time.Second
	}
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("timeout waiting for mpv ipc at %s after %v", ipc.Address, limit)
		case <-ticker.C:
			if endpointReady(ipc) {
				return nil
			}
		}
	}
}

func endpointReady(ipc *IPCConfig) bool {
	switch ipc.Type {
	case IPCUnixSocket:
		_, err := os.Stat(ipc.Address)
		return err == nil
	case IPCTCP:
		c, err := net.DialTimeout("tcp", ipc.Address, 200*time.Millisecond)
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	case IPCNamedPipe:
		return pipeReady(ipc.Address)
	}
	return false
}

var errIPCUnresponsive = errors.New("mpv ipc unresponsive")
