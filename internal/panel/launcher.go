package panel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/Benny93/graphpanel/internal/protocol"
	"github.com/Benny93/graphpanel/internal/surface"
)

// Launcher starts a rendering surface and returns the host side of its
// transport. Closing the transport shuts the surface down.
type Launcher interface {
	Launch(ctx context.Context) (protocol.Transport, error)
}

// owned closes a transport and then runs stop.
type owned struct {
	protocol.Transport
	stop func() error
}

func (o owned) Close() error {
	err := o.Transport.Close()
	if serr := o.stop(); err == nil {
		err = serr
	}
	return err
}

// InProcessLauncher runs the surface on a goroutine connected by a pipe.
type InProcessLauncher struct {
	Options surface.Options

	// Started, when set, receives each surface once it exists.
	Started func(*surface.Surface)
}

// Launch implements Launcher.
func (l InProcessLauncher) Launch(ctx context.Context) (protocol.Transport, error) {
	host, end := protocol.NewPipe()
	s, err := surface.New(end, l.Options)
	if err != nil {
		host.Close()
		return nil, fmt.Errorf("creating surface: %w", err)
	}
	if l.Started != nil {
		l.Started(s)
	}

	exited := make(chan struct{})
	go func() {
		defer close(exited)
		if err := s.Run(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("surface stopped", "surface", s.ID, "error", err)
		}
	}()

	return owned{Transport: host, stop: func() error {
		_ = s.Close()
		<-exited
		return nil
	}}, nil
}

// ProcessLauncher runs the surface as a child process speaking
// newline-delimited JSON over its stdin and stdout.
type ProcessLauncher struct {
	// Path is the executable; empty means the running binary.
	Path string

	// Args follow the executable, e.g. {"surface", "--width", "1024"}.
	Args []string

	// Grace is how long Close waits for the child before killing it.
	Grace time.Duration
}

// Launch implements Launcher.
func (l ProcessLauncher) Launch(ctx context.Context) (protocol.Transport, error) {
	path := l.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
		path = exe
	}
	args := l.Args
	if len(args) == 0 {
		args = []string{"surface"}
	}

	cmd := exec.Command(path, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening surface stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening surface stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting surface: %w", err)
	}
	slog.Debug("surface process started", "pid", cmd.Process.Pid)

	grace := l.Grace
	if grace <= 0 {
		grace = 2 * time.Second
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	stream := protocol.NewStream(stdout, stdin, stdin)
	return owned{Transport: stream, stop: func() error {
		select {
		case <-exited:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-exited
		}
		return nil
	}}, nil
}

// RemoteLauncher connects to a surface served over websocket.
type RemoteLauncher struct {
	URL string
}

// Launch implements Launcher.
func (l RemoteLauncher) Launch(ctx context.Context) (protocol.Transport, error) {
	return protocol.DialWebSocket(ctx, l.URL)
}
