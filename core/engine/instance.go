// Package engine runs the external proxy engine processes and measures
// delay through them.
package engine

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"v2ray-launcher/internal/debuglog"
	"v2ray-launcher/internal/platform"
)

// Status is the outcome reported by Start and Stop.
type Status string

const (
	StatusStarted        Status = "started"
	StatusAlreadyRunning Status = "already running"
	StatusStopped        Status = "stopped"
	StatusNotRunning     Status = "not running"
	StatusFailed         Status = "failed"
)

// gracefulShutdownTimeout is the maximum time to wait for graceful shutdown
// before forcing kill
const gracefulShutdownTimeout = 2 * time.Second

// execCommand is replaced in tests.
var execCommand = exec.Command

// Instance owns at most one engine process. All methods are safe for concurrent use.
type Instance struct {
	name       string
	enginePath string
	logOut     io.Writer

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewInstance returns a stopped instance. Engine output goes to logOut; nil discards it.
func NewInstance(name, enginePath string, logOut io.Writer) *Instance {
	if logOut == nil {
		logOut = io.Discard
	}
	return &Instance{name: name, enginePath: enginePath, logOut: logOut}
}

func (i *Instance) Name() string { return i.name }

func (i *Instance) logger() zerolog.Logger {
	return debuglog.WithComponent("engine").With().Str("instance", i.Name()).Logger()
}

// Start launches the engine with configPath unless a process is already running.
func (i *Instance) Start(configPath string) (Status, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.runningLocked() {
		return StatusAlreadyRunning, nil
	}

	cmd := execCommand(i.enginePath, "-config", configPath)
	platform.PrepareCommand(cmd)
	cmd.Stdout = i.logOut
	cmd.Stderr = i.logOut
	if err := cmd.Start(); err != nil {
		debuglog.ErrorLog("engine[%s]: failed to start %s: %v", i.name, i.enginePath, err)
		return StatusFailed, fmt.Errorf("start %s engine: %w", i.name, err)
	}

	done := make(chan struct{})
	i.cmd = cmd
	i.done = done
	log := i.logger()
	log.Debug().Int("pid", cmd.Process.Pid).Str("config", configPath).Msg("started")

	go func() {
		err := cmd.Wait()
		log.Debug().Int("pid", cmd.Process.Pid).Err(err).Msg("exited")
		close(done)
	}()

	return StatusStarted, nil
}

// Stop terminates the running process, waiting for it to exit.
func (i *Instance) Stop() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.runningLocked() {
		i.cmd, i.done = nil, nil
		return StatusNotRunning
	}

	cmd, done := i.cmd, i.done
	if runtime.GOOS == "windows" {
		_ = cmd.Process.Kill()
	} else if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(gracefulShutdownTimeout):
		debuglog.WarnLog("engine[%s]: PID=%d did not exit in %v, killing", i.name, cmd.Process.Pid, gracefulShutdownTimeout)
		_ = cmd.Process.Kill()
		<-done
	}

	i.cmd, i.done = nil, nil
	log := i.logger()
	log.Debug().Int("pid", cmd.Process.Pid).Msg("stopped")
	return StatusStopped
}

// Restart stops the running process, if any, and starts a new one.
func (i *Instance) Restart(configPath string) (Status, error) {
	i.Stop()
	return i.Start(configPath)
}

// Running reports whether the process is alive.
func (i *Instance) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.runningLocked()
}

// PID returns the process id of the running engine, or 0.
func (i *Instance) PID() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.runningLocked() {
		return 0
	}
	return i.cmd.Process.Pid
}

func (i *Instance) runningLocked() bool {
	if i.cmd == nil || i.done == nil {
		return false
	}
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}
