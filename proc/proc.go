// Package proc manages the ffmpeg helper processes used for camera input and
// video encoding.
package proc

import (
	"os/exec"
	"time"
)

// DefaultGrace is how long a helper gets to exit after SIGTERM.
const DefaultGrace = 2 * time.Second

// Start launches cmd in its own process group and returns a channel that
// receives the Wait result exactly once.
func Start(cmd *exec.Cmd) (<-chan error, error) {
	setGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return waitCh, nil
}

// Terminate signals the group with SIGTERM, escalates to SIGKILL after grace
// and returns the Wait error. Safe on commands that were never started.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil || waitCh == nil {
		return nil
	}
	_ = signalGroup(cmd, false)
	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
		_ = signalGroup(cmd, true)
		return <-waitCh
	}
}
