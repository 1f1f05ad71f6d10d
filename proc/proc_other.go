//go:build !unix

package proc

import "os/exec"

func setGroup(cmd *exec.Cmd) {}

func signalGroup(cmd *exec.Cmd, kill bool) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
