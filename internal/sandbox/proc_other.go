//go:build !unix

package sandbox

import "os/exec"

// Process groups are a POSIX concept; on other platforms the runner kills
// only the direct child.
func SetProcessGroup(cmd *exec.Cmd) {}

func KillProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
