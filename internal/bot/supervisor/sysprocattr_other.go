//go:build unix && !linux

package supervisor

import "syscall"

// buildSysProcAttr makes the bot its own process-group leader so signals
// reach the whole subtree. Pdeathsig is linux-only.
func buildSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
