//go:build linux

package supervisor

import "syscall"

// buildSysProcAttr makes the bot its own process-group leader so signals
// reach the whole subtree, and asks the kernel to SIGTERM it if the
// supervisor itself dies.
func buildSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGTERM,
		Setpgid:   true,
	}
}
