//go:build !windows

package platform

import "os/exec"

// startDetached launches cmd without waiting for it and reaps it in the
// background.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait() //nolint:errcheck
	return nil
}
