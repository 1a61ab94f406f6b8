//go:build !windows && !darwin

package platform

import "os/exec"

// ShellOpener opens files through xdg-open.
type ShellOpener struct{}

// NewShellOpener returns the freedesktop opener.
func NewShellOpener() *ShellOpener {
	return &ShellOpener{}
}

// Open implements Opener.
func (o *ShellOpener) Open(path string) error {
	return startDetached(exec.Command("xdg-open", path))
}
