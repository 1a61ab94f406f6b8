//go:build darwin

package platform

import "os/exec"

// ShellOpener opens files through LaunchServices.
type ShellOpener struct{}

// NewShellOpener returns the macOS opener.
func NewShellOpener() *ShellOpener {
	return &ShellOpener{}
}

// Open implements Opener.
func (o *ShellOpener) Open(path string) error {
	return startDetached(exec.Command("open", path))
}
