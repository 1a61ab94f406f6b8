//go:build windows

package platform

import "golang.org/x/sys/windows"

// ShellOpener opens files with their registered handler via ShellExecute.
type ShellOpener struct{}

// NewShellOpener returns the Windows shell opener.
func NewShellOpener() *ShellOpener {
	return &ShellOpener{}
}

// Open implements Opener.
func (o *ShellOpener) Open(path string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	file, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return windows.ShellExecute(0, verb, file, nil, nil, windows.SW_SHOWNORMAL)
}
