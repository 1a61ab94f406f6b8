package platform

// IconExtractor produces PNG bytes for the shell icon of a file.
type IconExtractor interface {
	// ExtractIcon returns the icon of path rendered at size pixels. A file
	// without a shell icon yields nil bytes and a nil error.
	ExtractIcon(path string, size int) ([]byte, error)
}

// Opener hands a file or folder to the desktop shell.
type Opener interface {
	Open(path string) error
}
