//go:build !windows

package platform

// ShellIconExtractor has no shell icon source outside Windows; every file
// reports "no icon".
type ShellIconExtractor struct{}

// NewShellIconExtractor returns the no-op extractor.
func NewShellIconExtractor() *ShellIconExtractor {
	return &ShellIconExtractor{}
}

// ExtractIcon implements IconExtractor.
func (e *ShellIconExtractor) ExtractIcon(path string, size int) ([]byte, error) {
	return nil, nil
}
