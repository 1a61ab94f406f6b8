// Package pathsec classifies shortcut and icon paths before any filesystem
// call is made.
//
// On Windows, merely opening a UNC or NT-object path (an INI read, an icon
// extraction, a stat) can start an implicit network authentication handshake.
// A crafted shortcut could turn icon loading into a credential-leak probe, so
// every path is checked here first and ambiguous input is treated as unsafe.
package pathsec

import (
	"net/url"
	"path/filepath"
	"reflect"
	"strings"

	"launchbox/internal/winpath"
)

const (
	longPathPrefix  = `\\?\`
	ntObjectPrefix  = `\??\`
	longPathUNC     = `\\?\UNC`
	invalidPathChar = `|<>"*`
)

// Sentinels returned by RedactPath for input that has no usable file name.
const (
	RedactedEmpty   = "[Empty Path]"
	RedactedRoot    = "[Root Path]"
	RedactedInvalid = "[Invalid Path]"
)

// IsUnsafePath reports whether path must not be touched by the filesystem.
// Blank input is not unsafe; rejecting empty paths is the caller's concern.
func IsUnsafePath(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}

	if hasInvalidChars(path) {
		return true
	}

	// \??\ resolves to the same targets as UNC and DOS paths.
	if hasPrefixFold(path, ntObjectPrefix) {
		return true
	}

	if hasPrefixFold(path, longPathUNC) {
		return true
	}

	// Long paths are only accepted in literal drive form: \\?\C:\...
	if strings.HasPrefix(path, longPathPrefix) {
		return !(len(path) >= 7 &&
			isASCIILetter(path[4]) &&
			path[5] == ':' &&
			path[6] == '\\')
	}

	if strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//") ||
		strings.HasPrefix(path, `/\`) || strings.HasPrefix(path, `\/`) {
		return true
	}

	return resolvesToUNC(path)
}

// hasInvalidChars rejects characters the shell never accepts in file names.
// A '?' is only allowed as the third character of the long-path prefix.
func hasInvalidChars(path string) bool {
	if strings.ContainsAny(path, invalidPathChar) || strings.IndexByte(path, 0) >= 0 {
		return true
	}

	q := strings.IndexByte(path, '?')
	if q < 0 {
		return false
	}
	if q != 2 || !strings.HasPrefix(path, longPathPrefix) {
		return true
	}
	return strings.IndexByte(path[q+1:], '?') >= 0
}

// resolvesToUNC canonicalizes path and reports whether the result points at
// a network location. Any failure counts as unsafe.
func resolvesToUNC(path string) bool {
	full, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	if isUNCForm(full) {
		return true
	}

	for _, candidate := range []string{path, full} {
		if !hasPrefixFold(candidate, "file:") {
			continue
		}
		u, err := url.Parse(strings.ReplaceAll(candidate, `\`, "/"))
		if err != nil {
			return true
		}
		if u.Host != "" && !strings.EqualFold(u.Host, "localhost") {
			return true
		}
		if strings.HasPrefix(u.Path, "//") {
			return true
		}
	}
	return false
}

func isUNCForm(path string) bool {
	return len(path) >= 2 && winpath.IsSeparator(path[0]) && winpath.IsSeparator(path[1])
}

// RedactPath reduces path to "...\<file name>" so that directory names
// (user names, project names) never reach a log sink.
func RedactPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return RedactedEmpty
	}
	if strings.IndexByte(path, 0) >= 0 {
		return RedactedInvalid
	}

	trimmed := strings.TrimRight(path, `\/`)
	if trimmed == "" {
		return RedactedRoot
	}

	name := winpath.Base(trimmed)
	if name == "" {
		return RedactedInvalid
	}
	return `...\` + name
}

// SafeErrorMessage returns only the error's type name. Error text from the
// filesystem routinely embeds full paths and is discarded.
func SafeErrorMessage(err error) string {
	if err == nil {
		return "[Unknown Error]"
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return "[" + name + "]"
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
