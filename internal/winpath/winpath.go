// Package winpath manipulates shortcut paths with Windows semantics on every
// platform: both '\' and '/' separate elements, and environment references use
// the %NAME% form.
package winpath

import (
	"os"
	"strings"
)

// IsSeparator reports whether c separates path elements.
func IsSeparator(c byte) bool {
	return c == '\\' || c == '/'
}

func lastSeparator(path string) int {
	return strings.LastIndexAny(path, `\/`)
}

// Dir returns everything before the final separator, or "" if there is none.
func Dir(path string) string {
	i := lastSeparator(path)
	switch {
	case i < 0:
		return ""
	case i == 0:
		return path[:1]
	default:
		return path[:i]
	}
}

// Base returns the last element of path.
func Base(path string) string {
	return path[lastSeparator(path)+1:]
}

// Ext returns the extension of the last element, including the dot.
func Ext(path string) string {
	base := Base(path)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i:]
	}
	return ""
}

// Stem returns the last element without its extension.
func Stem(path string) string {
	base := Base(path)
	return base[:len(base)-len(Ext(base))]
}

// HasExt reports whether path ends with ext, ignoring ASCII case.
func HasExt(path, ext string) bool {
	return strings.EqualFold(Ext(path), ext)
}

// Join appends name to dir using the separator style dir already uses.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	if IsSeparator(dir[len(dir)-1]) {
		return dir + name
	}
	sep := `\`
	if strings.Contains(dir, "/") && !strings.Contains(dir, `\`) {
		sep = "/"
	}
	return dir + sep + name
}

// ExpandEnv replaces %NAME% references using the process environment.
func ExpandEnv(s string) string {
	return ExpandEnvFunc(s, os.LookupEnv)
}

// ExpandEnvFunc replaces %NAME% references using lookup. Unknown or empty
// references are left untouched, matching the shell's behaviour.
func ExpandEnvFunc(s string, lookup func(string) (string, bool)) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for {
		open := strings.IndexByte(s, '%')
		if open < 0 {
			break
		}
		end := strings.IndexByte(s[open+1:], '%')
		if end < 0 {
			break
		}
		name := s[open+1 : open+1+end]
		b.WriteString(s[:open])
		if value, ok := lookup(name); ok && name != "" {
			b.WriteString(value)
			s = s[open+2+end:]
			continue
		}
		// The closing '%' may open the next reference.
		b.WriteByte('%')
		s = s[open+1:]
	}
	b.WriteString(s)
	return b.String()
}
