package iconcache

import "time"

// Timestamps is the last-write-time triplet an icon was produced from. A
// missing file carries the filesystem's sentinel time, not a zero value.
type Timestamps struct {
	Shortcut time.Time
	PNG      time.Time
	ICO      time.Time
}

// Equal reports whether every timestamp in the triplet matches.
func (t Timestamps) Equal(other Timestamps) bool {
	return t.Shortcut.Equal(other.Shortcut) &&
		t.PNG.Equal(other.PNG) &&
		t.ICO.Equal(other.ICO)
}

// Entry is one cached icon result. HasIcon false with valid stamps is a
// confirmed "no icon" outcome and is served from cache like any other.
type Entry struct {
	Icon    []byte
	HasIcon bool
	Stamps  Timestamps
}
