// Package imageheader reads pixel dimensions from PNG and ICO headers without
// decoding image data.
package imageheader

import (
	"bytes"
	"encoding/binary"
	"io"
)

const (
	pngHeaderLen   = 24
	icoHeaderLen   = 6
	icoEntryLen    = 16
	icoTypeIcon    = 1
	icoFullDimSize = 256
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Size is a pixel width and height.
type Size struct {
	Width  int
	Height int
}

// Area returns Width*Height.
func (s Size) Area() int {
	return s.Width * s.Height
}

// PNGDimensions returns the dimensions recorded in a PNG's IHDR chunk.
// The chunk is assumed to follow the signature directly; its length and type
// fields are not checked.
func PNGDimensions(r io.Reader) (Size, bool) {
	header := make([]byte, pngHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Size{}, false
	}
	if !bytes.Equal(header[:len(pngMagic)], pngMagic) {
		return Size{}, false
	}

	return Size{
		Width:  int(int32(binary.BigEndian.Uint32(header[16:20]))),
		Height: int(int32(binary.BigEndian.Uint32(header[20:24]))),
	}, true
}

// MaxICODimensions returns the largest image (by area) listed in an ICO
// directory. A truncated directory yields the best entry read before the
// truncation.
func MaxICODimensions(r io.Reader) (Size, bool) {
	header := make([]byte, icoHeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Size{}, false
	}

	reserved := binary.LittleEndian.Uint16(header[0:2])
	kind := binary.LittleEndian.Uint16(header[2:4])
	if reserved != 0 || kind != icoTypeIcon {
		return Size{}, false
	}

	count := int(binary.LittleEndian.Uint16(header[4:6]))
	if count == 0 {
		return Size{}, false
	}

	var best Size
	entry := make([]byte, icoEntryLen)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			break
		}

		// A stored 0 means 256 pixels.
		size := Size{Width: int(entry[0]), Height: int(entry[1])}
		if size.Width == 0 {
			size.Width = icoFullDimSize
		}
		if size.Height == 0 {
			size.Height = icoFullDimSize
		}

		if size.Area() > best.Area() {
			best = size
		}
	}

	if best.Area() == 0 {
		return Size{}, false
	}
	return best, true
}
