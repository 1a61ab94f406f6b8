package testutils

import (
	"encoding/binary"
)

// PNGHeader returns a PNG signature and IHDR chunk declaring width x height,
// followed by payload. Only the header is meaningful.
func PNGHeader(width, height int, payload ...byte) []byte {
	b := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	b = binary.BigEndian.AppendUint32(b, 13)
	b = append(b, 'I', 'H', 'D', 'R')
	b = binary.BigEndian.AppendUint32(b, uint32(width))
	b = binary.BigEndian.AppendUint32(b, uint32(height))
	b = append(b, 8, 6, 0, 0, 0)
	return append(b, payload...)
}

// ICOHeader returns an ICO directory listing one square image per size.
// A size of 256 is stored as 0.
func ICOHeader(sizes ...int) []byte {
	b := binary.LittleEndian.AppendUint16(nil, 0)
	b = binary.LittleEndian.AppendUint16(b, 1)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(sizes)))
	for _, s := range sizes {
		dim := byte(s)
		if s >= 256 {
			dim = 0
		}
		entry := make([]byte, 16)
		entry[0], entry[1] = dim, dim
		b = append(b, entry...)
	}
	return b
}
