package imageheader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pngHeader(width, height uint32) []byte {
	buf := make([]byte, 24)
	copy(buf, pngMagic)
	binary.BigEndian.PutUint32(buf[8:12], 13)
	copy(buf[12:16], "IHDR")
	binary.BigEndian.PutUint32(buf[16:20], width)
	binary.BigEndian.PutUint32(buf[20:24], height)
	return buf
}

func icoFile(sizes ...[2]byte) []byte {
	buf := make([]byte, 6, 6+16*len(sizes))
	binary.LittleEndian.PutUint16(buf[2:4], 1)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(sizes)))
	for _, s := range sizes {
		entry := make([]byte, 16)
		entry[0], entry[1] = s[0], s[1]
		buf = append(buf, entry...)
	}
	return buf
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestPNGDimensions(t *testing.T) {
	size, ok := PNGDimensions(bytes.NewReader(pngHeader(64, 48)))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 64, Height: 48}, size)
}

func TestPNGDimensions_IgnoresIHDRFields(t *testing.T) {
	buf := make([]byte, 24)
	copy(buf, pngMagic)
	binary.BigEndian.PutUint32(buf[16:20], 64)
	binary.BigEndian.PutUint32(buf[20:24], 48)

	size, ok := PNGDimensions(bytes.NewReader(buf))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 64, Height: 48}, size)
}

func TestPNGDimensions_Rejects(t *testing.T) {
	corrupt := pngHeader(64, 48)
	corrupt[0] = 0x00

	tests := map[string][]byte{
		"corrupt magic": corrupt,
		"short stream":  pngHeader(64, 48)[:10],
		"empty stream":  {},
		"23 bytes":      pngHeader(64, 48)[:23],
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := PNGDimensions(bytes.NewReader(data))
			assert.False(t, ok)
		})
	}

	_, ok := PNGDimensions(failingReader{})
	assert.False(t, ok)
}

func TestMaxICODimensions(t *testing.T) {
	size, ok := MaxICODimensions(bytes.NewReader(icoFile([2]byte{16, 16}, [2]byte{48, 48}, [2]byte{32, 32})))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 48, Height: 48}, size)
}

func TestMaxICODimensions_ZeroMeans256(t *testing.T) {
	size, ok := MaxICODimensions(bytes.NewReader(icoFile([2]byte{48, 48}, [2]byte{0, 0})))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 256, Height: 256}, size)

	size, ok = MaxICODimensions(bytes.NewReader(icoFile([2]byte{0, 32})))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 256, Height: 32}, size)
}

func TestMaxICODimensions_TruncatedEntryKeepsBest(t *testing.T) {
	data := icoFile([2]byte{16, 16}, [2]byte{64, 64}, [2]byte{128, 128})
	data = data[:len(data)-5]

	size, ok := MaxICODimensions(bytes.NewReader(data))
	assert.True(t, ok)
	assert.Equal(t, Size{Width: 64, Height: 64}, size)
}

func TestMaxICODimensions_Rejects(t *testing.T) {
	cursor := icoFile([2]byte{32, 32})
	cursor[2] = 2

	reserved := icoFile([2]byte{32, 32})
	reserved[0] = 1

	truncatedFirst := icoFile([2]byte{32, 32})[:10]

	tests := map[string][]byte{
		"cursor type":   cursor,
		"reserved set":  reserved,
		"zero count":    icoFile(),
		"short header":  {0, 0, 1},
		"no full entry": truncatedFirst,
		"empty":         {},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := MaxICODimensions(bytes.NewReader(data))
			assert.False(t, ok)
		})
	}
}
