//go:build windows

package platform

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	gdi32                    = windows.NewLazySystemDLL("gdi32.dll")
	procPrivateExtractIconsW = user32.NewProc("PrivateExtractIconsW")
	procDestroyIcon          = user32.NewProc("DestroyIcon")
	procGetIconInfo          = user32.NewProc("GetIconInfo")
	procGetDIBits            = gdi32.NewProc("GetDIBits")
	procCreateCompatibleDC   = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC             = gdi32.NewProc("DeleteDC")
	procDeleteObject         = gdi32.NewProc("DeleteObject")
)

// encodeMu serializes bitmap conversion and PNG encoding across the process.
var encodeMu sync.Mutex

const (
	biRGB        = 0
	dibRGBColors = 0
	// PrivateExtractIconsW reports a missing file this way.
	extractFailed = 0xFFFFFFFF
)

type iconInfo struct {
	fIcon    int32
	xHotspot uint32
	yHotspot uint32
	hbmMask  windows.Handle
	hbmColor windows.Handle
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

type bitmapInfo struct {
	header bitmapInfoHeader
	colors [3]uint32
}

// iconHandle owns an HICON until Release is called.
type iconHandle uintptr

func (h iconHandle) Release() {
	if h != 0 {
		procDestroyIcon.Call(uintptr(h))
	}
}

// ShellIconExtractor reads icons through the Windows shell.
type ShellIconExtractor struct{}

// NewShellIconExtractor returns the Windows shell icon extractor.
func NewShellIconExtractor() *ShellIconExtractor {
	return &ShellIconExtractor{}
}

// ExtractIcon implements IconExtractor.
func (e *ShellIconExtractor) ExtractIcon(path string, size int) ([]byte, error) {
	h, err := extractHandle(path, size)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, nil
	}
	defer h.Release()

	encodeMu.Lock()
	defer encodeMu.Unlock()

	img, err := iconToImage(h)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func extractHandle(path string, size int) (iconHandle, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	var hIcon uintptr
	var iconID uint32
	ret, _, _ := procPrivateExtractIconsW.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		0, // icon index
		uintptr(size),
		uintptr(size),
		uintptr(unsafe.Pointer(&hIcon)),
		uintptr(unsafe.Pointer(&iconID)),
		1, // number of icons
		0, // flags
	)
	if uint32(ret) == extractFailed {
		return 0, windows.ERROR_FILE_NOT_FOUND
	}
	if ret == 0 || hIcon == 0 {
		return 0, nil
	}
	return iconHandle(hIcon), nil
}

func iconToImage(h iconHandle) (image.Image, error) {
	var info iconInfo
	ret, _, err := procGetIconInfo.Call(uintptr(h), uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return nil, fmt.Errorf("GetIconInfo: %w", err)
	}
	defer procDeleteObject.Call(uintptr(info.hbmColor))
	defer procDeleteObject.Call(uintptr(info.hbmMask))

	if info.hbmColor == 0 {
		return nil, fmt.Errorf("monochrome icons are not supported")
	}

	hdc, _, _ := procCreateCompatibleDC.Call(0)
	if hdc == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(hdc)

	var bmi bitmapInfo
	bmi.header.biSize = uint32(unsafe.Sizeof(bmi.header))

	// Query dimensions only.
	ret, _, _ = procGetDIBits.Call(
		hdc,
		uintptr(info.hbmColor),
		0, 0,
		0,
		uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits: query failed")
	}

	width := int(bmi.header.biWidth)
	height := int(bmi.header.biHeight)
	if height < 0 {
		height = -height
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("empty bitmap")
	}

	bmi.header.biBitCount = 32
	bmi.header.biCompression = biRGB
	bmi.header.biHeight = int32(-height) // top-down rows
	bmi.header.biSizeImage = uint32(width * height * 4)

	pixels := make([]byte, bmi.header.biSizeImage)
	ret, _, _ = procGetDIBits.Call(
		hdc,
		uintptr(info.hbmColor),
		0,
		uintptr(height),
		uintptr(unsafe.Pointer(&pixels[0])),
		uintptr(unsafe.Pointer(&bmi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits: copy failed")
	}

	return imageFromBGRA(pixels, width, height), nil
}

// imageFromBGRA converts top-down BGRA rows into an RGBA image. Bitmaps
// without any alpha information are treated as fully opaque.
func imageFromBGRA(data []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	hasAlpha := false
	for i := 3; i < len(data); i += 4 {
		if data[i] != 0 {
			hasAlpha = true
			break
		}
	}

	for i := 0; i+3 < len(data) && i+3 < len(img.Pix); i += 4 {
		img.Pix[i+0] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i+0]
		if hasAlpha {
			img.Pix[i+3] = data[i+3]
		} else {
			img.Pix[i+3] = 0xFF
		}
	}
	return img
}
