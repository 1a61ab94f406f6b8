package platform

import (
	"bytes"
	"fmt"

	"github.com/fogleman/gg"
	ico "github.com/sergeymakinen/go-ico"
)

// ConvertICOToPNG re-encodes the largest image of an ICO file as PNG.
func ConvertICOToPNG(icoBytes []byte) ([]byte, error) {
	// ico.Decode reads the stream directly; image.Decode's format sniffing
	// consumes the header first and trips on some shell-extracted files.
	icon, err := ico.Decode(bytes.NewReader(icoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ICO: %w", err)
	}

	dc := gg.NewContextForImage(icon)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
