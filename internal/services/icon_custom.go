package services

import (
	"io"

	"launchbox/internal/fsys"
	"launchbox/internal/iconcache"
	"launchbox/internal/imageheader"
	"launchbox/internal/metrics"
	"launchbox/internal/pathsec"
)

// customIcon loads the preferred custom icon, or returns nil when there is
// none usable. With both formats present the larger image wins and PNG wins
// ties.
func (s *IconService) customIcon(pngPath, icoPath string, stamps iconcache.Timestamps) ([]byte, string) {
	hasPNG := pngPath != "" && fsys.IsValidTime(stamps.PNG)
	hasICO := icoPath != "" && fsys.IsValidTime(stamps.ICO)

	var chosen, source string
	switch {
	case hasPNG && hasICO:
		chosen, source = pngPath, metrics.SourceCustomPNG
		pngArea := s.imageArea(pngPath, imageheader.PNGDimensions)
		icoArea := s.imageArea(icoPath, imageheader.MaxICODimensions)
		if icoArea > pngArea {
			chosen, source = icoPath, metrics.SourceCustomICO
		}
	case hasPNG:
		chosen, source = pngPath, metrics.SourceCustomPNG
	case hasICO:
		chosen, source = icoPath, metrics.SourceCustomICO
	default:
		return nil, ""
	}

	size, err := s.fs.FileSize(chosen)
	if err != nil {
		s.logger.Warn("Failed to stat custom icon",
			"path", pathsec.RedactPath(chosen),
			"error", pathsec.SafeErrorMessage(err))
		return nil, ""
	}
	if size > s.cfg.MaxIconFileSize {
		s.logger.Warn("Blocked loading of large icon file",
			"path", pathsec.RedactPath(chosen),
			"size", size)
		s.metrics.ObserveBlocked(metrics.ReasonOversize)
		return nil, ""
	}

	data, err := s.fs.ReadFile(chosen)
	if err != nil {
		s.logger.Warn("Failed to load custom icon",
			"path", pathsec.RedactPath(chosen),
			"error", pathsec.SafeErrorMessage(err))
		return nil, ""
	}
	if len(data) == 0 {
		return nil, ""
	}
	return data, source
}

// imageArea returns the pixel area read from the header of the image at
// path, or 0 when it cannot be determined.
func (s *IconService) imageArea(path string, parse func(io.Reader) (imageheader.Size, bool)) int {
	f, err := s.fs.Open(path)
	if err != nil {
		s.logger.Debug("Failed to open icon header",
			"path", pathsec.RedactPath(path),
			"error", pathsec.SafeErrorMessage(err))
		return 0
	}
	defer f.Close()

	size, ok := parse(f)
	if !ok {
		return 0
	}
	return size.Area()
}
