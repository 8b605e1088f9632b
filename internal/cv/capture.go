package cv

import (
	"image"
)

// Capturer produces a raster image of a screen rectangle on demand. A nil
// image with a nil error is never returned; an unavailable surface is an
// error the caller downgrades to UNKNOWN.
type Capturer interface {
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
	GetDimensions() (width, height int)
}
