package cv

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenCapturer captures from a physical display via the screenshot
// library. Display 0 is the primary monitor.
type ScreenCapturer struct {
	display int
	bounds  image.Rectangle
}

// NewScreenCapturer creates a capturer bound to the given display index.
func NewScreenCapturer(display int) (*ScreenCapturer, error) {
	if display < 0 || display >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("display %d not available (%d active)", display, screenshot.NumActiveDisplays())
	}

	return &ScreenCapturer{
		display: display,
		bounds:  screenshot.GetDisplayBounds(display),
	}, nil
}

// CaptureRect grabs the given rectangle, clamped to the display bounds.
func (sc *ScreenCapturer) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	clamped := rect.Intersect(sc.bounds)
	if clamped.Empty() {
		return nil, fmt.Errorf("capture rect %v outside display bounds %v", rect, sc.bounds)
	}

	img, err := screenshot.CaptureRect(clamped)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}

	return img, nil
}

// GetDimensions returns the display dimensions.
func (sc *ScreenCapturer) GetDimensions() (width, height int) {
	return sc.bounds.Dx(), sc.bounds.Dy()
}
