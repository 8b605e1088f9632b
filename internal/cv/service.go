package cv

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// Service wraps a Capturer with a short-lived frame cache so that the
// monitoring loop and the execution engine's verification step can share a
// frame instead of re-capturing within the cache window.
type Service struct {
	capturer Capturer

	cachedFrame     *image.RGBA
	cachedFrameRect image.Rectangle
	cachedFrameTime time.Time
	cacheDuration   time.Duration

	mu sync.Mutex
}

// NewService creates a capture service with the default 50ms cache window.
func NewService(capturer Capturer) *Service {
	return NewServiceWithCache(capturer, 50*time.Millisecond)
}

// NewServiceWithCache creates a capture service with a custom cache window.
func NewServiceWithCache(capturer Capturer, cacheDuration time.Duration) *Service {
	return &Service{
		capturer:      capturer,
		cacheDuration: cacheDuration,
	}
}

// CaptureRect captures the given rectangle, reusing a cached frame when the
// same rectangle was captured within the cache window.
func (s *Service) CaptureRect(rect image.Rectangle, useCache bool) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if useCache && s.cachedFrame != nil && s.cachedFrameRect == rect {
		if time.Since(s.cachedFrameTime) < s.cacheDuration {
			return s.cachedFrame, nil
		}
	}

	frame, err := s.capturer.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("capture rect %v: %w", rect, err)
	}

	if useCache {
		s.cachedFrame = frame
		s.cachedFrameRect = rect
		s.cachedFrameTime = time.Now()
	}

	return frame, nil
}

// CaptureRegion is CaptureRect for the Region type.
func (s *Service) CaptureRegion(region Region, useCache bool) (*image.RGBA, error) {
	return s.CaptureRect(region.ToImageRectangle(), useCache)
}

// InvalidateCache forces next capture to get a fresh frame
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cachedFrame = nil
}

// GetDimensions returns the capture dimensions
func (s *Service) GetDimensions() (width, height int) {
	return s.capturer.GetDimensions()
}
