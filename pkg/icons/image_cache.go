package icons

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"
)

// cachedIcon pairs an icon with its decoded image.
type cachedIcon struct {
	Icon
	mu    sync.Mutex
	image *image.RGBA
}

// ImageCache manages icon image loading and caching.
type ImageCache struct {
	icons map[string]*cachedIcon
	mu    sync.RWMutex
	stats CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits        int64 // Cache hits
	Misses      int64 // Cache misses (had to load)
	Loads       int64 // Total load operations
	PreloadFail int64 // Failed preloads
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		icons: make(map[string]*cachedIcon),
	}
}

// Register adds an icon to the cache, preloading its image if requested.
// Re-registering a name keeps an image that is already in memory; the
// icon's disk path only matters on a cache miss.
func (ic *ImageCache) Register(icon Icon) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	cached := &cachedIcon{Icon: icon}
	if prev, ok := ic.icons[icon.Name]; ok {
		prev.mu.Lock()
		cached.image = prev.image
		prev.mu.Unlock()
	}

	if icon.Preload && cached.image == nil {
		img, err := loadPNG(icon.Path)
		if err != nil {
			ic.stats.PreloadFail++
			return fmt.Errorf("failed to preload icon %s: %w", icon.Name, err)
		}
		cached.image = img
		ic.stats.Loads++
	}

	ic.icons[icon.Name] = cached
	return nil
}

// Get retrieves an icon's image, loading it on first use.
func (ic *ImageCache) Get(name string) (*image.RGBA, Icon, error) {
	ic.mu.RLock()
	cached, ok := ic.icons[name]
	ic.mu.RUnlock()

	if !ok {
		return nil, Icon{}, fmt.Errorf("icon '%s' not found in cache", name)
	}

	cached.mu.Lock()
	defer cached.mu.Unlock()

	if cached.image != nil {
		ic.bump(func(s *CacheStats) { s.Hits++ })
		return cached.image, cached.Icon, nil
	}

	img, err := loadPNG(cached.Path)
	if err != nil {
		ic.bump(func(s *CacheStats) { s.Misses++ })
		return nil, Icon{}, fmt.Errorf("failed to load icon %s: %w", name, err)
	}

	cached.image = img
	ic.bump(func(s *CacheStats) { s.Misses++; s.Loads++ })
	return img, cached.Icon, nil
}

// Put stores a pre-decoded image for an icon, registering it if needed.
// Used by tests and by callers that synthesize icons in memory.
func (ic *ImageCache) Put(icon Icon, img *image.RGBA) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.icons[icon.Name] = &cachedIcon{Icon: icon, image: img}
}

// Stats returns a copy of the cache statistics.
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

// Clear drops every cached image.
func (ic *ImageCache) Clear() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	for _, cached := range ic.icons {
		cached.mu.Lock()
		cached.image = nil
		cached.mu.Unlock()
	}
}

func (ic *ImageCache) bump(fn func(*CacheStats)) {
	ic.mu.Lock()
	fn(&ic.stats)
	ic.mu.Unlock()
}

// loadPNG decodes a PNG file into RGBA.
func loadPNG(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba, nil
}
