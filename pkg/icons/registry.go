package icons

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Icon describes one reference icon image.
type Icon struct {
	Name      string
	Path      string
	Threshold float64
	Preload   bool
}

// IconDefinition represents an icon entry in the YAML file
type IconDefinition struct {
	Name      string  `yaml:"name"`
	Path      string  `yaml:"path"`
	Threshold float64 `yaml:"threshold"`
	Preload   bool    `yaml:"preload,omitempty"`
}

// IconFile represents the structure of an icon YAML file
type IconFile struct {
	Icons []IconDefinition `yaml:"icons"`
}

// Registry manages a collection of reference icons loaded from YAML files.
type Registry struct {
	mu       sync.RWMutex
	icons    map[string]Icon
	basePath string // root directory for icon image files
	cache    *ImageCache
}

// NewRegistry creates a new icon registry. basePath is the root directory
// where icon image files are stored.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		icons:    make(map[string]Icon),
		basePath: basePath,
		cache:    NewImageCache(),
	}
}

// Cache returns the registry's image cache.
func (r *Registry) Cache() *ImageCache {
	return r.cache
}

// LoadFromFile loads icon definitions from a YAML file.
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read icon file %s: %w", filePath, err)
	}

	var iconFile IconFile
	if err := yaml.Unmarshal(data, &iconFile); err != nil {
		return fmt.Errorf("failed to unmarshal icon YAML: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, def := range iconFile.Icons {
		if def.Name == "" {
			return fmt.Errorf("icon %d: name cannot be empty", i+1)
		}
		if def.Path == "" {
			return fmt.Errorf("icon %d (%s): path cannot be empty", i+1, def.Name)
		}

		icon := Icon{
			Name:      def.Name,
			Path:      filepath.Join(r.basePath, def.Path),
			Threshold: def.Threshold,
			Preload:   def.Preload,
		}
		if icon.Threshold == 0 {
			icon.Threshold = 0.85
		}

		r.icons[def.Name] = icon

		if err := r.cache.Register(icon); err != nil {
			// Preload failures are not fatal; the image can still be
			// loaded on demand.
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	return nil
}

// LoadFromDirectory loads all YAML files from a directory.
func (r *Registry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read icon directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	loadedCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		if err := r.LoadFromFile(filepath.Join(dirPath, name)); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", name, err))
			continue
		}
		loadedCount++
	}

	if loadedCount == 0 && len(loadErrors) > 0 {
		return fmt.Errorf("no icon files loaded: %v", loadErrors)
	}

	return nil
}

// Add registers an icon directly.
func (r *Registry) Add(icon Icon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.icons[icon.Name] = icon
	_ = r.cache.Register(icon)
}

// Get retrieves an icon by name.
func (r *Registry) Get(name string) (Icon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	icon, ok := r.icons[name]
	return icon, ok
}

// Has reports whether an icon is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.icons[name]
	return ok
}

// Names returns all registered icon names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.icons))
	for name := range r.icons {
		names = append(names, name)
	}
	return names
}
