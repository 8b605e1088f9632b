package ability

import "time"

// MethodName identifies one classification method in the configured order.
type MethodName string

const (
	MethodTemplate MethodName = "template"
	MethodOverlay  MethodName = "overlay"
	MethodColor    MethodName = "color"
)

// DetectionConfig holds the per-profile visual detection tunables. The
// brightness and dark-band thresholds are empirically chosen for the
// default client theme and are configuration, not invariants.
type DetectionConfig struct {
	// MatchThreshold is the minimum template-match confidence for a
	// positive identification.
	MatchThreshold float64 `yaml:"match_threshold"`

	// Cooldown-overlay analysis
	OverlayDarkBand int     `yaml:"overlay_dark_band"` // grayscale upper bound of the dark band (0-255)
	OverlayDarkMin  float64 `yaml:"overlay_dark_min"`  // dark-pixel concentration that implies COOLDOWN

	// Brightness-ratio state inference after a positive template match
	BrightnessCooldownBelow float64 `yaml:"brightness_cooldown_below"`
	BrightnessReadyAbove    float64 `yaml:"brightness_ready_above"`

	// Color/saturation analysis
	ColorSaturationMin float64 `yaml:"color_saturation_min"`
	ColorValueMin      float64 `yaml:"color_value_min"`

	// Multi-scale search
	MultiScale bool    `yaml:"multi_scale"`
	ScaleMin   float64 `yaml:"scale_min"`
	ScaleMax   float64 `yaml:"scale_max"`
	ScaleSteps int     `yaml:"scale_steps"`

	// Monitoring
	PollInterval time.Duration `yaml:"poll_interval"`

	// Methods is the ordered list of classification methods to try.
	// Order breaks confidence ties: earlier wins.
	Methods []MethodName `yaml:"methods"`
}

// DefaultDetectionConfig returns the tunables for the default client theme.
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		MatchThreshold:          0.85,
		OverlayDarkBand:         100,
		OverlayDarkMin:          0.60,
		BrightnessCooldownBelow: 0.70,
		BrightnessReadyAbove:    0.90,
		ColorSaturationMin:      0.25,
		ColorValueMin:           0.35,
		MultiScale:              false,
		ScaleMin:                0.8,
		ScaleMax:                1.2,
		ScaleSteps:              5,
		PollInterval:            250 * time.Millisecond,
		Methods:                 []MethodName{MethodTemplate, MethodOverlay, MethodColor},
	}
}
