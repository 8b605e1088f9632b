package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"arkengard.com/ability-bot-go/internal/ability"
)

// Profile is a validated set of abilities, rotations, and detection
// tunables for one class. The core never reads persistent storage itself;
// this loader hands it plain structured data.
type Profile struct {
	Name           string
	Abilities      []*ability.Ability
	Rotations      []*ability.Rotation
	ActiveRotation string
	Detection      *ability.DetectionConfig
}

// YAML representation

type profileFile struct {
	Name           string        `yaml:"name"`
	ActiveRotation string        `yaml:"active_rotation"`
	Detection      *detectionDef `yaml:"detection,omitempty"`
	Abilities      []abilityDef  `yaml:"abilities"`
	Rotations      []rotationDef `yaml:"rotations"`
}

type abilityDef struct {
	Name          string           `yaml:"name"`
	Key           string           `yaml:"key"`
	Category      string           `yaml:"category"`
	Icon          string           `yaml:"icon,omitempty"`
	Cooldown      string           `yaml:"cooldown,omitempty"`
	CastTime      string           `yaml:"cast_time,omitempty"`
	Enabled       *bool            `yaml:"enabled,omitempty"`
	Priority      int              `yaml:"priority,omitempty"`
	ResourceCost  int              `yaml:"resource_cost,omitempty"`
	Preconditions []ability.Clause `yaml:"preconditions,omitempty"`
}

type rotationDef struct {
	Name      string   `yaml:"name"`
	Abilities []string `yaml:"abilities"`
	Repeat    bool     `yaml:"repeat"`
	Adaptive  bool     `yaml:"adaptive"`
}

type detectionDef struct {
	MatchThreshold          float64  `yaml:"match_threshold,omitempty"`
	OverlayDarkBand         int      `yaml:"overlay_dark_band,omitempty"`
	OverlayDarkMin          float64  `yaml:"overlay_dark_min,omitempty"`
	BrightnessCooldownBelow float64  `yaml:"brightness_cooldown_below,omitempty"`
	BrightnessReadyAbove    float64  `yaml:"brightness_ready_above,omitempty"`
	ColorSaturationMin      float64  `yaml:"color_saturation_min,omitempty"`
	ColorValueMin           float64  `yaml:"color_value_min,omitempty"`
	MultiScale              bool     `yaml:"multi_scale,omitempty"`
	ScaleMin                float64  `yaml:"scale_min,omitempty"`
	ScaleMax                float64  `yaml:"scale_max,omitempty"`
	ScaleSteps              int      `yaml:"scale_steps,omitempty"`
	PollInterval            string   `yaml:"poll_interval,omitempty"`
	Methods                 []string `yaml:"methods,omitempty"`
}

// LoadProfile reads and validates a profile YAML file. Configuration errors
// are rejected here with a descriptive error, never surfaced mid-run.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile validates profile YAML bytes.
func ParseProfile(data []byte) (*Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile YAML: %w", err)
	}

	if file.Name == "" {
		return nil, fmt.Errorf("profile: name cannot be empty")
	}
	if len(file.Abilities) == 0 {
		return nil, fmt.Errorf("profile %s: no abilities defined", file.Name)
	}

	profile := &Profile{
		Name:           file.Name,
		ActiveRotation: file.ActiveRotation,
		Detection:      ability.DefaultDetectionConfig(),
	}

	if file.Detection != nil {
		if err := applyDetection(profile.Detection, file.Detection); err != nil {
			return nil, fmt.Errorf("profile %s: %w", file.Name, err)
		}
	}

	seen := make(map[string]bool)
	for i, def := range file.Abilities {
		ab, err := buildAbility(def)
		if err != nil {
			return nil, fmt.Errorf("profile %s: ability %d: %w", file.Name, i+1, err)
		}
		if seen[ab.Name] {
			return nil, fmt.Errorf("profile %s: duplicate ability %q", file.Name, ab.Name)
		}
		seen[ab.Name] = true
		profile.Abilities = append(profile.Abilities, ab)
	}

	rotationNames := make(map[string]bool)
	for _, def := range file.Rotations {
		if def.Name == "" {
			return nil, fmt.Errorf("profile %s: rotation name cannot be empty", file.Name)
		}
		if rotationNames[def.Name] {
			return nil, fmt.Errorf("profile %s: duplicate rotation %q", file.Name, def.Name)
		}
		rotationNames[def.Name] = true

		for _, name := range def.Abilities {
			if !seen[name] {
				return nil, fmt.Errorf("profile %s: rotation %q references unknown ability %q", file.Name, def.Name, name)
			}
		}

		profile.Rotations = append(profile.Rotations, ability.NewRotation(def.Name, def.Abilities, def.Repeat, def.Adaptive))
	}

	if profile.ActiveRotation != "" && !rotationNames[profile.ActiveRotation] {
		return nil, fmt.Errorf("profile %s: active rotation %q not defined", file.Name, profile.ActiveRotation)
	}

	return profile, nil
}

func buildAbility(def abilityDef) (*ability.Ability, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if def.Key == "" {
		return nil, fmt.Errorf("ability %q: key cannot be empty", def.Name)
	}

	category, err := parseCategory(def.Category)
	if err != nil {
		return nil, fmt.Errorf("ability %q: %w", def.Name, err)
	}
	if category == ability.CategoryManual && def.Icon != "" {
		return nil, fmt.Errorf("ability %q: manual abilities cannot declare an icon", def.Name)
	}

	cooldown, err := parseDuration(def.Cooldown)
	if err != nil {
		return nil, fmt.Errorf("ability %q: invalid cooldown: %w", def.Name, err)
	}
	castTime, err := parseDuration(def.CastTime)
	if err != nil {
		return nil, fmt.Errorf("ability %q: invalid cast_time: %w", def.Name, err)
	}

	priority := def.Priority
	if priority == 0 {
		priority = 5
	}
	if priority < 1 || priority > 10 {
		return nil, fmt.Errorf("ability %q: priority %d outside 1-10", def.Name, priority)
	}

	enabled := true
	if def.Enabled != nil {
		enabled = *def.Enabled
	}

	for _, clause := range def.Preconditions {
		if clause.Op != "below" && clause.Op != "above" {
			return nil, fmt.Errorf("ability %q: precondition op %q not supported", def.Name, clause.Op)
		}
	}

	return &ability.Ability{
		Name:          def.Name,
		Key:           def.Key,
		Category:      category,
		IconPath:      def.Icon,
		Cooldown:      cooldown,
		CastTime:      castTime,
		State:         ability.StateUnknown,
		Enabled:       enabled,
		Priority:      priority,
		ResourceCost:  def.ResourceCost,
		Preconditions: def.Preconditions,
	}, nil
}

func parseCategory(s string) (ability.Category, error) {
	switch ability.Category(s) {
	case ability.CategoryInstant, ability.CategoryTimedBuff, ability.CategoryManual, ability.CategoryCombo:
		return ability.Category(s), nil
	case "":
		return ability.CategoryInstant, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func applyDetection(cfg *ability.DetectionConfig, def *detectionDef) error {
	if def.MatchThreshold > 0 {
		cfg.MatchThreshold = def.MatchThreshold
	}
	if def.OverlayDarkBand > 0 {
		cfg.OverlayDarkBand = def.OverlayDarkBand
	}
	if def.OverlayDarkMin > 0 {
		cfg.OverlayDarkMin = def.OverlayDarkMin
	}
	if def.BrightnessCooldownBelow > 0 {
		cfg.BrightnessCooldownBelow = def.BrightnessCooldownBelow
	}
	if def.BrightnessReadyAbove > 0 {
		cfg.BrightnessReadyAbove = def.BrightnessReadyAbove
	}
	if def.ColorSaturationMin > 0 {
		cfg.ColorSaturationMin = def.ColorSaturationMin
	}
	if def.ColorValueMin > 0 {
		cfg.ColorValueMin = def.ColorValueMin
	}
	if def.MultiScale {
		cfg.MultiScale = true
	}
	if def.ScaleMin > 0 {
		cfg.ScaleMin = def.ScaleMin
	}
	if def.ScaleMax > 0 {
		cfg.ScaleMax = def.ScaleMax
	}
	if def.ScaleSteps > 0 {
		cfg.ScaleSteps = def.ScaleSteps
	}
	if def.PollInterval != "" {
		interval, err := time.ParseDuration(def.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		cfg.PollInterval = interval
	}
	if len(def.Methods) > 0 {
		cfg.Methods = nil
		for _, m := range def.Methods {
			switch ability.MethodName(m) {
			case ability.MethodTemplate, ability.MethodOverlay, ability.MethodColor:
				cfg.Methods = append(cfg.Methods, ability.MethodName(m))
			default:
				return fmt.Errorf("unknown classification method %q", m)
			}
		}
	}
	return nil
}
