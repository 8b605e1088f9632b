package classifier

import (
	"image"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/cv"
)

// methodResult is the outcome of one classification method.
type methodResult struct {
	State      ability.State
	Confidence float64
	Location   image.Point
}

// method is one member of the closed set of classification techniques. The
// classifier runs the configured methods in order and keeps the
// highest-confidence result; order breaks ties.
type method interface {
	name() ability.MethodName
	classify(frame, icon *image.RGBA, cfg *ability.DetectionConfig) methodResult
}

func methodFor(name ability.MethodName) method {
	switch name {
	case ability.MethodTemplate:
		return templateMethod{}
	case ability.MethodOverlay:
		return overlayMethod{}
	case ability.MethodColor:
		return colorMethod{}
	default:
		return nil
	}
}

// templateMethod matches the reference icon against the captured region via
// normalized correlation, optionally at multiple scales, then infers state
// from the brightness ratio of the matched sub-region versus the icon.
type templateMethod struct{}

func (templateMethod) name() ability.MethodName { return ability.MethodTemplate }

func (templateMethod) classify(frame, icon *image.RGBA, cfg *ability.DetectionConfig) methodResult {
	matchCfg := &cv.MatchConfig{
		Method:    cv.MatchMethodNCC,
		Threshold: cfg.MatchThreshold,
	}

	var match *cv.MatchResult
	if cfg.MultiScale {
		match = cv.FindTemplateMultiScale(frame, icon, matchCfg, cfg.ScaleMin, cfg.ScaleMax, cfg.ScaleSteps)
	} else {
		match = cv.FindTemplate(frame, icon, matchCfg)
	}

	if match.Confidence < cfg.MatchThreshold {
		// Below threshold the icon is judged absent or unusable
		// regardless of brightness.
		return methodResult{
			State:      ability.StateUnavailable,
			Confidence: match.Confidence,
			Location:   match.Location,
		}
	}

	iconBounds := icon.Bounds()
	matchedW := int(float64(iconBounds.Dx()) * match.Scale)
	matchedH := int(float64(iconBounds.Dy()) * match.Scale)
	matched := cv.CropRegion(frame, image.Rect(
		match.Location.X,
		match.Location.Y,
		match.Location.X+matchedW,
		match.Location.Y+matchedH,
	))

	refBrightness := cv.AverageBrightness(icon)
	state := ability.StateUnknown
	if refBrightness > 0 {
		ratio := cv.AverageBrightness(matched) / refBrightness
		switch {
		case ratio < cfg.BrightnessCooldownBelow:
			state = ability.StateCooldown
		case ratio > cfg.BrightnessReadyAbove:
			state = ability.StateReady
		}
	}

	return methodResult{
		State:      state,
		Confidence: match.Confidence,
		Location:   match.Location,
	}
}

// overlayMethod measures the concentration of dark pixels. Cooldown sweeps
// darken most of the icon area.
type overlayMethod struct{}

func (overlayMethod) name() ability.MethodName { return ability.MethodOverlay }

func (overlayMethod) classify(frame, icon *image.RGBA, cfg *ability.DetectionConfig) methodResult {
	darkness := cv.DarkFraction(frame, cfg.OverlayDarkBand)

	if darkness >= cfg.OverlayDarkMin {
		confidence := darkness
		if confidence > 1.0 {
			confidence = 1.0
		}
		return methodResult{State: ability.StateCooldown, Confidence: confidence}
	}

	return methodResult{State: ability.StateReady, Confidence: 1.0 - darkness}
}

// colorMethod checks average saturation and brightness in HSV space. A
// desaturated, dim region reads as an overlaid icon.
type colorMethod struct{}

func (colorMethod) name() ability.MethodName { return ability.MethodColor }

func (colorMethod) classify(frame, icon *image.RGBA, cfg *ability.DetectionConfig) methodResult {
	saturation, value := cv.AverageHSV(frame)

	if saturation < cfg.ColorSaturationMin && value < cfg.ColorValueMin {
		return methodResult{State: ability.StateCooldown, Confidence: 0.7}
	}
	return methodResult{State: ability.StateReady, Confidence: 0.8}
}
