package classifier

import (
	"fmt"
	"image"
	"time"

	"arkengard.com/ability-bot-go/internal/ability"
	"arkengard.com/ability-bot-go/internal/cv"
	"arkengard.com/ability-bot-go/internal/logging"
	"arkengard.com/ability-bot-go/pkg/icons"
)

// Result is a classification outcome: the most likely readiness state, how
// confident the winning method was, and which method won.
type Result struct {
	State      ability.State
	Confidence float64
	Method     ability.MethodName
	Location   image.Point
	At         time.Time
}

// unknownResult is the safe fallback for any classification failure.
func unknownResult() Result {
	return Result{
		State:      ability.StateUnknown,
		Confidence: 0,
		At:         time.Now(),
	}
}

// Classifier determines the readiness state of ability icons by running the
// configured classification methods against captured screen regions and
// keeping the best result.
type Classifier struct {
	capture  *cv.Service
	registry *icons.Registry
	log      *logging.Logger
	errors   *logging.ErrorCounters
}

// New creates a classifier backed by the given capture service and icon
// registry.
func New(capture *cv.Service, registry *icons.Registry) *Classifier {
	return &Classifier{
		capture:  capture,
		registry: registry,
		log:      logging.NewLogger("Classifier"),
		errors:   logging.NewErrorCounters(),
	}
}

// Errors exposes the failure counters for diagnostics.
func (c *Classifier) Errors() *logging.ErrorCounters {
	return c.errors
}

// Classify captures the given region and determines the most likely state
// of the ability's icon there. Capture failures and missing icons yield
// UNKNOWN with confidence 0, never an error: a single bad frame must not
// stop the loop.
func (c *Classifier) Classify(ab ability.Ability, region cv.Region, cfg *ability.DetectionConfig) Result {
	if cfg == nil {
		cfg = ability.DefaultDetectionConfig()
	}

	// Manual abilities carry no icon and are driven purely by timers.
	if !ab.HasIcon() {
		return unknownResult()
	}

	icon, err := c.loadIcon(ab)
	if err != nil {
		c.log.ErrorWithContext("failed to load reference icon", err, map[string]interface{}{
			"ability": ab.Name,
		})
		c.errors.Inc(logging.ErrorCategoryClassification)
		return unknownResult()
	}

	frame, err := c.capture.CaptureRegion(region, true)
	if err != nil {
		c.log.DebugWithContext("capture failed", map[string]interface{}{
			"ability": ab.Name,
			"error":   err.Error(),
		})
		c.errors.Inc(logging.ErrorCategoryCapture)
		return unknownResult()
	}

	return c.classifyFrame(frame, icon, cfg)
}

// ClassifyFrame runs the configured methods against an already captured
// frame. Exposed for the scanner, which classifies many abilities against
// one frame.
func (c *Classifier) ClassifyFrame(frame *image.RGBA, ab ability.Ability, cfg *ability.DetectionConfig) Result {
	if cfg == nil {
		cfg = ability.DefaultDetectionConfig()
	}
	if !ab.HasIcon() {
		return unknownResult()
	}

	icon, err := c.loadIcon(ab)
	if err != nil {
		c.errors.Inc(logging.ErrorCategoryClassification)
		return unknownResult()
	}

	return c.classifyFrame(frame, icon, cfg)
}

func (c *Classifier) classifyFrame(frame, icon *image.RGBA, cfg *ability.DetectionConfig) Result {
	best := unknownResult()

	for _, name := range cfg.Methods {
		m := methodFor(name)
		if m == nil {
			c.log.WarnWithContext("unknown classification method", map[string]interface{}{
				"method": string(name),
			})
			continue
		}

		r := m.classify(frame, icon, cfg)
		// Strictly greater: the configured order decides ties, so the
		// earlier method (template by default) wins.
		if r.Confidence > best.Confidence {
			best = Result{
				State:      r.State,
				Confidence: r.Confidence,
				Method:     m.name(),
				Location:   r.Location,
				At:         time.Now(),
			}
		}
	}

	return best
}

// WaitForState polls a region until the classified state matches want or
// the timeout elapses.
func (c *Classifier) WaitForState(ab ability.Ability, region cv.Region, cfg *ability.DetectionConfig, want ability.State, timeout time.Duration) (Result, error) {
	start := time.Now()

	for {
		c.capture.InvalidateCache()
		result := c.Classify(ab, region, cfg)
		if result.State == want {
			return result, nil
		}

		if time.Since(start) > timeout {
			return result, fmt.Errorf("ability %s did not reach state %s within %v", ab.Name, want, timeout)
		}

		time.Sleep(50 * time.Millisecond)
	}
}

// VerifyState re-classifies an ability's bound region and reports the
// post-action state. Used by the execution engine's verification step.
func (c *Classifier) VerifyState(ab ability.Ability, region cv.Region, cfg *ability.DetectionConfig) (ability.State, float64) {
	result := c.Classify(ab, region, cfg)
	return result.State, result.Confidence
}

// loadIcon fetches the reference icon image, loading and caching it on
// first use. Icons registered ahead of time resolve by ability name; an
// unregistered ability with an icon path is registered on the fly.
func (c *Classifier) loadIcon(ab ability.Ability) (*image.RGBA, error) {
	cache := c.registry.Cache()

	if img, _, err := cache.Get(ab.Name); err == nil {
		return img, nil
	}

	if !c.registry.Has(ab.Name) {
		c.registry.Add(icons.Icon{
			Name:      ab.Name,
			Path:      ab.IconPath,
			Threshold: 0.85,
		})
	}

	img, _, err := cache.Get(ab.Name)
	if err != nil {
		return nil, err
	}
	return img, nil
}
