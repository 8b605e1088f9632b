package cv

import (
	"fmt"
	"image"
	"math"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
	Scale      float64
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// MatchConfig configures template matching
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	SearchRegion *image.Rectangle // Optional: limit search area
}

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.85,
	}
}

// FindTemplate finds a template image within a larger image
func FindTemplate(haystack, needle *image.RGBA, config *MatchConfig) *MatchResult {
	if config == nil {
		config = DefaultMatchConfig()
	}

	haystackBounds := haystack.Bounds()
	needleBounds := needle.Bounds()

	needleWidth := needleBounds.Dx()
	needleHeight := needleBounds.Dy()

	if needleWidth > haystackBounds.Dx() || needleHeight > haystackBounds.Dy() {
		return &MatchResult{Found: false, Scale: 1.0}
	}

	searchBounds := haystackBounds
	if config.SearchRegion != nil {
		searchBounds = config.SearchRegion.Intersect(haystackBounds)
		if searchBounds.Empty() {
			return &MatchResult{Found: false, Scale: 1.0}
		}
	}

	bestScore := 0.0
	bestLocation := image.Point{}
	found := false

	maxY := searchBounds.Max.Y - needleHeight
	maxX := searchBounds.Max.X - needleWidth

	if maxY < searchBounds.Min.Y || maxX < searchBounds.Min.X {
		// Template doesn't fit in search region
		return &MatchResult{Found: false, Scale: 1.0}
	}

	for y := searchBounds.Min.Y; y <= maxY; y++ {
		for x := searchBounds.Min.X; x <= maxX; x++ {
			score := calculateMatchScore(haystack, needle, x, y, config.Method)

			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{x, y}
				if score >= config.Threshold {
					found = true
				}
			}
		}
	}

	return &MatchResult{
		Found:      found,
		Location:   bestLocation,
		Confidence: bestScore,
		Scale:      1.0,
	}
}

// FindTemplateMultiScale repeats the search at evenly spaced scale factors
// across [minScale, maxScale] and keeps the best result. Scaled templates
// larger than the haystack are skipped.
func FindTemplateMultiScale(haystack, needle *image.RGBA, config *MatchConfig, minScale, maxScale float64, steps int) *MatchResult {
	if steps < 2 || minScale >= maxScale {
		return FindTemplate(haystack, needle, config)
	}

	best := &MatchResult{Found: false, Scale: 1.0}
	stride := (maxScale - minScale) / float64(steps-1)

	for i := 0; i < steps; i++ {
		scale := minScale + stride*float64(i)
		scaled := needle
		if math.Abs(scale-1.0) > 1e-9 {
			scaled = Resize(needle, scale)
		}
		if scaled.Bounds().Dx() > haystack.Bounds().Dx() || scaled.Bounds().Dy() > haystack.Bounds().Dy() {
			continue
		}

		result := FindTemplate(haystack, scaled, config)
		if result.Confidence > best.Confidence {
			result.Scale = scale
			best = result
		}
	}

	return best
}

// calculateMatchScore computes similarity between template and image region
func calculateMatchScore(haystack, needle *image.RGBA, x, y int, method MatchMethod) float64 {
	needleBounds := needle.Bounds()
	needleWidth := needleBounds.Dx()
	needleHeight := needleBounds.Dy()

	switch method {
	case MatchMethodSAD:
		return matchSAD(haystack, needle, x, y, needleWidth, needleHeight)
	case MatchMethodSSD:
		return matchSSD(haystack, needle, x, y, needleWidth, needleHeight)
	case MatchMethodNCC:
		return matchNCC(haystack, needle, x, y, needleWidth, needleHeight)
	default:
		return matchNCC(haystack, needle, x, y, needleWidth, needleHeight)
	}
}

// matchSAD - Sum of Absolute Differences (fastest, least accurate)
func matchSAD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := ((y+ny)*haystack.Stride + (x+nx)*4)
			nIdx := (ny*needle.Stride + nx*4)

			sad += uint64(abs(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(abs(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(abs(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

// matchSSD - Sum of Squared Differences (balanced)
func matchSSD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := ((y+ny)*haystack.Stride + (x+nx)*4)
			nIdx := (ny*needle.Stride + nx*4)

			dr := int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])
			dg := int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])

			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

// matchNCC - Normalized Cross-Correlation (slowest, most accurate)
func matchNCC(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	pixelCount := float64(width * height * 3)

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			hIdx := ((y+ny)*haystack.Stride + (x+nx)*4)
			nIdx := (ny*needle.Stride + nx*4)

			for c := 0; c < 3; c++ {
				h := float64(haystack.Pix[hIdx+c])
				n := float64(needle.Pix[nIdx+c])

				sumH += h
				sumN += n
				sumHN += h * n
				sumHH += h * h
				sumNN += n * n
			}
		}
	}

	numerator := sumHN - (sumH * sumN / pixelCount)
	denomH := math.Sqrt(sumHH - (sumH * sumH / pixelCount))
	denomN := math.Sqrt(sumNN - (sumN * sumN / pixelCount))

	if denomH == 0 || denomN == 0 {
		// Flat region against flat template: identical means perfect match
		if math.Abs(sumH-sumN) < 1e-9 {
			return 1.0
		}
		return 0
	}

	// Correlation coefficient (-1 to 1, normalize to 0-1)
	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Resize scales an image by the given factor using nearest-neighbor sampling.
// Icon templates are small enough that quality loss stays well inside the
// confidence threshold.
func Resize(img *image.RGBA, scale float64) *image.RGBA {
	bounds := img.Bounds()
	newW := int(math.Round(float64(bounds.Dx()) * scale))
	newH := int(math.Round(float64(bounds.Dy()) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	out := image.NewRGBA(image.Rect(0, 0, newW, newH))
	for y := 0; y < newH; y++ {
		srcY := bounds.Min.Y + int(float64(y)/scale)
		if srcY >= bounds.Max.Y {
			srcY = bounds.Max.Y - 1
		}
		for x := 0; x < newW; x++ {
			srcX := bounds.Min.X + int(float64(x)/scale)
			if srcX >= bounds.Max.X {
				srcX = bounds.Max.X - 1
			}
			out.SetRGBA(x, y, img.RGBAAt(srcX, srcY))
		}
	}

	return out
}

// CropRegion extracts a rectangular region from an image
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cropped.SetRGBA(x-rect.Min.X, y-rect.Min.Y, img.RGBAAt(x, y))
		}
	}

	return cropped
}

// Error types
var (
	ErrTemplateTooLarge = fmt.Errorf("template larger than search image")
	ErrInvalidImage     = fmt.Errorf("invalid image provided")
)
