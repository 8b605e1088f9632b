package cv

import (
	"image"
	"math"
)

// AverageBrightness returns the mean grayscale luminance of an image,
// normalized to 0.0-1.0.
func AverageBrightness(img *image.RGBA) float64 {
	bounds := img.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0
	}

	var total uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			// Luminance formula
			total += uint64((int(c.R)*299 + int(c.G)*587 + int(c.B)*114) / 1000)
		}
	}

	return float64(total) / float64(count) / 255.0
}

// Histogram builds a 256-bucket grayscale histogram of the image.
func Histogram(img *image.RGBA) [256]int {
	var hist [256]int
	bounds := img.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			gray := (int(c.R)*299 + int(c.G)*587 + int(c.B)*114) / 1000
			hist[gray]++
		}
	}

	return hist
}

// DarkFraction returns the share of pixels whose grayscale value falls in
// [0, upper]. Cooldown sweeps darken most of an icon, so a high dark
// fraction is a strong overlay signal.
func DarkFraction(img *image.RGBA, upper int) float64 {
	if upper < 0 {
		upper = 0
	}
	if upper > 255 {
		upper = 255
	}

	hist := Histogram(img)
	total := 0
	dark := 0
	for v, n := range hist {
		total += n
		if v <= upper {
			dark += n
		}
	}

	if total == 0 {
		return 0
	}
	return float64(dark) / float64(total)
}

// HSV holds hue (degrees), saturation and value, each 0.0-1.0 except hue.
type HSV struct {
	H float64
	S float64
	V float64
}

// RGBToHSV converts 8-bit RGB channels to HSV.
func RGBToHSV(r, g, b uint8) HSV {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case max == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if max > 0 {
		s = delta / max
	}

	return HSV{H: h, S: s, V: max}
}

// AverageHSV returns the mean saturation and value over the whole image.
// Hue is not averaged; it wraps and a mean would be meaningless for mixed
// icon art.
func AverageHSV(img *image.RGBA) (saturation, value float64) {
	bounds := img.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0, 0
	}

	var sumS, sumV float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			hsv := RGBToHSV(c.R, c.G, c.B)
			sumS += hsv.S
			sumV += hsv.V
		}
	}

	return sumS / float64(count), sumV / float64(count)
}

// Darken scales every color channel by factor (0.0-1.0). Used by tests to
// simulate cooldown overlays.
func Darken(img *image.RGBA, factor float64) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			c.R = uint8(float64(c.R) * factor)
			c.G = uint8(float64(c.G) * factor)
			c.B = uint8(float64(c.B) * factor)
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, c)
		}
	}

	return out
}
