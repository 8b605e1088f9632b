package cv

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestAverageBrightness(t *testing.T) {
	tests := []struct {
		name string
		img  *image.RGBA
		want float64
	}{
		{"black", solid(10, 10, color.RGBA{0, 0, 0, 255}), 0.0},
		{"white", solid(10, 10, color.RGBA{255, 255, 255, 255}), 1.0},
		{"mid gray", solid(10, 10, color.RGBA{128, 128, 128, 255}), 128.0 / 255.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := AverageBrightness(tc.img)
			if math.Abs(got-tc.want) > 0.01 {
				t.Errorf("got %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestAverageBrightnessEmpty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if got := AverageBrightness(img); got != 0 {
		t.Errorf("empty image should read 0, got %.4f", got)
	}
}

func TestDarkFraction(t *testing.T) {
	// Half black, half white.
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if y >= 5 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	if got := DarkFraction(img, 100); math.Abs(got-0.5) > 0.001 {
		t.Errorf("half-dark image: got %.4f, want 0.5", got)
	}
	if got := DarkFraction(img, 255); got != 1.0 {
		t.Errorf("full range: got %.4f, want 1.0", got)
	}
}

func TestDarkFractionClampsUpper(t *testing.T) {
	img := solid(4, 4, color.RGBA{0, 0, 0, 255})
	if got := DarkFraction(img, 500); got != 1.0 {
		t.Errorf("upper beyond 255 should clamp, got %.4f", got)
	}
	if got := DarkFraction(img, -5); got != 1.0 {
		t.Errorf("black pixels fall in [0,0], got %.4f", got)
	}
}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b uint8
		want    HSV
	}{
		{"red", 255, 0, 0, HSV{H: 0, S: 1, V: 1}},
		{"green", 0, 255, 0, HSV{H: 120, S: 1, V: 1}},
		{"blue", 0, 0, 255, HSV{H: 240, S: 1, V: 1}},
		{"white", 255, 255, 255, HSV{H: 0, S: 0, V: 1}},
		{"black", 0, 0, 0, HSV{H: 0, S: 0, V: 0}},
		{"gray", 128, 128, 128, HSV{H: 0, S: 0, V: 128.0 / 255.0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RGBToHSV(tc.r, tc.g, tc.b)
			if math.Abs(got.H-tc.want.H) > 0.5 ||
				math.Abs(got.S-tc.want.S) > 0.01 ||
				math.Abs(got.V-tc.want.V) > 0.01 {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestAverageHSV(t *testing.T) {
	sat, val := AverageHSV(solid(8, 8, color.RGBA{255, 0, 0, 255}))
	if math.Abs(sat-1.0) > 0.01 || math.Abs(val-1.0) > 0.01 {
		t.Errorf("pure red: sat=%.3f val=%.3f, want 1.0/1.0", sat, val)
	}

	sat, val = AverageHSV(solid(8, 8, color.RGBA{40, 40, 40, 255}))
	if sat > 0.01 {
		t.Errorf("gray has no saturation, got %.3f", sat)
	}
	if math.Abs(val-40.0/255.0) > 0.01 {
		t.Errorf("dark gray value: got %.3f", val)
	}
}

func TestDarken(t *testing.T) {
	img := solid(5, 5, color.RGBA{200, 100, 50, 255})
	out := Darken(img, 0.5)

	c := out.RGBAAt(2, 2)
	if c.R != 100 || c.G != 50 || c.B != 25 {
		t.Errorf("got %v, want {100 50 25}", c)
	}
	if c.A != 255 {
		t.Errorf("alpha must survive darkening, got %d", c.A)
	}
}
