package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// HuePeriod is the number of degrees in one full hue rotation.
const HuePeriod = 360

// NormalizeHueShift wraps a shift in degrees into the half-open range [0, 360).
//
// Negative shifts rotate backwards: -90 normalizes to 270.
func NormalizeHueShift(degrees float64) float64 {
	h := math.Mod(degrees, HuePeriod)
	if h < 0 {
		h += HuePeriod
	}
	// math.Mod of a tiny negative value can round back up to exactly 360.
	if h >= HuePeriod {
		h = 0
	}
	return h
}

// RotateHue returns a copy of img with every pixel's hue rotated by degrees.
//
// Parameters:
//   - img: Source image. It is read but never modified.
//   - degrees: Hue offset in degrees. Any value is accepted; it is wrapped
//     modulo 360 before use.
//
// Returns a new *image.NRGBA whose bounds start at (0,0) and match the size of img.
//
// # Algorithm
//
// Each pixel is converted from 8-bit RGB to HSV (H in [0,360), S and V in [0,1])
// using go-colorful. The hue is shifted and wrapped with math.Mod, then the color
// is converted back to RGB and rounded to 8 bits. Saturation, value, and alpha are
// preserved exactly. Because each output pixel depends only on its input pixel,
// rows are split across CPUs with bild's parallel.Line without affecting determinism.
//
// A shift that normalizes to 0 short-circuits to a plain copy, so
// RotateHue(img, 0) and RotateHue(img, 360) are pixel-identical to img.
func RotateHue(img image.Image, degrees float64) *image.NRGBA {
	dst := imaging.Clone(img)
	shift := NormalizeHueShift(degrees)
	if shift == 0 {
		return dst
	}

	bounds := dst.Bounds()
	width := bounds.Dx()
	parallel.Line(bounds.Dy(), func(start, end int) {
		for y := start; y < end; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
			for i := 0; i < len(row); i += 4 {
				row[i], row[i+1], row[i+2] = rotatePixel(row[i], row[i+1], row[i+2], shift)
			}
		}
	})

	return dst
}

// rotatePixel shifts the hue of one 8-bit RGB triple by a normalized shift.
func rotatePixel(r, g, b uint8, shift float64) (uint8, uint8, uint8) {
	// Grays have no hue; rotating them is the identity.
	if r == g && g == b {
		return r, g, b
	}

	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()
	return colorful.Hsv(NormalizeHueShift(h+shift), s, v).Clamped().RGB255()
}
