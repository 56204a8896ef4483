// Package vegetation rejects photos that do not show enough plant material
// to be worth classifying.
package vegetation

import "github.com/Brownie44l1/crop-api/internal/imaging"

// Threshold is the minimum vegetation ratio an image needs to pass. Leaves,
// including yellowed or diseased ones, easily clear it; faces, buildings and
// food usually fall well below.
const Threshold = 0.08

// Assessment is the result of running the gate over one image.
type Assessment struct {
	Ratio  float64
	Passed bool
}

// IsVegetation reports whether a single pixel looks like plant material.
// Products are taken in float32 to match the calibration arithmetic.
func IsVegetation(r, g, b uint8) bool {
	R, G, B := float32(r), float32(g), float32(b)

	pureGreen := G > R*1.10 && G > B*1.10
	yellowGreen := G > B*1.15 && R > 40 && G > 60
	darkGreen := G > R && G > B && G > 40

	return pureGreen || yellowGreen || darkGreen
}

// Ratio returns the fraction of pixels that pass IsVegetation.
func Ratio(img *imaging.Normalized) float64 {
	total := img.Len()
	if total == 0 {
		return 0
	}

	count := 0
	for p := 0; p < total; p++ {
		i := p * imaging.Channels
		if IsVegetation(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
			count++
		}
	}
	return float64(count) / float64(total)
}

// Assess computes the ratio and compares it with Threshold. A ratio equal to
// the threshold passes.
func Assess(img *imaging.Normalized) Assessment {
	ratio := Ratio(img)
	return Assessment{Ratio: ratio, Passed: !(ratio < Threshold)}
}
