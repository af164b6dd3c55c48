package dsp

import (
	"math"
)

// FilterShift is the fixed point precision of the filter coefficients.
const FilterShift = 16

// resonanceTable maps the resonance/2 value to a damping factor.
var resonanceTable [128]float32

func init() {
	for i := range resonanceTable {
		resonanceTable[i] = float32(math.Pow(10, -float64(i)*24/128/20))
	}
}

// FilterSetup calculates the resonant low-pass filter coefficients.
//
// cutoff maps [0, 255] into the [110Hz, ~10kHz] range,
// resonance is in [0, 255].
func FilterSetup(sampleRate, cutoff, resonance int) (a0, b0, b1 int) {
	cutoff = clampInt(cutoff, 0, 254)
	resonance = clampInt(resonance, 0, 254)

	fs := float32(sampleRate)
	fc := 110.0 * float32(math.Pow(2, 0.25+float64(cutoff)/48.0))
	r := fs / (2.0 * math.Pi * fc)

	d := resonanceTable[resonance>>1]*(r+1.0) - 1.0
	e := r * r

	fg := 1.0 / (1.0 + d + e)
	fb0 := (d + e + e) / (1.0 + d + e)
	fb1 := -e / (1.0 + d + e)

	a0 = int(fg * (1 << FilterShift))
	b0 = int(fb0 * (1 << FilterShift))
	b1 = int(fb1 * (1 << FilterShift))
	return a0, b0, b1
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
