package dsp

import (
	"math"
)

const (
	splineBits  = 14
	splineScale = 1 << splineBits

	// SplineLUTSize is the number of the fractional position steps.
	SplineLUTSize = 1024
)

// SplineLUT holds the Catmull-Rom coefficients for the 4 taps
// around the interpolated position: x[-1], x[0], x[1] and x[2].
//
// Every row sums up to 1<<14.
var SplineLUT [4][SplineLUTSize]int32

func init() {
	for i := 0; i < SplineLUTSize; i++ {
		x := float64(i) / SplineLUTSize
		x2 := x * x
		x3 := x2 * x
		row := [4]int32{
			int32(math.Floor(0.5 + splineScale*(-0.5*x3+1.0*x2-0.5*x))),
			int32(math.Floor(0.5 + splineScale*(1.5*x3-2.5*x2+1.0))),
			int32(math.Floor(0.5 + splineScale*(-1.5*x3+2.0*x2+0.5*x))),
			int32(math.Floor(0.5 + splineScale*(0.5*x3-0.5*x2))),
		}
		sum := row[0] + row[1] + row[2] + row[3]
		if sum != splineScale {
			maxIndex := 0
			for k := 1; k < 4; k++ {
				if abs32(row[k]) > abs32(row[maxIndex]) {
					maxIndex = k
				}
			}
			row[maxIndex] += splineScale - sum
		}
		for k := 0; k < 4; k++ {
			SplineLUT[k][i] = row[k]
		}
	}
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
