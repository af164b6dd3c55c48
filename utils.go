package modplay

import (
	"math"
)

type numeric interface {
	int | int32 | int64 | float64
}

func clampMin[T numeric](v, min T) T {
	if v < min {
		return min
	}
	return v
}

func clampMax[T numeric](v, max T) T {
	if v > max {
		return max
	}
	return v
}

func clamp[T numeric](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// tickSize returns the number of output frames per tick.
// -1 is returned for the arguments that can't produce a sane value.
func tickSize(freq int, timeFactor, rrate float64, bpm int) int {
	if freq < 0 || bpm <= 0 || timeFactor <= 0 || rrate <= 0 {
		return -1
	}
	calc := float64(freq) * timeFactor * rrate / float64(bpm) / 1000
	if math.IsNaN(calc) || calc > float64(maxInt32) {
		return -1
	}
	size := int(calc)
	if size < 1<<antiClickShift {
		size = 1 << antiClickShift
	}
	return size
}

const maxInt32 = 1<<31 - 1
