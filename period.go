package modplay

import (
	"math"

	"github.com/quasilyte/modplay/modfile"
)

const (
	// periodBase is the Amiga period of the note 0.
	periodBase = 13696.0

	// c4Period is the Amiga period of the middle C.
	c4Period = 428.0

	minPeriodLinear = 0
	maxPeriodLinear = 7680

	// The ProTracker 3-octave range in keys.
	maxNoteModRng = 83
	minNoteModRng = 48
)

// noteToPeriod converts a key with the finetune into a period
// of the module pitch model.
//
// finetune is measured in 1/128 of a semitone.
// perAdj is a period multiplier used by some dialects (0 means none).
func (m *module) noteToPeriod(n, finetune int, perAdj float64) float64 {
	d := float64(n) + float64(finetune)/128

	var per float64
	switch m.periodType {
	case modfile.PeriodLinear:
		per = (240.0 - d) * 16
	case modfile.PeriodCSpeed:
		per = 8363.0*math.Pow(2, float64(n)/12)/32 + float64(finetune)
	default:
		per = periodBase / math.Pow(2, d/12)
	}

	if perAdj > 0.1 {
		per *= perAdj
	}
	return per
}

// noteToPeriodMix converts a key with a pitch bend (in 1/100 of a cent units)
// into the Amiga period used by the mixer.
func noteToPeriodMix(n, bend int) float64 {
	d := float64(n) + float64(bend)/12800
	return periodBase / math.Pow(2, d/12)
}

// periodToNote returns a 1-based note of the Amiga period.
func periodToNote(p float64) int {
	if p <= 0 {
		return 0
	}
	return int(math.Round(12*math.Log2(periodBase/p))) + 1
}

// periodToBend calculates a pitch bend of the period relative to the key n.
func (m *module) periodToBend(p float64, n int, perAdj float64) int {
	if n == 0 || p < 0.1 {
		return 0
	}

	switch m.periodType {
	case modfile.PeriodLinear:
		return int(100 * (8 * (float64((240-n)<<4) - p)))
	case modfile.PeriodCSpeed:
		d := m.noteToPeriod(n, 0, perAdj)
		return int(math.Round(100 * (1536 / math.Ln2) * math.Log(p/d)))
	default:
		d := m.noteToPeriod(n, 0, perAdj)
		return int(math.Round(100 * (1536 / math.Ln2) * math.Log(d/p)))
	}
}
