// Package dsp implements the numeric kernels of the software mixer.
//
// The kernels work on the fixed point values: sample positions
// use 16.16 fractions, volumes are premultiplied by the pan law.
package dsp

type Interpolation int

const (
	Nearest Interpolation = iota
	Linear
	Spline
)

const (
	smixShift = 16
	smixMask  = 1<<smixShift - 1

	// The filtered samples are pre-amplified to reduce the rounding errors
	// at the high sample rates.
	preAmpBits = 15
	filterMin  = -65536 << preAmpBits
	filterMax  = 65535 << preAmpBits
)

// Filter is a resonant low-pass filter state.
type Filter struct {
	A0 int
	B0 int
	B1 int

	L1 int
	L2 int
}

// MixParams describes a single Mix call.
type MixParams struct {
	// Data is the sample PCM; it must have at least one frame before
	// the first mixed position and two frames after the last one.
	Data []int16

	// Pos and Frac form the 16.16 initial position.
	Pos  int
	Frac int

	// Step is a 16.16 position increment, negative values play backwards.
	Step int

	// Count is a number of frames to mix.
	Count int

	// The first Count-Ramp frames use the ramping OldVL/OldVR volumes
	// that are incremented by DeltaL/DeltaR after every frame.
	// The rest of the frames use VL/VR.
	Ramp   int
	VL     int
	VR     int
	OldVL  int
	OldVR  int
	DeltaL int
	DeltaR int

	Interp Interpolation

	// Stereo selects the interleaved L/R output.
	Stereo bool

	// Filter is nil for the unfiltered voices.
	Filter *Filter
}

// Mix resamples the voice data and adds the result to buf.
func Mix(buf []int32, p *MixParams) {
	data := p.Data
	pos := p.Pos
	frac := p.Frac
	oldVL := p.OldVL
	oldVR := p.OldVR

	var fl1, fl2 int
	var a0, b0, b1 int64
	if p.Filter != nil {
		fl1 = p.Filter.L1
		fl2 = p.Filter.L2
		a0 = int64(p.Filter.A0)
		b0 = int64(p.Filter.B0)
		b1 = int64(p.Filter.B1)
	}

	k := 0
	for count := p.Count; count > 0; count-- {
		var smp int
		switch p.Interp {
		case Nearest:
			smp = int(data[pos])
		case Linear:
			l1 := int(data[pos])
			dt := int(data[pos+1]) - l1
			smp = l1 + (((frac >> 1) * dt) >> (smixShift - 1))
		default:
			f := frac >> 6
			smp = int((SplineLUT[0][f]*int32(data[pos-1]) +
				SplineLUT[1][f]*int32(data[pos]) +
				SplineLUT[3][f]*int32(data[pos+2]) +
				SplineLUT[2][f]*int32(data[pos+1])) >> splineBits)
		}

		if p.Filter != nil {
			sl64 := (a0*int64(smp<<preAmpBits) + b0*int64(fl1) + b1*int64(fl2)) >> FilterShift
			if sl64 < filterMin {
				sl64 = filterMin
			} else if sl64 > filterMax {
				sl64 = filterMax
			}
			fl2 = fl1
			fl1 = int(sl64)
			smp = fl1 >> preAmpBits
		}

		vl := p.VL
		vr := p.VR
		if count > p.Ramp {
			vl = oldVL >> 8
			vr = oldVR >> 8
			oldVL += p.DeltaL
			oldVR += p.DeltaR
		}
		if p.Stereo {
			buf[k] += int32(smp * vl)
			buf[k+1] += int32(smp * vr)
			k += 2
		} else {
			buf[k] += int32(smp * vl)
			k++
		}

		frac += p.Step
		pos += frac >> smixShift
		frac &= smixMask
	}

	if p.Filter != nil {
		p.Filter.L1 = fl1
		p.Filter.L2 = fl2
	}
}
