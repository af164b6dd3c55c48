package modplay

const lfoWaveformSize = 64

var sineWave = [lfoWaveformSize]int{
	0, 24, 49, 74, 97, 120, 141, 161, 180, 197, 212, 224, 235, 244, 250, 253,
	255, 253, 250, 244, 235, 224, 212, 197, 180, 161, 141, 120, 97, 74, 49, 24,
	0, -24, -49, -74, -97, -120, -141, -161, -180, -197, -212, -224, -235, -244, -250, -253,
	-255, -253, -250, -244, -235, -224, -212, -197, -180, -161, -141, -120, -97, -74, -49, -24,
}

type lfoWaveform int

const (
	lfoSine lfoWaveform = iota
	lfoRampDown
	lfoSquare
	lfoRandom
)

// lfo is a low frequency oscillator that drives vibrato, tremolo and panbrello.
type lfo struct {
	waveform lfoWaveform
	rate     int
	depth    int
	phase    int
}

type lfoFlavour int

const (
	lfoFlavourMOD lfoFlavour = iota
	lfoFlavourST3            // unipolar square
	lfoFlavourFT2            // vibrato ramp is upside down
	lfoFlavourIT
)

func (l *lfo) valueMOD(r *rng) int {
	var v int
	switch l.waveform {
	case lfoSine:
		v = sineWave[l.phase]
	case lfoRampDown:
		v = 255 - (l.phase << 3)
	case lfoSquare:
		if l.phase < lfoWaveformSize/2 {
			v = 255
		} else {
			v = -255
		}
	case lfoRandom:
		v = (r.next() & 0x1ff) - 256
	default:
		return 0
	}
	return v * l.depth
}

// value returns the current LFO output scaled by its depth.
// isVibrato selects the FT2 vibrato-specific ramp waveform.
func (l *lfo) value(flavour lfoFlavour, r *rng, isVibrato bool) int {
	if l.rate == 0 {
		return 0
	}

	switch flavour {
	case lfoFlavourST3, lfoFlavourIT:
		if l.waveform == lfoSquare {
			v := 0
			if l.phase < lfoWaveformSize/2 {
				v = 255
			}
			return v * l.depth
		}
	case lfoFlavourFT2:
		if isVibrato && l.waveform == lfoRampDown {
			phase := (l.phase + lfoWaveformSize/2) % lfoWaveformSize
			return ((phase << 3) - 255) * l.depth
		}
	}
	return l.valueMOD(r)
}

func (l *lfo) update() {
	l.phase += l.rate
	l.phase %= lfoWaveformSize
}

func (l *lfo) setDepthNotZero(depth, rate int) {
	if depth != 0 {
		l.depth = depth
	}
	if rate != 0 {
		l.rate = rate
	}
}
