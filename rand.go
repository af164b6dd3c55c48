package modplay

// rng is a small deterministic generator used for the random
// volume/pan swing and the random LFO waveform.
type rng struct {
	state uint32
}

const defaultRandomSeed = 0x12345678

func (r *rng) seed(v uint32) {
	if v == 0 {
		v = defaultRandomSeed
	}
	r.state = v
}

// next returns a pseudo-random value in [0, 0x7fff].
func (r *rng) next() int {
	r.state = r.state*1103515245 + 12345
	return int((r.state >> 16) & 0x7fff)
}
