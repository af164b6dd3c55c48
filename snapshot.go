package modplay

import (
	"slices"
)

// Snapshot is a copy of the session replay state.
//
// It shares no memory with the session, so it stays valid
// while the session keeps playing. Restoring a snapshot is
// much faster than replaying the song up to the same point.
type Snapshot struct {
	m *module

	p          player
	virt       virtualState
	rng        rng
	timeFactor float64

	// samples hold the PCM modified by the invert loop effect.
	samples []sampleSnapshot
}

type sampleSnapshot struct {
	index int
	pcm   []int16
}

// Snapshot captures the current replay state.
// It returns nil if the session is not started.
func (s *Session) Snapshot() *Snapshot {
	if !s.started {
		return nil
	}
	snap := &Snapshot{
		m:          s.m,
		p:          s.p.clone(),
		virt:       s.virt.clone(),
		rng:        s.rng,
		timeFactor: s.m.timeFactor,
	}
	for i := range s.m.samples {
		if smp := &s.m.samples[i]; smp.dirty {
			snap.samples = append(snap.samples, sampleSnapshot{
				index: i,
				pcm:   slices.Clone(smp.pcm),
			})
		}
	}
	return snap
}

// Restore replaces the replay state with the snapshot one.
// The snapshot itself is not modified, so it can be restored several times.
//
// The runtime parameters (see SetParam) are not part of the snapshot.
func (s *Session) Restore(snap *Snapshot) error {
	if !s.started {
		return ErrNotStarted
	}
	if snap == nil || snap.m != s.m {
		return ErrForeignSnapshot
	}
	// The voice pool size could be changed by the restart.
	if len(snap.virt.voices) != len(s.virt.voices) || len(snap.p.xc) != len(s.p.xc) {
		return ErrForeignSnapshot
	}

	s.p = snap.p.clone()
	s.virt = snap.virt.clone()
	s.rng = snap.rng
	s.m.timeFactor = snap.timeFactor

	m := s.m
	for i := range m.samples {
		if m.samples[i].dirty {
			m.restoreSample(i)
		}
	}
	for _, smp := range snap.samples {
		dst := &m.samples[smp.index]
		copy(dst.pcm, smp.pcm)
		dst.dirty = true
	}
	return nil
}

func (p *player) clone() player {
	c := *p
	c.xc = slices.Clone(p.xc)
	c.inject = slices.Clone(p.inject)
	c.flow.loop = slices.Clone(p.flow.loop)
	return c
}

func (v *virtualState) clone() virtualState {
	c := *v
	c.voices = slices.Clone(v.voices)
	c.channels = slices.Clone(v.channels)
	return c
}
