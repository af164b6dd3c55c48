package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

type voiceFlags uint32

const (
	voiceAntiClick voiceFlags = 1 << iota
	voiceSampleLoop
	voiceSampleQueued
	voiceSamplePaused
	voiceReverse
	voiceBidir
	voiceRelease

	// voiceActive is cleared when the sample reaches its end.
	voiceActive
	voiceFiltered
)

// panSurround is a special pan value of the surround voices.
const panSurround = 0x8000

// voiceFilter is a resonant filter setup of the voice.
type voiceFilter struct {
	cutoff    int
	resonance int
	a0        int
	b0        int
	b1        int
}

// mixerVoice is a physical voice.
//
// It's a plain value: the snapshots copy the voices array as is.
type mixerVoice struct {
	// chn is a logical channel that plays this voice or freeSlot.
	chn int
	// root is a pattern track that started the note.
	root int

	note int
	key  int
	ins  int
	smp  int
	act  voiceAction

	vol    int
	pan    int
	period float64

	pos   float64
	pos0  int
	start int
	end   int

	oldVL  int
	oldVR  int
	sleft  int
	sright int

	flags voiceFlags

	filter voiceFilter
	fl1    int
	fl2    int

	queuedSmp int
}

func (vi *mixerVoice) hasActiveSustainLoop(smp *modfile.Sample) bool {
	return smp.Flags&modfile.SampleSustainLoop != 0 && vi.flags&voiceRelease == 0
}

func (vi *mixerVoice) hasActiveLoop(smp *modfile.Sample) bool {
	return smp.Flags&modfile.SampleLoop != 0 || vi.hasActiveSustainLoop(smp)
}

// adjustEnd sets the playback range for the current loop state.
func (vi *mixerVoice) adjustEnd(smp *modfile.Sample) {
	vi.flags &^= voiceBidir

	switch {
	case vi.hasActiveSustainLoop(smp):
		vi.start = smp.SustainStart
		vi.end = smp.SustainEnd
		if smp.Flags&modfile.SampleSustainLoopBidir != 0 {
			vi.flags |= voiceBidir
		}
	case smp.Flags&modfile.SampleLoop != 0:
		vi.start = smp.LoopStart
		if smp.Flags&modfile.SampleLoopFull != 0 && vi.flags&voiceSampleLoop == 0 {
			vi.end = smp.Length
		} else {
			vi.end = smp.LoopEnd
			if smp.Flags&modfile.SampleLoopBidir != 0 {
				vi.flags |= voiceBidir
			}
		}
	default:
		vi.start = 0
		vi.end = smp.Length
	}
}

// loopReposition moves the position that crossed the loop edge back into the loop.
// It reports whether the voice entered the loop for the first time.
func (vi *mixerVoice) loopReposition(smp *modfile.Sample, bidirAdjust int) bool {
	loopChanged := vi.flags&voiceSampleLoop == 0
	vi.flags |= voiceSampleLoop
	if loopChanged {
		vi.adjustEnd(smp)
	}

	if vi.flags&voiceBidir == 0 {
		if vi.flags&voiceReverse == 0 {
			vi.pos -= float64(vi.end - vi.start)
		} else {
			vi.pos += float64(vi.end - vi.start)
		}
		return loopChanged
	}

	vi.flags ^= voiceReverse
	if vi.flags&voiceReverse != 0 {
		vi.pos = float64(vi.end*2-bidirAdjust) - vi.pos
	} else {
		vi.pos = float64(vi.start*2) - vi.pos
	}
	return loopChanged
}

// loopWraparound temporarily replaces the PCM frames around the loop
// edges, so the interpolators read the loop continuation there.
type loopWraparound struct {
	pcm      []int16
	start    int
	end      int
	prologue int16
	epilogue [2]int16
	active   bool
}

func (w *loopWraparound) init(pcm []int16, vi *mixerVoice, smp *modfile.Sample, nearest bool) {
	if nearest || smp.Flags&modfile.SampleLoop == 0 {
		w.active = false
		return
	}

	w.pcm = pcm
	w.start = vi.start + samplePad
	w.end = vi.end + samplePad
	w.active = true

	w.prologue = pcm[w.start-1]
	w.epilogue[0] = pcm[w.end]
	w.epilogue[1] = pcm[w.end+1]

	bidir := vi.flags&voiceBidir != 0
	if vi.flags&voiceSampleLoop != 0 {
		if bidir {
			pcm[w.start-1] = pcm[w.start]
		} else {
			pcm[w.start-1] = pcm[w.end-1]
		}
	}
	for i := 0; i < len(w.epilogue); i++ {
		if bidir {
			pcm[w.end+i] = pcm[w.end-1-i]
		} else {
			pcm[w.end+i] = pcm[w.start+i]
		}
	}
}

func (w *loopWraparound) reset() {
	if !w.active {
		return
	}
	w.pcm[w.start-1] = w.prologue
	w.pcm[w.end] = w.epilogue[0]
	w.pcm[w.end+1] = w.epilogue[1]
	w.active = false
}
