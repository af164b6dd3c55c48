package modplay

import (
	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

func (s *Session) readEvent(e *modfile.Event, chn int) {
	xc := &s.p.xc[chn]
	if e.Instrument != 0 {
		xc.oldIns = int(e.Instrument)
	}
	if xc.testNote(noteSampleEnd) {
		xc.setNote(noteEnd)
	}
	if chn >= s.m.numChannels() {
		return
	}
	s.dialect.reader.readEvent(s, e, chn)
}

func (s *Session) resetEnvelopes(xc *channel) {
	if !s.m.isValidInstrument(xc.ins) {
		return
	}
	xc.resetNote(noteEnvEnd)
	xc.vIdx = -1
	xc.pIdx = -1
	xc.fIdx = -1
}

func (s *Session) resetEnvelopeVolume(xc *channel) {
	if !s.m.isValidInstrument(xc.ins) {
		return
	}
	xc.resetNote(noteEnvEnd)
	xc.vIdx = -1
}

// resetEnvelopesCarry resets the envelopes that don't carry
// their position over to the next note.
func (s *Session) resetEnvelopesCarry(xc *channel) {
	if !s.m.isValidInstrument(xc.ins) {
		return
	}
	ins := s.m.instrument(xc.ins)
	xc.resetNote(noteEnvEnd)
	if ins.VolumeEnvelope.Flags&modfile.EnvelopeCarry == 0 {
		xc.vIdx = -1
	}
	if ins.PanEnvelope.Flags&modfile.EnvelopeCarry == 0 {
		xc.pIdx = -1
	}
	if ins.PitchEnvelope.Flags&modfile.EnvelopeCarry == 0 {
		xc.fIdx = -1
	}
}

func (s *Session) setEffectDefaults(note int, sub *modfile.SubInstrument, xc *channel, isTonePorta bool) {
	if sub != nil && note >= 0 {
		if !s.m.hasQuirk(modfile.QuirkProTrack) {
			xc.finetune = sub.Finetune
		}
		xc.gvl = sub.GlobalVolume

		if sub.FilterCutoff&0x80 != 0 {
			xc.filter.cutoff = (sub.FilterCutoff - 0x80) * 2
		}
		xc.filter.envelope = 0x100
		if sub.FilterResonance&0x80 != 0 {
			xc.filter.resonance = (sub.FilterResonance - 0x80) * 2
		}
		// A tone portamento keeps the previous filter running.
		xc.filter.canDisable = !isTonePorta

		xc.insVib.lfo = lfo{
			waveform: lfoWaveform(sub.VibratoWaveform),
			depth:    sub.VibratoDepth,
			rate:     (sub.VibratoRate + 2) >> 2,
		}
		xc.insVib.sweep = sub.VibratoSweep

		xc.vibrato.lfo.phase = 0
		xc.tremolo.lfo.phase = 0
	}

	xc.delay = 0
	xc.tremor.up = 0
	xc.tremor.down = 0

	// Reset the arpeggio to avoid the leftovers on the next note.
	xc.arpeggio.val[0] = 0
	xc.arpeggio.count = 0
	xc.arpeggio.size = 1
}

// setPeriod sets the channel period for the note or,
// for a tone portamento, its target.
func (s *Session) setPeriod(note int, sub *modfile.SubInstrument, xc *channel, isTonePorta bool) {
	if sub == nil || note < 0 {
		return
	}
	per := s.m.noteToPeriod(note, xc.finetune, xc.perAdj)
	if s.m.hasQuirk(modfile.QuirkProTrack) || (note > 0 && isTonePorta) {
		xc.porta.target = per
	}
	if xc.period < 1 || !isTonePorta {
		xc.period = per
	}
}

func (s *Session) setPeriodFT2(note int, sub *modfile.SubInstrument, xc *channel, isTonePorta bool) {
	if note > 0 && isTonePorta {
		xc.porta.target = s.m.noteToPeriod(note, xc.finetune, xc.perAdj)
	}
	if sub != nil && note >= 0 {
		if xc.period < 1 || !isTonePorta {
			xc.period = s.m.noteToPeriod(note, xc.finetune, xc.perAdj)
		}
	}
}

func isSfxPitch(t uint8) bool { return t == fx.PitchAdd || t == fx.PitchSub }

func isEventTonePorta(e *modfile.Event) bool {
	return fx.IsTonePorta(e.FxType) || fx.IsTonePorta(e.F2Type)
}

func (s *Session) setPatch(chn, ins, smp, note int) int {
	return s.virtSetPatch(chn, ins, smp, note, 0, actionCut, modfile.DuplicateCheckOff, actionCut)
}

// subSample returns the sample index of the sub-instrument or -1.
func (s *Session) subSample(sub *modfile.SubInstrument) int {
	if !s.m.isValidSample(sub.Sample) {
		return -1
	}
	return sub.Sample
}

// keyTranspose returns the keymap transpose value of the key.
func (s *Session) keyTranspose(ins, key int) int {
	if !isValidNote(key) {
		return 0
	}
	return int(s.m.instrument(ins).Keymap[key].Transpose)
}
