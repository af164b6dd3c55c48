package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// eventReaderMOD reads the events of the Amiga trackers and
// the formats that don't have a dialect of their own.
type eventReaderMOD struct{}

func (eventReaderMOD) readEvent(s *Session, e *modfile.Event, chn int) {
	m := s.m
	xc := &s.p.xc[chn]

	xc.flags = 0
	note := -1
	isTonePorta := isEventTonePorta(e)
	useInsVol := false
	newInvalidIns := false

	if e.Instrument != 0 {
		ins := int(e.Instrument) - 1
		useInsVol = true
		xc.set(chNewIns)
		xc.fadeout = 0x10000
		xc.perFlags = 0
		xc.offset.val = 0
		xc.resetNote(noteRelease | noteFadeout)

		if m.isValidInstrument(ins) {
			sub := m.getSubInstrument(ins, int(e.Note)-1)
			if isTonePorta {
				// Only the volume is taken from the new instrument.
				if sub != nil && xc.split == 0 {
					xc.volume = sub.Volume
				}
				useInsVol = false
			} else {
				xc.ins = ins
				xc.insFade = m.instrument(ins).Fadeout
				if m.hasQuirk(modfile.QuirkProTrack) && sub != nil {
					xc.finetune = sub.Finetune
				}
			}
		} else {
			newInvalidIns = true
			s.virtResetChannel(chn)
		}
	}

	if e.Instrument != 0 && e.Note == 0 && !isTonePorta && !newInvalidIns && m.hasQuirk(modfile.QuirkProTrack) {
		// The playing note switches to the new sample at its loop end.
		if sub := m.getSubInstrument(xc.ins, xc.key); sub != nil && s.virt.mapChannel(chn) >= 0 {
			if smp := s.subSample(sub); smp >= 0 && smp != xc.smp {
				s.virtQueuePatch(chn, xc.ins, smp, xc.note)
				xc.smp = smp
			}
		}
	}

	if e.Note != 0 {
		xc.set(chNewNote)
		key := int(e.Note) - 1

		switch {
		case e.Note == modfile.NoteKeyOff:
			xc.setNote(noteRelease)
			useInsVol = false
		case !isTonePorta && isValidNote(key):
			xc.key = key
			xc.resetNote(noteEnd)

			sub := m.getSubInstrument(xc.ins, key)
			if !newInvalidIns && sub != nil {
				note = key + sub.Transpose + s.keyTranspose(xc.ins, key)
				if smp := s.subSample(sub); smp >= 0 {
					s.setPatch(chn, xc.ins, smp, note)
					xc.smp = smp
				}
			} else {
				xc.flags = 0
				useInsVol = false
			}
		}
	}

	sub := m.getSubInstrument(xc.ins, xc.key)
	s.setEffectDefaults(note, sub, xc, isTonePorta)
	if e.Instrument != 0 && sub != nil {
		s.resetEnvelopes(xc)
	}

	if e.Volume != 0 {
		xc.volume = int(e.Volume) - 1
		xc.set(chNewVol)
		xc.resetPer(chVolSlide)
	}

	// The second effect column goes first.
	s.processFx(xc, chn, e, 1)
	s.processFx(xc, chn, e, 0)

	if isSfxPitch(e.FxType) {
		xc.period = m.noteToPeriod(note, xc.finetune, xc.perAdj)
	} else {
		s.setPeriod(note, sub, xc, isTonePorta)
	}

	if sub == nil {
		return
	}

	if note >= 0 {
		xc.note = note
		s.virtVoicePos(chn, float64(xc.offset.val))
	}

	if xc.test(chOffset) {
		// ProTracker adds the offset twice when the note is retriggered.
		if m.hasQuirk(modfile.QuirkProTrack) {
			xc.offset.val += xc.offset.val2
		}
		xc.reset(chOffset)
	}

	if useInsVol && !xc.test(chNewVol) && xc.split == 0 {
		xc.volume = sub.Volume
	}
}
