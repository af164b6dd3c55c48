package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// eventReaderST3 reads the Scream Tracker 3 events.
type eventReaderST3 struct{}

func (eventReaderST3) readEvent(s *Session, e *modfile.Event, chn int) {
	m := s.m
	xc := &s.p.xc[chn]

	xc.flags = 0
	note := -1
	notSameIns := false
	useInsVol := false

	isTonePorta := isEventTonePorta(e)
	if s.virt.mapChannel(chn) < 0 && xc.ins != int(e.Instrument)-1 {
		isTonePorta = false
	}

	if e.Instrument != 0 {
		ins := int(e.Instrument) - 1
		xc.set(chNewIns)
		useInsVol = true
		xc.fadeout = 0x10000
		xc.perFlags = 0
		xc.offset.val = 0
		xc.resetNote(noteRelease | noteFadeout)

		if m.isValidInstrument(ins) {
			if xc.ins != ins {
				notSameIns = true
				if !isTonePorta {
					xc.ins = ins
					xc.insFade = m.instrument(ins).Fadeout
				} else if sub := m.getSubInstrument(ins, int(e.Note)-1); sub != nil {
					// Take the volume of the new instrument only.
					xc.volume = sub.Volume
					useInsVol = false
				}
			}
		} else {
			xc.flags = 0
			useInsVol = false
		}
	}

	if e.Note != 0 {
		xc.set(chNewNote)
		switch {
		case e.Note == modfile.NoteKeyOff:
			xc.setNote(noteRelease)
			useInsVol = false
		case isTonePorta:
			// Tone portamento always retriggers the sample.
			if notSameIns {
				xc.offset.val = 0
			}
		case isValidNote(int(e.Note) - 1):
			xc.key = int(e.Note) - 1
			xc.resetNote(noteEnd)
			if sub := m.getSubInstrument(xc.ins, xc.key); sub != nil {
				note = xc.key + sub.Transpose + s.keyTranspose(xc.ins, xc.key)
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
	}

	s.processFx(xc, chn, e, 1)
	s.processFx(xc, chn, e, 0)

	s.setPeriod(note, sub, xc, isTonePorta)

	if sub == nil {
		return
	}

	if note >= 0 {
		xc.note = note
		s.virtVoicePos(chn, float64(xc.offset.val))
	}

	if useInsVol && !xc.test(chNewVol) {
		xc.volume = sub.Volume
	}
	// ST3 scales the new volume by the global volume.
	if m.hasQuirk(modfile.QuirkSt3Bugs) && xc.test(chNewVol) {
		xc.volume = xc.volume * s.p.gvol / m.volBase
	}
}
