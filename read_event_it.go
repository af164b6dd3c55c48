package modplay

import (
	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

// eventReaderIT reads the Impulse Tracker events.
//
// This is the only reader that works with the new note actions,
// so a note may push the previous one to a background channel.
type eventReaderIT struct{}

func hasNoteEvent(e *modfile.Event) bool {
	return e.Note != 0 && int(e.Note) <= modfile.MaxKeys
}

// checkInvalidSample reports whether the instrument has no sample for the key.
func (s *Session) checkInvalidSample(ins, key int) bool {
	if !s.m.isValidInstrument(ins) || !isValidNote(key) {
		return false
	}
	instrument := s.m.instrument(ins)
	mapped := int(instrument.Keymap[key].Sub)
	return mapped == 0xff || mapped >= len(instrument.Subs)
}

func (s *Session) checkFadeout(xc *channel, ins int) bool {
	if !s.m.isValidInstrument(ins) {
		return true
	}
	env := &s.m.instrument(ins).VolumeEnvelope
	return !env.Flags.IsOn() || env.Flags&modfile.EnvelopeCarry == 0 ||
		xc.insFade == 0 || xc.fadeout <= xc.insFade
}

// fixPeriod restores the period of a continued note that was
// interrupted by a tone portamento to another sample.
func (s *Session) fixPeriod(xc *channel, sub *modfile.SubInstrument) {
	if sub.NewNoteAction != modfile.NewNoteContinue {
		return
	}
	note := xc.key + sub.Transpose + s.keyTranspose(xc.ins, xc.keyPorta)
	xc.period = s.m.noteToPeriod(note, xc.finetune, xc.perAdj)
}

func (s *Session) isSameSample(xc *channel, ins, key int) bool {
	s1 := s.m.getSubInstrument(ins, key)
	s2 := s.m.getSubInstrument(xc.ins, xc.key)
	return s1 != nil && s2 != nil && s1.Sample == s2.Sample
}

func (s *Session) copyChannel(to, from int) {
	if to > 0 && to != from {
		s.p.xc[to] = s.p.xc[from]
	}
}

// randomSwing returns a random variation in [0, v], v is clamped to the limit.
func (s *Session) randomSwing(v, limit int) int {
	if v == 0 {
		return 0
	}
	v = clamp(v, 0, limit)
	return s.rng.next() % (v + 1)
}

func (eventReaderIT) readEvent(s *Session, e *modfile.Event, chn int) {
	m := s.m
	xc := &s.p.xc[chn]
	ev := *e

	// IT always reads the instrument of a delayed note.
	if ev.Instrument != 0 {
		xc.delayedIns = 0
	} else if ev.Note != 0 && xc.delayedIns != 0 {
		ev.Instrument = uint8(xc.delayedIns)
		xc.delayedIns = 0
	}

	xc.flags = 0
	note := -1
	notSameIns := false
	notSameSmp := false
	newInvalidIns := false
	resetEnv := false
	resetSusLoop := false
	useInsVol := false
	candidateIns := xc.ins
	sampleMode := !m.hasQuirk(modfile.QuirkVirtual)
	tonePortaOffset := false
	retrigIns := false

	// Key off with an instrument retriggers it in the old effects mode.
	if m.hasQuirk(modfile.QuirkItOldFx) {
		if ev.Note == modfile.NoteKeyOff && m.isValidInstrument(int(ev.Instrument)-1) {
			retrigIns = true
		}
	}

	// The notes of the unmapped instruments are ignored.
	if ev.Instrument != 0 {
		if int(ev.Instrument) <= len(m.mod.Instruments) && hasNoteEvent(&ev) {
			ins := int(ev.Instrument) - 1
			if s.checkInvalidSample(ins, int(ev.Note)-1) {
				candidateIns = ins
				ev = modfile.Event{}
			}
		}
	} else if hasNoteEvent(&ev) {
		ins := xc.oldIns - 1
		if !m.isValidInstrument(ins) {
			newInvalidIns = true
		} else if s.checkInvalidSample(ins, int(ev.Note)-1) {
			ev = modfile.Event{}
		}
	}
	// The event may be cleared above.
	key := int(ev.Note)

	isTonePorta := isEventTonePorta(&ev)
	isRelease := xc.testNote(noteEnvRelease | noteFadeout)
	if xc.period <= 0 || xc.testNote(noteEnd) {
		isTonePorta = false
	}

	if isTonePorta && ev.FxType == fx.Offset {
		tonePortaOffset = true
		if !m.hasQuirk(modfile.QuirkPrEnv) {
			xc.resetNote(noteEnvEnd)
		}
	}

	if ev.Instrument != 0 {
		ins := int(ev.Instrument) - 1
		setNewIns := true

		// Portamento after a key off.
		if isRelease && key == 0 {
			if isTonePorta {
				if m.hasQuirk(modfile.QuirkPrEnv) || xc.testNote(noteSet) {
					isTonePorta = false
					s.resetEnvelopesCarry(xc)
				}
			} else {
				s.resetEnvelopesCarry(xc)
			}
		}

		if isTonePorta && xc.ins == ins && !m.hasQuirk(modfile.QuirkPrEnv) {
			if s.isSameSample(xc, ins, key-1) {
				setNewIns = !isRelease
			} else {
				notSameIns = true
				notSameSmp = true
			}
		}

		if setNewIns {
			xc.set(chNewIns)
			resetEnv = true
		}
		// A valid sample always brings its default volume.
		useInsVol = true
		xc.perFlags = 0

		if m.isValidInstrument(ins) {
			if key == 0 && !xc.testNote(noteKeyCut) {
				// Retrigger the stopped sample in the sample mode.
				if sampleMode && xc.testNote(noteEnd) {
					s.virtVoicePos(chn, 0)
				}
				if xc.ins == ins {
					xc.set(chNewIns)
					useInsVol = true
				} else {
					key = xc.key + 1
				}
				xc.resetNote(noteSet)
			}
			if xc.ins != ins && (!isTonePorta || !m.hasQuirk(modfile.QuirkPrEnv)) {
				candidateIns = ins
				if !s.isSameSample(xc, ins, key-1) {
					notSameIns = true
					if isTonePorta {
						if sub := m.getSubInstrument(ins, key); sub != nil {
							xc.volume = sub.Volume
							useInsVol = false
						}
					}
				}
			}
		} else {
			// An invalid instrument cuts the note in the sample mode.
			if sampleMode {
				xc.volume = 0
			}
			newInvalidIns = true
			xc.flags = 0
			useInsVol = false
		}
	}

	if key != 0 {
		xc.set(chNewNote)
		xc.setNote(noteSet)

		switch {
		case key == modfile.NoteFade:
			xc.setNote(noteFadeout)
			resetEnv = false
			resetSusLoop = false
			useInsVol = false
		case key == modfile.NoteCut:
			xc.setNote(noteEnd | noteCut | noteKeyCut)
			xc.period = 0
			s.virtResetChannel(chn)
		case key == modfile.NoteKeyOff:
			var env *modfile.Envelope
			if m.isValidInstrument(xc.ins) {
				env = &m.instrument(xc.ins).VolumeEnvelope
			}
			if sustainCheck(env, xc.vIdx) {
				xc.setNote(noteSusExit)
			} else {
				xc.setNote(noteRelease)
			}
			xc.set(chKeyOff)
			// An explicit instrument keeps its volume, but the
			// envelopes are never reset by a key off.
			resetEnv = false
			resetSusLoop = false
			if ev.Instrument == 0 {
				useInsVol = false
			}
		case !newInvalidIns:
			// The sample sustain release carries over the tone portamento.
			if !isTonePorta {
				resetEnv = true
				resetSusLoop = true
			} else if notSameIns || xc.testNote(noteEnd) {
				xc.set(chNewIns)
				xc.resetNote(noteEnvRelease | noteSusExit | noteFadeout)
			} else {
				if isValidNote(key - 1) {
					xc.keyPorta = key - 1
				}
				key = 0
			}
		}
	}

	if isValidNote(key-1) && !newInvalidIns {
		if xc.testNote(noteCut) {
			useInsVol = true
		}
		key--
		xc.key = key
		xc.resetNote(noteEnd)

		if sub := m.getSubInstrument(candidateIns, key); sub != nil {
			// The note delay is cleared before the channel is duplicated.
			xc.delay = 0
			note = key + sub.Transpose + s.keyTranspose(candidateIns, key)
			smp := s.subSample(sub)
			dct := sub.DuplicateCheckType
			if notSameSmp {
				s.fixPeriod(xc, sub)
				// Even a skipped tone portamento disables the
				// new note action of the current note.
				s.virtSetNNA(chn, actionCut)
				dct = modfile.DuplicateCheckOff
			}
			to := s.virtSetPatch(chn, candidateIns, smp, note, key,
				newNoteAction(sub.NewNoteAction), dct, duplicateAction(sub.DuplicateCheckAction))

			xc.rvv = s.randomSwing(sub.RandomVolume, 100)
			xc.rpv = 0
			if v := sub.RandomPan; v != 0 {
				v = clamp(v, 0, 64)
				xc.rpv = s.rng.next()%(v+1) - v/2
			}

			if to < 0 {
				return
			}
			if to != chn {
				s.copyChannel(to, chn)
				s.p.xc[to].flags = 0
			}
			if smp >= 0 {
				xc.smp = smp
			}
		} else {
			xc.flags = 0
			useInsVol = false
		}
	}

	// This goes after the background channel copy.
	if (isTonePorta || retrigIns) && m.hasQuirk(modfile.QuirkPrEnv) && ev.Instrument != 0 {
		s.resetEnvelopesCarry(xc)
	}

	if m.isValidInstrument(candidateIns) {
		if xc.ins != candidateIns {
			s.resetEnvelopes(xc)
		}
		xc.ins = candidateIns
		xc.insFade = m.instrument(candidateIns).Fadeout
	}

	// A new instrument restarts the finished volume envelope,
	// unless the envelope carries and the note is still fading.
	if ev.Instrument != 0 && xc.testNote(noteEnvEnd) {
		if s.checkFadeout(xc, candidateIns) {
			s.resetEnvelopeVolume(xc)
		} else {
			resetEnv = false
		}
	}

	if resetEnv {
		if ev.Note != 0 {
			xc.resetNote(noteEnvRelease | noteSusExit | noteFadeout)
		}
		xc.fadeout = 0x10000
	}
	if resetSusLoop && ev.Note != 0 {
		xc.resetNote(noteSampleRelease)
	}

	if retrigIns && notSameIns {
		xc.set(chNewIns)
		s.virtVoicePos(chn, 0)
		xc.fadeout = 0x10000
		xc.resetNote(noteRelease | noteSusExit | noteFadeout)
	}

	sub := m.getSubInstrument(xc.ins, xc.key)
	s.setEffectDefaults(note, sub, xc, isTonePorta)
	if sub != nil && note >= 0 {
		// A new note resets the pan.
		if sub.Pan >= 0 {
			xc.pan.val = sub.Pan
			xc.pan.surround = false
		}
		switch {
		case xc.testNote(noteCut):
			s.resetEnvelopes(xc)
		case !tonePortaOffset || m.hasQuirk(modfile.QuirkPrEnv):
			s.resetEnvelopesCarry(xc)
		}
		xc.resetNote(noteCut)
	}

	// The volume applies even to a key off.
	if ev.Volume != 0 && (!xc.testNote(noteCut) || ev.Instrument != 0) {
		xc.volume = int(ev.Volume) - 1
		xc.set(chNewVol)
	}

	// IT always resets the sample offset.
	xc.offset.val &^= 0xffff

	// The volume column goes after the main effect.
	s.processFx(xc, chn, &ev, 0)
	s.processFx(xc, chn, &ev, 1)

	s.setPeriod(note, sub, xc, isTonePorta)

	if sub == nil {
		return
	}
	if note >= 0 {
		xc.note = note
	}
	if note >= 0 || tonePortaOffset {
		s.virtVoicePos(chn, float64(xc.offset.val))
	}
	if useInsVol && !xc.test(chNewVol) {
		xc.volume = sub.Volume
	}
}
