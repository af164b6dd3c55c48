package modplay

import (
	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

// eventReaderFT2 reads the FastTracker 2 events.
type eventReaderFT2 struct{}

// sustainCheck is envelopeSustained for an optional envelope.
func sustainCheck(env *modfile.Envelope, x int) bool {
	return env != nil && envelopeSustained(env, x)
}

// ft2Pan mixes the sub-instrument pan into the channel default pan.
func ft2Pan(chnPan, subPan int) int {
	pan := chnPan - 128
	return pan + ((subPan-128)*(128-abs(pan)))/128 + 128
}

func (eventReaderFT2) readEvent(s *Session, e *modfile.Event, chn int) {
	m := s.m
	xc := &s.p.xc[chn]

	// FT2 compares an out of range note delay with the song speed,
	// the pattern delay is not taken into account.
	if s.p.frame >= s.p.speed {
		return
	}

	ev := *e

	// A volume command overrides the tremor mute.
	if ev.Volume != 0 {
		xc.tremor.count &^= 0x80
	}

	xc.flags = 0
	note := -1
	key := int(ev.Note)
	ins := int(ev.Instrument)
	newInvalidIns := false
	useInsVol := false
	k00 := false
	chnPan := m.mod.Channels[chn].Pan

	// K00 ignores the note next to it. With an instrument or a volume
	// command and no volume envelope, the note is faded out instead.
	if ev.FxType == fx.KeyOff && ev.FxParam == 0 {
		k00 = true
		key = 0
		if ins != 0 || ev.Volume != 0 || ev.F2Type != 0 {
			if m.isValidInstrument(xc.ins) && !m.instrument(xc.ins).VolumeEnvelope.Flags.IsOn() {
				xc.setNote(noteFadeout)
				ev.FxType = 0
			}
		}
	}

	isTonePorta := isEventTonePorta(&ev)

	// Invalid instruments are ignored here, but the channel still
	// remembers them as the last instrument.
	if ins > 0 && !m.isValidInstrument(ins-1) {
		ins = 0
	}

	// An instrument without a note restores the previous instrument volume.
	if ins != 0 && (key == 0 || key >= modfile.NoteKeyOff) {
		if sub := m.getSubInstrument(xc.ins, xc.key); sub != nil {
			xc.volume = sub.Volume
			if !m.hasQuirk(modfile.QuirkFtMod) {
				xc.pan.val = ft2Pan(chnPan, sub.Pan)
			}
			xc.insFade = m.instrument(xc.ins).Fadeout
			xc.set(chNewVol)
		}
	}

	if ev.Instrument != 0 && key != modfile.NoteFade {
		xc.set(chNewIns)
		useInsVol = true
		xc.perFlags = 0
		xc.resetNote(noteRelease | noteSusExit)
		if !k00 {
			xc.resetNote(noteFadeout)
		}
		xc.fadeout = 0x10000

		if m.isValidInstrument(int(ev.Instrument) - 1) {
			if !isTonePorta {
				xc.ins = int(ev.Instrument) - 1
			}
		} else {
			// FT2 keeps playing the previous sample unless there is a note.
			newInvalidIns = true
			xc.flags = 0
			if isTonePorta {
				key = 0
			}
		}
		xc.tremor.count = 0x20
	}

	if ins != 0 && key > 0 && key < modfile.NoteKeyOff {
		if sub := m.getSubInstrument(xc.ins, key-1); sub != nil {
			xc.volume = sub.Volume
			if !m.hasQuirk(modfile.QuirkFtMod) {
				xc.pan.val = ft2Pan(chnPan, sub.Pan)
			}
			xc.insFade = m.instrument(xc.ins).Fadeout
		} else {
			xc.volume = 0
		}
		xc.set(chNewVol)
	}

	if key != 0 {
		xc.set(chNewNote)

		switch {
		case key == modfile.NoteKeyOff:
			var env *modfile.Envelope
			envOn := false
			volSet := ev.Volume != 0 || ev.FxType == fx.VolSet
			delayFx := ev.FxType == fx.Extended && ev.FxParam == 0xd0

			if m.isValidInstrument(xc.ins) {
				env = &m.instrument(xc.ins).VolumeEnvelope
				envOn = env.Flags.IsOn()
			}

			// Without a volume envelope the key off cuts the sample,
			// unless there is a volume command or a delayed key off.
			if envOn || (!volSet && (ev.Instrument == 0 || !delayFx)) {
				if sustainCheck(env, xc.vIdx) {
					// The release becomes effective on the next frame.
					xc.setNote(noteSusExit)
				} else {
					xc.setNote(noteRelease)
				}
				useInsVol = false
			} else {
				xc.setNote(noteFadeout)
			}

			if envOn && ev.FxType == fx.Extended && msn(int(ev.FxParam)) == fx.ExDelay {
				if lsn(int(ev.FxParam)) != 0 {
					xc.resetNote(noteRelease | noteSusExit)
				}
			}
		case key == modfile.NoteFade:
			xc.setNote(noteFadeout)
		case isTonePorta:
			// The portamento goes from the original note.
			key = 0
		}

		if ev.Instrument == 0 && !m.isValidInstrument(xc.oldIns-1) {
			newInvalidIns = true
		}
		if newInvalidIns {
			s.virtResetChannel(chn)
		}
	}

	// A note that is out of the FT2 range after the transposition
	// is dropped completely.
	var sub *modfile.SubInstrument
	if isValidNote(key - 1) {
		k := key - 1
		sub = m.getSubInstrument(xc.ins, k)
		if !newInvalidIns && sub != nil {
			k2 := k + sub.Transpose + s.keyTranspose(xc.ins, k)
			if k2 < 12 || k2 > 130 {
				key = 0
				xc.reset(chNewNote)
			}
		}
	}

	if isValidNote(key - 1) {
		key--
		xc.key = key
		xc.fadeout = 0x10000
		xc.resetNote(noteEnd)
		if sub != nil && !m.instrument(xc.ins).VolumeEnvelope.Flags.IsOn() {
			xc.resetNote(noteRelease | noteFadeout)
		}

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

	sub = m.getSubInstrument(xc.ins, xc.key)
	s.setEffectDefaults(note, sub, xc, isTonePorta)
	if ins != 0 && sub != nil && !k00 {
		s.resetEnvelopes(xc)
	}

	if ev.Volume != 0 {
		xc.volume = int(ev.Volume) - 1
		xc.set(chNewVol)
		if xc.testNote(noteEnd) {
			xc.fadeout = 0x10000
			xc.resetNote(noteRelease | noteFadeout)
		}
	}

	// FT2 always resets the sample offset.
	xc.offset.val = 0

	s.processFx(xc, chn, &ev, 1)
	s.processFx(xc, chn, &ev, 0)

	s.setPeriodFT2(note, sub, xc, isTonePorta)

	if sub == nil {
		return
	}

	if note >= 0 {
		xc.note = note
		// An offset past the sample end stops the channel.
		smp := s.subSample(sub)
		if m.hasQuirk(modfile.QuirkFt2Bugs) && smp >= 0 && xc.offset.val >= m.sample(smp).Length {
			s.virtResetChannel(chn)
		} else {
			s.virtVoicePos(chn, float64(xc.offset.val))
		}
	}

	if useInsVol && !xc.test(chNewVol) {
		xc.volume = sub.Volume
	}
}
