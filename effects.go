package modplay

import (
	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

// effectMemory implements the "zero parameter recalls the last value" rule.
// ST3 shares a single memory slot between most of the effects.
func (s *Session) effectMemory(xc *channel, p *int, mem *int) {
	if s.m.hasQuirk(modfile.QuirkSt3Bugs) {
		mem = &xc.vol.memory
	}
	recallMemory(p, mem)
}

func (s *Session) effectMemorySetOnly(xc *channel, p *int, mem *int) {
	recallMemory(p, mem)
	if s.m.hasQuirk(modfile.QuirkSt3Bugs) && *p != 0 {
		xc.vol.memory = *p
	}
}

func (s *Session) effectMemoryS3M(xc *channel, p *int) {
	if s.m.hasQuirk(modfile.QuirkSt3Bugs) {
		recallMemory(p, &xc.vol.memory)
	}
}

func recallMemory(p *int, mem *int) {
	if *p == 0 {
		*p = *mem
	} else {
		*mem = *p
	}
}

// doTonePorta sets the tone portamento target for the 1-based note.
func (s *Session) doTonePorta(xc *channel, note int) {
	ins := s.m.instrument(xc.ins)
	mapped := 0
	if isValidNote(xc.key) {
		mapped = int(ins.Keymap[xc.key].Sub)
	}
	if mapped >= len(ins.Subs) {
		mapped = 0
	}

	if isValidNote(note-1) && s.m.isValidInstrument(xc.ins) && len(ins.Subs) != 0 {
		sub := &ins.Subs[mapped]
		note--
		mappedXpo := 0
		if isValidNote(xc.keyPorta) {
			mappedXpo = int(ins.Keymap[xc.keyPorta].Transpose)
		}
		xc.porta.target = s.m.noteToPeriod(note+sub.Transpose+mappedXpo, xc.finetune, xc.perAdj)
	}

	if xc.period < xc.porta.target {
		xc.porta.dir = 1
	} else {
		xc.porta.dir = -1
	}
}

func finePortaUp(xc *channel, p int) {
	if p != 0 {
		xc.set(chFineBend)
		xc.freq.fslide = float64(-p)
	}
}

func finePortaDown(xc *channel, p int) {
	if p != 0 {
		xc.set(chFineBend)
		xc.freq.fslide = float64(p)
	}
}

func extraFinePortaUp(xc *channel, p int) {
	xc.set(chFineBend)
	xc.freq.fslide = -0.25 * float64(p)
}

func extraFinePortaDown(xc *channel, p int) {
	xc.set(chFineBend)
	xc.freq.fslide = 0.25 * float64(p)
}

func fineVolSlideUp(xc *channel, p int) {
	xc.set(chFineVols)
	xc.vol.fslide = p
}

func fineVolSlideDown(xc *channel, p int) {
	xc.set(chFineVols)
	xc.vol.fslide = -p
}

func (s *Session) doSetPan(xc *channel, p int, e *modfile.Event, fnum int) {
	// FT2 ignores the volume column panning on a delayed key off.
	ignored := s.m.hasQuirk(modfile.QuirkFt2Bugs) && fnum != 0 &&
		e.Note == modfile.NoteKeyOff && e.FxType == fx.Extended && msn(int(e.FxParam)) == fx.ExDelay
	if !ignored {
		xc.pan.val = p
	}
	xc.rpv = 0
	xc.pan.surround = false
}

func (s *Session) doPatternDelay(p int) {
	if s.m.dialect != modfile.DialectST3 || s.p.flow.delay == 0 {
		s.p.flow.delay = p
	}
}

func (s *Session) doSpeed(p int) {
	if p != 0 {
		s.p.speed = p
		s.p.st26 = 0
	}
}

func (s *Session) doBPM(p int) {
	// Lower time factors allow lower BPM values.
	lowest := int(0.5 + s.m.timeFactor*minBPM/10)
	s.p.bpm = max(p, lowest)
}

func (s *Session) doRetrigger(xc *channel, p int) {
	xc.set(chRetrig)
	xc.retrig.val = p
	xc.retrig.count = p + 1
	xc.retrig.typ = 0
	xc.retrig.limit = 0
	if s.m.hasQuirk(modfile.QuirkRtOnce) {
		xc.retrig.limit = 1
	}
}

func setWaveform(l *lfo, p int) {
	l.waveform = lfoWaveform(p & 3)
}

// processFx applies the effect of the event slot fnum (0 is the main
// effect column, 1 is the second one) to the channel.
func (s *Session) processFx(xc *channel, chn int, e *modfile.Event, fnum int) {
	if s.m.dialect != modfile.DialectIT {
		xc.keyPorta = xc.key
	}

	note := int(e.Note)
	fxt := int(e.FxType)
	p := int(e.FxParam)
	if fnum != 0 {
		fxt = int(e.F2Type)
		p = int(e.F2Param)
	}

	s.applyFx(xc, chn, e, fnum, fxt, p, note)
}

func (s *Session) applyFx(xc *channel, chn int, e *modfile.Event, fnum, fxt, p, note int) {
	m := s.m
	f := &s.p.flow

	switch fxt {
	case fx.S3MArpeggio:
		s.effectMemory(xc, &p, &xc.arpeggio.memory)
		fallthrough
	case fx.Arpeggio:
		if !m.hasQuirk(modfile.QuirkArpMem) || p != 0 {
			xc.arpeggio.val[0] = 0
			xc.arpeggio.val[1] = int8(msn(p))
			xc.arpeggio.val[2] = int8(lsn(p))
			xc.arpeggio.size = 3
		}
	case fx.OktArp3:
		if p != 0 {
			xc.arpeggio.val[0] = int8(-msn(p))
			xc.arpeggio.val[1] = 0
			xc.arpeggio.val[2] = int8(lsn(p))
			xc.arpeggio.size = 3
		}
	case fx.OktArp4:
		if p != 0 {
			xc.arpeggio.val[0] = 0
			xc.arpeggio.val[1] = int8(lsn(p))
			xc.arpeggio.val[2] = 0
			xc.arpeggio.val[3] = int8(-msn(p))
			xc.arpeggio.size = 4
		}
	case fx.OktArp5:
		if p != 0 {
			xc.arpeggio.val[0] = int8(lsn(p))
			xc.arpeggio.val[1] = int8(lsn(p))
			xc.arpeggio.val[2] = 0
			xc.arpeggio.size = 3
		}

	case fx.PortaUp:
		s.effectMemory(xc, &p, &xc.freq.memory)
		if m.hasQuirk(modfile.QuirkFineFx) && (fnum == 0 || !m.hasQuirk(modfile.QuirkItVpor)) {
			switch msn(p) {
			case 0xf:
				finePortaUp(xc, p&0x0f)
				return
			case 0xe:
				extraFinePortaUp(xc, p&0x0f)
				return
			}
		}
		if p != 0 {
			xc.set(chPitchBend)
			xc.freq.slide = -p
			if m.hasQuirk(modfile.QuirkUniSld) {
				xc.porta.memory = p
			}
		}
	case fx.PortaDown:
		// FT2 has the separate up and down memory.
		if m.hasQuirk(modfile.QuirkFt2Bugs) {
			s.effectMemory(xc, &p, &xc.freq.downMemory)
		} else {
			s.effectMemory(xc, &p, &xc.freq.memory)
		}
		if m.hasQuirk(modfile.QuirkFineFx) && (fnum == 0 || !m.hasQuirk(modfile.QuirkItVpor)) {
			switch msn(p) {
			case 0xf:
				finePortaDown(xc, p&0x0f)
				return
			case 0xe:
				extraFinePortaDown(xc, p&0x0f)
				return
			}
		}
		if p != 0 {
			xc.set(chPitchBend)
			xc.freq.slide = p
			if m.hasQuirk(modfile.QuirkUniSld) {
				xc.porta.memory = p
			}
		}

	case fx.TonePorta:
		s.effectMemorySetOnly(xc, &p, &xc.porta.memory)
		if p != 0 {
			if m.hasQuirk(modfile.QuirkUniSld) {
				xc.freq.memory = p
			}
			xc.porta.slide = p
		}
		if m.hasQuirk(modfile.QuirkIgStPor) && note == 0 && xc.porta.dir == 0 {
			return
		}
		if !m.isValidInstrument(xc.ins) {
			return
		}
		s.doTonePorta(xc, note)
		xc.set(chTonePorta)

	case fx.Vibrato:
		s.effectMemorySetOnly(xc, &p, &xc.vibrato.memory)
		xc.set(chVibrato)
		xc.vibrato.lfo.setDepthNotZero(lsn(p)<<2, msn(p))
	case fx.FineVibrato:
		s.effectMemorySetOnly(xc, &p, &xc.vibrato.memory)
		xc.set(chVibrato)
		xc.vibrato.lfo.setDepthNotZero(lsn(p), msn(p))
	case fx.Vibrato2:
		xc.set(chVibrato)
		xc.vibrato.lfo.setDepthNotZero(lsn(p)<<3, msn(p))

	case fx.ToneVSlide:
		if !m.isValidInstrument(xc.ins) {
			return
		}
		s.doTonePorta(xc, note)
		xc.set(chTonePorta)
		s.volSlide(xc, p)
	case fx.VibraVSlide:
		xc.set(chVibrato)
		s.volSlide(xc, p)

	case fx.Tremolo:
		s.effectMemory(xc, &p, &xc.tremolo.memory)
		xc.set(chTremolo)
		xc.tremolo.lfo.setDepthNotZero(lsn(p), msn(p))

	case fx.SetPan:
		if m.hasQuirk(modfile.QuirkProTrack) {
			return
		}
		s.doSetPan(xc, p, e, fnum)

	case fx.Offset:
		s.effectMemory(xc, &p, &xc.offset.memory)
		xc.set(chOffset)
		if note != 0 {
			xc.offset.val &^= 0xffff
			xc.offset.val |= p << 8
			xc.offset.val2 = p << 8
		}
		if e.Instrument != 0 {
			xc.offset.val2 = p << 8
		}
	case fx.HiOffset:
		xc.offset.val &= 0xffff
		xc.offset.val |= p << 16

	case fx.VolSlide:
		s.volSlide(xc, p)
	case fx.VolSlide2:
		xc.set(chVolSlide2)
		if p != 0 {
			xc.vol.slide2 = slideValue(p)
		}
	case fx.VolSet:
		xc.set(chNewVol)
		xc.volume = p
		if xc.split != 0 {
			s.p.xc[xc.pair].volume = xc.volume
		}

	case fx.Jump:
		f.patternJump(p)
	case fx.Break:
		f.patternBreak(10*msn(p) + lsn(p))
	case fx.ITBreak:
		f.patternBreak(p)
	case fx.LineJump:
		f.lineJump(s.p.ord, p)

	case fx.Extended:
		s.effectMemoryS3M(xc, &p)
		s.extendedFx(xc, chn, e, fnum, msn(p), lsn(p), note)

	case fx.Speed:
		if m.hasQuirk(modfile.QuirkNoBPM) || s.p.flags&FlagVBlank != 0 || p < 0x20 {
			s.doSpeed(p)
			return
		}
		s.doBPM(p)
	case fx.S3MSpeed:
		s.effectMemoryS3M(xc, &p)
		s.doSpeed(p)
	case fx.S3MBPM:
		s.doBPM(p)
	case fx.SpeedCP:
		s.doSpeed(p)
		xc.perFlags = 0
	case fx.UltTempo:
		switch {
		case p == 0:
			s.p.speed = 6
			s.p.st26 = 0
			s.doBPM(125)
		case p < 0x30:
			s.effectMemoryS3M(xc, &p)
			s.doSpeed(p)
		default:
			s.doBPM(p)
		}
	case fx.IceSpeed:
		if p != 0 {
			if lsn(p) != 0 {
				s.p.st26 = msn(p)<<8 | lsn(p)
			} else {
				s.p.st26 = msn(p)
			}
		}
	case fx.ITBPM:
		switch msn(p) {
		case 0:
			// T00 repeats the previous slide.
			xc.set(chTempoSlide)
			if lsn(p) != 0 {
				xc.tempo.slide = -lsn(p)
			}
		case 1:
			xc.set(chTempoSlide)
			xc.tempo.slide = lsn(p)
		default:
			s.p.bpm = max(p, minBPM)
		}
	case fx.ITRowDelay:
		if f.rowDelaySet == 0 {
			f.rowDelay = p
			f.rowDelaySet = rowDelayOn | rowDelayFirstFrame
		}
	case fx.PattDelay:
		s.doPatternDelay(p)

	case fx.FineTune:
		xc.finetune = p - 0x80

	case fx.FVSlideUp:
		s.effectMemory(xc, &p, &xc.fineVol.upMemory)
		fineVolSlideUp(xc, p)
	case fx.FVSlideDown:
		s.effectMemory(xc, &p, &xc.fineVol.upMemory)
		fineVolSlideDown(xc, p)
	case fx.FVSlide:
		xc.set(chFineVols)
		if p != 0 {
			xc.vol.fslide = slideValue(p)
		}
	case fx.FPortaUp:
		finePortaUp(xc, p)
	case fx.FPortaDown:
		finePortaDown(xc, p)

	// The volume column slides share their own memory.
	case fx.VSlideUp2:
		s.effectMemory(xc, &p, &xc.vol.memory2)
		xc.set(chVolSlide2)
		xc.vol.slide2 = p
	case fx.VSlideDown2:
		s.effectMemory(xc, &p, &xc.vol.memory2)
		xc.set(chVolSlide2)
		xc.vol.slide2 = -p
	case fx.FVSlideUp2:
		s.effectMemory(xc, &p, &xc.vol.memory2)
		xc.set(chFineVols2)
		xc.vol.fslide2 = p
	case fx.FVSlideDn2:
		s.effectMemory(xc, &p, &xc.vol.memory2)
		xc.set(chFineVols2)
		xc.vol.fslide2 = -p

	case fx.VSlideUp, fx.VSlideDown:
		if m.hasQuirk(modfile.QuirkFineFx) && msn(p) == 0xf && lsn(p) != 0 {
			if fxt == fx.VSlideUp {
				fineVolSlideUp(xc, p&0x0f)
			} else {
				fineVolSlideDown(xc, p&0x0f)
			}
			return
		}
		if p != 0 {
			xc.vol.slide = p
			if fxt == fx.VSlideDown {
				xc.vol.slide = -p
			}
		}
		xc.set(chVolSlide)

	case fx.GlobalVol:
		s.p.gvol = min(p, m.gvolBase)
	case fx.GVolSlide:
		if p == 0 {
			p = xc.gvol.memory
			if p == 0 {
				return
			}
		}
		xc.set(chGVolSlide)
		xc.gvol.memory = p
		h, l := msn(p), lsn(p)
		switch {
		case m.hasQuirk(modfile.QuirkFineFx) && l == 0xf && h != 0:
			xc.gvol.slide = 0
			xc.gvol.fslide = h
		case m.hasQuirk(modfile.QuirkFineFx) && h == 0xf && l != 0:
			xc.gvol.slide = 0
			xc.gvol.fslide = -l
		default:
			xc.gvol.slide = slideValue(p)
			xc.gvol.fslide = 0
		}

	case fx.KeyOff:
		xc.keyOff = p + 1
	case fx.EnvPos:
		// FT2 only sets the pan envelope position when
		// the volume envelope has the sustain flag.
		if m.hasQuirk(modfile.QuirkFt2Bugs) {
			if m.isValidInstrument(xc.ins) && m.instrument(xc.ins).VolumeEnvelope.Flags.SustainEnabled() {
				xc.pIdx = p
			}
		} else {
			xc.pIdx = p
		}
		xc.vIdx = p
		xc.fIdx = p

	case fx.PanSlide:
		s.effectMemory(xc, &p, &xc.pan.memory)
		xc.set(chPanSlide)
		xc.pan.slide = lsn(p) - msn(p)
	case fx.PanSlideNoMem:
		xc.set(chPanSlide)
		xc.pan.slide = lsn(p) - msn(p)
	case fx.ITPanSlide:
		xc.set(chPanSlide)
		if p == 0 {
			return
		}
		switch {
		case msn(p) == 0xf:
			xc.pan.slide = 0
			xc.pan.fslide = lsn(p)
		case lsn(p) == 0xf:
			xc.pan.slide = 0
			xc.pan.fslide = -msn(p)
		default:
			xc.pan.slide = lsn(p) - msn(p)
			xc.pan.fslide = 0
		}

	case fx.MultiRetrig:
		s.effectMemoryS3M(xc, &p)
		if p != 0 {
			xc.retrig.val = lsn(p)
			xc.retrig.typ = msn(p)
		}
		if note != 0 {
			xc.retrig.count = xc.retrig.val + 1
		}
		xc.retrig.limit = 0
		xc.set(chRetrig)
	case fx.Retrig:
		s.doRetrigger(xc, p)
	case fx.MEDRetrig:
		xc.set(chRetrig)
		xc.retrig.val = lsn(p)
		xc.retrig.count = lsn(p) + 1
		xc.retrig.typ = 0
		xc.retrig.limit = 0

	case fx.Tremor:
		s.effectMemory(xc, &p, &xc.tremor.memory)
		xc.tremor.up = msn(p)
		xc.tremor.down = lsn(p)
		if s.dialect.ft2Tremor {
			xc.tremor.count |= 0x80
		} else {
			xc.tremor.up = max(xc.tremor.up, 1)
			xc.tremor.down = max(xc.tremor.down, 1)
		}
		xc.set(chTremor)

	case fx.XFPorta:
		h := msn(p)
		p &= 0x0f
		switch h {
		case 1:
			s.effectMemory(xc, &p, &xc.finePorta.xfUpMemory)
			extraFinePortaUp(xc, p)
		case 2:
			s.effectMemory(xc, &p, &xc.finePorta.xfDnMemory)
			extraFinePortaDown(xc, p)
		}

	case fx.Surround:
		xc.pan.surround = p != 0
	case fx.Reverse:
		s.virtReverse(chn, p != 0)

	case fx.TrkVol:
		if p <= m.volBase {
			xc.masterVol = p
		}
	case fx.TrkVSlide:
		if p == 0 {
			p = xc.trackVol.memory
			if p == 0 {
				return
			}
		}
		if m.hasQuirk(modfile.QuirkFineFx) {
			h, l := msn(p), lsn(p)
			if h == 0xf && l != 0 {
				xc.trackVol.memory = p
				trackFineVolSlide(xc, p&0x0f)
				return
			}
			if l == 0xf && h != 0 {
				xc.trackVol.memory = p
				trackFineVolSlide(xc, p&0xf0)
				return
			}
		}
		xc.set(chTrkVSlide)
		xc.trackVol.memory = p
		if m.hasQuirk(modfile.QuirkVolPdn) {
			xc.trackVol.slide = slideValueDownFirst(p)
		} else {
			xc.trackVol.slide = slideValue(p)
		}
	case fx.TrkFVSlide:
		trackFineVolSlide(xc, p)

	case fx.ITInstFunc:
		s.instrumentFunc(xc, chn, p)

	case fx.FltCutoff:
		xc.filter.cutoff = p
	case fx.FltResonance:
		xc.filter.resonance = p
	case fx.MacroSet:
		xc.macro.active = lsn(p)
	case fx.Macro:
		xc.set(chMidiMacro)
		xc.macro.val = float32(p)
		xc.macro.slide = 0
	case fx.MacroSmooth:
		if s.p.speed != 0 && xc.macro.val < 0x80 {
			xc.set(chMidiMacro)
			xc.macro.target = float32(p)
			xc.macro.slide = (float32(p) - xc.macro.val) / float32(s.p.speed)
		}

	case fx.Panbrello:
		xc.set(chPanbrello)
		xc.panbrello.lfo.setDepthNotZero(lsn(p)<<4, msn(p))
	case fx.PanbrelloWF:
		setWaveform(&xc.panbrello.lfo, p)

	case fx.VolAdd, fx.VolSub:
		if !m.isValidInstrument(xc.ins) {
			return
		}
		ins := m.instrument(xc.ins)
		base := 0
		if len(ins.Subs) != 0 {
			base = ins.Subs[0].Volume
		}
		xc.set(chNewVol)
		if fxt == fx.VolAdd {
			xc.volume = min(base+p, m.volBase)
		} else {
			xc.volume = max(base-p, 0)
		}
	case fx.PitchAdd:
		xc.setPer(chTonePorta)
		xc.porta.target = m.noteToPeriod(note-1, xc.finetune, 0) + float64(p)
		xc.porta.slide = 2
		xc.porta.dir = 1
	case fx.PitchSub:
		xc.setPer(chTonePorta)
		xc.porta.target = m.noteToPeriod(note-1, xc.finetune, 0) - float64(p)
		xc.porta.slide = 2
		xc.porta.dir = -1

	case fx.NSlideUp, fx.NSlideDown, fx.NSlideRUp, fx.NSlideRDown:
		retrig := fxt == fx.NSlideRUp || fxt == fx.NSlideRDown
		if p != 0 {
			if retrig {
				xc.retrig.val = msn(p)
				xc.retrig.count = msn(p) + 1
				xc.retrig.typ = 0
				xc.retrig.limit = 0
			}
			if fxt == fx.NSlideUp || fxt == fx.NSlideRUp {
				xc.noteSlide.slide = lsn(p)
			} else {
				xc.noteSlide.slide = -lsn(p)
			}
			xc.noteSlide.speed = msn(p)
			xc.noteSlide.count = msn(p)
		}
		if retrig {
			xc.set(chRetrig)
		}
		xc.set(chNoteSlide)
	case fx.NSlide2Up, fx.NSlide2Down:
		xc.set(chNoteSlide)
		xc.noteSlide.slide = p
		if fxt == fx.NSlide2Down {
			xc.noteSlide.slide = -p
		}
		xc.noteSlide.speed = 1
		xc.noteSlide.count = 1
	case fx.FNSlideUp:
		xc.set(chFineNSlide)
		xc.noteSlide.fslide = p
	case fx.FNSlideDown:
		xc.set(chFineNSlide)
		xc.noteSlide.fslide = -p

	case fx.PerVibrato:
		if lsn(p) != 0 {
			xc.setPer(chVibrato)
		} else {
			xc.resetPer(chVibrato)
		}
		xc.vibrato.lfo.setDepthNotZero(lsn(p)<<2, msn(p))
	case fx.PerPortaUp, fx.PerPortaDown:
		xc.setPer(chPitchBend)
		xc.freq.slide = -p
		if fxt == fx.PerPortaDown {
			xc.freq.slide = p
		}
		xc.freq.memory = p
		if p == 0 {
			xc.resetPer(chPitchBend)
		}
	case fx.PerTPorta:
		if !m.isValidInstrument(xc.ins) {
			return
		}
		xc.setPer(chTonePorta)
		s.doTonePorta(xc, note)
		xc.porta.slide = p
		if p == 0 {
			xc.resetPer(chTonePorta)
		}
	case fx.PerVSldUp, fx.PerVSldDown:
		xc.setPer(chVolSlide)
		xc.vol.slide = p
		if fxt == fx.PerVSldDown {
			xc.vol.slide = -p
		}
		if p == 0 {
			xc.resetPer(chVolSlide)
		}
	case fx.PerCancel:
		xc.perFlags = 0

	case fx.UltTPorta:
		if !m.isValidInstrument(xc.ins) {
			return
		}
		xc.setPer(chTonePorta)
		s.effectMemory(xc, &p, &xc.porta.memory)
		s.effectMemory(xc, &note, &xc.porta.noteMemory)
		s.doTonePorta(xc, note)
		xc.porta.slide = p
		if p == 0 {
			xc.resetPer(chTonePorta)
		}
	}
}

// volSlide handles the main column volume slide, including the
// fine slides that some dialects encode in the same parameter.
func (s *Session) volSlide(xc *channel, p int) {
	m := s.m
	if m.hasQuirk(modfile.QuirkFineFx) {
		h, l := msn(p), lsn(p)
		if l == 0xf && h != 0 {
			xc.vol.memory = p
			fineVolSlideUp(xc, h)
			return
		}
		if h == 0xf && l != 0 {
			xc.vol.memory = p
			fineVolSlideDown(xc, l)
			return
		}
	}

	if p == 0 && xc.vol.memory != 0 {
		s.volSlide(xc, xc.vol.memory)
		return
	}

	xc.set(chVolSlide)
	// A zero parameter doesn't touch the memory.
	if p != 0 {
		xc.vol.memory = p
		if m.hasQuirk(modfile.QuirkVolPdn) {
			xc.vol.slide = slideValueDownFirst(p)
		} else {
			xc.vol.slide = slideValue(p)
		}
	}

	// D0F and DF0 slide on every tick, including the first one.
	if m.hasQuirk(modfile.QuirkFineFx) {
		if msn(xc.vol.memory) == 0xf || lsn(xc.vol.memory) == 0xf {
			xc.set(chFineVols)
			xc.vol.fslide = xc.vol.slide
		}
	}
}

// slideValue decodes the "xy" slide parameter where x slides up
// and has a priority over y.
func slideValue(p int) int {
	if h := msn(p); h != 0 {
		return h
	}
	return -lsn(p)
}

func slideValueDownFirst(p int) int {
	if l := lsn(p); l != 0 {
		return -l
	}
	return msn(p)
}

func trackFineVolSlide(xc *channel, p int) {
	xc.set(chTrkFVSlide)
	if p != 0 {
		xc.trackVol.fslide = msn(p) - lsn(p)
	}
}

func (s *Session) instrumentFunc(xc *channel, chn, p int) {
	switch p {
	case 0:
		s.virtPastNote(chn, actionCut)
	case 1:
		s.virtPastNote(chn, actionOff)
	case 2:
		s.virtPastNote(chn, actionFade)
	case 3:
		s.virtSetNNA(chn, actionCut)
	case 4:
		s.virtSetNNA(chn, actionCont)
	case 5:
		s.virtSetNNA(chn, actionOff)
	case 6:
		s.virtSetNNA(chn, actionFade)
	case 7:
		xc.setPer(chVEnvPause)
	case 8:
		xc.resetPer(chVEnvPause)
	case 9:
		xc.setPer(chPEnvPause)
	case 0xa:
		xc.resetPer(chPEnvPause)
	case 0xb:
		xc.setPer(chFEnvPause)
	case 0xc:
		xc.resetPer(chFEnvPause)
	}
}

func (s *Session) extendedFx(xc *channel, chn int, e *modfile.Event, fnum, cmd, p, note int) {
	switch cmd {
	case fx.ExFilter:
		if s.m.dialect == modfile.DialectMOD {
			s.p.amigaFilter = p&1 == 0
		}
	case fx.ExFPortaUp:
		s.effectMemory(xc, &p, &xc.finePorta.upMemory)
		finePortaUp(xc, p)
	case fx.ExFPortaDown:
		s.effectMemory(xc, &p, &xc.finePorta.downMemory)
		finePortaDown(xc, p)
	case fx.ExGliss:
		if p != 0 {
			xc.setNote(noteGlissando)
		} else {
			xc.resetNote(noteGlissando)
		}
	case fx.ExVibratoWF:
		setWaveform(&xc.vibrato.lfo, p)
	case fx.ExFineTune:
		if !s.m.hasQuirk(modfile.QuirkFt2Bugs) || note > 0 {
			xc.finetune = int(int8(uint8(p << 4)))
		}
	case fx.ExPattLoop:
		s.patternLoop(&s.p.flow, chn, s.p.row, p)
	case fx.ExTremoloWF:
		setWaveform(&xc.tremolo.lfo, p)
	case fx.ExSetPan:
		s.doSetPan(xc, p<<4, e, fnum)
	case fx.ExRetrig:
		s.doRetrigger(xc, p)
	case fx.ExFVSlideUp:
		s.effectMemory(xc, &p, &xc.fineVol.upMemory)
		fineVolSlideUp(xc, p)
	case fx.ExFVSlideDn:
		s.effectMemory(xc, &p, &xc.fineVol.downMemory)
		fineVolSlideDown(xc, p)
	case fx.ExCut:
		xc.set(chRetrig)
		xc.setNote(noteCut) // for the IT cut carry
		xc.retrig.val = p + 1
		xc.retrig.count = xc.retrig.val
		xc.retrig.typ = 0x10
	case fx.ExDelay:
		// Handled by the row reader.
	case fx.ExPattDelay:
		s.doPatternDelay(p)
	case fx.ExInvLoop:
		xc.invLoop.speed = p
	}
}

// splitSpeed selects the half of the ST2.6 split speed for the next row.
func splitSpeed(st26 int) int {
	if st26&0x10000 != 0 {
		return (st26 & 0xff00) >> 8
	}
	return st26 & 0xff
}
