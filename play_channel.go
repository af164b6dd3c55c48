package modplay

import (
	"math"

	"github.com/quasilyte/modplay/internal/dsp"
	"github.com/quasilyte/modplay/modfile"
)

// retrigVolume describes the volume change of a multi-retrig step:
// the volume becomes (v+add)*mul/div.
type retrigVolume struct {
	add int
	mul int
	div int
}

var retrigVolumes = [...]retrigVolume{
	{0, 1, 1}, {-1, 1, 1}, {-2, 1, 1}, {-4, 1, 1},
	{-8, 1, 1}, {-16, 1, 1}, {0, 2, 3}, {0, 1, 2},
	{0, 1, 1}, {1, 1, 1}, {2, 1, 1}, {4, 1, 1},
	{8, 1, 1}, {16, 1, 1}, {0, 3, 2}, {0, 2, 1},

	// The note cut.
	{0, 0, 1},
}

var invLoopSpeeds = [16]int{
	0, 5, 6, 7, 8, 10, 11, 13, 16, 19, 22, 26, 32, 43, 64, 128,
}

// st3MinPeriod is the A6 period, ST3 never goes higher than that.
const st3MinPeriod = 16.239270

func (s *Session) isFirstFrame() bool {
	switch s.m.dialect {
	case modfile.DialectIT, modfile.DialectST3:
		return s.p.frame%s.p.speed == 0
	default:
		return s.p.frame == 0
	}
}

func (s *Session) getChannelVol(chn int) int {
	if chn < s.virt.numTracks {
		return s.p.channelVol[chn]
	}
	if chn >= s.virt.virtChannels {
		return 0
	}
	root := s.virtGetRoot(chn)
	if root < 0 || root >= len(s.p.channelVol) {
		return 0
	}
	return s.p.channelVol[root]
}

func (s *Session) resetChannels() {
	p := &s.p
	mod := s.m.mod

	for i := range p.xc {
		p.xc[i] = channel{
			ins:    -1,
			oldIns: -1,
			key:    -1,
			volume: s.m.volBase,
		}
	}

	for i := 0; i < s.virt.numTracks; i++ {
		xc := &p.xc[i]
		c := &mod.Channels[i]
		xc.masterVol = c.Volume
		xc.pan.val = c.Pan
		xc.filter.cutoff = 0xff

		// Amiga split channels are paired by their split group.
		if c.Flags&modfile.ChannelSplit != 0 {
			xc.split = uint8((int(c.Flags)&0x30)>>modfile.ChannelSplitShift) + 1
			for j := 0; j < i; j++ {
				if mod.Channels[j].Flags&modfile.ChannelSplit != 0 && p.xc[j].split == xc.split {
					p.xc[j].pair = uint8(i)
					xc.pair = uint8(j)
				}
			}
		}

		if c.Flags&modfile.ChannelSurround != 0 {
			xc.pan.surround = true
		}
	}
}

func (s *Session) arpeggio(xc *channel) int {
	var arp int
	if s.m.hasQuirk(modfile.QuirkFt2Bugs) {
		arp = s.ft2Arpeggio(xc)
	} else {
		arp = int(xc.arpeggio.val[xc.arpeggio.count])
	}
	xc.arpeggio.count++
	xc.arpeggio.count %= xc.arpeggio.size
	return arp
}

// ft2Arpeggio emulates the FT2 arpeggio table overflow.
func (s *Session) ft2Arpeggio(xc *channel) int {
	if xc.arpeggio.val[1] == 0 && xc.arpeggio.val[2] == 0 {
		return 0
	}
	if s.p.frame == 0 {
		return 0
	}
	i := s.p.speed - s.p.frame%s.p.speed
	switch {
	case i == 16:
		return 0
	case i > 16:
		return int(xc.arpeggio.val[2])
	}
	return int(xc.arpeggio.val[i%3])
}

func (s *Session) tremorFT2(xc *channel, finalVol int) int {
	if xc.tremor.count&0x80 == 0 {
		return finalVol
	}
	if xc.test(chTremor) && s.p.frame != 0 {
		xc.tremor.count &^= 0x20
		switch xc.tremor.count {
		case 0x80:
			xc.tremor.count = xc.tremor.up | 0xc0
		case 0xc0:
			xc.tremor.count = xc.tremor.down | 0x80
		default:
			xc.tremor.count--
		}
	}
	if xc.tremor.count&0xe0 == 0x80 {
		return 0
	}
	return finalVol
}

func (s *Session) tremorS3M(xc *channel, finalVol int) int {
	if !xc.test(chTremor) {
		return finalVol
	}
	switch xc.tremor.count {
	case 0:
		xc.tremor.count = xc.tremor.up | 0x80
	case 0x80:
		xc.tremor.count = xc.tremor.down
	}
	xc.tremor.count--
	if xc.tremor.count&0x80 == 0 {
		return 0
	}
	return finalVol
}

// updateMidiMacro runs the filter macros of the channel.
// Only the default macro configuration is supported:
// Z00..Z7F set the cutoff, Z80..Z8F set the resonance.
func (s *Session) updateMidiMacro(xc *channel) {
	if !xc.test(chMidiMacro) || !s.m.hasQuirk(modfile.QuirkFilter) {
		return
	}

	switch {
	case xc.macro.slide > 0:
		xc.macro.val += xc.macro.slide
		if xc.macro.val > xc.macro.target {
			xc.macro.val = xc.macro.target
			xc.macro.slide = 0
		}
	case xc.macro.slide < 0:
		xc.macro.val += xc.macro.slide
		if xc.macro.val < xc.macro.target {
			xc.macro.val = xc.macro.target
			xc.macro.slide = 0
		}
	case s.p.frame != 0:
		// The immediate macros run on the first frame only.
		return
	}

	val := int(xc.macro.val)
	switch {
	case val >= 0x80:
		if val < 0x90 {
			xc.filter.resonance = ((val - 0x80) << 3) << 1
		}
	case xc.macro.active == 0:
		xc.filter.cutoff = val << 1
	}
}

func (s *Session) updateInvLoop(xc *channel) {
	m := s.m
	xc.invLoop.count += invLoopSpeeds[xc.invLoop.speed&0xf]
	if !m.isValidSample(xc.smp) {
		return
	}

	smp := m.sample(xc.smp)
	lps, length := 0, -1
	switch {
	case smp.Flags&modfile.SampleLoop != 0:
		lps = smp.LoopStart
		length = smp.LoopEnd - lps
	case smp.Flags&modfile.SampleSustainLoop != 0:
		lps = smp.SustainStart
		length = smp.SustainEnd - lps
	}

	if length < 0 || xc.invLoop.count < 128 {
		return
	}
	xc.invLoop.count = 0
	xc.invLoop.pos++
	if xc.invLoop.pos > length {
		xc.invLoop.pos = 0
	}

	// Only the 8-bit samples are inverted, their low byte is always zero.
	if smp.Flags&modfile.SampleBits8 == 0 {
		return
	}
	data := &m.samples[xc.smp]
	i := lps + xc.invLoop.pos
	if i < smp.Length {
		data.pcm[i+samplePad] ^= -0x100
		data.dirty = true
	}
}

func (s *Session) updateVolume(xc *channel) {
	p := &s.p
	m := s.m

	// The slides don't happen on the first frame of the row,
	// unless the dialect slides on all frames.
	if p.frame%p.speed != 0 || m.hasQuirk(modfile.QuirkVsAll) {
		if xc.test(chGVolSlide) {
			p.gvol += xc.gvol.slide
		}
		if xc.test(chVolSlide) || xc.testPer(chVolSlide) {
			xc.volume += xc.vol.slide
		}
		if xc.testPer(chVolSlide) {
			if xc.vol.slide > 0 {
				target := max(xc.vol.target-1, m.volBase)
				if xc.volume > target {
					xc.volume = target
					xc.resetPer(chVolSlide)
				}
			}
			if xc.vol.slide < 0 {
				target := 0
				if xc.vol.target > 0 {
					target = min(0, xc.vol.target-1)
				}
				if xc.volume < target {
					xc.volume = target
					xc.resetPer(chVolSlide)
				}
			}
		}
		if xc.test(chVolSlide2) {
			xc.volume += xc.vol.slide2
		}
		if xc.test(chTrkVSlide) {
			xc.masterVol += xc.trackVol.slide
		}
	}

	if p.frame%p.speed == 0 {
		if xc.test(chFineVols) {
			xc.volume += xc.vol.fslide
		}
		// The volume column fine slides are not repeated by the row delay.
		if xc.test(chFineVols2) {
			f := &p.flow
			if f.rowDelaySet == 0 || f.rowDelaySet&rowDelayFirstFrame != 0 {
				xc.volume += xc.vol.fslide2
			}
		}
		if xc.test(chTrkFVSlide) {
			xc.masterVol += xc.trackVol.fslide
		}
		if xc.test(chGVolSlide) {
			p.gvol += xc.gvol.fslide
		}
	}

	xc.volume = clamp(xc.volume, 0, m.volBase)
	p.gvol = clamp(p.gvol, 0, m.gvolBase)
	xc.masterVol = clamp(xc.masterVol, 0, m.volBase)

	if xc.split != 0 {
		p.xc[xc.pair].volume = xc.volume
	}
}

func (s *Session) updateFrequency(xc *channel, chn int) {
	m := s.m
	firstFrame := s.isFirstFrame()

	if !firstFrame || m.hasQuirk(modfile.QuirkPbAll) {
		if xc.test(chPitchBend) || xc.testPer(chPitchBend) {
			xc.period += float64(xc.freq.slide)
			if m.hasQuirk(modfile.QuirkProTrack) {
				xc.porta.target = xc.period
			}
		}

		if (xc.test(chTonePorta) || xc.testPer(chTonePorta)) && xc.porta.target > 0 {
			end := false
			if xc.porta.dir > 0 {
				xc.period += float64(xc.porta.slide)
				end = xc.period >= xc.porta.target
			} else {
				xc.period -= float64(xc.porta.slide)
				end = xc.period <= xc.porta.target
			}
			if end {
				xc.period = xc.porta.target
				xc.porta.dir = 0
				xc.reset(chTonePorta)
				xc.resetPer(chTonePorta)
				if m.hasQuirk(modfile.QuirkProTrack) {
					xc.porta.target = -1
				}
			}
		}
	}

	if firstFrame {
		if xc.test(chFineBend) {
			xc.period += xc.freq.fslide
		}
		if xc.test(chFineNSlide) {
			xc.note += xc.noteSlide.fslide
			xc.period = m.noteToPeriod(xc.note, xc.finetune, xc.perAdj)
		}
	}

	switch m.periodType {
	case modfile.PeriodLinear:
		xc.period = clamp(xc.period, minPeriodLinear, maxPeriodLinear)
	case modfile.PeriodModRng:
		lo := m.noteToPeriod(maxNoteModRng, xc.finetune, 0)
		hi := m.noteToPeriod(minNoteModRng, xc.finetune, 0)
		xc.period = clamp(xc.period, lo, hi)
	}

	// Negative or very low periods silence the channel.
	if xc.period < 0.25 {
		s.virtSetVol(chn, 0)
	}
}

func (s *Session) updatePan(xc *channel) {
	if !xc.test(chPanSlide) {
		return
	}
	if s.isFirstFrame() {
		xc.pan.val += xc.pan.fslide
	} else {
		xc.pan.val += xc.pan.slide
	}
	xc.pan.val = clamp(xc.pan.val, 0, 0xff)
}

func envRelease(xc *channel, act voiceAction) bool {
	return xc.testNote(noteEnvRelease) || act == actionOff
}

func (s *Session) processVolume(xc *channel, chn int, act voiceAction) {
	p := &s.p
	m := s.m
	ins := m.instrument(xc.ins)
	env := &ins.VolumeEnvelope
	fade := false

	// The IT key off doesn't reset the fadeout. In the other dialects
	// it depends on the volume envelope.
	if m.hasQuirk(modfile.QuirkKeyOff) {
		if envRelease(xc, act) && (!env.Flags.IsOn() || env.Flags.LoopEnabled()) {
			fade = true
		}
	} else {
		if !env.Flags.IsOn() && xc.testNote(noteEnvRelease) {
			xc.fadeout = 0
		}
		if envRelease(xc, act) {
			fade = true
		}
	}

	if !xc.testPer(chVEnvPause) {
		xc.vIdx = updateEnvelope(s.dialect.envelope, env, xc.vIdx, envRelease(xc, act), xc.test(chKeyOff))
	}
	volEnvelope := envelopeValue(env, xc.vIdx, 64)
	if envelopeEnded(env, xc.vIdx) {
		if volEnvelope == 0 {
			xc.setNote(noteEnd)
		}
		xc.setNote(noteEnvEnd)
	}

	switch envelopeFade(env, xc.vIdx) {
	case -1:
		// The channel is kept for a possible tone portamento.
		xc.setNote(noteEnd)
	case 0:
	default:
		if m.hasQuirk(modfile.QuirkEnvFade) {
			xc.setNote(noteFadeout)
		}
	}

	// The fadeout goes after the envelope tick.
	if xc.testNote(noteFadeout) || act == actionFade {
		fade = true
	}
	if fade {
		if xc.fadeout > xc.insFade {
			xc.fadeout -= xc.insFade
		} else {
			xc.fadeout = 0
			xc.setNote(noteEnd)
		}
	}

	if xc.testNote(noteEnd) && chn >= s.virt.numTracks {
		s.virtResetChannel(chn)
		return
	}

	finalVol := xc.volume
	if m.isPlayerModeIT() {
		finalVol = xc.volume * (100 - xc.rvv) / 100
	}

	if xc.test(chTremolo) {
		firstFrame := s.isFirstFrame()
		if !firstFrame || !m.hasQuirk(modfile.QuirkProTrack) {
			finalVol += xc.tremolo.lfo.value(s.dialect.lfo, &s.rng, false) / (1 << 6)
		}
		if !firstFrame || m.hasQuirk(modfile.QuirkVibAll) {
			xc.tremolo.lfo.update()
		}
	}

	finalVol = clamp(finalVol, 0, m.volBase)
	finalVol = (finalVol * xc.fadeout) >> 6
	finalVol = int(uint32(volEnvelope*p.gvol*xc.masterVol/m.gvolBase*(finalVol*0x40/m.volBase)) >> 18)

	finalVol = finalVol * s.getChannelVol(chn) / 100

	if m.hasQuirk(modfile.QuirkInsVol) {
		finalVol = (finalVol * ins.Volume * xc.gvl) >> 12
	}

	if s.dialect.ft2Tremor {
		finalVol = s.tremorFT2(xc, finalVol)
	} else {
		finalVol = s.tremorS3M(xc, finalVol)
	}

	xc.macro.finalVol = finalVol
	finalVol = finalVol * p.masterVol / 100

	xc.infoFinalVol = finalVol
	if xc.testNote(noteSampleEnd) {
		xc.infoFinalVol = 0
	}

	s.virtSetVol(chn, finalVol)
	if xc.split != 0 {
		s.virtSetVol(int(xc.pair), finalVol)
	}
}

func (s *Session) processFrequency(xc *channel, chn int, act voiceAction) {
	p := &s.p
	m := s.m
	ins := m.instrument(xc.ins)
	env := &ins.PitchEnvelope

	if !xc.testPer(chFEnvPause) {
		xc.fIdx = updateEnvelope(s.dialect.envelope, env, xc.fIdx, envRelease(xc, act), xc.test(chKeyOff))
	}
	frqEnvelope := envelopeValue(env, xc.fIdx, 0)

	if xc.test(chNoteSlide) {
		if xc.noteSlide.count == 0 {
			xc.note += xc.noteSlide.slide
			xc.period = m.noteToPeriod(xc.note, xc.finetune, xc.perAdj)
			xc.noteSlide.count = xc.noteSlide.speed
		}
		xc.noteSlide.count--
		s.virtSetNote(chn, xc.note)
	}

	// The instrument vibrato.
	vibrato := float64(xc.insVib.lfo.value(s.dialect.lfo, &s.rng, true)) / float64(4096*(1+xc.insVib.sweep))
	xc.insVib.lfo.update()
	if xc.insVib.sweep > 1 {
		xc.insVib.sweep -= 2
	} else {
		xc.insVib.sweep = 0
	}

	if xc.test(chVibrato) || xc.testPer(chVibrato) {
		firstFrame := s.isFirstFrame()
		if !firstFrame || !m.hasQuirk(modfile.QuirkProTrack) {
			shift := 9
			if m.hasQuirk(modfile.QuirkVibHalf) {
				shift = 10
			}
			vib := xc.vibrato.lfo.value(s.dialect.lfo, &s.rng, true) / (1 << shift)
			if m.hasQuirk(modfile.QuirkVibInv) {
				vibrato -= float64(vib)
			} else {
				vibrato += float64(vib)
			}
		}
		if !firstFrame || m.hasQuirk(modfile.QuirkVibAll) {
			xc.vibrato.lfo.update()
		}
	}

	period := xc.period
	if m.hasQuirk(modfile.QuirkSt3Bugs) && period < 0.25 {
		s.virtResetChannel(chn)
	}
	period = max(period, 0.1)

	arp := s.arpeggio(xc)

	bend := m.periodToBend(period+vibrato, xc.note, xc.perAdj)
	if xc.testNote(noteGlissando) && xc.test(chTonePorta) {
		// Round to semitones.
		if bend > 0 {
			bend = (bend + 6400) / 12800 * 12800
		} else if bend < 0 {
			bend = (bend - 6400) / 12800 * 12800
		}
	}

	if m.hasQuirk(modfile.QuirkFt2Bugs) && arp != 0 {
		bend = bend/12800*12800 + xc.finetune*100
		if xc.note+arp > 107 && p.speed-p.frame%p.speed > 0 {
			arp = 108 - xc.note
		}
	}

	// The pitch envelope units are 1/25 semitones, always linear.
	if xc.fIdx >= 0 && env.Flags&modfile.EnvelopeFilter == 0 {
		bend += frqEnvelope << 7
	}

	if arp != 0 {
		bend += (100 << 7) * arp
		// ProTracker wraps the arpeggio around its 3 octaves.
		if m.hasQuirk(modfile.QuirkProTrack) {
			if xc.note+arp > maxNoteModRng+1 {
				bend -= 12800 * (3 * 12)
			} else if xc.note+arp > maxNoteModRng {
				s.virtSetVol(chn, 0)
			}
		}
	}

	finalPeriod := noteToPeriodMix(xc.note, bend)
	if m.hasQuirk(modfile.QuirkSt3Bugs) {
		finalPeriod = max(finalPeriod, st3MinPeriod)
	}
	s.virtSetPeriod(chn, finalPeriod)

	xc.infoPitchbend = bend >> 7
	xc.infoPeriod = int(min(finalPeriod*4096, math.MaxInt32))
	if m.periodType == modfile.PeriodModRng {
		lo := m.noteToPeriod(maxNoteModRng, xc.finetune, 0) * 4096
		hi := m.noteToPeriod(minNoteModRng, xc.finetune, 0) * 4096
		xc.infoPeriod = clamp(xc.infoPeriod, int(lo), int(hi))
	} else if xc.infoPeriod < 1<<12 {
		xc.infoPeriod = 1 << 12
	}

	if !m.hasQuirk(modfile.QuirkFilter) {
		return
	}

	cutoff := xc.filter.cutoff
	if xc.fIdx >= 0 && env.Flags&modfile.EnvelopeFilter != 0 {
		if frqEnvelope < 0xfe {
			xc.filter.envelope = frqEnvelope
		}
		cutoff = xc.filter.cutoff * xc.filter.envelope >> 8
	}
	resonance := xc.filter.resonance
	cutoff = min(cutoff, 0xff)

	// Cutoff 127 with no resonance disables the filter, but only
	// for a new note without a tone portamento.
	if cutoff < 0xfe || resonance > 0 || xc.filter.canDisable {
		a0, b0, b1 := dsp.FilterSetup(s.mixer.freq, cutoff, resonance)
		s.virtSetFilter(chn, voiceFilter{
			cutoff:    cutoff,
			resonance: resonance,
			a0:        a0,
			b0:        b0,
			b1:        b1,
		})
		xc.filter.canDisable = false
	}
}

func (s *Session) processPan(xc *channel, chn int, act voiceAction) {
	m := s.m
	env := &m.instrument(xc.ins).PanEnvelope

	if !xc.testPer(chPEnvPause) {
		xc.pIdx = updateEnvelope(s.dialect.envelope, env, xc.pIdx, envRelease(xc, act), xc.test(chKeyOff))
	}
	panEnvelope := envelopeValue(env, xc.pIdx, 32)

	panbrello := 0
	if xc.test(chPanbrello) {
		panbrello = xc.panbrello.lfo.value(s.dialect.lfo, &s.rng, false) / 512
		if s.isFirstFrame() {
			xc.panbrello.lfo.update()
		}
	}

	xc.macro.notePan = xc.pan.val + panbrello + 0x80
	finalPan := xc.pan.val + panbrello + (panEnvelope-32)*(128-abs(xc.pan.val-128))/32
	if m.isPlayerModeIT() {
		finalPan += xc.rpv * 4
	}
	finalPan = clamp(finalPan, 0, 255)

	if xc.pan.surround {
		xc.infoFinalPan = 0x80
		s.virtSetPan(chn, panSurround)
		return
	}
	finalPan = (finalPan - 0x80) * s.mixer.mix / 100
	xc.infoFinalPan = finalPan + 0x80
	s.virtSetPan(chn, finalPan)
}

// playChannel runs one tick of the logical channel.
func (s *Session) playChannel(chn int) {
	p := &s.p
	m := s.m
	xc := &p.xc[chn]

	xc.infoFinalVol = 0

	if !s.isFirstFrame() && xc.test(chTempoSlide) {
		p.bpm = clamp(p.bpm+xc.tempo.slide, 0x20, 0xff)
	}

	if xc.delay > 0 {
		xc.delay--
		if xc.delay == 0 {
			e := xc.delayedEvent
			s.readEvent(&e, chn)
		}
	}

	// The macros are updated regardless of the voice state.
	s.updateMidiMacro(xc)

	act := s.virtChannelStatus(chn)
	if act == actionInvalid {
		// The global volume slides still run.
		s.updateVolume(xc)
		return
	}

	if p.frame == 0 && act != actionActive {
		if !m.isValidInstrument(xc.ins) || act == actionCut {
			s.virtResetChannel(chn)
			return
		}
	}

	if !m.isValidInstrument(xc.ins) {
		return
	}

	if xc.test(chRetrig) {
		xc.retrig.count--
		trigger := xc.retrig.count == 0
		if m.hasQuirk(modfile.QuirkS3MRtg) {
			trigger = xc.retrig.count <= 0
		}
		if trigger {
			if xc.retrig.typ < 0x10 {
				s.virtVoicePos(chn, 0)
			} else {
				// The note cut doesn't retrigger.
				xc.setNote(noteEnd)
			}
			rv := retrigVolumes[min(xc.retrig.typ, len(retrigVolumes)-1)]
			xc.volume = (xc.volume + rv.add) * rv.mul / rv.div
			xc.retrig.count = lsn(xc.retrig.val)

			if xc.retrig.limit > 0 {
				xc.retrig.limit--
				if xc.retrig.limit == 0 {
					xc.reset(chRetrig)
				}
			}
		}
	}

	if xc.keyOff != 0 {
		xc.keyOff--
		if xc.keyOff == 0 {
			xc.setNote(noteRelease)
		}
	}

	s.virtRelease(chn, xc.testNote(noteSampleRelease))

	s.updateVolume(xc)
	s.updateFrequency(xc, chn)
	s.updatePan(xc)

	s.processVolume(xc, chn, act)
	s.processFrequency(xc, chn, act)
	s.processPan(xc, chn, act)

	if m.hasQuirk(modfile.QuirkProTrack|modfile.QuirkInvLoop) && m.isValidInstrument(xc.ins) {
		s.updateInvLoop(xc)
	}

	if xc.testNote(noteSusExit) {
		xc.setNote(noteEnvRelease)
	}

	xc.infoPosition = int(s.virtGetVoicePos(chn))
}
