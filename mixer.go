package modplay

import (
	"math"

	"github.com/quasilyte/modplay/internal/dsp"
	"github.com/quasilyte/modplay/modfile"
)

const (
	// maxFrameSize is the largest tick size, in samples of all output channels.
	maxFrameSize = 5 * maxSampleRate * 2 / minBPM

	antiClickShift   = 3
	antiClickFPShift = 24

	smixShift = 16

	minBPM = 20
)

type mixer struct {
	freq     int
	format   Format
	amplify  int
	mix      int
	interp   Interpolation
	filter   bool
	surround bool

	tickSize int

	buf32   []int32
	buffer  []byte
	fbuffer []float32
}

func newMixer(config *SessionConfig) mixer {
	return mixer{
		freq:     config.SampleRate,
		format:   config.Format,
		amplify:  config.Amplify,
		mix:      config.Mix,
		interp:   config.Interpolation,
		filter:   !config.DisableFilter,
		surround: !config.DisableSurround,
		buf32:    make([]int32, maxFrameSize),
		buffer:   make([]byte, maxFrameSize*2),
		fbuffer:  make([]float32, 0, maxFrameSize),
	}
}

func (mx *mixer) stereo() bool { return mx.format&FormatMono == 0 }

// frameSamples returns the number of the output samples of the current tick.
func (mx *mixer) frameSamples() int {
	size := mx.tickSize * mx.format.numChannels()
	return min(size, maxFrameSize)
}

func (mx *mixer) prepare(bpm int, timeFactor, rrate float64) {
	mx.tickSize = tickSize(mx.freq, timeFactor, rrate, bpm)
	if mx.tickSize < 0 || mx.tickSize > maxFrameSize/2 {
		mx.tickSize = maxFrameSize / 2
	}
	clear(mx.buf32[:mx.tickSize*mx.format.numChannels()])
}

// bytes returns the PCM of the current tick in the configured format.
func (mx *mixer) bytes() []byte {
	n := mx.frameSamples()
	unsigned := mx.format&FormatUnsigned != 0
	if mx.format&Format8Bit != 0 {
		dsp.DownmixInt8(mx.buffer[:n], mx.buf32[:n], mx.amplify, unsigned)
		return mx.buffer[:n]
	}
	dsp.DownmixInt16(mx.buffer[:n*2], mx.buf32[:n], mx.amplify, unsigned)
	return mx.buffer[:n*2]
}

func (mx *mixer) floats() []float32 {
	n := mx.frameSamples()
	mx.fbuffer = dsp.DownmixFloat32(mx.fbuffer, mx.buf32[:n], mx.amplify)
	return mx.fbuffer
}

// softMixer renders all voices of the current tick into the accumulation buffer.
func (s *Session) softMixer() {
	mx := &s.mixer
	mx.prepare(s.p.bpm, s.m.timeFactor, s.m.rrate)
	for voc := range s.virt.voices {
		s.mixVoice(voc)
	}
}

func (s *Session) mixVoice(voc int) {
	mx := &s.mixer
	vi := &s.virt.voices[voc]
	interp := dsp.Interpolation(mx.interp - InterpolationNearest)
	stereo := mx.stereo()

	if vi.flags&voiceAntiClick != 0 {
		if interp > dsp.Nearest {
			s.doAntiClick(voc, -1, 0)
		}
		vi.flags &^= voiceAntiClick
	}
	if vi.chn < 0 {
		return
	}
	if vi.period < 1 {
		s.virtResetVoice(voc, true)
		return
	}
	if vi.pos < 0 {
		vi.pos = 0
	}
	vi.pos0 = int(vi.pos)

	vol := vi.vol
	var volL, volR int
	switch {
	case vi.pan == panSurround:
		volL = vol * 0x80
		volR = vol * 0x80
		if mx.surround {
			volR = -volR
		}
	case !stereo:
		volL = vol * 0x80
	default:
		volL = vol * (0x80 - vi.pan)
		volR = vol * (0x80 + vi.pan)
	}

	if vi.flags&voiceSamplePaused != 0 {
		if vi.flags&voiceSampleQueued == 0 || vi.queuedSmp < 0 {
			vi.flags &^= voiceSampleQueued
			return
		}
		s.hotswapSample(voc, vi.queuedSmp)
		if !s.m.isValidSample(vi.smp) {
			return
		}
		vi.adjustEnd(s.m.sample(vi.smp))
		vi.pos = float64(vi.start)
	}
	if !s.m.isValidSample(vi.smp) {
		return
	}
	smp := s.m.sample(vi.smp)
	vi.adjustEnd(smp)
	pcm := s.m.samples[vi.smp].pcm

	c5spd := s.mixerC5Speed(vi.smp)
	step := c4Period * c5spd / float64(mx.freq) / vi.period
	if math.IsNaN(step) || step < 0.001 || step > math.MaxInt16 {
		return
	}

	var wrap loopWraparound
	wrap.init(pcm, vi, smp, interp == dsp.Nearest)
	defer wrap.reset()

	rampSize := mx.tickSize >> antiClickShift
	deltaL := (volL - vi.oldVL) / rampSize
	deltaR := (volR - vi.oldVR) / rampSize

	bufPos := 0
	usmp := mx.tickSize
	for size := mx.tickSize; size > 0; {
		split := s.p.xc[vi.chn].split != 0

		var samples int
		var stepDir float64
		if vi.flags&voiceReverse == 0 {
			if vi.pos >= float64(vi.end) {
				usmp--
				if usmp <= 0 {
					break
				}
			} else {
				samples = int(math.Min(math.Ceil((float64(vi.end)-vi.pos)/step), float64(size)))
			}
			stepDir = step
		} else {
			if vi.pos <= float64(vi.start) {
				usmp--
				if usmp <= 0 {
					break
				}
			} else {
				samples = int(math.Min(math.Ceil((vi.pos-float64(vi.start))/step), float64(size)))
			}
			stepDir = -step
		}

		if vi.vol != 0 && samples > 0 {
			mixSize := samples
			if stereo {
				mixSize *= 2
			}
			buf := mx.buf32[bufPos : bufPos+mixSize]
			var prevL, prevR int32
			if stereo {
				prevL = buf[mixSize-2]
				prevR = buf[mixSize-1]
			} else {
				prevL = buf[mixSize-1]
			}

			ramp := 0
			if rampSize > samples {
				rampSize -= samples
			} else {
				ramp = samples - rampSize
				rampSize = 0
			}
			if deltaL == 0 && deltaR == 0 {
				ramp = samples
			}

			ipos := int(vi.pos)
			params := dsp.MixParams{
				Data:   pcm,
				Pos:    ipos + samplePad,
				Frac:   int((1 << smixShift) * (vi.pos - float64(ipos))),
				Step:   int(stepDir * (1 << smixShift)),
				Count:  samples,
				Ramp:   ramp,
				VL:     volL >> 8,
				VR:     volR >> 8,
				OldVL:  vi.oldVL,
				OldVR:  vi.oldVR,
				DeltaL: deltaL,
				DeltaR: deltaR,
				Interp: interp,
				Stereo: stereo,
			}
			var filter dsp.Filter
			if vi.flags&voiceFiltered != 0 && (vi.filter.cutoff < 0xfe || vi.filter.resonance != 0) {
				filter = dsp.Filter{
					A0: vi.filter.a0,
					B0: vi.filter.b0,
					B1: vi.filter.b1,
					L1: vi.fl1,
					L2: vi.fl2,
				}
				params.Filter = &filter
			}
			dsp.Mix(buf, &params)
			if params.Filter != nil {
				vi.fl1 = filter.L1
				vi.fl2 = filter.L2
			}

			bufPos += mixSize
			vi.oldVL += samples * deltaL
			vi.oldVR += samples * deltaR
			if stereo {
				vi.sleft = int(mx.buf32[bufPos-2] - prevL)
				vi.sright = int(mx.buf32[bufPos-1] - prevR)
			} else {
				vi.sleft = int(mx.buf32[bufPos-1] - prevL)
			}
		}

		vi.pos += stepDir * float64(samples)
		size -= samples

		if (!vi.hasActiveLoop(smp) || split) && vi.flags&voiceSampleQueued == 0 {
			if size > 0 {
				s.doAntiClick(voc, bufPos, size)
				s.setSampleEnd(voc, true)
				volL, volR = 0, 0
			}
			break
		}

		reverse := vi.flags&voiceReverse != 0
		if size == 0 && !(!reverse && vi.pos >= float64(vi.end)) && !(reverse && vi.pos <= float64(vi.start)) {
			continue
		}

		if vi.flags&voiceSampleQueued != 0 {
			s.doAntiClick(voc, bufPos, size)
			queued := vi.queuedSmp
			if queued < 0 || !s.m.isValidSample(queued) ||
				(!vi.hasActiveLoop(smp) && s.m.sample(queued).Flags&modfile.SampleLoop == 0) {
				vi.flags &^= voiceSampleQueued
				vi.flags |= voiceSamplePaused
				s.setSampleEnd(voc, true)
				volL, volR = 0, 0
				break
			}
			wrap.reset()
			s.hotswapSample(voc, queued)
			smp = s.m.sample(vi.smp)
			vi.adjustEnd(smp)
			pcm = s.m.samples[vi.smp].pcm
			wrap.init(pcm, vi, smp, interp == dsp.Nearest)
			vi.pos = float64(vi.start)
			continue
		}

		if vi.loopReposition(smp, s.dialect.bidirAdjust) {
			wrap.reset()
			wrap.init(pcm, vi, smp, interp == dsp.Nearest)
		}
	}

	vi.oldVL = volL
	vi.oldVR = volR
}

// mixerC5Speed returns the sample middle C rate adjusted to the player mode.
func (s *Session) mixerC5Speed(smp int) float64 {
	c5spd := s.m.samples[smp].c5spd
	if s.m.c4Rate > 0 && s.m.mod.C4Rate > 0 {
		c5spd = c5spd * float64(s.m.c4Rate) / float64(s.m.mod.C4Rate)
	}
	return c5spd
}

func (s *Session) doAntiClick(voc, pos, count int) {
	mx := &s.mixer
	vi := &s.virt.voices[voc]

	discharge := mx.tickSize >> antiClickShift
	smpL := vi.sleft
	smpR := vi.sright
	vi.sleft = 0
	vi.sright = 0
	if smpL == 0 && smpR == 0 {
		return
	}

	if pos < 0 {
		pos = 0
		count = discharge
	} else if count > discharge {
		count = discharge
	}
	if count <= 0 {
		return
	}

	stereo := mx.stereo()
	buf := mx.buf32[pos:]
	stepVal := (1 << antiClickFPShift) / count
	stepMul := stepVal * count
	k := 0
	for {
		stepMul -= stepVal
		if stepMul <= 0 {
			break
		}
		sq := uint32(stepMul >> (antiClickFPShift - 16))
		sq *= sq
		buf[k] += int32((int64(sq) * int64(smpL)) >> 32)
		k++
		if stereo {
			buf[k] += int32((int64(sq) * int64(smpR)) >> 32)
			k++
		}
	}
}

func (s *Session) setSampleEnd(voc int, end bool) {
	if uint(voc) >= uint(s.virt.maxVoc) {
		return
	}
	vi := &s.virt.voices[voc]
	if vi.chn < 0 {
		return
	}
	xc := &s.p.xc[vi.chn]
	if !end {
		xc.resetNote(noteSampleEnd)
		return
	}
	xc.setNote(noteSampleEnd)
	vi.flags &^= voiceActive
	if s.m.hasQuirk(modfile.QuirkRstChn) {
		s.virtResetVoice(voc, false)
	}
}

func (s *Session) hotswapSample(voc, smp int) {
	vi := &s.virt.voices[voc]
	vol := vi.vol
	pan := vi.pan
	s.mixerSetPatch(voc, smp, false)
	vi.flags |= voiceSampleLoop
	vi.vol = vol
	vi.pan = pan
}

func antiClick(vi *mixerVoice) {
	vi.flags |= voiceAntiClick
	vi.oldVL = 0
	vi.oldVR = 0
}

func (s *Session) mixerVoicePos(voc int, pos float64, ac bool) {
	vi := &s.virt.voices[voc]

	if vi.flags&voiceSampleQueued != 0 {
		vi.flags &^= voiceSampleQueued
		if vi.queuedSmp < 0 {
			vi.flags |= voiceSamplePaused
		} else if vi.smp != vi.queuedSmp {
			s.hotswapSample(voc, vi.queuedSmp)
		}
		vi.flags |= voiceSampleLoop
	}

	if !s.m.isValidSample(vi.smp) {
		return
	}
	smp := s.m.sample(vi.smp)

	vi.pos = pos
	vi.adjustEnd(smp)
	if vi.pos >= float64(vi.end) {
		vi.pos = float64(vi.end)
		if vi.flags&voiceReverse == 0 && vi.hasActiveLoop(smp) {
			vi.loopReposition(smp, s.dialect.bidirAdjust)
		}
	} else if vi.flags&voiceReverse != 0 && vi.pos <= 0.1 {
		vi.pos = float64(vi.end)
	}

	if ac {
		antiClick(vi)
	}
}

func (s *Session) mixerSetPatch(voc, smp int, ac bool) {
	vi := &s.virt.voices[voc]
	vi.smp = smp
	vi.vol = 0
	vi.pan = 0
	vi.flags &^= voiceSampleLoop | voiceSampleQueued | voiceSamplePaused |
		voiceReverse | voiceBidir | voiceActive | voiceFiltered

	s.setSampleEnd(voc, false)

	vi.flags |= voiceActive
	if s.m.hasQuirk(modfile.QuirkFilter) && s.mixer.filter {
		vi.flags |= voiceFiltered
	}
	s.mixerVoicePos(voc, 0, ac)
}

func (s *Session) mixerQueuePatch(voc, smp int) {
	vi := &s.virt.voices[voc]
	if smp != vi.smp || vi.flags&voiceSamplePaused != 0 {
		vi.queuedSmp = smp
		vi.flags |= voiceSampleQueued
	}
}

func (s *Session) mixerSetNote(voc, note int) {
	vi := &s.virt.voices[voc]
	note = min(note, 149)
	vi.note = note
	vi.period = noteToPeriodMix(note, 0)
	antiClick(vi)
}

func (s *Session) mixerSetVol(voc, vol int) {
	vi := &s.virt.voices[voc]
	if vol == 0 {
		antiClick(vi)
	}
	vi.vol = vol
}

func (s *Session) mixerRelease(voc int, rel bool) {
	vi := &s.virt.voices[voc]
	if !rel {
		vi.flags &^= voiceRelease
		return
	}
	if vi.flags&voiceRelease == 0 && s.m.isValidSample(vi.smp) {
		smp := s.m.sample(vi.smp)
		if vi.hasActiveSustainLoop(smp) && smp.Flags&modfile.SampleLoopBidir == 0 {
			vi.flags &^= voiceReverse
		}
	}
	vi.flags |= voiceRelease
}

func (s *Session) mixerReverse(voc int, rev bool) {
	vi := &s.virt.voices[voc]
	if vi.flags&voiceActive == 0 {
		return
	}
	if rev {
		vi.flags |= voiceReverse
	} else {
		vi.flags &^= voiceReverse
	}
}

func (s *Session) mixerSetFilter(voc int, f voiceFilter) {
	s.virt.voices[voc].filter = f
}
