package modplay

import (
	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

type rowDelayFlags int

const (
	rowDelayOn rowDelayFlags = 1 << iota

	// rowDelayFirstFrame is only set during the first tick of the delayed row.
	rowDelayFirstFrame
)

type patternLoop struct {
	start int
	count int
}

// flowControl is the row sequencing state.
//
// The player and the scanner use separate instances,
// the effect helpers below work with both.
type flowControl struct {
	numRows  int
	endPoint int

	// Pending order jump or pattern break.
	jump      int
	jumpLine  int
	jumpInPat int
	pbreak    bool

	// delay is the pattern delay in rows.
	delay int

	rowDelay    int
	rowDelaySet rowDelayFlags

	loop []patternLoop
	// loopChn is a 1-based channel that requested a loop jump.
	loopChn int
	// loopDest is a row to continue from or -1.
	loopDest int
	// loopActive is the number of the unfinished loops.
	loopActive int
}

func (f *flowControl) reset() {
	f.jumpLine = 0
	f.jump = -1
	f.pbreak = false
	f.loopChn = 0
	f.loopDest = -1
	f.delay = 0
	f.rowDelay = 0
	f.rowDelaySet = 0
	f.jumpInPat = -1
}

func (f *flowControl) resetLoops() {
	for i := range f.loop {
		f.loop[i] = patternLoop{}
	}
	f.loopActive = 0
}

func (f *flowControl) patternJump(ord int) {
	f.pbreak = true
	f.jump = ord
	// A jump cancels the breaks of the preceding channels.
	f.jumpLine = 0
}

func (f *flowControl) patternBreak(row int) {
	f.pbreak = true
	f.jumpLine = row
}

// lineJump jumps to a row of the current pattern without
// resetting the time tracking.
func (f *flowControl) lineJump(ord, row int) {
	if f.jump == -1 {
		f.jump = ord
	}
	f.pbreak = true
	f.jumpLine = row
	f.jumpInPat = ord
}

// patternLoop handles the loop effect of the channel chn at the specified row.
// A zero count marks the loop start.
func (s *Session) patternLoop(f *flowControl, chn, row, count int) {
	if s.m.hasFlowMode(modfile.FlowLoopShared) {
		chn = 0
	}
	if chn >= len(f.loop) {
		return
	}
	l := &f.loop[chn]

	if count == 0 {
		l.start = row
		if s.m.hasQuirk(modfile.QuirkFt2Bugs) {
			f.jumpLine = row
		}
		return
	}

	if l.count == 0 {
		l.count = count
		f.loopChn = chn + 1
		f.loopDest = l.start
		f.loopActive++
		return
	}

	l.count--
	if l.count != 0 {
		f.loopChn = chn + 1
		f.loopDest = l.start
		return
	}
	f.loopActive--
	if s.m.hasQuirk(modfile.QuirkS3MLoop) {
		l.start = row + 1
	}
}

func (s *Session) updateFromOrdInfo() {
	p := &s.p
	info := &s.m.ordInfo[p.ord]
	if info.speed != 0 {
		p.speed = info.speed
	}
	p.bpm = info.bpm
	p.gvol = info.gvl
	p.currentTime = float64(info.time)
	p.frameTime = s.m.timeFactor * s.m.rrate / float64(p.bpm)
	p.st26 = info.st26
}

func (s *Session) isMarkerEnd(ord int) bool {
	return s.m.hasQuirk(modfile.QuirkMarker) && ord < s.m.numOrders() && s.m.order(ord) == modfile.OrderEnd
}

func (s *Session) nextOrder() {
	p := &s.p
	f := &p.flow
	m := s.m
	entry := m.seqs[p.sequence].entryPoint
	rst := m.mod.Restart

	resetGvol := false
	for {
		p.ord++
		if p.ord >= m.numOrders() || s.isMarkerEnd(p.ord) {
			switch {
			case rst >= m.numOrders() || !m.isValidPattern(m.order(rst)) || p.ord < entry:
				if p.ord < entry {
					p.loopCount++
				}
				p.ord = entry
			case s.getSequence(rst) == p.sequence:
				p.ord = rst
			default:
				p.ord = entry
				p.loopCount++
			}
			// This might be a marker, so the global volume is
			// updated after an actual pattern is found.
			resetGvol = true
		}
		if m.isValidPattern(m.order(p.ord)) {
			break
		}
	}

	if resetGvol {
		p.gvol = m.ordInfo[p.ord].gvl
	}

	// A line jump doesn't reset the time tracking.
	if f.jumpInPat != p.ord {
		p.currentTime = float64(m.ordInfo[p.ord].time)
	}

	f.numRows = m.patternRows(m.order(p.ord))
	if f.jumpLine >= f.numRows {
		f.jumpLine = 0
	}
	p.row = f.jumpLine
	f.jumpLine = 0
	p.pos = p.ord
	p.frame = 0
	f.jumpInPat = -1

	if m.hasFlowMode(modfile.FlowLoopPatternReset) {
		f.resetLoops()
	}
	if m.hasQuirk(modfile.QuirkPerPat) {
		for chn := 0; chn < m.numChannels(); chn++ {
			p.xc[chn].perFlags = 0
		}
	}
}

func (s *Session) nextRow() {
	p := &s.p
	f := &p.flow

	p.frame = 0
	f.delay = 0

	if f.pbreak {
		f.pbreak = false
		if f.jump != -1 {
			p.ord = f.jump - 1
			f.jump = -1
		}
		s.nextOrder()
		return
	}

	if f.rowDelay == 0 {
		p.row++
		f.rowDelaySet = 0
	} else {
		f.rowDelay--
	}

	if f.loopChn != 0 {
		p.row = f.loop[f.loopChn-1].start
		f.loopChn = 0
	}

	if p.row >= f.numRows {
		s.nextOrder()
	}
}

// checkEnd counts the passes over the end point of the sequence.
func (s *Session) checkEnd() {
	p := &s.p
	f := &p.flow
	scan := &s.m.scan[p.sequence]
	if p.ord == scan.ord && p.row == scan.row {
		if f.endPoint == 0 {
			p.loopCount++
			f.endPoint = scan.num
		}
		f.endPoint--
	}
}

// checkDelay handles the note delay of the event.
// It reports whether the event was postponed.
func (s *Session) checkDelay(e *modfile.Event, chn int) bool {
	p := &s.p
	xc := &p.xc[chn]

	// The tempo affects the delay, so it goes first.
	if isSpeedFx(e.FxType, e.FxParam) && e.FxParam != 0 {
		p.speed = int(e.FxParam)
	}
	if isSpeedFx(e.F2Type, e.F2Param) && e.F2Param != 0 {
		p.speed = int(e.F2Param)
	}

	switch {
	case isDelayFx(e.FxType, e.FxParam):
		xc.delay = lsn(int(e.FxParam)) + 1
	case isDelayFx(e.F2Type, e.F2Param):
		xc.delay = lsn(int(e.F2Param)) + 1
	default:
		return false
	}

	xc.delayedEvent = *e
	if e.Instrument != 0 {
		xc.delayedIns = int(e.Instrument)
	}
	if s.m.hasQuirk(modfile.QuirkRtDelay) {
		if e.Volume == 0 && e.F2Type == 0 && e.Instrument == 0 && e.Note != modfile.NoteKeyOff {
			xc.delayedEvent.Volume = uint8(xc.volume + 1)
		}
		if e.Note == 0 {
			xc.delayedEvent.Note = uint8(xc.key + 1)
		}
		if e.Instrument == 0 {
			xc.delayedEvent.Instrument = uint8(xc.oldIns)
		}
	}
	return true
}

func isSpeedFx(t, p uint8) bool {
	return (t == fx.Speed && p < 0x20) || t == fx.S3MSpeed
}

func isDelayFx(t, p uint8) bool {
	return t == fx.Extended && msn(int(p)) == fx.ExDelay && lsn(int(p)) != 0
}

func (s *Session) readRow(pat, row int) {
	p := &s.p
	f := &p.flow
	m := s.m

	for chn := 0; chn < m.numChannels(); chn++ {
		e := m.event(pat, chn, row)

		if e.Note == modfile.NoteKeyOff && e.FxType == fx.Extended && msn(int(e.FxParam)) == fx.ExDelay {
			ins := int(e.Instrument) - 1
			envOn := m.isValidInstrument(ins) && m.instrument(ins).VolumeEnvelope.Flags.IsOn()
			if e.Instrument != 0 && (lsn(int(e.FxParam)) != 0 || envOn) {
				if lsn(int(e.FxParam)) != 0 {
					e.Note = 0
				}
				e.FxType = 0
				e.FxParam = 0
			}
		}

		if s.checkDelay(&e, chn) {
			if m.isPlayerModeIT() {
				p.xc[chn].flags = 0
			}
			continue
		}
		// The row delay repeats the row without reading it again,
		// except for the first tick of the row.
		if f.rowDelaySet == 0 || (f.rowDelaySet&rowDelayFirstFrame != 0 && f.rowDelay > 0) {
			s.readEvent(&e, chn)
		}
	}
}
