package modplay

import (
	"math"

	"github.com/quasilyte/modplay/internal/fx"
	"github.com/quasilyte/modplay/modfile"
)

const (
	// maxSequences is the limit of the independent sequences in one module.
	maxSequences = 255

	// vblankTimeThreshold is the duration (in ms) that makes the scanner
	// try the alternative speed interpretation for the ambiguous formats.
	vblankTimeThreshold = 480000

	scanRowLimit = 512

	// scanOrdersLimit stops the scan of an order list without playable rows.
	scanOrdersLimit = 512
)

// scanTimer accumulates the song time while the tempo changes.
//
// The rows are counted first and converted into frames on every speed
// change, the frames are converted into milliseconds on every BPM change.
type scanTimer struct {
	timeFactor float64
	baseTime   float64

	time       float64
	frameCount int
	rowCount   int
	speed      int
	bpm        int
}

// commitRows converts the counted rows into frames.
func (t *scanTimer) commitRows() {
	t.frameCount += t.rowCount * t.speed
	t.rowCount = 0
}

// commitFrames converts the counted frames into the time.
func (t *scanTimer) commitFrames() {
	t.time += t.framesTime(t.frameCount)
	t.frameCount = 0
}

func (t *scanTimer) framesTime(frames int) float64 {
	return t.timeFactor * float64(frames) * t.baseTime / float64(t.bpm)
}

// tempoSlide simulates the IT tempo slide over one row.
func (t *scanTimer) tempoSlide(delta, lo, hi int) {
	t.time += t.framesTime(1)
	for i := 1; i < t.speed; i++ {
		t.bpm = clamp(t.bpm+delta, lo, hi)
		t.time += t.framesTime(1)
	}
	t.time -= t.framesTime(t.speed)
}

func clampTime(v float64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// getSequence returns the sequence that owns the order.
func (s *Session) getSequence(ord int) int {
	if ord < 0 || ord >= s.m.numOrders() {
		return noSequence
	}
	return int(s.m.seqControl[ord])
}

func (m *module) resetScanData() {
	for i := range m.ordInfo {
		m.ordInfo[i].time = -1
	}
	for i := range m.seqControl {
		m.seqControl[i] = noSequence
	}
}

// scanSequences finds all independent sequences of the module
// and calculates their durations.
func (s *Session) scanSequences() error {
	m := s.m
	numOrders := m.numOrders()

	m.scan = make([]scanData, max(1, numOrders))
	m.resetScanData()

	entryPoints := make([]int, 1, 8)
	m.scan[0].time = s.scanModule(0, 0)

	if m.compareVBlank && s.p.flags&FlagVBlank == 0 && m.scan[0].time >= vblankTimeThreshold {
		s.compareVBlankScan()
	}
	if m.scan[0].time < 0 {
		return ErrNoSequence
	}

	seq := 1
	for seq < maxSequences {
		ep := -1
		for i := 0; i < numOrders; i++ {
			if m.seqControl[i] == noSequence {
				ep = i
				break
			}
		}
		if ep < 0 {
			break
		}
		if seq >= len(m.scan) {
			m.scan = append(m.scan, scanData{})
		}
		m.scan[seq].time = s.scanModule(ep, seq)
		if m.scan[seq].time > 0 {
			entryPoints = append(entryPoints, ep)
			seq++
		}
	}

	m.scan = m.scan[:seq]
	m.numSequences = seq
	if s.p.scanTimeFactor != 0 {
		s.p.currentTime *= m.timeFactor / s.p.scanTimeFactor
	}
	s.p.scanTimeFactor = m.timeFactor

	m.seqs = make([]sequence, seq)
	for i := range m.seqs {
		m.seqs[i] = sequence{
			entryPoint: entryPoints[i],
			duration:   m.scan[i].time,
		}
	}

	// The orders that didn't make it into a sequence join the previous one.
	for i := 0; i < numOrders; i++ {
		if int(m.seqControl[i]) >= m.numSequences {
			if i > 0 {
				m.seqControl[i] = m.seqControl[i-1]
			} else {
				m.seqControl[i] = 0
			}
		}
	}

	s.logger.Debug("module scanned",
		"sequences", m.numSequences,
		"duration_ms", m.seqs[0].duration)

	return nil
}

// rescan repeats the sequence scan after a timing change and moves
// the replay to the sequence that owns the current order.
func (s *Session) rescan() error {
	err := s.scanSequences()
	ord := s.p.ord
	if s.p.pos >= 0 && s.p.pos != s.p.ord {
		ord = s.p.pos
	}
	seq := s.getSequence(ord)
	if seq == noSequence || seq >= s.m.numSequences || seq >= len(s.m.scan) {
		seq = 0
	}
	s.p.sequence = seq
	return err
}

// compareVBlankScan rescans the song with the speed effect interpreted
// the other way and keeps the shortest of both.
func (s *Session) compareVBlankScan() {
	m := s.m

	scanBackup := m.scan[0]
	infoBackup := m.ordInfo
	ctrlBackup := m.seqControl

	m.scan[0] = scanData{}
	m.ordInfo = [modfile.MaxOrders]orderInfo{}
	m.resetScanData()

	m.quirks ^= modfile.QuirkNoBPM
	m.scan[0].time = s.scanModule(0, 0)

	if m.scan[0].time >= scanBackup.time {
		m.quirks ^= modfile.QuirkNoBPM
		m.scan[0] = scanBackup
		m.ordInfo = infoBackup
		m.seqControl = ctrlBackup
	}
}

// scanModule walks the song from the entry point ep until the first
// repeated row and returns its duration in milliseconds
// or -1 if there were no valid rows.
//
// The scanned orders are marked with the chain sequence number.
func (s *Session) scanModule(ep, chain int) int {
	m := s.m
	mod := m.mod
	numOrders := m.numOrders()

	if numOrders == 0 {
		return 0
	}

	for i := range m.scanCnt {
		clear(m.scanCnt[i])
	}

	f := flowControl{
		loop:     make([]patternLoop, modfile.MaxChannels),
		loopDest: -1,
	}

	t := scanTimer{
		timeFactor: m.timeFactor,
		baseTime:   float64(int(m.rrate)),
		speed:      mod.Speed,
		bpm:        mod.BPM,
	}
	gvl := mod.GlobalVolume
	st26 := 0
	hasMarker := m.hasQuirk(modfile.QuirkMarker)
	vblank := s.p.flags&FlagVBlank != 0

	ord := ep - 1
	ord2 := -1
	gvolMemory := 0
	breakRow := 0
	rowCountTotal := 0
	ordersSinceLastValid := 0
	anyValid := false
	startTime := 0.0
	insideLoop := false
	lineJump := false
	row := 0

	for {
		if ordersSinceLastValid > scanOrdersLimit {
			break
		}
		ordersSinceLastValid++

		ord++
		if ord >= numOrders {
			rst := mod.Restart
			switch {
			case rst >= numOrders || !m.isValidPattern(m.order(rst)):
				ord = ep
			case s.getSequence(rst) == chain:
				ord = rst
			default:
				ord = ep
			}
			if hasMarker && m.order(ord) == modfile.OrderEnd {
				break
			}
		}

		pat := m.order(ord)
		info := &m.ordInfo[ord]

		// Another sequence starts here.
		if ep != 0 && m.seqControl[ord] != noSequence {
			if !m.isValidPattern(pat) {
				if hasMarker && pat == modfile.OrderEnd {
					ord = numOrders
				}
				continue
			}
			break
		}
		m.seqControl[ord] = uint8(chain)

		if !m.isValidPattern(pat) {
			if hasMarker && pat == modfile.OrderEnd {
				ord = numOrders
			}
			continue
		}

		if breakRow >= m.patternRows(pat) {
			breakRow = 0
		}

		if m.hasFlowMode(modfile.FlowLoopPatternReset) {
			clear(f.loop)
		}

		if m.scanCnt[ord][breakRow] != 0 && !insideLoop {
			break
		}

		if info.time < 0 {
			info.gvl = gvl
			info.bpm = t.bpm
			info.speed = t.speed
			info.time = clampTime(t.time + t.framesTime(t.frameCount))
			info.st26 = st26
		}

		if info.startRow == 0 && ord != 0 {
			if ord == ep {
				startTime = t.time + t.framesTime(t.frameCount)
			}
			info.startRow = breakRow
		}

		lastRow := m.patternRows(pat)
		row = breakRow
		breakRow = 0
		pDelay := 0

		for ; row < lastRow; row, t.rowCount, rowCountTotal = row+1, t.rowCount+1, rowCountTotal+1 {
			t.bpm = max(t.bpm, minBPM)

			if rowCountTotal > scanRowLimit {
				return s.scanEnd(chain, ord, row, anyValid, startTime, &t)
			}
			if f.loopActive == 0 && !lineJump && m.scanCnt[ord][row] != 0 {
				t.rowCount--
				return s.scanEnd(chain, ord, row, anyValid, startTime, &t)
			}
			m.scanCnt[ord][row]++
			ordersSinceLastValid = 0
			anyValid = true
			if m.scanCnt[ord][row] == 0 {
				// The visits counter wrapped around.
				return s.scanEnd(chain, ord, row, anyValid, startTime, &t)
			}

			pDelay = 0
			lineJump = false

			for chn := 0; chn < m.numChannels(); chn++ {
				if row >= m.trackRows(pat, chn) {
					continue
				}
				e := m.event(pat, chn, row)
				f1, p1 := int(e.FxType), int(e.FxParam)
				f2, p2 := int(e.F2Type), int(e.F2Param)
				if f1 == 0 && f2 == 0 {
					continue
				}

				if f1 == fx.GlobalVol || f2 == fx.GlobalVol {
					gvl = pick(f1 == fx.GlobalVol, p1, p2)
					gvl = clamp(gvl, 0, m.gvolBase)
				}

				if f1 == fx.GVolSlide || f2 == fx.GVolSlide {
					parm := pick(f1 == fx.GVolSlide, p1, p2)
					if parm == 0 {
						parm = gvolMemory
					}
					if parm != 0 {
						gvolMemory = parm
						gvl += s.scanGVolSlide(parm, t.speed)
					}
				}

				// The second column goes first.
				for _, c := range [2][2]int{{f2, p2}, {f1, p1}} {
					if c[0] != fx.Speed || c[1] == 0 {
						continue
					}
					t.commitRows()
					if m.hasQuirk(modfile.QuirkNoBPM) || vblank || c[1] < 0x20 {
						t.speed = c[1]
						st26 = 0
					} else {
						t.commitFrames()
						t.bpm = c[1]
					}
				}

				if f1 == fx.SpeedCP {
					f1 = fx.S3MSpeed
				}
				if f2 == fx.SpeedCP {
					f2 = fx.S3MSpeed
				}

				if f1 == fx.IceSpeed && p1 != 0 {
					if lsn(p1) != 0 {
						st26 = msn(p1)<<8 | lsn(p1)
					} else {
						st26 = msn(p1)
					}
				}

				if f1 == fx.UltTempo || f2 == fx.UltTempo {
					speed, bpm := 0, 0
					for _, c := range [2][2]int{{f2, p2}, {f1, p1}} {
						if c[0] != fx.UltTempo {
							continue
						}
						switch {
						case c[1] == 0:
							speed, bpm = 6, 125
						case c[1] < 0x30:
							speed = c[1]
						default:
							bpm = c[1]
						}
					}
					t.commitRows()
					if speed > 0 {
						t.speed = speed
						st26 = 0
					}
					if bpm > 0 {
						t.commitFrames()
						t.bpm = bpm
					}
				}

				if (f1 == fx.S3MSpeed && p1 != 0) || (f2 == fx.S3MSpeed && p2 != 0) {
					parm := pick(f1 == fx.S3MSpeed, p1, p2)
					if parm > 0 {
						t.commitRows()
						t.speed = parm
						st26 = 0
					}
				}

				if (f1 == fx.S3MBPM && p1 != 0) || (f2 == fx.S3MBPM && p2 != 0) {
					parm := pick(f1 == fx.S3MBPM, p1, p2)
					if parm >= minBPM {
						t.commitRows()
						t.commitFrames()
						t.bpm = parm
					}
				}

				if (f1 == fx.ITBPM && p1 != 0) || (f2 == fx.ITBPM && p2 != 0) {
					parm := pick(f1 == fx.ITBPM, p1, p2)
					t.commitRows()
					t.commitFrames()
					switch msn(parm) {
					case 0:
						t.tempoSlide(-lsn(parm), 0x20, math.MaxInt32)
					case 1:
						t.tempoSlide(lsn(parm), 0, 0xff)
					default:
						t.bpm = parm
					}
				}

				if f1 == fx.ITRowDelay {
					m.scanCnt[ord][row] = uint8(min(int(m.scanCnt[ord][row])+lsn(p1), 255))
					t.frameCount += lsn(p1) * t.speed
				}

				if f1 == fx.ITBreak || f2 == fx.ITBreak {
					f.patternBreak(pick(f1 == fx.ITBreak, p1, p2))
					breakRow = f.jumpLine
					lastRow = 0
				}

				if f1 == fx.Jump || f2 == fx.Jump {
					f.patternJump(pick(f1 == fx.Jump, p1, p2))
					ord2 = f.jump
					breakRow = f.jumpLine
					lastRow = 0
					insideLoop = false
				}

				if f1 == fx.Break || f2 == fx.Break {
					parm := pick(f1 == fx.Break, p1, p2)
					f.patternBreak(10*msn(parm) + lsn(parm))
					breakRow = f.jumpLine
					lastRow = 0
				}

				if f1 == fx.LineJump || f2 == fx.LineJump {
					f.lineJump(ord, pick(f1 == fx.LineJump, p1, p2))
					if lastRow > 0 {
						ord2 = ord
					}
					breakRow = f.jumpLine
					lastRow = 0
					lineJump = true
				}

				if f1 == fx.Extended || f2 == fx.Extended {
					parm := pick(f1 == fx.Extended, p1, p2)
					switch msn(parm) {
					case fx.ExPattDelay:
						if !m.isPlayerModeST3() || pDelay == 0 {
							pDelay = lsn(parm)
						}
					case fx.ExPattLoop:
						f.jumpLine = breakRow
						s.patternLoop(&f, chn, row, lsn(parm))
						breakRow = f.jumpLine
						if lsn(parm) > 0 && f.loopDest < 0 {
							insideLoop = false
						} else if lsn(parm) == 0 {
							insideLoop = true
						}
					}
				}
			}

			if pDelay > 0 {
				t.frameCount += pDelay * t.speed
			}

			if f.loopDest >= 0 {
				row = f.loopDest - 1
				f.loopDest = -1
			}

			if st26 != 0 {
				t.commitRows()
				if speed := splitSpeed(st26); speed != 0 {
					t.speed = speed
				}
				st26 ^= 0x10000
			}
		}

		if breakRow != 0 && pDelay != 0 {
			breakRow++
		}
		if ord2 >= 0 {
			ord = ord2 - 1
			ord2 = -1
		}
		t.commitRows()
		rowCountTotal = 0
	}

	return s.scanEnd(chain, ord, breakRow, anyValid, startTime, &t)
}

// scanEnd records the end point of the scanned sequence and returns its duration.
func (s *Session) scanEnd(chain, ord, row int, anyValid bool, startTime float64, t *scanTimer) int {
	m := s.m
	if !anyValid {
		return -1
	}

	ord = min(ord, m.numOrders()-1)
	pat := m.order(ord)
	if !m.isValidPattern(pat) || row >= m.patternRows(pat) {
		row = 0
	}

	m.scan[chain] = scanData{
		num: int(m.scanCnt[ord][row]),
		row: row,
		ord: ord,
	}

	t.time -= startTime
	t.commitRows()
	return clampTime(t.time + t.framesTime(t.frameCount))
}

func (s *Session) scanGVolSlide(parm, speed int) int {
	h, l := msn(parm), lsn(parm)
	if s.m.hasQuirk(modfile.QuirkFineFx) {
		if l == 0xf && h != 0 {
			return h
		}
		if h == 0xf && l != 0 {
			return -l
		}
	}
	if s.m.hasQuirk(modfile.QuirkVsAll) {
		return (h - l) * speed
	}
	return (h - l) * (speed - 1)
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
