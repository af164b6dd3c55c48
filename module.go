package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// module is a per-session view of the song model.
//
// The song model itself is read-only, module keeps the values
// that a session may override (like quirks after a mode change)
// plus the data derived during the compilation and the scan.
type module struct {
	mod *modfile.Module

	quirks        modfile.Quirk
	flowMode      modfile.FlowMode
	dialect       modfile.Dialect
	periodType    modfile.PeriodType
	c4Rate        int
	compareVBlank bool

	volBase    int
	gvolBase   int
	timeFactor float64
	rrate      float64

	samples []sampleData

	// Scan results.
	ordInfo      [modfile.MaxOrders]orderInfo
	scan         []scanData
	seqs         []sequence
	seqControl   [modfile.MaxOrders]uint8
	scanCnt      [][]uint8
	numSequences int
}

// sampleData is a session-owned copy of the sample PCM.
//
// The data is padded on both sides, so the interpolators and
// the loop wraparound can read and write a few frames past the edges.
type sampleData struct {
	pcm   []int16
	c5spd float64

	// dirty is set when the PCM differs from the song model data.
	dirty bool
}

const samplePad = 4

// frame returns the value of the sample frame i.
func (s *sampleData) frame(i int) int16 { return s.pcm[i+samplePad] }

type orderInfo struct {
	startRow int
	gvl      int
	bpm      int
	speed    int
	st26     int
	time     int
}

type scanData struct {
	time int
	ord  int
	row  int
	num  int
}

type sequence struct {
	entryPoint int
	duration   int
}

const noSequence = 0xff

func (m *module) numChannels() int { return m.mod.NumChannels }

func (m *module) numOrders() int { return len(m.mod.Orders) }

func (m *module) order(i int) int { return int(m.mod.Orders[i]) }

func (m *module) isValidPattern(pat int) bool { return pat < len(m.mod.Patterns) }

func (m *module) patternRows(pat int) int { return m.mod.Patterns[pat].Rows }

func (m *module) isValidInstrument(ins int) bool {
	return uint(ins) < uint(len(m.mod.Instruments))
}

func (m *module) isValidSample(smp int) bool {
	return uint(smp) < uint(len(m.mod.Samples))
}

func (m *module) hasQuirk(q modfile.Quirk) bool { return m.quirks&q != 0 }

func (m *module) hasFlowMode(f modfile.FlowMode) bool { return m.flowMode&f != 0 }

// getSubInstrument returns the sub-instrument mapped to the key.
// A key of -1 selects the first sub-instrument.
func (m *module) getSubInstrument(ins, key int) *modfile.SubInstrument {
	if !m.isValidInstrument(ins) {
		return nil
	}
	instrument := &m.mod.Instruments[ins]
	if isValidNote(key) {
		mapped := int(instrument.Keymap[key].Sub)
		if mapped == 0xff || mapped >= len(instrument.Subs) {
			return nil
		}
		return &instrument.Subs[mapped]
	}
	if len(instrument.Subs) > 0 {
		return &instrument.Subs[0]
	}
	return nil
}

var emptyInstrument modfile.Instrument

// instrument returns an instrument by its index.
// An empty instrument is returned for invalid indexes.
func (m *module) instrument(ins int) *modfile.Instrument {
	if !m.isValidInstrument(ins) {
		return &emptyInstrument
	}
	return &m.mod.Instruments[ins]
}

func (m *module) sample(smp int) *modfile.Sample {
	return &m.mod.Samples[smp]
}

// event returns the pattern event of the track chn at the specified row.
func (m *module) event(pat, chn, row int) modfile.Event {
	p := &m.mod.Patterns[pat]
	t := &m.mod.Tracks[p.Tracks[chn]]
	if row >= len(t.Events) {
		return modfile.Event{}
	}
	return t.Events[row]
}

// trackRows returns the number of rows stored in the track chn of the pattern.
func (m *module) trackRows(pat, chn int) int {
	p := &m.mod.Patterns[pat]
	return len(m.mod.Tracks[p.Tracks[chn]].Events)
}

func (m *module) isPlayerModeIT() bool { return m.dialect == modfile.DialectIT }

func (m *module) isPlayerModeST3() bool { return m.dialect == modfile.DialectST3 }

func (m *module) isPlayerModeFT2() bool { return m.dialect == modfile.DialectFT2 }
