package modfile

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/quasilyte/modplay/internal/fx"
)

// ParseMOD decodes a ProTracker-style module (M.K. and its multichannel relatives).
//
// The returned module is already validated.
func ParseMOD(data []byte) (*Module, error) {
	p := &modParser{parser: newParser(data, binary.BigEndian)}
	return p.run(p.parseModule)
}

type modParser struct {
	*parser

	tracker string
}

type modSampleHeader struct {
	name      string
	size      int
	finetune  int
	volume    int
	loopStart int
	loopSize  int
}

const modHeaderSize = 1084

// modChannels returns the number of channels implied by the signature.
func modChannels(magic string) (int, string) {
	switch magic {
	case "M.K.", "M!K!", "M&K!":
		return 4, "ProTracker"
	case "FLT4":
		return 4, "Startrekker"
	case "FLT8":
		return 8, "Startrekker"
	case "OKTA", "OCTA", "CD81":
		return 8, "Octalyser"
	}
	if len(magic) == 4 && magic[1:] == "CHN" && magic[0] >= '1' && magic[0] <= '9' {
		return int(magic[0] - '0'), "FastTracker"
	}
	if len(magic) == 4 && (magic[2:] == "CH" || magic[2:] == "CN") {
		if n, err := strconv.Atoi(magic[:2]); err == nil && n > 0 {
			return n, "FastTracker"
		}
	}
	return 0, ""
}

func (p *modParser) parseModule() {
	m := p.module

	if len(p.data) < modHeaderSize {
		panic(p.errorf("file is too short for a MOD header"))
	}
	magic := string(p.data[1080:1084])
	numChannels, tracker := modChannels(magic)
	if numChannels == 0 {
		panic(p.errorf("unknown MOD signature: %q", magic))
	}
	p.tracker = tracker
	m.NumChannels = numChannels
	m.Type = tracker + " " + magic
	m.Dialect = DialectMOD
	m.PeriodType = PeriodModRng

	p.startStage("header")
	m.Name = p.readString(20, "module name")

	headers := make([]modSampleHeader, 31)
	p.startSubStage("sample")
	for i := range headers {
		p.subStageIndex = i
		h := &headers[i]
		h.name = p.readString(22, "sample name")
		h.size = 2 * int(p.readWord("sample length"))
		h.finetune = int(int8(p.readByte("sample finetune")<<4) >> 4)
		h.volume = int(p.readByte("sample volume"))
		h.loopStart = 2 * int(p.readWord("sample loop start"))
		h.loopSize = 2 * int(p.readWord("sample loop size"))
	}

	songLength := int(p.readByte("song length"))
	restart := int(p.readByte("restart position"))
	orders := p.read(128, "pattern order table")
	p.skip(4, "signature")

	if songLength > 128 {
		songLength = 128
	}
	m.Orders = append([]uint8(nil), orders[:songLength]...)
	if restart < 0x7f && restart != 0x78 && restart < songLength {
		m.Restart = restart
	}
	numPatterns := 0
	for _, o := range orders {
		if o > 0x7f {
			break
		}
		if int(o) > numPatterns {
			numPatterns = int(o)
		}
	}
	numPatterns++

	ptkLoop := tracker == "ProTracker" && numChannels == 4

	p.startStage("pattern")
	var highFxx [128]uint8
	sameRowFxx := false
	outOfRange := false
	for i := 0; i < numPatterns; i++ {
		p.stageIndex = i
		pat := Pattern{Rows: 64, Tracks: make([]int, numChannels)}
		for ch := range pat.Tracks {
			pat.Tracks[ch] = p.allocTrack(64)
		}
		for row := 0; row < 64; row++ {
			speedRow := false
			bpmRow := false
			for ch := 0; ch < numChannels; ch++ {
				b := p.read(4, "pattern event")
				period := int(b[0]&0x0f)<<8 | int(b[1])
				if period != 0 && (period < 108 || period > 907) {
					outOfRange = true
				}
				if b[2]&0x0f == 0x0f {
					if b[3] >= 0x20 {
						highFxx[i] = b[3]
						bpmRow = true
					} else {
						speedRow = true
					}
				}
				m.Tracks[pat.Tracks[ch]].Events[row] = decodeProTrackerEvent(b)
			}
			if speedRow && bpmRow {
				sameRowFxx = true
			}
		}
		m.Patterns = append(m.Patterns, pat)
	}

	// A module that sets the tempo with Fxx >= 0x20 may still be
	// a VBlank-timed one. Unless the usage pattern is conclusive,
	// ask the scanner to try both timings.
	for i := range highFxx {
		if highFxx[i] != 0 {
			m.CompareVBlank = !sameRowFxx
			break
		}
	}

	p.startStage("sampledata")
	m.Instruments = make([]Instrument, 31)
	m.Samples = make([]Sample, 31)
	for i := range headers {
		p.stageIndex = i
		h := &headers[i]
		ins := newInstrument()
		ins.Name = h.name
		ins.Subs = []SubInstrument{{
			Volume:       h.volume,
			GlobalVolume: 0x40,
			Pan:          0x80,
			Finetune:     h.finetune << 4,
			Sample:       i,
		}}
		for k := range ins.Keymap {
			ins.Keymap[k].Sub = 0
		}
		m.Instruments[i] = ins

		s := &m.Samples[i]
		s.Name = h.name
		s.LoopStart = h.loopStart
		s.LoopEnd = h.loopStart + h.loopSize
		if s.LoopEnd > h.size {
			s.LoopEnd = h.size
		}
		if h.loopSize > 2 && s.LoopEnd >= 4 {
			s.Flags |= SampleLoop
			if ptkLoop && s.LoopStart == 0 {
				s.Flags |= SampleLoopFull
			}
		}
		raw := p.readAtMost(h.size)
		s.Data = make([]int16, len(raw))
		for j, v := range raw {
			s.Data[j] = int16(int8(v)) << 8
		}
		s.Length = len(s.Data)
		s.Flags |= SampleBits8
	}

	switch {
	case ptkLoop:
		m.Quirks |= QuirkProTrack
	case numChannels > 4 || tracker == "FastTracker":
		m.C4Rate = C4NtscRate
		m.Quirks |= QuirksFT2 | QuirkFtMod
		m.Dialect = DialectFT2
		m.PeriodType = PeriodAmiga
	}
	if outOfRange {
		m.PeriodType = PeriodAmiga
	}
}

// decodeProTrackerEvent converts a 4-byte MOD cell.
func decodeProTrackerEvent(b []byte) Event {
	var e Event
	e.Note = uint8(PeriodToNote(int(b[0]&0x0f)<<8 | int(b[1])))
	e.Instrument = b[0]&0xf0 | b[2]>>4
	if t := b[2] & 0x0f; t != 0x08 {
		e.FxType = t
		e.FxParam = b[3]
	}
	disableContinueFx(&e)
	return e
}

// disableContinueFx removes the "continue" forms that MOD trackers
// didn't have: a zero parameter means "do nothing" there.
func disableContinueFx(e *Event) {
	if e.FxParam == 0 {
		switch e.FxType {
		case fx.ToneVSlide:
			e.FxType = fx.TonePorta
		case fx.VibraVSlide:
			e.FxType = fx.Vibrato
		case fx.PortaUp, fx.PortaDown, fx.VolSlide:
			e.FxType = 0
		}
	} else if e.FxType == fx.Extended {
		switch e.FxParam {
		case 0xa0, 0xb0:
			e.FxType, e.FxParam = 0, 0
		}
	}
}

// PeriodToNote converts an Amiga period into a note number (1-based).
// Middle C (period 428) is note 61.
func PeriodToNote(period int) int {
	if period <= 0 {
		return 0
	}
	return int(math.Round(12*math.Log2(13696/float64(period)))) + 1
}
