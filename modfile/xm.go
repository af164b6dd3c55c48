package modfile

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/quasilyte/modplay/internal/fx"
)

// ParseXM decodes a FastTracker II module.
//
// The returned module is already validated.
func ParseXM(data []byte) (*Module, error) {
	p := &xmParser{parser: newParser(data, binary.LittleEndian)}
	return p.run(p.parseModule)
}

type xmParser struct {
	*parser

	version     int
	numPatterns int
	numInstr    int
	flags       int
	headerSize  int
}

const (
	xmInstHeaderSize = 29
	xmInstSize       = 212
)

func (p *xmParser) parseModule() {
	m := p.module
	m.Dialect = DialectFT2
	m.C4Rate = C4NtscRate
	m.Quirks = QuirksFT2 | QuirkFt2Env
	m.FlowMode = 0

	p.startStage("header")
	p.parseHeader()

	if p.version <= 0x0103 {
		p.parseInstruments()
		p.parsePatterns()
	} else {
		p.parsePatterns()
		p.parseInstruments()
	}

	for i := 0; i < m.NumChannels; i++ {
		m.Channels[i].Pan = 0x80
	}
}

func (p *xmParser) parseHeader() {
	m := p.module

	idText := string(p.read(17, "id text"))
	if !strings.EqualFold(idText, "extended module: ") {
		panic(p.errorf("unexpected ID text: %q", idText))
	}
	m.Name = strings.TrimSpace(p.readString(20, "module name"))
	p.skip(1, "magic byte")
	tracker := strings.TrimRight(convertCstring(p.read(20, "tracker name")), " ")

	p.version = int(p.readWord("version"))
	headerStart := p.offset
	p.headerSize = int(p.readDword("header size"))

	songLength := int(p.readWord("song length"))
	restart := int(p.readWord("restart position"))
	m.NumChannels = int(p.readWord("number of channels"))
	p.numPatterns = int(p.readWord("number of patterns"))
	p.numInstr = int(p.readWord("number of instruments"))
	p.flags = int(p.readWord("flags"))
	m.Speed = int(p.readWord("default tempo"))
	m.BPM = int(p.readWord("default bpm"))

	switch {
	case songLength > MaxOrders:
		panic(p.errorf("invalid song length value: %d", songLength))
	case p.numPatterns > 256:
		panic(p.errorf("invalid number of patterns: %d", p.numPatterns))
	case p.numInstr > 255:
		panic(p.errorf("invalid number of instruments: %d", p.numInstr))
	case m.NumChannels > MaxChannels:
		panic(p.errorf("invalid number of channels: %d", m.NumChannels))
	}

	orderBytes := p.headerSize - 0x14
	if orderBytes < 0 || orderBytes > 256 {
		panic(p.errorf("invalid header size: %d", p.headerSize))
	}
	orders := p.read(orderBytes, "pattern order table")
	if songLength > len(orders) {
		songLength = len(orders)
	}
	m.Orders = append([]uint8(nil), orders[:songLength]...)
	if restart < songLength {
		m.Restart = restart
	}

	if p.flags&1 != 0 {
		m.PeriodType = PeriodLinear
	} else {
		m.PeriodType = PeriodAmiga
	}

	switch {
	case strings.HasPrefix(tracker, "FastTracker v2.00"), strings.HasPrefix(tracker, "OpenMPT "):
		m.Quirks |= QuirkFt2Bugs
	}
	if p.headerSize == 0x0113 {
		tracker = "unknown tracker"
		m.Quirks &^= QuirkFt2Bugs
	} else if tracker == "" {
		tracker = "Digitrakker"
		m.Quirks &^= QuirkFt2Bugs
	}
	m.Type = fmt.Sprintf("%s XM %d.%02d", tracker, p.version>>8, p.version&0xff)

	p.offset = headerStart
	p.skip(p.headerSize, "header")
}

func (p *xmParser) parsePatterns() {
	m := p.module

	p.startStage("pattern")
	for i := 0; i < p.numPatterns; i++ {
		p.stageIndex = i
		p.parsePattern()
	}

	// An extra blank pattern is appended for orders that point past the pattern list.
	blank := Pattern{Rows: 64, Tracks: make([]int, m.NumChannels)}
	t := p.allocTrack(64)
	for j := range blank.Tracks {
		blank.Tracks[j] = t
	}
	m.Patterns = append(m.Patterns, blank)
}

func (p *xmParser) parsePattern() {
	m := p.module

	headSize := 9
	if p.version <= 0x0102 {
		headSize = 8
	}
	patternStart := p.offset
	headerLength := int(p.readDword("pattern header length"))
	p.skip(1, "packing type")
	var numRows int
	if p.version > 0x0102 {
		numRows = int(p.readWord("number of rows"))
	} else {
		numRows = int(p.readByte("number of rows")) + 1
	}
	if numRows > 256 {
		panic(p.errorf("invalid number of rows: %d", numRows))
	}
	if numRows == 0 {
		numRows = 256
	}
	dataSize := int(p.readWord("packed pattern data size"))
	if headerLength < headSize {
		panic(p.errorf("invalid pattern header length: %d", headerLength))
	}
	p.offset = patternStart
	p.skip(headerLength, "pattern header")

	pat := Pattern{Rows: numRows, Tracks: make([]int, m.NumChannels)}
	for j := range pat.Tracks {
		pat.Tracks[j] = p.allocTrack(numRows)
	}
	m.Patterns = append(m.Patterns, pat)

	if dataSize == 0 {
		return
	}

	packed := p.read(dataSize, "packed pattern data")
	pos := 0
	next := func() uint8 {
		if pos >= len(packed) {
			panic(p.errorf("pattern data overrun"))
		}
		b := packed[pos]
		pos++
		return b
	}

	for row := 0; row < numRows; row++ {
		for ch := 0; ch < m.NumChannels; ch++ {
			e := &m.Tracks[pat.Tracks[ch]].Events[row]
			b := next()
			if b&0x80 != 0 {
				if b&0x01 != 0 {
					e.Note = next()
				}
				if b&0x02 != 0 {
					e.Instrument = next()
				}
				if b&0x04 != 0 {
					e.Volume = next()
				}
				if b&0x08 != 0 {
					e.FxType = next()
				}
				if b&0x10 != 0 {
					e.FxParam = next()
				}
			} else {
				e.Note = b
				e.Instrument = next()
				e.Volume = next()
				e.FxType = next()
				e.FxParam = next()
			}
			convertXMEvent(e)
		}
	}
}

// convertXMEvent translates the XM event encoding into the common one.
func convertXMEvent(e *Event) {
	switch e.FxType {
	case 18, 19, 22, 23, 24, 26, 28, 30, 31, 32:
		e.FxType = 0
	}
	if e.FxType > 34 {
		e.FxType = 0
	}

	if e.Note == 0x61 {
		switch {
		case e.FxType == fx.Extended && e.FxParam>>4 == fx.ExDelay:
			e.Note = NoteKeyOff
		case e.Instrument != 0:
			e.Note = NoteFade
		default:
			e.Note = NoteKeyOff
		}
	} else if e.Note > 0 {
		e.Note += 12
	}

	if e.FxType == fx.Extended {
		if e.FxParam>>4 == fx.ExFineTune {
			e.FxParam = fx.ExFineTune<<4 | ((e.FxParam&0xf)-8)&0xf
		}
		switch e.FxParam {
		case 0x43, 0x73:
			e.FxParam--
		}
	}

	if e.FxType == fx.XFPorta && e.FxParam>>4 == 0x9 {
		switch lo := e.FxParam & 0xf; lo {
		case 0x0, 0x1:
			e.FxType = fx.Surround
			e.FxParam = lo
		case 0xe, 0xf:
			e.FxType = fx.Reverse
			e.FxParam = lo - 0xe
		}
	}

	if e.Volume == 0 {
		return
	}
	if e.Volume >= 0x10 && e.Volume <= 0x50 {
		e.Volume -= 0x0f
		return
	}

	v := e.Volume
	switch v >> 4 {
	case 0x6:
		e.F2Type, e.F2Param = fx.VolSlide2, v-0x60
	case 0x7:
		e.F2Type, e.F2Param = fx.VolSlide2, (v-0x70)<<4
	case 0x8:
		e.F2Type, e.F2Param = fx.Extended, fx.ExFVSlideDn<<4|(v-0x80)
	case 0x9:
		e.F2Type, e.F2Param = fx.Extended, fx.ExFVSlideUp<<4|(v-0x90)
	case 0xa:
		e.F2Type, e.F2Param = fx.Vibrato, (v-0xa0)<<4
	case 0xb:
		e.F2Type, e.F2Param = fx.Vibrato, v-0xb0
	case 0xc:
		e.F2Type, e.F2Param = fx.SetPan, (v-0xc0)<<4
	case 0xd:
		e.F2Type, e.F2Param = fx.PanSlideNoMem, (v-0xd0)<<4
	case 0xe:
		e.F2Type, e.F2Param = fx.PanSlideNoMem, v-0xe0
	case 0xf:
		e.F2Type, e.F2Param = fx.TonePorta, (v-0xf0)<<4
		// A volume column porta together with 3xx/5xx doubles the speed.
		if e.FxType == fx.TonePorta || e.FxType == fx.ToneVSlide {
			if e.FxType == fx.TonePorta {
				e.FxType = 0
			} else {
				e.FxType = fx.VolSlide
			}
			e.FxParam = 0
			if e.F2Param < 0x80 {
				e.F2Param <<= 1
			} else {
				e.F2Param = 0xff
			}
		}
		if e.FxType == fx.Offset {
			e.FxType, e.FxParam = 0, 0
		}
	}
	e.Volume = 0
}

type xmSampleHeader struct {
	length    int
	loopStart int
	loopLen   int
	volume    int
	finetune  int
	flags     uint8
	pan       int
	relNote   int
	encoding  uint8
	name      string
}

func (p *xmParser) parseInstruments() {
	m := p.module

	p.startStage("instrument")
	for i := 0; i < p.numInstr; i++ {
		p.stageIndex = i
		if p.dataBytesRemaining() < xmInstHeaderSize+4 {
			// Some trackers store fewer instruments than the header says.
			break
		}
		p.parseInstrument()
	}
	for len(m.Instruments) < p.numInstr {
		m.Instruments = append(m.Instruments, newInstrument())
	}
}

func newInstrument() Instrument {
	ins := Instrument{Volume: 0x40}
	for k := range ins.Keymap {
		ins.Keymap[k].Sub = 0xff
	}
	return ins
}

func (p *xmParser) parseInstrument() {
	m := p.module
	ins := newInstrument()

	instrStart := p.offset
	size := int(p.readDword("instrument header size"))
	ins.Name = p.readString(22, "instrument name")
	p.skip(1, "instrument type")
	numSamples := int(p.readWord("number of samples"))
	p.skip(4, "sample header size")
	if size < xmInstHeaderSize {
		panic(p.errorf("invalid instrument header size: %d", size))
	}

	if numSamples == 0 {
		p.offset = instrStart
		p.skip(size, "instrument header")
		m.Instruments = append(m.Instruments, ins)
		return
	}
	if numSamples > 32 {
		panic(p.errorf("too many samples: %d", numSamples))
	}

	var vibWave, vibSweep, vibDepth, vibRate int
	if size >= xmInstHeaderSize+xmInstSize {
		keymap := p.read(96, "keymap assignments")
		var volPoints, panPoints [12]EnvelopePoint
		for j := range volPoints {
			volPoints[j].X = int16(p.readWord("volume envelope x"))
			volPoints[j].Y = int16(p.readWord("volume envelope y"))
		}
		for j := range panPoints {
			panPoints[j].X = int16(p.readWord("pan envelope x"))
			panPoints[j].Y = int16(p.readWord("pan envelope y"))
		}
		volEnv := &ins.VolumeEnvelope
		panEnv := &ins.PanEnvelope
		volEnv.NumPoints = int(p.readByte("number of volume points"))
		panEnv.NumPoints = int(p.readByte("number of pan points"))
		volEnv.SustainStart = int(p.readByte("volume sustain point"))
		volEnv.LoopStart = int(p.readByte("volume loop start"))
		volEnv.LoopEnd = int(p.readByte("volume loop end"))
		panEnv.SustainStart = int(p.readByte("pan sustain point"))
		panEnv.LoopStart = int(p.readByte("pan loop start"))
		panEnv.LoopEnd = int(p.readByte("pan loop end"))
		volEnv.SustainEnd = volEnv.SustainStart
		panEnv.SustainEnd = panEnv.SustainStart
		volEnv.Flags = convertXMEnvelopeFlags(p.readByte("volume envelope flags"))
		panEnv.Flags = convertXMEnvelopeFlags(p.readByte("pan envelope flags"))
		vibWave = int(p.readByte("vibrato type"))
		vibSweep = int(p.readByte("vibrato sweep"))
		vibDepth = int(p.readByte("vibrato depth"))
		vibRate = int(p.readByte("vibrato rate"))
		ins.Fadeout = int(p.readWord("volume fadeout")) << 1

		if volEnv.NumPoints <= 0 || volEnv.NumPoints > 12 {
			volEnv.Flags &^= EnvelopeOn
		} else {
			copy(volEnv.Points[:], volPoints[:volEnv.NumPoints])
		}
		if panEnv.NumPoints <= 0 || panEnv.NumPoints > 12 {
			panEnv.Flags &^= EnvelopeOn
		} else {
			copy(panEnv.Points[:], panPoints[:panEnv.NumPoints])
		}

		for j := 12; j < 108; j++ {
			sub := keymap[j-12]
			if int(sub) >= numSamples {
				sub = 0xff
			}
			ins.Keymap[j].Sub = sub
		}
	}
	p.offset = instrStart
	p.skip(size, "instrument header")

	p.startSubStage("sample")
	headers := make([]xmSampleHeader, numSamples)
	ins.Subs = make([]SubInstrument, numSamples)
	for j := range headers {
		p.subStageIndex = j
		h := &headers[j]
		h.length = int(p.readDword("sample length"))
		h.loopStart = int(p.readDword("sample loop start"))
		h.loopLen = int(p.readDword("sample loop length"))
		h.volume = int(p.readByte("sample volume"))
		h.finetune = int(int8(p.readByte("sample finetune")))
		h.flags = p.readByte("sample type")
		h.pan = int(p.readByte("sample panning"))
		h.relNote = int(int8(p.readByte("sample relative note")))
		h.encoding = p.readByte("sample encoding")
		h.name = p.readString(22, "sample name")

		ins.Subs[j] = SubInstrument{
			Volume:          h.volume,
			GlobalVolume:    0x40,
			Pan:             h.pan,
			Transpose:       h.relNote,
			Finetune:        h.finetune,
			VibratoWaveform: vibWave,
			VibratoDepth:    vibDepth << 2,
			VibratoRate:     vibRate,
			VibratoSweep:    vibSweep,
			Sample:          len(m.Samples) + j,
		}
	}

	if p.version > 0x0103 {
		p.startSubStage("sampledata")
		for j := range headers {
			p.subStageIndex = j
			m.Samples = append(m.Samples, p.parseSampleData(&headers[j]))
		}
	} else {
		// Old XM versions store all sample data after the patterns.
		// Sample data is not supported for them, the headers are kept.
		for j := range headers {
			m.Samples = append(m.Samples, Sample{Name: headers[j].name})
		}
	}

	m.Instruments = append(m.Instruments, ins)
}

func convertXMEnvelopeFlags(b uint8) EnvelopeFlags {
	var flags EnvelopeFlags
	if b&0x01 != 0 {
		flags |= EnvelopeOn
	}
	if b&0x02 != 0 {
		flags |= EnvelopeSustain
	}
	if b&0x04 != 0 {
		flags |= EnvelopeLoop
	}
	return flags
}

func (p *xmParser) parseSampleData(h *xmSampleHeader) Sample {
	s := Sample{
		Name:      h.name,
		LoopStart: h.loopStart,
		LoopEnd:   h.loopStart + h.loopLen,
	}
	is16 := h.flags&0x10 != 0
	stereo := h.flags&0x20 != 0

	var raw []byte
	if h.encoding == 0xad {
		raw = decodeADPCM(p.readAtMost(16+(h.length+1)/2), h.length)
	} else {
		raw = p.readAtMost(h.length)
	}

	if is16 {
		s.Data = decodeDelta16(raw)
		s.LoopStart >>= 1
		s.LoopEnd >>= 1
	} else {
		s.Data = decodeDelta8(raw)
		s.Flags |= SampleBits8
	}
	if stereo {
		// Only the left channel is kept.
		s.Data = s.Data[:len(s.Data)/2]
		s.LoopStart >>= 1
		s.LoopEnd >>= 1
	}
	s.Length = len(s.Data)

	switch {
	case h.flags&0x02 != 0:
		s.Flags |= SampleLoop | SampleLoopBidir
	case h.flags&0x01 != 0:
		s.Flags |= SampleLoop
	}
	return s
}

func decodeDelta8(raw []byte) []int16 {
	out := make([]int16, len(raw))
	var acc int8
	for i, b := range raw {
		acc += int8(b)
		out[i] = int16(acc) << 8
	}
	return out
}

func decodeDelta16(raw []byte) []int16 {
	out := make([]int16, len(raw)/2)
	var acc int16
	for i := range out {
		acc += int16(binary.LittleEndian.Uint16(raw[i*2:]))
		out[i] = acc
	}
	return out
}

// decodeADPCM expands the ModPlug 4-bit ADPCM encoding into
// the delta-8 stream that decodeDelta8 understands.
func decodeADPCM(raw []byte, length int) []byte {
	if len(raw) < 16 {
		return nil
	}
	table := raw[:16]
	packed := raw[16:]
	out := make([]byte, 0, length)
	var acc uint8
	for _, b := range packed {
		for _, nibble := range [2]uint8{b & 0xf, b >> 4} {
			if len(out) == length {
				break
			}
			acc += table[nibble]
			out = append(out, acc)
		}
	}
	// The output is an absolute waveform, convert it back to deltas.
	prev := uint8(0)
	for i, v := range out {
		out[i] = v - prev
		prev = v
	}
	return out
}
