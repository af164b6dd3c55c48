package modfile

import (
	"errors"
)

// ErrInvalidModule is returned by Validate for models that can't be replayed at all
// (no channels, track references out of range and such).
// Milder anomalies are silently clamped.
var ErrInvalidModule = errors.New("invalid module")

// Special values of the Event.Note field.
// Normal notes are in [1, MaxNote], 0 means "no note".
const (
	NoteKeyOff  = 0x81
	NoteCut     = 0x82
	NoteFade    = 0x83
	MaxNote     = 121
	MaxKeys     = 121
	MaxChannels = 64

	// MaxOrders is the longest order list a module can have.
	MaxOrders = 256

	// MaxEnvelopePoints limits the number of envelope nodes.
	MaxEnvelopePoints = 32
)

// Order list markers.
const (
	OrderSkip = 0xfe
	OrderEnd  = 0xff
)

// Module is a format-independent song description.
//
// Loaders (ParseXM, ParseMOD, ParseYAML) produce it and the replay session
// consumes it as a read-only object. The only exception is sample PCM that
// is copied by the session before it's modified by effects like invert loop.
type Module struct {
	Name string

	// Type is a human-readable format description, like "FastTracker v2.00 XM 1.04".
	Type string

	NumChannels int

	// Speed is the initial number of ticks per row.
	Speed int

	// BPM is the initial tempo.
	BPM int

	// GlobalVolume is an initial global volume, in [0, GVolBase].
	GlobalVolume int

	// Restart is an order index used when the song reaches the end of the orders list.
	Restart int

	// Orders lists the pattern indexes to be played.
	// Values OrderSkip and OrderEnd are markers (see QuirkMarker).
	Orders []uint8

	Patterns    []Pattern
	Tracks      []Track
	Instruments []Instrument
	Samples     []Sample

	// Channels holds the per-channel defaults.
	// Its length is expected to be at least NumChannels.
	Channels []Channel

	Quirks     Quirk
	FlowMode   FlowMode
	Dialect    Dialect
	PeriodType PeriodType

	// C4Rate is a sample playback rate that corresponds to the middle C.
	// Use C4PalRate or C4NtscRate.
	C4Rate int

	// VolBase is the maximum note volume value (usually 0x40).
	VolBase int

	// GVolBase is the maximum global volume value (0x40 or 0x80).
	GVolBase int

	// MixVolBase is the mixer volume base (the "master volume" of the format).
	MixVolBase int

	// TimeFactor converts BPM into the tick duration: tick = TimeFactor*RefreshRate/BPM milliseconds.
	TimeFactor float64

	// RefreshRate is the reference refresh rate (250 for PAL derived formats).
	RefreshRate float64

	// CompareVBlank requests a second timing scan with the inverted NoBPM quirk.
	// The shortest of both is used.
	CompareVBlank bool
}

// Pattern is a grid of rows x channels.
// Every channel column is a reference to a track.
type Pattern struct {
	Rows int

	// Tracks maps a channel to a Module.Tracks index.
	Tracks []int
}

// Track holds events for a single channel inside a pattern.
type Track struct {
	Events []Event
}

// Event is a single cell of the pattern.
type Event struct {
	// Note is 1-based; 0 means no note, see NoteKeyOff and friends for special values.
	Note uint8

	// Instrument is 1-based; 0 means no instrument.
	Instrument uint8

	// Volume is 1-based; 0 means no volume.
	Volume uint8

	FxType  uint8
	FxParam uint8
	F2Type  uint8
	F2Param uint8
}

// IsEmpty reports whether the event has no note, instrument, volume and effects.
func (e Event) IsEmpty() bool {
	return e == Event{}
}

// Channel holds the channel defaults.
type Channel struct {
	// Pan is in [0, 255], 0x80 is center.
	Pan int

	// Volume is in [0, 64].
	Volume int

	Flags ChannelFlags
}

type ChannelFlags int

const (
	ChannelSynth ChannelFlags = 1 << iota
	ChannelMute
	ChannelSplit
	ChannelSurround
)

// Split channels are grouped by the two bits starting at ChannelSplitShift.
const ChannelSplitShift = 4

// Instrument is a set of samples mapped to keys, plus envelopes.
type Instrument struct {
	Name string

	// Volume is an instrument global volume (see QuirkInsVol).
	Volume int

	// Fadeout is a volume fadeout step applied after the key release.
	Fadeout int

	VolumeEnvelope Envelope
	PanEnvelope    Envelope
	PitchEnvelope  Envelope

	// Keymap maps a key to a sub-instrument and a transpose value.
	Keymap [MaxKeys]KeymapEntry

	Subs []SubInstrument
}

// KeymapEntry maps a key to a sub-instrument.
// Sub=0xff means "no sample for this key".
type KeymapEntry struct {
	Sub       uint8
	Transpose int8
}

// SubInstrument binds a sample to the instrument-level playback parameters.
type SubInstrument struct {
	Volume       int
	GlobalVolume int
	Pan          int // -1 means "don't override channel pan"
	Transpose    int
	Finetune     int

	VibratoWaveform int
	VibratoDepth    int
	VibratoRate     int
	VibratoSweep    int

	// RandomVolume and RandomPan are the "swing" values in percents.
	RandomVolume int
	RandomPan    int

	// Sample is an index into Module.Samples.
	Sample int

	NewNoteAction        NewNoteAction
	DuplicateCheckType   DuplicateCheckType
	DuplicateCheckAction DuplicateCheckAction

	// FilterCutoff and FilterResonance have bit 7 set when they're enabled.
	FilterCutoff    int
	FilterResonance int
}

type NewNoteAction int

const (
	NewNoteCut NewNoteAction = iota
	NewNoteContinue
	NewNoteOff
	NewNoteFade
)

type DuplicateCheckType int

const (
	DuplicateCheckOff DuplicateCheckType = iota
	DuplicateCheckNote
	DuplicateCheckSample
	DuplicateCheckInstrument
)

type DuplicateCheckAction int

const (
	DuplicateActionCut DuplicateCheckAction = iota
	DuplicateActionOff
	DuplicateActionFade
)

// Envelope is a piecewise-linear curve.
//
// Points stores (x, y) pairs, the number of used points is NumPoints.
type Envelope struct {
	Flags     EnvelopeFlags
	NumPoints int

	LoopStart    int
	LoopEnd      int
	SustainStart int
	SustainEnd   int

	Points [MaxEnvelopePoints]EnvelopePoint
}

type EnvelopePoint struct {
	X int16
	Y int16
}

type EnvelopeFlags int

const (
	EnvelopeOn EnvelopeFlags = 1 << iota
	EnvelopeSustain
	EnvelopeLoop
	EnvelopeFilter
	EnvelopeSustainLoop
	EnvelopeCarry
)

func (f EnvelopeFlags) IsOn() bool { return f&EnvelopeOn != 0 }

func (f EnvelopeFlags) SustainEnabled() bool { return f&EnvelopeSustain != 0 }

func (f EnvelopeFlags) LoopEnabled() bool { return f&EnvelopeLoop != 0 }

// Sample is a PCM sample with its loop metadata.
//
// Data always stores signed 16-bit values; SampleBits8 marks the samples
// that were 8-bit in their source (their low byte is zero).
// All lengths and offsets are measured in sample frames.
type Sample struct {
	Name string

	Length    int
	LoopStart int
	LoopEnd   int

	SustainStart int
	SustainEnd   int

	Flags SampleFlags

	// C5Speed is a playback rate of the middle C (used by the C-speed period model).
	C5Speed float64

	Data []int16
}

type SampleFlags int

const (
	SampleBits8 SampleFlags = 1 << iota
	SampleLoop
	SampleLoopBidir
	SampleLoopReverse
	SampleLoopFull
	SampleSustainLoop
	SampleSustainLoopBidir
)

func (s *Sample) HasLoop() bool { return s.Flags&SampleLoop != 0 }

// LoopType reports the sample loop type.
func (s *Sample) LoopType() SampleLoopType {
	switch {
	case s.Flags&SampleLoop == 0:
		return SampleLoopNone
	case s.Flags&SampleLoopBidir != 0:
		return SampleLoopPingPong
	default:
		return SampleLoopForward
	}
}

type SampleLoopType int

const (
	SampleLoopNone SampleLoopType = iota
	SampleLoopForward
	SampleLoopPingPong
)

// Reference playback rates of the middle C.
const (
	C4PalRate  = 8287
	C4NtscRate = 8363
)

// PeriodType selects the pitch model.
type PeriodType int

const (
	PeriodAmiga PeriodType = iota
	// PeriodModRng is an Amiga period model clamped to the ProTracker 3 octave range.
	PeriodModRng
	PeriodLinear
	PeriodCSpeed
)

// Dialect selects the channel event processor variant.
type Dialect int

const (
	DialectMOD Dialect = iota
	DialectFT2
	DialectST3
	DialectIT
)

func (d Dialect) String() string {
	switch d {
	case DialectMOD:
		return "mod"
	case DialectFT2:
		return "ft2"
	case DialectST3:
		return "st3"
	case DialectIT:
		return "it"
	default:
		return "unknown"
	}
}

// FlowMode holds the flow control compatibility bits.
type FlowMode int

const (
	// FlowLoopPatternReset resets pattern loop state on every new pattern.
	FlowLoopPatternReset FlowMode = 1 << iota
	// FlowLoopShared makes all channels share a single pattern loop.
	FlowLoopShared
)

// NewModule returns a module with the defaults every loader starts from.
func NewModule() *Module {
	m := &Module{
		NumChannels:  4,
		Speed:        6,
		BPM:          125,
		GlobalVolume: 0x40,
		VolBase:      0x40,
		GVolBase:     0x40,
		MixVolBase:   0x40,
		C4Rate:       C4PalRate,
		TimeFactor:   DefaultTimeFactor,
		RefreshRate:  PalRefreshRate,
		Channels:     make([]Channel, MaxChannels),
	}
	for i := range m.Channels {
		m.Channels[i] = Channel{
			Pan:    DefaultChannelPan(i, 100),
			Volume: 0x40,
		}
	}
	return m
}

const (
	DefaultTimeFactor = 10.0
	PalRefreshRate    = 250.0
	NtscRefreshRate   = 300.0
)

// DefaultChannelPan returns the Amiga LRRL panning of the channel i
// with the specified separation percentage.
func DefaultChannelPan(i, separation int) int {
	pan := (((i + 1) / 2) % 2) * 0xff
	return 0x80 + (pan-0x80)*separation/100
}

// Event returns the event at the specified pattern/channel/row or an empty event
// if it is out of range.
func (m *Module) Event(pattern, channel, row int) Event {
	if pattern < 0 || pattern >= len(m.Patterns) {
		return Event{}
	}
	p := &m.Patterns[pattern]
	if channel >= len(p.Tracks) {
		return Event{}
	}
	t := &m.Tracks[p.Tracks[channel]]
	if row >= len(t.Events) {
		return Event{}
	}
	return t.Events[row]
}
