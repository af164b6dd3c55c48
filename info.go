package modplay

import (
	"time"

	"github.com/quasilyte/modplay/modfile"
)

// FrameInfo describes the state of the last rendered tick.
type FrameInfo struct {
	Pos     int
	Pattern int
	Row     int
	NumRows int
	Frame   int
	Speed   int
	BPM     int

	// Time is the replay time of the tick end.
	Time time.Duration
	// FrameTime is the duration of the tick.
	FrameTime time.Duration
	// TotalTime is the duration of the current sequence.
	TotalTime time.Duration

	// BufferSize is the size of the tick PCM in bytes.
	BufferSize int

	GlobalVolume int
	LoopCount    int
	Sequence     int

	// VirtualChannels is the number of the logical channels,
	// including the background ones.
	VirtualChannels int
	// VoicesUsed is the number of the busy mixer voices.
	VoicesUsed int

	Channels []ChannelInfo
}

// ChannelInfo describes a pattern channel.
type ChannelInfo struct {
	// Key is the 0-based note key or -1.
	Key int

	Instrument int
	Sample     int

	Period    int
	PitchBend int
	Position  int

	// Volume is the final channel volume in [0, 64].
	Volume int
	// Pan is the final channel pan in [0, 255].
	Pan int

	Muted bool

	// Event is the pattern event of the current row.
	Event modfile.Event
}

// SequenceInfo describes an independent part of the order list.
type SequenceInfo struct {
	EntryPoint int
	Duration   time.Duration
}

// ModuleInfo describes the session module.
type ModuleInfo struct {
	Name string
	Type string

	Dialect     modfile.Dialect
	NumChannels int
	NumOrders   int
	VolBase     int

	Sequences []SequenceInfo

	// MemoryUsage approximates the session-owned memory in bytes.
	MemoryUsage uint
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// FrameInfo returns the information about the last rendered tick.
// The zero value is returned if the session is not started.
func (s *Session) FrameInfo() FrameInfo {
	if !s.started {
		return FrameInfo{}
	}
	m := s.m
	p := &s.p

	info := FrameInfo{
		Row:             p.row,
		Frame:           p.frame,
		Speed:           p.speed,
		BPM:             p.bpm,
		Time:            msDuration(p.currentTime),
		FrameTime:       msDuration(p.frameTime),
		GlobalVolume:    p.gvol,
		LoopCount:       p.loopCount,
		Sequence:        p.sequence,
		VirtualChannels: s.virt.virtChannels,
		VoicesUsed:      s.virt.used,
		BufferSize:      s.mixer.tickSize * s.mixer.format.numChannels() * s.mixer.format.bytesPerSample(),
	}
	if p.pos >= 0 && p.pos < m.numOrders() {
		info.Pos = p.pos
	}
	if p.sequence < len(m.scan) {
		info.TotalTime = msDuration(float64(m.scan[p.sequence].time))
	}

	info.Pattern = -1
	if info.Pos < m.numOrders() {
		info.Pattern = m.order(info.Pos)
	}
	hasPattern := info.Pattern >= 0 && m.isValidPattern(info.Pattern)
	if hasPattern {
		info.NumRows = m.patternRows(info.Pattern)
	}

	info.Channels = make([]ChannelInfo, m.numChannels())
	for chn := range info.Channels {
		xc := &p.xc[chn]
		ci := &info.Channels[chn]
		*ci = ChannelInfo{
			Key:        xc.key,
			Instrument: xc.ins,
			Sample:     xc.smp,
			Period:     xc.infoPeriod,
			PitchBend:  xc.infoPitchbend,
			Position:   xc.infoPosition,
			Volume:     xc.infoFinalVol >> 4,
			Pan:        xc.infoFinalPan,
			Muted:      p.channelMute[chn],
		}
		if hasPattern && info.Row < info.NumRows && info.Row < m.trackRows(info.Pattern, chn) {
			ci.Event = m.event(info.Pattern, chn, info.Row)
		}
	}

	return info
}

// Sequences returns the independent sequences found by the scanner.
func (s *Session) Sequences() []SequenceInfo {
	m := s.m
	result := make([]SequenceInfo, m.numSequences)
	for i := range result {
		result[i] = SequenceInfo{
			EntryPoint: m.seqs[i].entryPoint,
			Duration:   msDuration(float64(m.seqs[i].duration)),
		}
	}
	return result
}

// ModuleInfo returns the module description.
// It's available before the session is started.
func (s *Session) ModuleInfo() ModuleInfo {
	m := s.m
	return ModuleInfo{
		Name:        m.mod.Name,
		Type:        m.mod.Type,
		Dialect:     m.dialect,
		NumChannels: m.numChannels(),
		NumOrders:   m.numOrders(),
		VolBase:     m.volBase,
		Sequences:   s.Sequences(),
		MemoryUsage: sessionMemoryUsage(s),
	}
}
