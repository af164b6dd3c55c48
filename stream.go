package modplay

import (
	"errors"
	"io"
	"math"
	"time"
)

// Stream wraps the replay session, making it possible to Read() its PCM bytes.
//
// The Read() method produces the PCM bytes in the session format.
// The default format is 16-bit little endian stereo; this is what ebiten/audio
// package expects. Use Stream as an io.Reader argument for audio.NewPlayer().
type Stream struct {
	session *Session

	settings streamSettings

	// pending is the unread tail of the last rendered tick.
	pending []byte
	bytePos int // Used to report the current pos via Seek()

	lastOrd   int
	loopCount int
	ended     bool

	// beforeFrame is called right before every tick is rendered.
	beforeFrame func()
}

type streamSettings struct {
	loop         bool
	eventHandler func(e StreamEvent)
}

// StreamInfo contains the stream information like bytes per tick, etc.
type StreamInfo struct {
	// BytesPerTick is the size of the last rendered tick.
	// The tick size depends on the current BPM.
	BytesPerTick uint

	// MemoryUsage approximates the session-owned memory in bytes.
	MemoryUsage uint
}

// NewStream creates a stream that reads the session ticks.
//
// The session should be started before the first Read call.
// A stream takes over the session replay: don't call PlayFrame
// on a session that is used by a stream.
func NewStream(s *Session) *Stream {
	return &Stream{
		session: s,
		lastOrd: -1,
	}
}

// Session returns the underlying replay session.
func (s *Stream) Session() *Session { return s.session }

// SetEventHandler installs an event listener to the stream.
//
// f is called on every stream event.
//
// Events are produced when the module is being played.
// Therefore, calling Read() may produce multiple events.
func (s *Stream) SetEventHandler(f func(e StreamEvent)) {
	s.settings.eventHandler = f
}

// SetVolume adjusts the master volume of the session.
// The default value is 1; a value of 0 disables the sound.
// The value is clamped in [0, 2].
func (s *Stream) SetVolume(v float64) {
	// Only fails for a stopped session, the volume is set on start then.
	_ = s.session.SetParam(ParamVolume, int(clamp(v, 0, 2)*100))
}

// SetLooping enables the song looping.
// When looping is enabled, Read will never return EOF.
//
// Without looping, the stream ends as soon as the song
// goes back to an already played position.
func (s *Stream) SetLooping(loop bool) {
	s.settings.loop = loop
}

// Seek partially implements io.Seeker.
//
// You can use it for three things:
//  1. (0, SeekStart) for rewind
//  2. (0, SeekCurrent) to get the byte pos inside the stream
//  3. (n, SeekStart) to jump to the order that plays at that byte offset
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		if offset == 0 {
			s.Rewind()
			return 0, nil
		}
		if offset > 0 {
			return s.seekBytes(offset)
		}

	case io.SeekCurrent:
		if offset == 0 {
			return int64(s.bytePos), nil
		}
	}

	return 0, errors.New("unsupported Seek call")
}

func (s *Stream) bytesPerSecond() int {
	mx := &s.session.mixer
	return mx.freq * mx.format.numChannels() * mx.format.bytesPerSample()
}

func (s *Stream) seekBytes(offset int64) (int64, error) {
	rate := int64(s.bytesPerSecond())
	t := time.Duration(offset) * time.Second / time.Duration(rate)
	pos, err := s.session.SeekTime(t)
	if err != nil {
		return 0, err
	}
	ms := int64(s.session.m.ordInfo[pos].time)
	s.pending = nil
	s.ended = false
	s.bytePos = int(ms * rate / 1000)
	s.emitSync(s.session.p.currentTime/1000, float64(ms)/1000)
	return int64(s.bytePos), nil
}

// Read puts next PCM bytes into provided slice.
//
// The ticks are rendered on demand, the part of a tick that
// doesn't fit into b is returned by the next Read call.
//
// When stream has no bytes to produce, io.EOF error is returned.
func (s *Stream) Read(b []byte) (int, error) {
	if !s.session.started {
		return 0, ErrNotStarted
	}

	written := 0
	for len(b) > 0 {
		if len(s.pending) == 0 {
			if s.ended || !s.nextTick() {
				s.ended = true
				break
			}
		}
		n := copy(b, s.pending)
		s.pending = s.pending[n:]
		b = b[n:]
		written += n
	}

	s.bytePos += written

	if s.ended && written == 0 {
		return 0, io.EOF
	}
	return written, nil
}

// Rewind prepares the stream to play the module right from the start
// of the current sequence.
// Doing rewind is relatively cheap.
func (s *Stream) Rewind() {
	s.emitSync(s.session.p.currentTime/1000, 0)
	s.session.Restart()
	s.pending = nil
	s.bytePos = 0
	s.lastOrd = -1
	s.loopCount = 0
	s.ended = false
}

// GetInfo returns stream-related info.
// See StreamInfo for more details.
func (s *Stream) GetInfo() StreamInfo {
	mx := &s.session.mixer
	return StreamInfo{
		BytesPerTick: uint(mx.tickSize * mx.format.numChannels() * mx.format.bytesPerSample()),
		MemoryUsage:  sessionMemoryUsage(s.session),
	}
}

func (s *Stream) emitSync(at, t float64) {
	if s.settings.eventHandler == nil {
		return
	}
	s.settings.eventHandler(StreamEvent{
		Kind:    EventSync,
		Channel: -1,
		Time:    at,
		value:   math.Float64bits(t),
	})
}

func (s *Stream) nextTick() bool {
	if s.beforeFrame != nil {
		s.beforeFrame()
	}

	session := s.session
	p := &session.p
	prevTime := p.currentTime / 1000

	if err := session.PlayFrame(); err != nil {
		return false
	}

	tickStart := (p.currentTime - p.frameTime) / 1000
	if p.loopCount > s.loopCount {
		s.loopCount = p.loopCount
		if !s.settings.loop {
			return false
		}
		s.emitSync(prevTime, tickStart)
	}

	if s.settings.eventHandler != nil {
		s.emitEvents(tickStart)
	}

	s.pending = session.Buffer()
	return true
}

func (s *Stream) emitEvents(t float64) {
	session := s.session
	m := session.m
	p := &session.p

	if p.ord != s.lastOrd {
		s.lastOrd = p.ord
		s.settings.eventHandler(StreamEvent{
			Kind:    EventOrder,
			Channel: -1,
			Time:    t,
			value:   uint64(p.ord) | uint64(m.order(p.ord))<<16,
		})
	}

	if p.frame != 0 {
		return
	}
	for chn := 0; chn < m.numChannels(); chn++ {
		xc := &p.xc[chn]
		if !xc.test(chNewNote) || !isValidNote(xc.key) {
			continue
		}
		instID := 255 // It's a sentinel value that fits 8 bits
		if m.isValidInstrument(xc.ins) && xc.ins < 255 {
			instID = xc.ins
		}
		vol := float32(xc.volume) / float32(m.volBase)
		value := uint64(xc.key) | uint64(instID<<8) | (uint64(math.Float32bits(vol)) << 16)
		s.settings.eventHandler(StreamEvent{
			Kind:    EventNote,
			Channel: chn,
			Time:    t,
			value:   value,
		})
	}
}
