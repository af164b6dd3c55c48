package modplay

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/quasilyte/modplay/modfile"
)

// Session replays a single module.
//
// A session owns all the mutable replay state: the flow control,
// the logical channels, the voice pool and the mixer buffers.
// NewSession normalizes the song model in place with modfile.Validate,
// which is idempotent. The replay never writes to the model after that,
// so it's possible to have several sessions of the same module at once.
//
// Session methods are not safe for concurrent use.
type Session struct {
	config SessionConfig
	logger *slog.Logger

	m       *module
	dialect dialect
	started bool

	p     player
	virt  virtualState
	mixer mixer
	rng   rng

	midi midiState
}

// The special values of player.pos.
const (
	posRestart = -1
	posStop    = -2
)

type player struct {
	ord   int
	pos   int
	row   int
	frame int

	speed     int
	bpm       int
	gvol      int
	masterVol int

	// st26 is the ST2.6 split speed: two alternating speeds
	// packed into one value, bit 16 selects the next one.
	st26 int

	frameTime   float64
	currentTime float64

	loopCount int
	sequence  int
	flags     PlayerFlags

	amigaFilter bool

	channelVol  [modfile.MaxChannels]int
	channelMute [modfile.MaxChannels]bool

	xc   []channel
	flow flowControl

	inject []injectedEvent

	// emptySong is set when there are no playable orders at all.
	emptySong bool

	// scanTimeFactor is the time factor of the last scan.
	scanTimeFactor float64
}

type injectedEvent struct {
	e       modfile.Event
	pending bool
}

// NewSession prepares the module for the replay.
//
// The module is validated first (see modfile.Validate).
// Then all its sequences are scanned, so NewSession is
// relatively slow for big modules.
//
// Use Start to begin the replay.
func NewSession(mod *modfile.Module, config SessionConfig) (*Session, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if err := modfile.Validate(mod); err != nil {
		return nil, fmt.Errorf("prepare module: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		config: config,
		logger: logger,
	}
	s.m = compileModule(mod, logger)
	if config.Mode != ModeAuto {
		s.m.applyMode(config.Mode)
	}
	s.dialect = newDialect(s.m)
	s.p.flags = config.Flags

	if err := s.scanSequences(); err != nil {
		return nil, err
	}
	s.logger.Debug("session created",
		"dialect", s.m.dialect,
		"channels", s.m.numChannels(),
		"sequences", s.m.numSequences)

	return s, nil
}

// Start initializes the replay from the first order.
//
// A zero sampleRate keeps the SessionConfig value.
// If the session is already started, it's restarted from scratch.
func (s *Session) Start(sampleRate int, format Format) error {
	if sampleRate == 0 {
		sampleRate = s.config.SampleRate
	}
	if sampleRate < minSampleRate || sampleRate > maxSampleRate {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if format&^(Format8Bit|FormatUnsigned|FormatMono) != 0 {
		return ErrInvalidFormat
	}
	if s.started {
		s.End()
	}

	s.config.SampleRate = sampleRate
	s.config.Format = format
	s.mixer = newMixer(&s.config)

	m := s.m
	p := &s.p
	*p = player{
		flags:          p.flags,
		scanTimeFactor: p.scanTimeFactor,
	}
	f := &p.flow

	p.masterVol = 100
	p.gvol = m.volBase
	p.frame = -1
	for i := range p.channelVol {
		p.channelVol[i] = 100
	}
	for i := 0; i < m.numChannels(); i++ {
		if m.mod.Channels[i].Flags&modfile.ChannelMute != 0 {
			p.channelMute[i] = true
		}
	}

	// Skip the invalid patterns at the start.
	for p.ord < m.numOrders() && !m.isValidPattern(m.order(p.ord)) {
		p.ord++
	}
	if p.ord >= m.numOrders() {
		p.emptySong = true
		p.ord = 0
		f.endPoint = 0
		f.numRows = 0
	} else {
		f.numRows = m.patternRows(m.order(p.ord))
		f.endPoint = m.scan[0].num
	}

	s.updateFromOrdInfo()
	s.virtOn(m.numChannels())

	f.reset()
	f.loop = make([]patternLoop, s.virt.virtChannels)
	p.xc = make([]channel, s.virt.virtChannels)
	p.inject = make([]injectedEvent, m.numChannels())

	// The invert loop effect of the previous run could modify the PCM.
	for i := range m.samples {
		if m.samples[i].dirty {
			m.restoreSample(i)
		}
	}
	s.rng.seed(s.config.RandomSeed)

	s.resetChannels()
	s.started = true
	return nil
}

// End stops the replay and releases the replay state.
// The session can be started again.
func (s *Session) End() {
	if !s.started {
		return
	}
	s.started = false
	s.p.xc = nil
	s.p.flow.loop = nil
	s.p.inject = nil
	s.virt = virtualState{}
}

// PlayFrame renders the next tick.
//
// The tick PCM is available via Buffer and Float32Buffer
// until the next PlayFrame call.
//
// ErrSongEnd is returned after Stop or when the module
// has nothing to play; the song looping is reported via
// FrameInfo.LoopCount instead.
func (s *Session) PlayFrame() error {
	if !s.started {
		return ErrNotStarted
	}

	m := s.m
	p := &s.p
	f := &p.flow

	if p.emptySong {
		return ErrSongEnd
	}
	if s.isMarkerEnd(p.ord) {
		return ErrSongEnd
	}

	if p.ord != p.pos {
		// The position was changed from the outside.
		start := m.seqs[p.sequence].entryPoint
		switch p.pos {
		case posStop:
			return ErrSongEnd
		case posRestart:
			p.pos = start
		}
		if p.pos == start {
			f.endPoint = m.scan[p.sequence].num
		}
		// The position may be past the loop point.
		if p.pos > m.scan[p.sequence].ord {
			f.endPoint = 0
		}
		f.jumpLine = 0
		f.jump = -1

		// Stay inside the current sequence.
		p.ord = max(p.pos-1, start-1)
		s.nextOrder()
		s.updateFromOrdInfo()
		s.virt.reset()
		s.resetChannels()
	} else {
		p.frame++
		if p.frame >= p.speed*(1+f.delay) {
			// A break during the pattern delay skips the next row.
			if m.hasQuirk(modfile.QuirkProTrack) && f.delay != 0 && f.pbreak {
				s.nextRow()
				s.checkEnd()
			}
			s.nextRow()
		}
	}

	for chn := 0; chn < m.numChannels(); chn++ {
		p.xc[chn].reset(chKeyOff)
	}

	if p.frame == 0 {
		s.checkEnd()
		s.readRow(m.order(p.ord), p.row)

		if p.st26 != 0 {
			// A zero half keeps the current speed.
			if speed := splitSpeed(p.st26); speed != 0 {
				p.speed = speed
			}
			p.st26 ^= 0x10000
		}
	}

	s.injectEvents()

	for chn := range p.xc {
		s.playChannel(chn)
	}

	f.rowDelaySet &^= rowDelayFirstFrame
	p.frameTime = m.timeFactor * m.rrate / float64(p.bpm)
	p.currentTime += p.frameTime

	s.softMixer()
	return nil
}

func (s *Session) injectEvents() {
	for chn := range s.p.inject {
		ie := &s.p.inject[chn]
		if ie.pending {
			s.readEvent(&ie.e, chn)
			ie.pending = false
		}
	}
}

// Buffer returns the PCM of the last rendered tick in the session format.
// The slice is reused by the next PlayFrame call.
func (s *Session) Buffer() []byte {
	if !s.started {
		return nil
	}
	return s.mixer.bytes()
}

// Float32Buffer is like Buffer, but it returns float32 samples
// in [-1, 1] regardless of the session format bit depth.
func (s *Session) Float32Buffer() []float32 {
	if !s.started {
		return nil
	}
	return s.mixer.floats()
}

// Started reports whether the session is started.
func (s *Session) Started() bool { return s.started }
