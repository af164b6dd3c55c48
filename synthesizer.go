package modplay

import (
	"fmt"
	"math"
	"time"

	"github.com/quasilyte/modplay/modfile"
)

// Synthesizer can be used to play individual notes with the module instruments.
//
// It is more efficient and convenient to use for this
// use case than a stream with a constant module re-loading.
//
// Experimental: synthesizer API may change in the near future.
type Synthesizer struct {
	stream  *Stream
	session *Session

	// keyOff holds the number of ticks before the key off of every channel.
	keyOff  []int
	nextChn int
}

type SynthesizerConfig struct {
	// NumChannels is the number of the notes that can be played at once.
	// A zero value means 8 channels.
	NumChannels int

	Session SessionConfig
}

// NewSynthesizer prepares the instruments from the module for further use.
//
// Only the instruments and the samples of m are used:
// the synthesizer plays an endless empty pattern
// and injects the notes into its channels.
//
// Creating a synthesizer involves the module compilation,
// so it should not be called on a hot path repeatedly.
func NewSynthesizer(m *modfile.Module, config SynthesizerConfig) (*Synthesizer, error) {
	numChannels := config.NumChannels
	if numChannels == 0 {
		numChannels = 8
	}
	if numChannels < 0 || numChannels > modfile.MaxChannels {
		return nil, fmt.Errorf("%w: %d synthesizer channels", ErrInvalidParam, numChannels)
	}

	instOnly := *m
	instOnly.NumChannels = numChannels
	instOnly.Channels = nil
	instOnly.Restart = 0
	instOnly.Orders = []uint8{0}
	instOnly.Tracks = []modfile.Track{{}}
	instOnly.Patterns = []modfile.Pattern{
		{
			Rows:   64,
			Tracks: make([]int, numChannels),
		},
	}

	session, err := NewSession(&instOnly, config.Session)
	if err != nil {
		return nil, err
	}
	if err := session.Start(0, session.config.Format); err != nil {
		return nil, err
	}

	stream := NewStream(session)
	stream.SetLooping(true)
	synth := &Synthesizer{
		stream:  stream,
		session: session,
		keyOff:  make([]int, numChannels),
	}
	stream.beforeFrame = synth.tick
	return synth, nil
}

// SetVolume adjusts the master volume of the underlying stream.
func (s *Synthesizer) SetVolume(v float64) {
	s.stream.SetVolume(v)
}

// PlayNote plays one or more notes up to the specified duration.
// Using 0 for the duration will play the notes until they end on their own.
//
// Every event is injected into its own channel, the channels are reused
// in a round-robin manner. The events may contain effects as well.
func (s *Synthesizer) PlayNote(duration time.Duration, notes ...modfile.Event) error {
	ticks := 0
	if duration > 0 {
		frameTime := s.session.m.timeFactor * s.session.m.rrate / float64(s.session.p.bpm)
		ms := float64(duration) / float64(time.Millisecond)
		ticks = max(1, int(math.Ceil(ms/frameTime)))
	}

	for i, e := range notes {
		if i >= len(s.keyOff) {
			break
		}
		chn := s.nextChn
		s.nextChn = (s.nextChn + 1) % len(s.keyOff)
		if err := s.session.InjectEvent(chn, e); err != nil {
			return err
		}
		s.keyOff[chn] = ticks
	}

	return nil
}

// tick sends the scheduled key offs.
func (s *Synthesizer) tick() {
	for chn, n := range s.keyOff {
		if n == 0 {
			continue
		}
		// The note is injected during this tick, the key off goes after it.
		if s.session.p.inject[chn].pending {
			continue
		}
		s.keyOff[chn]--
		if s.keyOff[chn] == 0 {
			s.session.InjectEvent(chn, modfile.Event{Note: modfile.NoteKeyOff})
		}
	}
}

func (s *Synthesizer) Read(b []byte) (int, error) {
	return s.stream.Read(b)
}

func (s *Synthesizer) Rewind() {
	s.stream.Rewind()
}

func (s *Synthesizer) Seek(offset int64, whence int) (int64, error) {
	return s.stream.Seek(offset, whence)
}
