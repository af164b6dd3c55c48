package modplay

import (
	"fmt"
	"math"
	"time"

	"github.com/quasilyte/modplay/modfile"
)

// MuteAction selects what ChannelMute does with the channel.
type MuteAction int

const (
	// MuteQuery only reports the current state.
	MuteQuery MuteAction = iota
	MuteOff
	MuteOn
	MuteToggle
)

// NextPosition jumps to the next order of the current sequence.
// It returns the new position.
func (s *Session) NextPosition() (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	if s.p.pos < s.m.numOrders() {
		s.setPosition(s.p.pos+1, 1)
	}
	return s.p.pos, nil
}

// PrevPosition jumps to the previous order of the current sequence.
// Going back from the sequence entry point restarts the sequence.
func (s *Session) PrevPosition() (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	entry := s.m.seqs[s.p.sequence].entryPoint
	switch {
	case s.p.pos == entry:
		s.setPosition(-1, -1)
	case s.p.pos > entry:
		s.setPosition(s.p.pos-1, -1)
	}
	return max(s.p.pos, 0), nil
}

// SetPosition jumps to the specified order.
// The current sequence is switched to the one that owns the order.
func (s *Session) SetPosition(pos int) (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	if pos < 0 || pos >= s.m.numOrders() {
		return 0, fmt.Errorf("%w: order %d", ErrInvalidPosition, pos)
	}
	s.setPosition(pos, 0)
	return s.p.pos, nil
}

// SetSequence jumps to the entry point of the specified sequence.
func (s *Session) SetSequence(seq int) error {
	if !s.started {
		return ErrNotStarted
	}
	if seq < 0 || seq >= s.m.numSequences {
		return fmt.Errorf("%w: sequence %d", ErrInvalidPosition, seq)
	}
	s.setPosition(s.m.seqs[seq].entryPoint, 0)
	return nil
}

// SetRow jumps to the row of the current pattern.
func (s *Session) SetRow(row int) (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	m := s.m
	p := &s.p

	pos := p.pos
	if pos < 0 || pos >= m.numOrders() {
		pos = 0
	}
	if m.numOrders() == 0 {
		return 0, ErrInvalidPosition
	}
	pat := m.order(pos)
	if !m.isValidPattern(pat) || row < 0 || row >= m.patternRows(pat) {
		return 0, fmt.Errorf("%w: row %d", ErrInvalidPosition, row)
	}

	p.pos = pos
	p.ord = pos
	p.row = row
	p.frame = -1
	p.flow.numRows = m.patternRows(pat)
	return row, nil
}

// Stop makes the next PlayFrame call report the song end.
func (s *Session) Stop() {
	if !s.started {
		return
	}
	s.p.pos = posStop
}

// Restart replays the current sequence from its entry point.
func (s *Session) Restart() {
	if !s.started {
		return
	}
	s.p.loopCount = 0
	s.p.pos = posRestart
}

// SeekTime jumps to the last order of the current sequence
// that starts before t.
// The replay continues from the beginning of that order.
func (s *Session) SeekTime(t time.Duration) (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	m := s.m
	ms := t.Milliseconds()

	i := m.numOrders() - 1
	for ; i >= 0; i-- {
		if !m.isValidPattern(m.order(i)) {
			continue
		}
		if s.getSequence(i) != s.p.sequence {
			continue
		}
		if ms >= int64(m.ordInfo[i].time) {
			s.setPosition(i, 1)
			break
		}
	}
	if i < 0 && m.numOrders() != 0 {
		s.setPosition(0, 0)
	}
	return max(s.p.pos, 0), nil
}

// SetTempoFactor scales the replay speed: 2 plays twice slower.
// The scanned durations are not affected until the next rescan.
func (s *Session) SetTempoFactor(v float64) error {
	if !s.started {
		return ErrNotStarted
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: tempo factor %v", ErrInvalidParam, v)
	}
	v *= s.m.mod.TimeFactor
	size := tickSize(s.mixer.freq, v, s.m.rrate, s.p.bpm)
	if size < 0 || size > maxFrameSize/2 {
		return fmt.Errorf("%w: tempo factor %v", ErrInvalidParam, v)
	}
	s.m.timeFactor = v
	return nil
}

// ChannelMute changes the mute state of the pattern channel.
// It returns the state before the change.
func (s *Session) ChannelMute(chn int, action MuteAction) (bool, error) {
	if !s.started {
		return false, ErrNotStarted
	}
	if chn < 0 || chn >= modfile.MaxChannels {
		return false, fmt.Errorf("%w: channel %d", ErrInvalidParam, chn)
	}
	mute := &s.p.channelMute[chn]
	prev := *mute
	switch action {
	case MuteOff:
		*mute = false
	case MuteOn:
		*mute = true
	case MuteToggle:
		*mute = !*mute
	}
	return prev, nil
}

// Solo mutes all pattern channels except chn.
func (s *Session) Solo(chn int) error {
	if !s.started {
		return ErrNotStarted
	}
	if chn < 0 || chn >= s.m.numChannels() {
		return fmt.Errorf("%w: channel %d", ErrInvalidParam, chn)
	}
	for i := 0; i < s.m.numChannels(); i++ {
		s.p.channelMute[i] = i != chn
	}
	return nil
}

// ChannelVolume sets the pattern channel volume in [0, 100].
// A volume outside of that range only queries the current value.
// It returns the volume before the change.
func (s *Session) ChannelVolume(chn, vol int) (int, error) {
	if !s.started {
		return 0, ErrNotStarted
	}
	if chn < 0 || chn >= modfile.MaxChannels {
		return 0, fmt.Errorf("%w: channel %d", ErrInvalidParam, chn)
	}
	prev := s.p.channelVol[chn]
	if vol >= 0 && vol <= 100 {
		s.p.channelVol[chn] = vol
	}
	return prev, nil
}

// InjectEvent schedules the event to be read by the pattern channel
// during the next PlayFrame, after the pattern row.
//
// The event is treated exactly like a pattern event, so it can
// trigger notes and effects. Only one event per channel is kept.
func (s *Session) InjectEvent(chn int, e modfile.Event) error {
	if !s.started {
		return ErrNotStarted
	}
	if chn < 0 || chn >= len(s.p.inject) {
		return fmt.Errorf("%w: channel %d", ErrInvalidParam, chn)
	}
	s.p.inject[chn] = injectedEvent{e: e, pending: true}
	return nil
}

// setPosition moves the replay to the order pos.
// The dir is the search direction over the skip markers;
// zero also selects the sequence that owns pos.
func (s *Session) setPosition(pos, dir int) {
	m := s.m
	p := &s.p
	f := &p.flow

	seq := p.sequence
	if dir == 0 {
		seq = s.getSequence(pos)
	}
	if seq == noSequence || seq >= m.numSequences {
		return
	}

	hasMarker := m.hasQuirk(modfile.QuirkMarker)
	start := m.seqs[seq].entryPoint
	p.sequence = seq

	if pos >= 0 {
		for hasMarker && pos < m.numOrders() && m.order(pos) == modfile.OrderSkip {
			if dir < 0 && pos > start {
				pos--
			} else {
				pos++
			}
		}
		if pos >= m.numOrders() {
			return
		}
		pat := m.order(pos)
		switch {
		case m.isValidPattern(pat):
			if pos > m.scan[seq].ord {
				f.endPoint = 0
			} else {
				f.numRows = m.patternRows(pat)
				f.endPoint = m.scan[seq].num
			}
		case hasMarker && pat == modfile.OrderEnd:
			return
		}
	}

	if pos < m.numOrders() {
		if pos == 0 {
			p.pos = posRestart
		} else {
			p.pos = pos
		}
		f.reset()
	}
}
