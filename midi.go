package modplay

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/quasilyte/modplay/modfile"
)

const (
	midiNumChannels = 16

	midiControlVolume   = 7
	midiControlAllSound = 120
	midiControlAllNotes = 123
)

// midiState maps the MIDI channels to the module instruments.
type midiState struct {
	// program is a 1-based instrument of every MIDI channel, 0 means the first one.
	program [midiNumChannels]uint8
}

// InjectMIDI translates a MIDI message into an injected event.
//
// A MIDI channel n plays on the pattern channel n modulo the number
// of the module channels. The MIDI keys are mapped to the module keys
// directly and the velocity becomes the volume column value.
//
// Supported messages: note on/off, program change (selects the
// instrument) and the channel volume, all notes off and all sound off
// controllers. Other messages are ignored.
func (s *Session) InjectMIDI(msg midi.Message) error {
	if !s.started {
		return ErrNotStarted
	}

	var ch, key, vel, program, controller, value uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if int(key) >= modfile.MaxKeys {
			return fmt.Errorf("%w: MIDI key %d", ErrInvalidParam, key)
		}
		ins := s.midi.program[ch]
		if ins == 0 {
			ins = 1
		}
		return s.InjectEvent(s.midiTrack(ch), modfile.Event{
			Note:       key + 1,
			Instrument: ins,
			Volume:     uint8(int(vel)*s.m.volBase/127) + 1,
		})

	case msg.GetNoteEnd(&ch, &key):
		chn := s.midiTrack(ch)
		// Another key could take the channel already.
		if s.p.xc[chn].key != int(key) {
			return nil
		}
		return s.InjectEvent(chn, modfile.Event{Note: modfile.NoteKeyOff})

	case msg.GetProgramChange(&ch, &program):
		if !s.m.isValidInstrument(int(program)) {
			return fmt.Errorf("%w: MIDI program %d", ErrInvalidParam, program)
		}
		s.midi.program[ch] = program + 1

	case msg.GetControlChange(&ch, &controller, &value):
		chn := s.midiTrack(ch)
		switch controller {
		case midiControlVolume:
			s.p.channelVol[chn] = int(value) * 100 / 127
		case midiControlAllNotes:
			return s.InjectEvent(chn, modfile.Event{Note: modfile.NoteKeyOff})
		case midiControlAllSound:
			return s.InjectEvent(chn, modfile.Event{Note: modfile.NoteCut})
		}
	}

	return nil
}

func (s *Session) midiTrack(ch uint8) int {
	return int(ch) % s.m.numChannels()
}
