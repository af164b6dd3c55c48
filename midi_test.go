package modplay

import (
	"errors"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/quasilyte/modplay/modfile"
)

func TestInjectMIDI(t *testing.T) {
	s := newTestSession(t, songSquare+`
patterns:
  - rows: 8
`, SessionConfig{})

	if err := s.InjectMIDI(midi.NoteOn(0, 60, 127)); err != nil {
		t.Fatal(err)
	}
	ie := s.p.inject[0]
	if !ie.pending {
		t.Fatalf("the note is not injected")
	}
	want := modfile.Event{Note: 61, Instrument: 1, Volume: 65}
	if ie.e != want {
		t.Fatalf("injected %+v, want %+v", ie.e, want)
	}

	playFrames(t, s, 1)
	if key := s.FrameInfo().Channels[0].Key; key != 60 {
		t.Fatalf("the channel plays the key %d, want 60", key)
	}

	// A note off for another key is ignored.
	if err := s.InjectMIDI(midi.NoteOff(0, 62)); err != nil {
		t.Fatal(err)
	}
	if s.p.inject[0].pending {
		t.Fatalf("the unrelated note off is injected")
	}
	if err := s.InjectMIDI(midi.NoteOff(0, 60)); err != nil {
		t.Fatal(err)
	}
	if e := s.p.inject[0].e; !s.p.inject[0].pending || e.Note != modfile.NoteKeyOff {
		t.Fatalf("the note off is not injected: %+v", e)
	}
}

func TestInjectMIDIChannels(t *testing.T) {
	s := newTestSession(t, songPlainMOD, SessionConfig{})

	// The MIDI channel 5 plays on the pattern channel 1.
	if err := s.InjectMIDI(midi.NoteOn(5, 48, 64)); err != nil {
		t.Fatal(err)
	}
	if !s.p.inject[1].pending {
		t.Fatalf("the note is not injected into the channel 1")
	}

	if err := s.InjectMIDI(midi.ControlChange(2, 7, 127)); err != nil {
		t.Fatal(err)
	}
	if err := s.InjectMIDI(midi.ControlChange(3, 7, 0)); err != nil {
		t.Fatal(err)
	}
	if s.p.channelVol[2] != 100 || s.p.channelVol[3] != 0 {
		t.Fatalf("channel volumes: %v", s.p.channelVol[:4])
	}

	if err := s.InjectMIDI(midi.ControlChange(0, 120, 0)); err != nil {
		t.Fatal(err)
	}
	if e := s.p.inject[0].e; e.Note != modfile.NoteCut {
		t.Fatalf("all sound off injected %+v", e)
	}
}

func TestInjectMIDIProgram(t *testing.T) {
	s := newTestSession(t, songPlainMOD, SessionConfig{})

	if err := s.InjectMIDI(midi.ProgramChange(0, 1)); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("got %v, want ErrInvalidParam", err)
	}
	if err := s.InjectMIDI(midi.ProgramChange(1, 0)); err != nil {
		t.Fatal(err)
	}
	if s.midi.program[1] != 1 {
		t.Fatalf("the program is %d, want 1", s.midi.program[1])
	}
}

func TestInjectMIDINotStarted(t *testing.T) {
	s, err := NewSession(loadSong(t, songPlainMOD), SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.InjectMIDI(midi.NoteOn(0, 60, 100)); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}
