package modplay

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/quasilyte/modplay/modfile"
)

func TestSynthesizer(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 1
`)
	synth, err := NewSynthesizer(m, SynthesizerConfig{NumChannels: 2})
	if err != nil {
		t.Fatal(err)
	}

	tick := make([]byte, 882*4)
	if _, err := io.ReadFull(synth, tick); err != nil {
		t.Fatal(err)
	}
	for _, b := range tick {
		if b != 0 {
			t.Fatalf("the synthesizer is audible without notes")
		}
	}

	note := modfile.Event{Note: 61, Instrument: 1}
	if err := synth.PlayNote(100*time.Millisecond, note); err != nil {
		t.Fatal(err)
	}
	// 100ms is 5 ticks of 20ms.
	if synth.keyOff[0] != 5 || synth.nextChn != 1 {
		t.Fatalf("keyOff=%v nextChn=%d", synth.keyOff, synth.nextChn)
	}

	audible := false
	for i := 0; i < 6; i++ {
		if _, err := io.ReadFull(synth, tick); err != nil {
			t.Fatal(err)
		}
		for _, b := range tick {
			if b != 0 {
				audible = true
				break
			}
		}
	}
	if !audible {
		t.Fatalf("the note is not rendered")
	}
	if synth.keyOff[0] != 0 {
		t.Fatalf("the key off is not sent: %d ticks left", synth.keyOff[0])
	}
	if synth.session.p.inject[0].pending {
		t.Fatalf("the key off is still pending")
	}
}

func TestSynthesizerRoundRobin(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 1
`)
	synth, err := NewSynthesizer(m, SynthesizerConfig{NumChannels: 2})
	if err != nil {
		t.Fatal(err)
	}
	notes := []modfile.Event{
		{Note: 61, Instrument: 1},
		{Note: 65, Instrument: 1},
		{Note: 68, Instrument: 1},
	}
	// The extra note doesn't fit.
	if err := synth.PlayNote(0, notes...); err != nil {
		t.Fatal(err)
	}
	if synth.nextChn != 0 {
		t.Fatalf("nextChn is %d, want 0", synth.nextChn)
	}
	for chn, want := range []uint8{61, 65} {
		ie := synth.session.p.inject[chn]
		if !ie.pending || ie.e.Note != want {
			t.Fatalf("channel %d: %+v", chn, ie)
		}
	}
}

func TestSynthesizerConfig(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 1
`)
	if _, err := NewSynthesizer(m, SynthesizerConfig{NumChannels: -1}); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("got %v, want ErrInvalidParam", err)
	}
	synth, err := NewSynthesizer(m, SynthesizerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(synth.keyOff) != 8 {
		t.Fatalf("got %d channels, want 8", len(synth.keyOff))
	}
	if m.NumChannels != 1 {
		t.Fatalf("the source module is modified")
	}
}
