package modplay

import (
	"testing"

	"github.com/quasilyte/modplay/modfile"
)

func testEnvelope(flags modfile.EnvelopeFlags) modfile.Envelope {
	return modfile.Envelope{
		Flags:        modfile.EnvelopeOn | flags,
		NumPoints:    4,
		LoopStart:    1,
		LoopEnd:      2,
		SustainStart: 1,
		SustainEnd:   2,
		Points: [modfile.MaxEnvelopePoints]modfile.EnvelopePoint{
			{X: 0, Y: 64},
			{X: 10, Y: 32},
			{X: 20, Y: 0},
			{X: 30, Y: 16},
		},
	}
}

func TestEnvelopeValue(t *testing.T) {
	env := testEnvelope(0)
	tests := []struct {
		x    int
		want int
	}{
		{-1, 99},
		{0, 64},
		{5, 48},
		{10, 32},
		{25, 8},
		{30, 16},
		{100, 16},
	}
	for _, test := range tests {
		if got := envelopeValue(&env, test.x, 99); got != test.want {
			t.Errorf("envelopeValue(%d) = %d, want %d", test.x, got, test.want)
		}
	}

	off := testEnvelope(0)
	off.Flags = 0
	if got := envelopeValue(&off, 5, 99); got != 99 {
		t.Fatalf("a disabled envelope returns %d", got)
	}
}

func TestUpdateEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		flavour envelopeFlavour
		flags   modfile.EnvelopeFlags
		release bool
		x       int
		want    []int
	}{
		{"sustain", envelopeFlavourDefault, modfile.EnvelopeSustain, false, 8, []int{9, 10, 10, 10}},
		{"sustain released", envelopeFlavourDefault, modfile.EnvelopeSustain, true, 10, []int{11, 12, 13}},
		{"loop", envelopeFlavourDefault, modfile.EnvelopeLoop, false, 18, []int{19, 10, 11}},
		{"ft2 sustain", envelopeFlavourFT2, modfile.EnvelopeSustain, false, 9, []int{10, 10}},
		{"ft2 loop", envelopeFlavourFT2, modfile.EnvelopeLoop, true, 18, []int{19, 10, 11}},
		{"ft2 past loop end", envelopeFlavourFT2, modfile.EnvelopeLoop, false, 25, []int{26, 27}},
		{"it sustain loop", envelopeFlavourIT, modfile.EnvelopeSustain, false, 19, []int{20, 10, 11}},
		{"it sustain released", envelopeFlavourIT, modfile.EnvelopeSustain, true, 19, []int{20, 21, 22}},
		{"it loop", envelopeFlavourIT, modfile.EnvelopeLoop, true, 19, []int{20, 10}},
		{"end of envelope", envelopeFlavourDefault, 0, false, 29, []int{30, 31}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := testEnvelope(test.flags)
			x := test.x
			for i, want := range test.want {
				x = updateEnvelope(test.flavour, &env, x, test.release, false)
				if x != want {
					t.Fatalf("step %d: x=%d, want %d", i, x, want)
				}
			}
		})
	}
}

func TestEnvelopeEnded(t *testing.T) {
	env := testEnvelope(0)
	if envelopeEnded(&env, 29) || !envelopeEnded(&env, 30) {
		t.Fatalf("the envelope without a loop must end at its last node")
	}
	looped := testEnvelope(modfile.EnvelopeLoop)
	if envelopeEnded(&looped, 30) {
		t.Fatalf("a looped envelope has ended")
	}
	if got := envelopeFade(&env, 31); got != 1 {
		t.Fatalf("envelopeFade past a non-zero node is %d", got)
	}
	env.Points[3].Y = 0
	if got := envelopeFade(&env, 31); got != -1 {
		t.Fatalf("envelopeFade past a zero node is %d", got)
	}
}

// The volume envelope holds at its sustain point until the key off
// and the pan envelope loops all the time.
func TestChannelEnvelopes(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 8
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
      - {row: 2, channel: 0, note: off}
`)
	ins := &m.Instruments[0]
	ins.VolumeEnvelope = modfile.Envelope{
		Flags:        modfile.EnvelopeOn | modfile.EnvelopeSustain,
		NumPoints:    3,
		SustainStart: 1,
		SustainEnd:   1,
		Points: [modfile.MaxEnvelopePoints]modfile.EnvelopePoint{
			{X: 0, Y: 64}, {X: 4, Y: 32}, {X: 30, Y: 0},
		},
	}
	ins.PanEnvelope = modfile.Envelope{
		Flags:     modfile.EnvelopeOn | modfile.EnvelopeLoop,
		NumPoints: 3,
		LoopStart: 0,
		LoopEnd:   1,
		Points: [modfile.MaxEnvelopePoints]modfile.EnvelopePoint{
			{X: 0, Y: 32}, {X: 4, Y: 64}, {X: 8, Y: 0},
		},
	}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}

	xc := &s.p.xc[0]
	wrapped := false
	prev := -1
	for i := 0; i < 12; i++ {
		playFrames(t, s, 1)
		if xc.pIdx > 4 {
			t.Fatalf("tick %d: the pan envelope is at %d past its loop", i, xc.pIdx)
		}
		if xc.pIdx < prev {
			wrapped = true
		}
		prev = xc.pIdx
	}
	if !wrapped {
		t.Fatalf("the pan envelope never loops")
	}
	if xc.vIdx != 4 {
		t.Fatalf("the volume envelope is at %d before the key off, want 4", xc.vIdx)
	}

	playFrames(t, s, 12)
	if xc.vIdx <= 4 {
		t.Fatalf("the volume envelope is at %d after the key off", xc.vIdx)
	}
	if xc.pIdx > 4 {
		t.Fatalf("the pan envelope is at %d past its loop", xc.pIdx)
	}
}
