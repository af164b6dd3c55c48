package modplay

import (
	"testing"
	"time"
)

// The loop starts at row 2 and repeats the rows 2-10 three more times.
const songPatternLoop = songSquare + `
patterns:
  - rows: 16
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
      - {row: 2, channel: 0, fx: 0x0e, param: 0x60}
      - {row: 10, channel: 0, fx: 0x0e, param: 0x63}
`

func TestPatternLoop(t *testing.T) {
	s := newTestSession(t, songPatternLoop, SessionConfig{})

	// 2 rows before the loop, 4 passes over the 9 loop rows and 5 rows after it.
	const wantRows = 2 + 4*9 + 5
	const frameTime = 20 * time.Millisecond

	seqs := s.Sequences()
	if len(seqs) != 1 {
		t.Fatalf("found %d sequences, want 1", len(seqs))
	}
	if want := wantRows * 6 * frameTime; seqs[0].Duration != want {
		t.Fatalf("scanned duration is %v, want %v", seqs[0].Duration, want)
	}

	visits := make(map[int]int)
	frames := 0
	for {
		playFrames(t, s, 1)
		info := s.FrameInfo()
		if info.LoopCount > 0 {
			break
		}
		frames++
		if info.Frame == 0 {
			visits[info.Row]++
		}
		if frames > 10000 {
			t.Fatalf("the song never ends")
		}
	}

	for row := 0; row < 16; row++ {
		want := 1
		if row >= 2 && row <= 10 {
			want = 4
		}
		if visits[row] != want {
			t.Errorf("row %d is played %d times, want %d", row, visits[row], want)
		}
	}
	if frames != wantRows*6 {
		t.Fatalf("played %d frames before the loop point, want %d", frames, wantRows*6)
	}
	if live := time.Duration(frames) * frameTime; live != seqs[0].Duration {
		t.Fatalf("live duration %v differs from the scanned one %v", live, seqs[0].Duration)
	}
}

func TestScanTermination(t *testing.T) {
	tests := []struct {
		name     string
		patterns string
		orders   []uint8
	}{
		{
			// The order 1 jumps to itself.
			name:   "self jump",
			orders: []uint8{0, 1},
			patterns: `
  - rows: 4
  - rows: 4
    events:
      - {row: 1, channel: 0, fx: 0x0b, param: 0x01}
`,
		},
		{
			// Both loop ends return to the same implicit start,
			// so the second one restarts the first loop forever.
			name:   "loop inside its own body",
			orders: []uint8{0},
			patterns: `
  - rows: 8
    events:
      - {row: 1, channel: 0, fx: 0x0e, param: 0x61}
      - {row: 3, channel: 0, fx: 0x0e, param: 0x61}
`,
		},
		{
			name:   "break to the same row",
			orders: []uint8{0},
			patterns: `
  - rows: 8
    events:
      - {row: 5, channel: 0, fx: 0x0d, param: 0x05}
`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := songSquare + "\npatterns:" + test.patterns
			m := loadSong(t, doc)
			m.Orders = test.orders
			s, err := NewSession(m, SessionConfig{})
			if err != nil {
				t.Fatalf("NewSession: %v", err)
			}
			if d := s.Sequences()[0].Duration; d <= 0 {
				t.Fatalf("duration is %v", d)
			}
			if err := s.Start(0, 0); err != nil {
				t.Fatal(err)
			}
			playFrames(t, s, 2000)
		})
	}
}

func TestSelfJumpDuration(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 4
  - rows: 4
    events:
      - {row: 1, channel: 0, fx: 0x0b, param: 0x01}
`)
	m.Orders = []uint8{0, 1}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	// 4 rows of the first pattern and 2 rows of the second one.
	if want := 6 * 6 * 20 * time.Millisecond; s.Sequences()[0].Duration != want {
		t.Fatalf("duration is %v, want %v", s.Sequences()[0].Duration, want)
	}
}

func TestMultipleSequences(t *testing.T) {
	m := loadSong(t, songSquare+`
patterns:
  - rows: 4
    events:
      - {row: 3, channel: 0, fx: 0x0b, param: 0x00}
  - rows: 8
`)
	// The order 1 is unreachable from the order 0.
	m.Orders = []uint8{0, 1}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	seqs := s.Sequences()
	if len(seqs) != 2 {
		t.Fatalf("found %d sequences, want 2", len(seqs))
	}
	if seqs[1].EntryPoint != 1 {
		t.Fatalf("the second sequence starts at %d, want 1", seqs[1].EntryPoint)
	}
	if want := 4 * 6 * 20 * time.Millisecond; seqs[0].Duration != want {
		t.Fatalf("the first sequence lasts %v, want %v", seqs[0].Duration, want)
	}
	if want := 8 * 6 * 20 * time.Millisecond; seqs[1].Duration != want {
		t.Fatalf("the second sequence lasts %v, want %v", seqs[1].Duration, want)
	}

	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSequence(1); err != nil {
		t.Fatal(err)
	}
	playFrames(t, s, 1)
	if info := s.FrameInfo(); info.Pos != 1 || info.Sequence != 1 {
		t.Fatalf("position is %d in the sequence %d, want 1 in 1", info.Pos, info.Sequence)
	}
}
