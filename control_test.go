package modplay

import (
	"errors"
	"testing"
	"time"

	"github.com/quasilyte/modplay/modfile"
)

// Three orders of 4 rows, 480ms each.
const songThreeOrders = songSquare + `
patterns:
  - rows: 4
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
  - rows: 4
    events:
      - {row: 0, channel: 0, note: E-4, ins: 1}
  - rows: 4
    events:
      - {row: 0, channel: 0, note: G-4, ins: 1}
`

func newThreeOrdersSession(t *testing.T) *Session {
	t.Helper()
	m := loadSong(t, songThreeOrders)
	m.Orders = []uint8{0, 1, 2}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSetPosition(t *testing.T) {
	s := newThreeOrdersSession(t)
	playFrames(t, s, 1)

	if _, err := s.SetPosition(3); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("SetPosition(3): got %v, want ErrInvalidPosition", err)
	}
	if _, err := s.SetPosition(-1); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("SetPosition(-1): got %v, want ErrInvalidPosition", err)
	}

	pos, err := s.SetPosition(2)
	if err != nil || pos != 2 {
		t.Fatalf("SetPosition(2) = %d, %v", pos, err)
	}
	playFrames(t, s, 1)
	info := s.FrameInfo()
	if info.Pos != 2 || info.Pattern != 2 || info.Row != 0 {
		t.Fatalf("the replay is at %d:%d (pattern %d)", info.Pos, info.Row, info.Pattern)
	}
	if want := 2 * 480 * time.Millisecond; info.Time != want+20*time.Millisecond {
		t.Fatalf("time is %v, want %v", info.Time, want+20*time.Millisecond)
	}
	if got := s.p.xc[0].key; got != 67 {
		t.Fatalf("the channel plays the key %d, want 67", got)
	}
}

func TestNextPrevPosition(t *testing.T) {
	s := newThreeOrdersSession(t)
	playFrames(t, s, 1)

	steps := []struct {
		next bool
		want int
	}{
		{true, 1},
		{true, 2},
		{false, 1},
		{false, 0},
	}
	for i, step := range steps {
		var err error
		if step.next {
			_, err = s.NextPosition()
		} else {
			_, err = s.PrevPosition()
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		playFrames(t, s, 1)
		if pos := s.FrameInfo().Pos; pos != step.want {
			t.Fatalf("step %d: position is %d, want %d", i, pos, step.want)
		}
	}
}

func TestSetRow(t *testing.T) {
	s := newThreeOrdersSession(t)
	playFrames(t, s, 1)

	if _, err := s.SetRow(4); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("SetRow(4): got %v, want ErrInvalidPosition", err)
	}
	if _, err := s.SetRow(3); err != nil {
		t.Fatal(err)
	}
	playFrames(t, s, 1)
	if info := s.FrameInfo(); info.Row != 3 || info.Frame != 0 {
		t.Fatalf("the replay is at row %d frame %d", info.Row, info.Frame)
	}
}

func TestStopRestart(t *testing.T) {
	s := newThreeOrdersSession(t)
	playFrames(t, s, 30)

	s.Stop()
	if err := s.PlayFrame(); !errors.Is(err, ErrSongEnd) {
		t.Fatalf("PlayFrame after Stop: got %v, want ErrSongEnd", err)
	}

	s.Restart()
	playFrames(t, s, 1)
	info := s.FrameInfo()
	if info.Pos != 0 || info.Row != 0 || info.Frame != 0 || info.LoopCount != 0 {
		t.Fatalf("the replay is at %d:%d:%d after the restart", info.Pos, info.Row, info.Frame)
	}
}

func TestSeekTime(t *testing.T) {
	tests := []struct {
		t    time.Duration
		want int
	}{
		{0, 0},
		{479 * time.Millisecond, 0},
		{480 * time.Millisecond, 1},
		{1000 * time.Millisecond, 2},
		{time.Hour, 2},
	}
	for _, test := range tests {
		s := newThreeOrdersSession(t)
		playFrames(t, s, 1)
		if _, err := s.SeekTime(test.t); err != nil {
			t.Fatal(err)
		}
		playFrames(t, s, 1)
		if pos := s.FrameInfo().Pos; pos != test.want {
			t.Errorf("SeekTime(%v): position is %d, want %d", test.t, pos, test.want)
		}
	}
}

func TestChannelMute(t *testing.T) {
	s := newTestSession(t, songSquare+`
patterns:
  - rows: 8
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
`, SessionConfig{})
	playFrames(t, s, 2)

	steps := []struct {
		action   MuteAction
		wantPrev bool
	}{
		{MuteQuery, false},
		{MuteOn, false},
		{MuteQuery, true},
		{MuteToggle, true},
		{MuteToggle, false},
		{MuteOff, true},
	}
	for i, step := range steps {
		prev, err := s.ChannelMute(0, step.action)
		if err != nil {
			t.Fatal(err)
		}
		if prev != step.wantPrev {
			t.Fatalf("step %d: previous state is %v, want %v", i, prev, step.wantPrev)
		}
	}
	if _, err := s.ChannelMute(64, MuteOn); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("got %v, want ErrInvalidParam", err)
	}

	if _, err := s.ChannelMute(0, MuteOn); err != nil {
		t.Fatal(err)
	}
	// The first muted tick fades the voice out.
	playFrames(t, s, 2)
	for _, v := range s.Buffer() {
		if v != 0 {
			t.Fatalf("the muted channel is audible")
		}
	}
	if !s.FrameInfo().Channels[0].Muted {
		t.Fatalf("the channel info doesn't report the mute")
	}
}

func TestSolo(t *testing.T) {
	s := newTestSession(t, songPlainMOD, SessionConfig{})
	if err := s.Solo(2); err != nil {
		t.Fatal(err)
	}
	for chn := 0; chn < 4; chn++ {
		muted, _ := s.ChannelMute(chn, MuteQuery)
		if muted != (chn != 2) {
			t.Fatalf("channel %d: muted=%v", chn, muted)
		}
	}
	if err := s.Solo(4); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("Solo(4): got %v, want ErrInvalidParam", err)
	}
}

func TestChannelVolume(t *testing.T) {
	s := newTestSession(t, songPlainMOD, SessionConfig{})
	tests := []struct {
		vol      int
		wantPrev int
	}{
		{-1, 100},
		{50, 100},
		{101, 50},
		{0, 50},
		{-1, 0},
	}
	for i, test := range tests {
		prev, err := s.ChannelVolume(1, test.vol)
		if err != nil {
			t.Fatal(err)
		}
		if prev != test.wantPrev {
			t.Fatalf("step %d: previous volume is %d, want %d", i, prev, test.wantPrev)
		}
	}
}

func TestInjectEvent(t *testing.T) {
	s := newTestSession(t, songSquare+`
patterns:
  - rows: 8
`, SessionConfig{})
	playFrames(t, s, 3)

	if err := s.InjectEvent(1, modfile.Event{}); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("got %v, want ErrInvalidParam", err)
	}
	if err := s.InjectEvent(0, modfile.Event{Note: 61, Instrument: 1}); err != nil {
		t.Fatal(err)
	}
	playFrames(t, s, 1)
	if s.p.inject[0].pending {
		t.Fatalf("the event is still pending")
	}
	if key := s.FrameInfo().Channels[0].Key; key != 60 {
		t.Fatalf("the channel plays the key %d, want 60", key)
	}
}

func TestSetTempoFactor(t *testing.T) {
	s := newThreeOrdersSession(t)
	playFrames(t, s, 1)
	before := len(s.Buffer())

	if err := s.SetTempoFactor(0); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("got %v, want ErrInvalidParam", err)
	}
	if err := s.SetTempoFactor(2); err != nil {
		t.Fatal(err)
	}
	playFrames(t, s, 1)
	if after := len(s.Buffer()); after != 2*before {
		t.Fatalf("the tick size is %d, want %d", after, 2*before)
	}
}
