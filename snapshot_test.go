package modplay

import (
	"bytes"
	"errors"
	"testing"
)

func renderTicks(t *testing.T, s *Session, n int) [][]byte {
	t.Helper()
	out := make([][]byte, n)
	for i := range out {
		playFrames(t, s, 1)
		out[i] = bytes.Clone(s.Buffer())
	}
	return out
}

func TestSnapshotRestore(t *testing.T) {
	docs := map[string]string{
		"ft2 loop": songPatternLoop,
		"it voices": songIT("continue", "off", "cut"),
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			s := newTestSession(t, doc, SessionConfig{})
			playFrames(t, s, 40)

			snap := s.Snapshot()
			want := renderTicks(t, s, 100)
			wantInfo := s.FrameInfo()

			// A snapshot can be restored several times.
			for attempt := 0; attempt < 2; attempt++ {
				if err := s.Restore(snap); err != nil {
					t.Fatalf("Restore: %v", err)
				}
				have := renderTicks(t, s, 100)
				for i := range want {
					if !bytes.Equal(have[i], want[i]) {
						t.Fatalf("attempt %d: tick %d differs after the restore", attempt, i)
					}
				}
				info := s.FrameInfo()
				if info.Pos != wantInfo.Pos || info.Row != wantInfo.Row || info.Frame != wantInfo.Frame || info.Time != wantInfo.Time {
					t.Fatalf("attempt %d: position %+v, want %+v", attempt, info, wantInfo)
				}
			}
		})
	}
}

func TestSnapshotIndependence(t *testing.T) {
	s := newTestSession(t, songPatternLoop, SessionConfig{})
	playFrames(t, s, 10)
	snap := s.Snapshot()
	row := snap.p.row

	playFrames(t, s, 50)
	s.p.xc[0].volume = 1
	if snap.p.row != row {
		t.Fatalf("the snapshot follows the session")
	}
	if snap.p.xc[0].volume == 1 {
		t.Fatalf("the snapshot shares the channels with the session")
	}
}

func TestRestoreForeignSnapshot(t *testing.T) {
	a := newTestSession(t, songPatternLoop, SessionConfig{})
	b := newTestSession(t, songPatternLoop, SessionConfig{})
	playFrames(t, a, 5)

	if err := b.Restore(a.Snapshot()); !errors.Is(err, ErrForeignSnapshot) {
		t.Fatalf("got %v, want ErrForeignSnapshot", err)
	}
	if err := b.Restore(nil); !errors.Is(err, ErrForeignSnapshot) {
		t.Fatalf("nil snapshot: got %v, want ErrForeignSnapshot", err)
	}

	snap := a.Snapshot()
	a.End()
	if err := a.Restore(snap); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("got %v, want ErrNotStarted", err)
	}
}
