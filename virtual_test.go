package modplay

import (
	"testing"

	"github.com/quasilyte/modplay/modfile"
)

func songIT(nna, dct, dca string) string {
	return `
name: voices
dialect: it
channels: 2
orders: [0]
samples:
  - name: saw
    loop: forward
    data: [-8000, -4000, 0, 4000, 8000, 4000, 0, -4000]
instruments:
  - name: pad
    sample: 0
    nna: ` + nna + `
    dct: ` + dct + `
    dca: ` + dca + `
patterns:
  - rows: 16
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
      - {row: 1, channel: 0, note: E-4, ins: 1}
      - {row: 2, channel: 1, note: G-4, ins: 1}
      - {row: 3, channel: 0, note: C-5, ins: 1}
      - {row: 4, channel: 1, note: E-5, ins: 1}
      - {row: 5, channel: 0, note: G-5, ins: 1}
      - {row: 6, channel: 0, note: off}
      - {row: 8, channel: 1, note: C-3, ins: 1}
      - {row: 9, channel: 0, note: cut}
      - {row: 10, channel: 0, note: C-4, ins: 1}
      - {row: 12, channel: 1, note: fade}
`
}

func checkVoicePool(t *testing.T, s *Session) {
	t.Helper()
	v := &s.virt
	used := 0
	counts := make([]int, len(v.channels))
	for i := range v.voices {
		vi := &v.voices[i]
		if vi.chn == freeSlot {
			continue
		}
		used++
		counts[vi.root]++
		if v.channels[vi.chn].voice != i {
			t.Fatalf("voice %d plays on the channel %d that maps to the voice %d", i, vi.chn, v.channels[vi.chn].voice)
		}
	}
	if used != v.used {
		t.Fatalf("%d voices are busy, the pool reports %d", used, v.used)
	}
	if v.used > v.maxVoc {
		t.Fatalf("%d voices are busy, the limit is %d", v.used, v.maxVoc)
	}
	for chn, c := range v.channels {
		if c.count != counts[chn] {
			t.Fatalf("channel %d roots %d voices, its counter is %d", chn, counts[chn], c.count)
		}
	}
}

func TestVoicePoolInvariants(t *testing.T) {
	tests := []struct {
		nna    string
		dct    string
		dca    string
		voices int
	}{
		{"cut", "off", "cut", 4},
		{"continue", "off", "cut", 3},
		{"continue", "instrument", "fade", 3},
		{"off", "note", "off", 2},
		{"fade", "sample", "cut", 8},
		{"continue", "off", "cut", 64},
	}
	for _, test := range tests {
		t.Run(test.nna+"/"+test.dct+"/"+test.dca, func(t *testing.T) {
			s := newTestSession(t, songIT(test.nna, test.dct, test.dca), SessionConfig{Voices: test.voices})
			for i := 0; i < 16*6*2; i++ {
				playFrames(t, s, 1)
				checkVoicePool(t, s)
				if info := s.FrameInfo(); info.VoicesUsed > test.voices {
					t.Fatalf("tick %d: %d voices are used", i, info.VoicesUsed)
				}
			}
		})
	}
}

func TestDuplicateCheckFullPool(t *testing.T) {
	s := newTestSession(t, songIT("continue", "instrument", "cut"), SessionConfig{Voices: 1})
	if s.virt.maxVoc != 1 {
		t.Fatalf("the pool has %d voices, want 1", s.virt.maxVoc)
	}

	dct := modfile.DuplicateCheckInstrument
	if chn := s.virtSetPatch(0, 0, 0, 60, 60, actionCont, dct, actionCut); chn != 0 {
		t.Fatalf("the first note went to the channel %d", chn)
	}
	checkVoicePool(t, s)

	// The pool is full, but the duplicate check frees the voice.
	if chn := s.virtSetPatch(0, 0, 0, 62, 62, actionCont, dct, actionCut); chn != 0 {
		t.Fatalf("the second note went to the channel %d", chn)
	}
	checkVoicePool(t, s)
	if s.virt.used != 1 {
		t.Fatalf("%d voices are used, want 1", s.virt.used)
	}
	if voc := s.virt.mapChannel(0); voc != 0 || s.virt.voices[voc].key != 62 {
		t.Fatalf("the channel maps to the voice %d", voc)
	}
}

func TestNewNoteActionFullPool(t *testing.T) {
	s := newTestSession(t, songIT("continue", "off", "cut"), SessionConfig{Voices: 1})

	s.virtSetPatch(0, 0, 0, 60, 60, actionCont, modfile.DuplicateCheckOff, actionCut)
	// There is no room for the past note and no background voice to steal.
	if chn := s.virtSetPatch(0, 0, 0, 62, 62, actionCont, modfile.DuplicateCheckOff, actionCut); chn != -1 {
		t.Fatalf("the second note went to the channel %d, want -1", chn)
	}
	checkVoicePool(t, s)
	if voc := s.virt.mapChannel(0); voc != 0 || s.virt.voices[voc].key != 60 {
		t.Fatalf("the first note is lost")
	}
}

func TestNewNoteActionBackground(t *testing.T) {
	s := newTestSession(t, songIT("continue", "off", "cut"), SessionConfig{Voices: 2})

	s.virtSetPatch(0, 0, 0, 60, 60, actionCont, modfile.DuplicateCheckOff, actionCut)
	bg := s.virtSetPatch(0, 0, 0, 62, 62, actionCont, modfile.DuplicateCheckOff, actionCut)
	if bg < s.virt.numTracks {
		t.Fatalf("the past note stays on the pattern channel %d", bg)
	}
	checkVoicePool(t, s)

	old := s.virt.mapChannel(bg)
	cur := s.virt.mapChannel(0)
	if old < 0 || cur < 0 || old == cur {
		t.Fatalf("bad voices: past=%d current=%d", old, cur)
	}
	if s.virt.voices[old].key != 60 || s.virt.voices[cur].key != 62 {
		t.Fatalf("the keys are mixed up")
	}
	if s.virt.voices[old].root != 0 {
		t.Fatalf("the past note root is %d, want 0", s.virt.voices[old].root)
	}
	if got := s.virtChannelStatus(bg); got != actionCont {
		t.Fatalf("the background channel status is %d, want %d", got, actionCont)
	}

	s.virtPastNote(0, actionCut)
	checkVoicePool(t, s)
	if s.virt.used != 1 {
		t.Fatalf("%d voices are used after the past note cut, want 1", s.virt.used)
	}
}

func TestVoiceStealing(t *testing.T) {
	s := newTestSession(t, songIT("continue", "off", "cut"), SessionConfig{Voices: 4})
	v := &s.virt

	for _, key := range []int{60, 62, 64} {
		s.virtSetPatch(0, 0, 0, key, key, actionCont, modfile.DuplicateCheckOff, actionCut)
	}
	s.virtSetPatch(1, 0, 0, 67, 67, actionCont, modfile.DuplicateCheckOff, actionCut)
	checkVoicePool(t, s)
	if v.used != 4 {
		t.Fatalf("%d voices are used, want 4", v.used)
	}

	// The foreground voices are silent, but only a background voice can go.
	for i := range v.voices {
		vi := &v.voices[i]
		switch {
		case vi.chn == freeSlot:
		case vi.chn < v.numTracks:
			vi.vol = 0
		case vi.key == 60:
			vi.vol = 10
		case vi.key == 62:
			vi.vol = 5
		}
	}

	s.virtSetPatch(1, 0, 0, 69, 69, actionCont, modfile.DuplicateCheckOff, actionCut)
	checkVoicePool(t, s)

	keys := map[int]bool{}
	for i := range v.voices {
		if vi := &v.voices[i]; vi.chn != freeSlot {
			keys[vi.key] = true
		}
	}
	if keys[62] {
		t.Fatalf("the quietest background voice is kept")
	}
	for _, key := range []int{60, 64, 67, 69} {
		if !keys[key] {
			t.Fatalf("the voice with the key %d is stolen", key)
		}
	}
	if voc := v.mapChannel(0); voc < 0 || v.voices[voc].key != 64 {
		t.Fatalf("the first channel lost its note")
	}
	if voc := v.mapChannel(1); voc < 0 || v.voices[voc].key != 69 {
		t.Fatalf("the second channel doesn't play the new note")
	}
}
