package modplay

import (
	"bytes"
	"testing"

	"github.com/quasilyte/modplay/internal/dsp"
	"github.com/quasilyte/modplay/modfile"
)

func TestFT2Arpeggio(t *testing.T) {
	tests := []struct {
		speed int
		want  []int
	}{
		{6, []int{0, 7, 3, 0, 7, 3}},
		// The table index goes past its 3 entries on the long rows.
		{18, []int{0, 7, 0, 0, 7, 3, 0, 7, 3}},
	}
	for _, test := range tests {
		s := newTestSession(t, songSquare+`
patterns:
  - rows: 4
`, SessionConfig{})
		xc := &s.p.xc[0]
		xc.arpeggio.val = [16]int8{0, 3, 7}
		xc.arpeggio.size = 3
		s.p.speed = test.speed
		for frame, want := range test.want {
			s.p.frame = frame
			if got := s.ft2Arpeggio(xc); got != want {
				t.Errorf("speed %d, frame %d: arpeggio is %d, want %d", test.speed, frame, got, want)
			}
		}

		xc.arpeggio.val = [16]int8{}
		s.p.frame = 1
		if got := s.ft2Arpeggio(xc); got != 0 {
			t.Errorf("speed %d: an empty arpeggio gives %d", test.speed, got)
		}
	}
}

func TestArpeggioCycle(t *testing.T) {
	s := newTestSession(t, songSquare+`
patterns:
  - rows: 4
`, SessionConfig{})
	s.m.quirks &^= modfile.QuirkFt2Bugs
	xc := &s.p.xc[0]
	xc.arpeggio.val = [16]int8{0, 3, 7}
	xc.arpeggio.size = 3
	xc.arpeggio.count = 0
	for i, want := range []int{0, 3, 7, 0, 3} {
		if got := s.arpeggio(xc); got != want {
			t.Fatalf("step %d: arpeggio is %d, want %d", i, got, want)
		}
	}
}

func TestGlissando(t *testing.T) {
	tests := []struct {
		name  string
		param string
		gliss bool
	}{
		{"smooth", "0x30", false},
		{"semitones", "0x31", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newTestSession(t, songSquare+`
patterns:
  - rows: 8
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1, fx: 0x0e, param: `+test.param+`}
      - {row: 1, channel: 0, note: E-4, fx: 0x03, param: 0x02}
`, SessionConfig{})
			playFrames(t, s, 6)

			bent := false
			fractional := false
			for i := 0; i < 6; i++ {
				playFrames(t, s, 1)
				bend := s.FrameInfo().Channels[0].PitchBend
				if bend != 0 {
					bent = true
				}
				if bend%100 != 0 {
					fractional = true
				}
			}
			if !bent {
				t.Fatalf("the tone portamento doesn't bend the pitch")
			}
			if fractional == test.gliss {
				t.Fatalf("glissando=%v, but the bend between semitones is %v", test.gliss, fractional)
			}
		})
	}
}

const songFilter = `
name: filter
dialect: it
channels: 1
orders: [0]
samples:
  - name: saw
    loop: forward
    data: [-8000, -4000, 0, 4000, 8000, 4000, 0, -4000]
instruments:
  - name: pad
    sample: 0
patterns:
  - rows: 4
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1, fx: 0x34, param: 0x40, fx2: 0x35, param2: 0x60}
`

func TestResonantFilter(t *testing.T) {
	s := newTestSession(t, songFilter, SessionConfig{})
	playFrames(t, s, 1)

	voc := s.virt.mapChannel(0)
	if voc < 0 {
		t.Fatalf("the channel has no voice")
	}
	vi := &s.virt.voices[voc]
	if vi.flags&voiceFiltered == 0 {
		t.Fatalf("the voice is not filtered")
	}
	if vi.filter.cutoff != 0x40 || vi.filter.resonance != 0x60 {
		t.Fatalf("cutoff=%#x resonance=%#x", vi.filter.cutoff, vi.filter.resonance)
	}
	a0, b0, b1 := dsp.FilterSetup(s.mixer.freq, 0x40, 0x60)
	if vi.filter.a0 != a0 || vi.filter.b0 != b0 || vi.filter.b1 != b1 {
		t.Fatalf("coefficients are %d %d %d, want %d %d %d",
			vi.filter.a0, vi.filter.b0, vi.filter.b1, a0, b0, b1)
	}
	filtered := bytes.Clone(s.Buffer())

	plain := newTestSession(t, songFilter, SessionConfig{DisableFilter: true})
	playFrames(t, plain, 1)
	if vi := &plain.virt.voices[plain.virt.mapChannel(0)]; vi.flags&voiceFiltered != 0 {
		t.Fatalf("the disabled filter is applied")
	}
	if bytes.Equal(filtered, plain.Buffer()) {
		t.Fatalf("the filter doesn't change the output")
	}
}
