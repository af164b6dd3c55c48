package modplay

import (
	"slices"
	"testing"

	"github.com/quasilyte/modplay/modfile"
)

func TestLoopWraparound(t *testing.T) {
	tests := []struct {
		name  string
		flags voiceFlags
		// The padded frames around the loop [2, 6) while it's borrowed.
		wantPrologue int16
		wantEpilogue [2]int16
	}{
		{"forward", voiceSampleLoop, 50, [2]int16{20, 30}},
		{"bidir", voiceSampleLoop | voiceBidir, 20, [2]int16{50, 40}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pcm := make([]int16, 8+2*samplePad)
			for i := range pcm {
				pcm[i] = int16(i-samplePad) * 10
			}
			orig := slices.Clone(pcm)

			vi := &mixerVoice{start: 2, end: 6, flags: test.flags}
			smp := &modfile.Sample{Flags: modfile.SampleLoop}

			var w loopWraparound
			w.init(pcm, vi, smp, false)
			if got := pcm[samplePad+1]; got != test.wantPrologue {
				t.Fatalf("prologue is %d, want %d", got, test.wantPrologue)
			}
			if got := [2]int16{pcm[samplePad+6], pcm[samplePad+7]}; got != test.wantEpilogue {
				t.Fatalf("epilogue is %v, want %v", got, test.wantEpilogue)
			}

			w.reset()
			if !slices.Equal(pcm, orig) {
				t.Fatalf("the PCM is not restored:\nhave %v\nwant %v", pcm, orig)
			}
			// The second reset is a no-op.
			pcm[samplePad+6] = 1
			w.reset()
			if pcm[samplePad+6] != 1 {
				t.Fatalf("the second reset modified the PCM")
			}
		})
	}
}

func TestLoopWraparoundInactive(t *testing.T) {
	pcm := make([]int16, 8+2*samplePad)
	for i := range pcm {
		pcm[i] = int16(i)
	}
	orig := slices.Clone(pcm)
	vi := &mixerVoice{start: 2, end: 6, flags: voiceSampleLoop}

	var w loopWraparound
	// The nearest neighbour interpolation never reads past the frame.
	w.init(pcm, vi, &modfile.Sample{Flags: modfile.SampleLoop}, true)
	w.reset()
	w.init(pcm, vi, &modfile.Sample{}, false)
	w.reset()
	if !slices.Equal(pcm, orig) {
		t.Fatalf("the PCM is modified")
	}
}

func TestSampleRestoredOnStart(t *testing.T) {
	s := newTestSession(t, songSquare+`
patterns:
  - rows: 4
`, SessionConfig{})
	smp := &s.m.samples[0]
	orig := slices.Clone(smp.pcm)
	smp.pcm[samplePad] = 1234
	smp.dirty = true

	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if smp.dirty || !slices.Equal(smp.pcm, orig) {
		t.Fatalf("the sample PCM is not restored")
	}
}

func TestSampleSwap(t *testing.T) {
	m := loadSong(t, `
name: swap
dialect: mod
channels: 1
orders: [0]
samples:
  - name: long
    data: [0]
  - name: short
    loop: forward
    data: [100, 200, 300, 400, 500, 600, 700, 800]
instruments:
  - name: first
    sample: 0
  - name: second
    sample: 1
patterns:
  - rows: 4
    events:
      - {row: 0, channel: 0, note: C-4, ins: 1}
      - {row: 1, channel: 0, ins: 2}
`)
	// A tick plays about 166 frames of the sample.
	data := make([]int16, 1600)
	for i := range data {
		data[i] = 1000
	}
	m.Samples[0] = modfile.Sample{Name: "long", Length: len(data), LoopEnd: len(data), Flags: modfile.SampleLoop, Data: data}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}

	playFrames(t, s, 7)
	voc := s.virt.mapChannel(0)
	if voc < 0 {
		t.Fatalf("the channel has no voice")
	}
	vi := &s.virt.voices[voc]
	if vi.smp != 0 || vi.flags&voiceSampleQueued == 0 {
		t.Fatalf("the sample is swapped before the loop end: smp=%d pos=%v", vi.smp, vi.pos)
	}
	if s.p.xc[0].smp != 1 {
		t.Fatalf("the channel sample is %d, want 1", s.p.xc[0].smp)
	}

	playFrames(t, s, 6)
	if vi.smp != 1 || vi.flags&voiceSampleQueued != 0 {
		t.Fatalf("the sample is not swapped: smp=%d flags=%#x", vi.smp, vi.flags)
	}
	if vi.pos < 0 || vi.pos > 8 {
		t.Fatalf("the new sample plays at %v", vi.pos)
	}
}

func TestLoopReposition(t *testing.T) {
	tests := []struct {
		name    string
		flags   modfile.SampleFlags
		reverse bool
		adjust  int
		pos     float64
		wantPos float64
		wantRev bool
	}{
		{"forward", modfile.SampleLoop, false, 0, 13, 5, false},
		{"bidir end", modfile.SampleLoop | modfile.SampleLoopBidir, false, 0, 12.5, 11.5, true},
		{"bidir end adjusted", modfile.SampleLoop | modfile.SampleLoopBidir, false, 1, 12.5, 10.5, true},
		{"bidir start", modfile.SampleLoop | modfile.SampleLoopBidir, true, 1, 3.5, 4.5, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			smp := &modfile.Sample{Length: 16, LoopStart: 4, LoopEnd: 12, Flags: test.flags}
			vi := &mixerVoice{flags: voiceSampleLoop}
			vi.adjustEnd(smp)
			if test.reverse {
				vi.flags |= voiceReverse
			}
			vi.pos = test.pos

			vi.loopReposition(smp, test.adjust)
			if vi.pos != test.wantPos {
				t.Fatalf("position is %v, want %v", vi.pos, test.wantPos)
			}
			if got := vi.flags&voiceReverse != 0; got != test.wantRev {
				t.Fatalf("reverse is %v, want %v", got, test.wantRev)
			}
		})
	}

	// Only the IT dialect shifts the ping-pong turn point.
	for _, d := range []modfile.Dialect{modfile.DialectMOD, modfile.DialectFT2, modfile.DialectST3, modfile.DialectIT} {
		want := 0
		if d == modfile.DialectIT {
			want = 1
		}
		if got := newDialect(&module{dialect: d}).bidirAdjust; got != want {
			t.Errorf("%v: the turn point adjustment is %d, want %d", d, got, want)
		}
	}
}
