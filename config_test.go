package modplay

import (
	"errors"
	"testing"

	"github.com/quasilyte/modplay/modfile"
)

func TestParseMode(t *testing.T) {
	for mode := ModeAuto; mode <= ModeITSMP; mode++ {
		parsed, err := ParseMode(mode.String())
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", mode.String(), err)
		}
		if parsed != mode {
			t.Fatalf("ParseMode(%q) = %v", mode.String(), parsed)
		}
	}
	if _, err := ParseMode("fasttracker"); err == nil {
		t.Fatalf("unknown mode is accepted")
	}
	if s := Mode(100).String(); s != "unknown" {
		t.Fatalf("Mode(100).String() = %q", s)
	}
}

func TestParseInterpolation(t *testing.T) {
	tests := []struct {
		s    string
		want Interpolation
		ok   bool
	}{
		{"nearest", InterpolationNearest, true},
		{"linear", InterpolationLinear, true},
		{"spline", InterpolationSpline, true},
		{"cubic", InterpolationDefault, false},
		{"", InterpolationDefault, false},
	}
	for _, test := range tests {
		got, err := ParseInterpolation(test.s)
		if (err == nil) != test.ok || got != test.want {
			t.Errorf("ParseInterpolation(%q) = %v, %v", test.s, got, err)
		}
	}
}

func TestSetParam(t *testing.T) {
	s := newTestSession(t, songPatternLoop, SessionConfig{})

	tests := []struct {
		param Param
		value int
		err   error
	}{
		{ParamAmplify, 2, nil},
		{ParamAmplify, 4, ErrInvalidParam},
		{ParamMix, -100, nil},
		{ParamMix, 101, ErrInvalidParam},
		{ParamInterpolation, int(InterpolationNearest), nil},
		{ParamInterpolation, 7, ErrInvalidParam},
		{ParamVolume, 150, nil},
		{ParamVolume, 201, ErrInvalidParam},
		{ParamSampleRate, 22050, nil},
		{ParamSampleRate, 100, ErrInvalidSampleRate},
		{ParamChannels, 1, nil},
		{ParamChannels, 3, ErrInvalidParam},
		{ParamVoices, 16, ErrAlreadyStarted},
		{Param(100), 0, ErrInvalidParam},
	}
	for _, test := range tests {
		err := s.SetParam(test.param, test.value)
		if !errors.Is(err, test.err) {
			t.Fatalf("SetParam(%d, %d): got %v, want %v", test.param, test.value, err, test.err)
		}
		if err != nil {
			continue
		}
		got, err := s.Param(test.param)
		if err != nil {
			t.Fatal(err)
		}
		if got != test.value {
			t.Fatalf("Param(%d) = %d, want %d", test.param, got, test.value)
		}
	}

	playFrames(t, s, 1)
	// 22050Hz mono 16-bit.
	if got := len(s.Buffer()); got != 441*2 {
		t.Fatalf("buffer size is %d, want %d", got, 441*2)
	}
}

func TestSetParamMode(t *testing.T) {
	s := newTestSession(t, songPatternLoop, SessionConfig{})
	if err := s.SetParam(ParamMode, int(ModeST3)); err != nil {
		t.Fatal(err)
	}
	if s.m.dialect != modfile.DialectST3 || !s.m.hasQuirk(modfile.QuirkSt3Bugs) {
		t.Fatalf("the mode is not applied")
	}
	playFrames(t, s, 10)

	if err := s.SetParam(ParamMode, int(ModeAuto)); err != nil {
		t.Fatal(err)
	}
	if s.m.dialect != modfile.DialectFT2 || s.m.quirks != s.m.mod.Quirks {
		t.Fatalf("the module dialect is not restored")
	}
}

func TestSetParamModeSequences(t *testing.T) {
	m := loadSong(t, songIT("cut", "off", "cut"))
	m.Patterns = append(m.Patterns, m.Patterns[0])
	m.Orders = []uint8{0, modfile.OrderEnd, 1, modfile.OrderEnd}
	s, err := NewSession(m, SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(s.Sequences()); n != 2 {
		t.Fatalf("found %d sequences, want 2", n)
	}
	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSequence(1); err != nil {
		t.Fatal(err)
	}
	playFrames(t, s, 3)

	// The end markers mean nothing to the Amiga trackers, so the sequences merge.
	if err := s.SetParam(ParamMode, int(ModeMOD)); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Sequences()); n != 1 {
		t.Fatalf("found %d sequences, want 1", n)
	}
	if info := s.FrameInfo(); info.Sequence >= len(s.Sequences()) {
		t.Fatalf("the replay stays in the sequence %d of %d", info.Sequence, len(s.Sequences()))
	}
	playFrames(t, s, 16*6)

	if err := s.SetParam(ParamMode, int(ModeAuto)); err != nil {
		t.Fatal(err)
	}
	if info := s.FrameInfo(); info.Sequence >= len(s.Sequences()) {
		t.Fatalf("the replay stays in the sequence %d of %d", info.Sequence, len(s.Sequences()))
	}
	playFrames(t, s, 16*6)
}

func TestSetParamVoices(t *testing.T) {
	s, err := NewSession(loadSong(t, songIT("continue", "off", "cut")), SessionConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetParam(ParamVoices, 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(0, 0); err != nil {
		t.Fatal(err)
	}
	if s.virt.maxVoc != 5 || s.virt.virtChannels != 2+5 {
		t.Fatalf("voices=%d channels=%d", s.virt.maxVoc, s.virt.virtChannels)
	}
	if err := s.SetParam(ParamAmplify, 1); err != nil {
		t.Fatal(err)
	}
}

func TestModeQuirks(t *testing.T) {
	tests := []struct {
		mode    Mode
		dialect modfile.Dialect
		virtual bool
	}{
		{ModeProTracker, modfile.DialectMOD, false},
		{ModeFT2, modfile.DialectFT2, false},
		{ModeIT, modfile.DialectIT, true},
		{ModeITSMP, modfile.DialectIT, false},
	}
	for _, test := range tests {
		t.Run(test.mode.String(), func(t *testing.T) {
			s, err := NewSession(loadSong(t, songPatternLoop), SessionConfig{Mode: test.mode})
			if err != nil {
				t.Fatal(err)
			}
			info := s.ModuleInfo()
			if info.Dialect != test.dialect {
				t.Fatalf("dialect is %v, want %v", info.Dialect, test.dialect)
			}
			if got := s.m.hasQuirk(modfile.QuirkVirtual); got != test.virtual {
				t.Fatalf("virtual channels: %v, want %v", got, test.virtual)
			}
			if err := s.Start(0, 0); err != nil {
				t.Fatal(err)
			}
			playFrames(t, s, 100)
		})
	}
}
