package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/quasilyte/modplay"
)

func TestSetValue(t *testing.T) {
	explicit := map[string]bool{"mix": true}

	mix := 70
	fileMix := 20
	setValue(explicit, "mix", &mix, &fileMix)
	if mix != 70 {
		t.Fatalf("the file value overrides the flag: %d", mix)
	}

	amp := 1
	fileAmp := 2
	setValue(explicit, "amp", &amp, &fileAmp)
	if amp != 2 {
		t.Fatalf("the file value is not applied: %d", amp)
	}

	voices := 128
	setValue(explicit, "voices", &voices, nil)
	if voices != 128 {
		t.Fatalf("a missing file value changes the flag: %d", voices)
	}
}

func TestSessionConfig(t *testing.T) {
	args := arguments{
		mode:          "st3",
		interpolation: "spline",
		sampleRate:    22050,
		amplify:       2,
		mix:           50,
		voices:        32,
		vblank:        true,
		noFilter:      true,
	}
	config, err := args.sessionConfig()
	if err != nil {
		t.Fatal(err)
	}
	if config.Mode != modplay.ModeST3 || config.Interpolation != modplay.InterpolationSpline {
		t.Fatalf("mode=%v interpolation=%v", config.Mode, config.Interpolation)
	}
	if config.SampleRate != 22050 || config.Amplify != 2 || config.Mix != 50 || config.Voices != 32 {
		t.Fatalf("unexpected config: %+v", config)
	}
	if config.Flags&modplay.FlagVBlank == 0 || !config.DisableFilter {
		t.Fatalf("flags=%v filter off=%v", config.Flags, config.DisableFilter)
	}

	for _, bad := range []arguments{
		{mode: "nosuchmode", interpolation: "linear"},
		{mode: "auto", interpolation: "sinc"},
	} {
		if _, err := bad.sessionConfig(); err == nil {
			t.Fatalf("%+v is accepted", bad)
		}
	}
}

func TestLoadModule(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "song.yaml")
	doc := "name: test\ndialect: st3\nchannels: 2\norders: [0]\npatterns: [{rows: 4}]\n"
	if err := os.WriteFile(song, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	mod, err := loadModule(song)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name != "test" || mod.NumChannels != 2 {
		t.Fatalf("name=%q channels=%d", mod.Name, mod.NumChannels)
	}

	junk := filepath.Join(dir, "junk.bin")
	if err := os.WriteFile(junk, []byte("not a module"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadModule(junk); err == nil {
		t.Fatal("junk is loaded as a module")
	}
	if _, err := loadModule(filepath.Join(dir, "missing.xm")); err == nil {
		t.Fatal("a missing file is loaded")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modplay.yaml")
	doc := "mode: it\ninterpolation: nearest\nmix: -30\nloop: true\nmax_time: 90s\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	args := arguments{
		configFile:    path,
		mode:          "auto",
		interpolation: "linear",
		mix:           70,
		maxTime:       10 * time.Minute,
	}
	if err := loadConfigFile(&args); err != nil {
		t.Fatal(err)
	}
	if args.mode != "it" || args.interpolation != "nearest" || args.mix != -30 {
		t.Fatalf("mode=%q interp=%q mix=%d", args.mode, args.interpolation, args.mix)
	}
	if !args.loop || args.maxTime != 90*time.Second {
		t.Fatalf("loop=%v time=%v", args.loop, args.maxTime)
	}
}

func TestPeakLevel(t *testing.T) {
	tests := []struct {
		samples []float32
		want    float32
	}{
		{nil, 0},
		{[]float32{0, 0}, 0},
		{[]float32{0.25, -0.5, 0.125}, 0.5},
		{[]float32{1, -1}, 1},
	}
	for _, test := range tests {
		if got := peakLevel(test.samples); got != test.want {
			t.Errorf("peakLevel(%v) = %v, want %v", test.samples, got, test.want)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	info := modplay.FrameInfo{
		Pos:      3,
		Pattern:  7,
		Row:      12,
		NumRows:  64,
		Speed:    6,
		BPM:      125,
		Channels: []modplay.ChannelInfo{{Volume: 64}, {Muted: true}},
	}
	status := formatStatus(info, 0.5)
	for _, want := range []string{
		"pos 03/07 row 12/64 speed 6 bpm 125",
		"peak " + strings.Repeat("#", 20),
		"  00 " + strings.Repeat("|", 16),
		"M 01 ",
	} {
		if !strings.Contains(status, want) {
			t.Fatalf("status doesn't contain %q:\n%s", want, status)
		}
	}
}
