package modfile

import (
	"errors"
	"strings"
	"testing"
)

const minimalSong = `
name: jingle
dialect: it
channels: 2
speed: 3
bpm: 150
orders: [0, 0]
samples:
  - name: square
    loop: pingpong
    loop_start: 2
    data: [16000, 16000, -16000, -16000]
instruments:
  - name: lead
    sample: 0
    volume: 48
    nna: fade
    dct: note
    dca: off
    volume_envelope:
      points: [[0, 64], [10, 32], [20, 0]]
      sustain: 1
patterns:
  - rows: 8
    events:
      - {row: 0, channel: 1, note: C-4, ins: 1, vol: 33, fx: 1, param: 2}
      - {row: 7, channel: 0, note: "off"}
`

func TestParseYAML(t *testing.T) {
	m, err := ParseYAML([]byte(minimalSong))
	if err != nil {
		t.Fatal(err)
	}

	if m.Name != "jingle" || m.Dialect != DialectIT || m.NumChannels != 2 {
		t.Fatalf("header: name=%q dialect=%v channels=%d", m.Name, m.Dialect, m.NumChannels)
	}
	if m.Speed != 3 || m.BPM != 150 || len(m.Orders) != 2 {
		t.Fatalf("speed=%d bpm=%d orders=%v", m.Speed, m.BPM, m.Orders)
	}
	if !m.Quirks.Has(QuirkVirtual) || m.PeriodType != PeriodLinear {
		t.Fatalf("the dialect defaults are not applied: %v", m.Quirks)
	}

	s := m.Samples[0]
	if s.Length != 4 || s.LoopStart != 2 || s.LoopEnd != 4 {
		t.Fatalf("sample: length=%d loop=[%d, %d)", s.Length, s.LoopStart, s.LoopEnd)
	}
	if s.Flags&(SampleLoop|SampleLoopBidir) != SampleLoop|SampleLoopBidir {
		t.Fatalf("sample flags: %v", s.Flags)
	}

	sub := m.Instruments[0].Subs[0]
	if sub.Volume != 48 || sub.NewNoteAction != NewNoteFade {
		t.Fatalf("instrument: volume=%d nna=%v", sub.Volume, sub.NewNoteAction)
	}
	if sub.DuplicateCheckType != DuplicateCheckNote || sub.DuplicateCheckAction != DuplicateActionOff {
		t.Fatalf("instrument: dct=%v dca=%v", sub.DuplicateCheckType, sub.DuplicateCheckAction)
	}
	env := m.Instruments[0].VolumeEnvelope
	if env.NumPoints != 3 || !env.Flags.IsOn() || !env.Flags.SustainEnabled() || env.Flags.LoopEnabled() {
		t.Fatalf("envelope: points=%d flags=%v", env.NumPoints, env.Flags)
	}

	want := Event{Note: 61, Instrument: 1, Volume: 33, FxType: 1, FxParam: 2}
	if e := m.Event(0, 1, 0); e != want {
		t.Fatalf("event: got %+v, want %+v", e, want)
	}
	if e := m.Event(0, 0, 7); e.Note != NoteKeyOff {
		t.Fatalf("event: got %+v, want a key off", e)
	}
	if e := m.Event(0, 0, 8); !e.IsEmpty() {
		t.Fatalf("out of range event: %+v", e)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  string
	}{
		{
			name: "dialect",
			doc:  "dialect: amiga",
			err:  `unknown dialect "amiga"`,
		},
		{
			name: "period",
			doc:  "period: log",
			err:  `unknown period type "log"`,
		},
		{
			name: "quirk",
			doc:  "quirks: [nosuchquirk]",
			err:  `unknown quirk "nosuchquirk"`,
		},
		{
			name: "order",
			doc:  "orders: [300]",
			err:  "order value 300",
		},
		{
			name: "loop",
			doc:  "samples: [{name: s, loop: sideways}]",
			err:  `unknown loop type "sideways"`,
		},
		{
			name: "nna",
			doc:  "instruments: [{name: i, nna: maybe}]",
			err:  `unknown new note action "maybe"`,
		},
		{
			name: "dca",
			doc:  "instruments: [{name: i, dca: stop}]",
			err:  `unknown duplicate check action "stop"`,
		},
		{
			name: "event row",
			doc:  "patterns: [{rows: 4, events: [{row: 4, channel: 0}]}]",
			err:  "out of range",
		},
		{
			name: "event channel",
			doc:  "channels: 1\npatterns: [{rows: 4, events: [{row: 0, channel: 1}]}]",
			err:  "out of range",
		},
		{
			name: "note",
			doc:  "patterns: [{rows: 4, events: [{row: 0, channel: 0, note: H-4}]}]",
			err:  `bad note name "H-4"`,
		},
		{
			name: "syntax",
			doc:  "channels: [",
			err:  "decode song",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(test.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), test.err) {
				t.Fatalf("error %q doesn't mention %q", err, test.err)
			}
		})
	}
}

func TestParseYAMLTooManyChannels(t *testing.T) {
	_, err := ParseYAML([]byte("channels: 65"))
	if !errors.Is(err, ErrInvalidModule) {
		t.Fatalf("got %v, want ErrInvalidModule", err)
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		s    string
		note uint8
		ok   bool
	}{
		{"", 0, true},
		{"---", 0, true},
		{"C-0", 13, true},
		{"C-4", 61, true},
		{"c#4", 62, true},
		{"B-3", 60, true},
		{"A-4", 70, true},
		{"C-9", 121, true},
		{"off", NoteKeyOff, true},
		{"===", NoteKeyOff, true},
		{"CUT", NoteCut, true},
		{"fade", NoteFade, true},
		{"C#9", 0, false},
		{"C-", 0, false},
		{"X-4", 0, false},
		{"C-44", 0, false},
	}
	for _, test := range tests {
		note, err := ParseNote(test.s)
		if (err == nil) != test.ok || note != test.note {
			t.Errorf("ParseNote(%q) = %d, %v", test.s, note, err)
		}
	}
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{0, "---"},
		{61, "C-4"},
		{62, "C#4"},
		{72, "B-4"},
		{NoteKeyOff, "==="},
		{NoteCut, "^^^"},
		{NoteFade, "fade"},
		{125, "???"},
	}
	for _, test := range tests {
		if name := NoteName(test.note); name != test.name {
			t.Errorf("NoteName(%d) = %q, want %q", test.note, name, test.name)
		}
	}

	for note := uint8(13); note <= MaxNote; note++ {
		parsed, err := ParseNote(NoteName(note))
		if err != nil || parsed != note {
			t.Fatalf("note %d: ParseNote(%q) = %d, %v", note, NoteName(note), parsed, err)
		}
	}
}

func TestParseDialect(t *testing.T) {
	for d := DialectMOD; d <= DialectIT; d++ {
		parsed, err := ParseDialect(d.String())
		if err != nil || parsed != d {
			t.Fatalf("ParseDialect(%q) = %v, %v", d.String(), parsed, err)
		}
	}
	if d, _ := ParseDialect("xm"); d != DialectFT2 {
		t.Fatalf("xm is parsed as %v", d)
	}
	if d, _ := ParseDialect("S3M"); d != DialectST3 {
		t.Fatalf("S3M is parsed as %v", d)
	}
}

func TestQuirkNames(t *testing.T) {
	for i := 0; i < 32; i++ {
		q := Quirk(1) << i
		parsed, err := ParseQuirk(q.String())
		if err != nil || parsed != q {
			t.Fatalf("ParseQuirk(%q) = %v, %v", q.String(), parsed, err)
		}
	}
	if s := Quirk(0).String(); s != "none" {
		t.Fatalf("empty quirks: %q", s)
	}
	if s := (QuirkProTrack | QuirkFt2Bugs).String(); s != "protrack+ft2bugs" {
		t.Fatalf("got %q", s)
	}
}
