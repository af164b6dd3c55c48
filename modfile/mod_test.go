package modfile

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildMOD returns a single-pattern M.K. module with one 8-byte sample
// and a middle C on the first row.
func buildMOD(magic string) []byte {
	data := make([]byte, modHeaderSize, modHeaderSize+1024+8)
	copy(data, "test song")

	h := data[20:]
	copy(h, "sample one")
	binary.BigEndian.PutUint16(h[22:], 4) // length in words
	h[25] = 64                            // volume
	binary.BigEndian.PutUint16(h[28:], 1) // loop size in words

	data[950] = 1    // song length
	data[951] = 0x7f // restart
	copy(data[1080:], magic)

	pattern := make([]byte, 1024)
	pattern[0] = 0x01 // period 428 high nibble
	pattern[1] = 0xac
	pattern[2] = 0x1c // instrument 1, fx C
	pattern[3] = 0x40
	data = append(data, pattern...)

	return append(data, 0x10, 0x20, 0x30, 0x40, 0xf0, 0xe0, 0xd0, 0xc0)
}

func TestParseMOD(t *testing.T) {
	m, err := ParseMOD(buildMOD("M.K."))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "test song" || m.NumChannels != 4 || m.Dialect != DialectMOD {
		t.Fatalf("header: name=%q channels=%d dialect=%v", m.Name, m.NumChannels, m.Dialect)
	}
	if !m.Quirks.Has(QuirkProTrack) {
		t.Fatalf("quirks: %v", m.Quirks)
	}
	if len(m.Orders) != 1 || len(m.Patterns) != 1 || m.Restart != 0 {
		t.Fatalf("orders=%v patterns=%d restart=%d", m.Orders, len(m.Patterns), m.Restart)
	}

	want := Event{Note: 61, Instrument: 1, FxType: 0x0c, FxParam: 0x40}
	if e := m.Event(0, 0, 0); e != want {
		t.Fatalf("event: got %+v, want %+v", e, want)
	}

	s := m.Samples[0]
	if s.Name != "sample one" || s.Length != 8 || s.HasLoop() {
		t.Fatalf("sample: name=%q length=%d loop=%v", s.Name, s.Length, s.HasLoop())
	}
	if s.Data[0] != 0x1000 || s.Data[4] != -0x1000 {
		t.Fatalf("sample data: %v", s.Data)
	}
	if sub := m.Instruments[0].Subs[0]; sub.Volume != 64 || sub.Sample != 0 {
		t.Fatalf("instrument: %+v", sub)
	}
}

func TestParseMODMultichannel(t *testing.T) {
	// 8 channels need twice the pattern data.
	data := buildMOD("8CHN")
	data = append(data[:modHeaderSize+1024], make([]byte, 1024)...)
	m, err := ParseMOD(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumChannels != 8 || m.Dialect != DialectFT2 || !m.Quirks.Has(QuirkFtMod) {
		t.Fatalf("channels=%d dialect=%v quirks=%v", m.NumChannels, m.Dialect, m.Quirks)
	}
	// The sample data is truncated.
	if s := m.Samples[0]; s.Length != 0 {
		t.Fatalf("sample length is %d", s.Length)
	}
}

func TestParseMODErrors(t *testing.T) {
	if _, err := ParseMOD(make([]byte, 100)); err == nil {
		t.Fatal("a short file is accepted")
	}

	if _, err := ParseMOD(buildMOD("ABCD")); err == nil {
		t.Fatal("an unknown signature is accepted")
	}

	truncated := buildMOD("M.K.")[:modHeaderSize+100]
	_, err := ParseMOD(truncated)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("got %v, want a *ParseError", err)
	}
	if parseErr.Offset != modHeaderSize+100 {
		t.Fatalf("error offset is %d", parseErr.Offset)
	}
}

func TestModChannels(t *testing.T) {
	tests := []struct {
		magic string
		n     int
	}{
		{"M.K.", 4},
		{"M!K!", 4},
		{"FLT8", 8},
		{"6CHN", 6},
		{"16CH", 16},
		{"32CN", 32},
		{"0CHN", 0},
		{"XXXX", 0},
	}
	for _, test := range tests {
		if n, _ := modChannels(test.magic); n != test.n {
			t.Errorf("modChannels(%q) = %d, want %d", test.magic, n, test.n)
		}
	}
}

func TestPeriodToNote(t *testing.T) {
	tests := []struct {
		period int
		note   int
	}{
		{0, 0},
		{428, 61},
		{856, 49},
		{214, 73},
		{404, 62},
		{113, 84},
	}
	for _, test := range tests {
		if note := PeriodToNote(test.period); note != test.note {
			t.Errorf("PeriodToNote(%d) = %d, want %d", test.period, note, test.note)
		}
	}
}

func TestDisableContinueFx(t *testing.T) {
	tests := []struct {
		in   Event
		want Event
	}{
		{Event{FxType: 0x05}, Event{FxType: 0x03}},
		{Event{FxType: 0x06}, Event{FxType: 0x04}},
		{Event{FxType: 0x0a}, Event{}},
		{Event{FxType: 0x0a, FxParam: 0x10}, Event{FxType: 0x0a, FxParam: 0x10}},
		{Event{FxType: 0x0e, FxParam: 0xa0}, Event{}},
		{Event{FxType: 0x0e, FxParam: 0xa1}, Event{FxType: 0x0e, FxParam: 0xa1}},
	}
	for _, test := range tests {
		e := test.in
		disableContinueFx(&e)
		if e != test.want {
			t.Errorf("disableContinueFx(%+v) = %+v, want %+v", test.in, e, test.want)
		}
	}
}

func TestDecodeDelta(t *testing.T) {
	got := decodeDelta8([]byte{1, 1, 0xff, 0xfe})
	want := []int16{256, 512, 256, -256}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decodeDelta8: got %v, want %v", got, want)
		}
	}

	got = decodeDelta16([]byte{0x10, 0x00, 0x10, 0x00, 0xe0, 0xff})
	want = []int16{16, 32, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("decodeDelta16: got %v, want %v", got, want)
		}
	}
}
