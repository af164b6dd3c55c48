package modfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a textual song description.
//
// It's mostly useful for tests and hand-written jingles.
// A minimal document looks like this:
//
//	name: jingle
//	dialect: ft2
//	channels: 2
//	orders: [0]
//	samples:
//	  - name: square
//	    loop: forward
//	    loop_end: 32
//	    data: [16000, 16000, -16000, -16000]
//	instruments:
//	  - name: lead
//	    sample: 0
//	patterns:
//	  - rows: 16
//	    events:
//	      - {row: 0, channel: 0, note: C-4, ins: 1}
//
// Notes use the FastTracker naming: "C-4" is the middle C (note 61).
func ParseYAML(data []byte) (*Module, error) {
	var doc yamlSong
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode song: %w", err)
	}
	m, err := doc.build()
	if err != nil {
		return nil, err
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

type yamlSong struct {
	Name     string   `yaml:"name"`
	Dialect  string   `yaml:"dialect"`
	Period   string   `yaml:"period"`
	Quirks   []string `yaml:"quirks"`
	Channels int      `yaml:"channels"`
	Speed    int      `yaml:"speed"`
	BPM      int      `yaml:"bpm"`
	Volume   int      `yaml:"global_volume"`
	Restart  int      `yaml:"restart"`
	Orders   []int    `yaml:"orders"`
	Pans     []int    `yaml:"pans"`

	Samples     []yamlSample     `yaml:"samples"`
	Instruments []yamlInstrument `yaml:"instruments"`
	Patterns    []yamlPattern    `yaml:"patterns"`
}

type yamlSample struct {
	Name      string  `yaml:"name"`
	Loop      string  `yaml:"loop"`
	LoopStart int     `yaml:"loop_start"`
	LoopEnd   int     `yaml:"loop_end"`
	Rate      float64 `yaml:"rate"`
	Data      []int16 `yaml:"data"`
}

type yamlInstrument struct {
	Name      string       `yaml:"name"`
	Sample    int          `yaml:"sample"`
	Volume    *int         `yaml:"volume"`
	Pan       *int         `yaml:"pan"`
	Transpose int          `yaml:"transpose"`
	Finetune  int          `yaml:"finetune"`
	Fadeout   int          `yaml:"fadeout"`
	NNA       string       `yaml:"nna"`
	DCT       string       `yaml:"dct"`
	DCA       string       `yaml:"dca"`
	Envelope  yamlEnvelope `yaml:"volume_envelope"`
}

type yamlEnvelope struct {
	Points  [][2]int `yaml:"points"`
	Sustain *int     `yaml:"sustain"`
	Loop    []int    `yaml:"loop"`
}

type yamlPattern struct {
	Rows   int         `yaml:"rows"`
	Events []yamlEvent `yaml:"events"`
}

type yamlEvent struct {
	Row     int    `yaml:"row"`
	Channel int    `yaml:"channel"`
	Note    string `yaml:"note"`
	Ins     int    `yaml:"ins"`
	Vol     int    `yaml:"vol"`
	Fx      int    `yaml:"fx"`
	Param   int    `yaml:"param"`
	Fx2     int    `yaml:"fx2"`
	Param2  int    `yaml:"param2"`
}

func (doc *yamlSong) build() (*Module, error) {
	m := NewModule()
	m.Name = doc.Name
	m.Type = "YAML song"

	dialect, err := ParseDialect(doc.Dialect)
	if err != nil {
		return nil, err
	}
	applyDialectDefaults(m, dialect)
	if doc.Period != "" {
		pt, err := parsePeriodType(doc.Period)
		if err != nil {
			return nil, err
		}
		m.PeriodType = pt
	}
	for _, name := range doc.Quirks {
		q, err := ParseQuirk(name)
		if err != nil {
			return nil, err
		}
		m.Quirks |= q
	}

	if doc.Channels != 0 {
		m.NumChannels = doc.Channels
	}
	if doc.Speed != 0 {
		m.Speed = doc.Speed
	}
	if doc.BPM != 0 {
		m.BPM = doc.BPM
	}
	if doc.Volume != 0 {
		m.GlobalVolume = doc.Volume
	}
	m.Restart = doc.Restart
	for _, o := range doc.Orders {
		if o < 0 || o > 0xff {
			return nil, fmt.Errorf("%w: order value %d", ErrInvalidModule, o)
		}
		m.Orders = append(m.Orders, uint8(o))
	}
	for i, pan := range doc.Pans {
		if i < len(m.Channels) {
			m.Channels[i].Pan = pan
		}
	}

	for _, ys := range doc.Samples {
		s := Sample{
			Name:      ys.Name,
			Data:      append([]int16(nil), ys.Data...),
			LoopStart: ys.LoopStart,
			LoopEnd:   ys.LoopEnd,
			C5Speed:   ys.Rate,
		}
		s.Length = len(s.Data)
		if s.LoopEnd == 0 {
			s.LoopEnd = s.Length
		}
		switch ys.Loop {
		case "", "none":
		case "forward":
			s.Flags |= SampleLoop
		case "pingpong":
			s.Flags |= SampleLoop | SampleLoopBidir
		case "reverse":
			s.Flags |= SampleLoop | SampleLoopReverse
		default:
			return nil, fmt.Errorf("sample %q: unknown loop type %q", ys.Name, ys.Loop)
		}
		m.Samples = append(m.Samples, s)
	}

	for _, yi := range doc.Instruments {
		ins, err := yi.build()
		if err != nil {
			return nil, err
		}
		m.Instruments = append(m.Instruments, ins)
	}

	for i, yp := range doc.Patterns {
		rows := yp.Rows
		if rows == 0 {
			rows = 64
		}
		pat := Pattern{Rows: rows, Tracks: make([]int, m.NumChannels)}
		for ch := range pat.Tracks {
			m.Tracks = append(m.Tracks, Track{Events: make([]Event, rows)})
			pat.Tracks[ch] = len(m.Tracks) - 1
		}
		for _, ye := range yp.Events {
			if ye.Row < 0 || ye.Row >= rows || ye.Channel < 0 || ye.Channel >= m.NumChannels {
				return nil, fmt.Errorf("pattern %d: event at row=%d channel=%d is out of range", i, ye.Row, ye.Channel)
			}
			note, err := ParseNote(ye.Note)
			if err != nil {
				return nil, fmt.Errorf("pattern %d row %d: %w", i, ye.Row, err)
			}
			m.Tracks[pat.Tracks[ye.Channel]].Events[ye.Row] = Event{
				Note:       note,
				Instrument: uint8(ye.Ins),
				Volume:     uint8(ye.Vol),
				FxType:     uint8(ye.Fx),
				FxParam:    uint8(ye.Param),
				F2Type:     uint8(ye.Fx2),
				F2Param:    uint8(ye.Param2),
			}
		}
		m.Patterns = append(m.Patterns, pat)
	}

	return m, nil
}

func (yi *yamlInstrument) build() (Instrument, error) {
	ins := newInstrument()
	ins.Name = yi.Name
	ins.Fadeout = yi.Fadeout
	for k := range ins.Keymap {
		ins.Keymap[k].Sub = 0
	}

	sub := SubInstrument{
		Volume:       0x40,
		GlobalVolume: 0x40,
		Pan:          -1,
		Transpose:    yi.Transpose,
		Finetune:     yi.Finetune,
		Sample:       yi.Sample,
	}
	if yi.Volume != nil {
		sub.Volume = *yi.Volume
	}
	if yi.Pan != nil {
		sub.Pan = *yi.Pan
	}

	var ok bool
	if sub.NewNoteAction, ok = lookupName(newNoteActionNames, yi.NNA); !ok {
		return ins, fmt.Errorf("instrument %q: unknown new note action %q", yi.Name, yi.NNA)
	}
	if sub.DuplicateCheckType, ok = lookupName(duplicateCheckNames, yi.DCT); !ok {
		return ins, fmt.Errorf("instrument %q: unknown duplicate check type %q", yi.Name, yi.DCT)
	}
	if sub.DuplicateCheckAction, ok = lookupName(duplicateActionNames, yi.DCA); !ok {
		return ins, fmt.Errorf("instrument %q: unknown duplicate check action %q", yi.Name, yi.DCA)
	}
	ins.Subs = []SubInstrument{sub}

	if points := yi.Envelope.Points; len(points) != 0 {
		env := &ins.VolumeEnvelope
		env.Flags = EnvelopeOn
		env.NumPoints = len(points)
		if env.NumPoints > MaxEnvelopePoints {
			env.NumPoints = MaxEnvelopePoints
		}
		for k := 0; k < env.NumPoints; k++ {
			env.Points[k] = EnvelopePoint{X: int16(points[k][0]), Y: int16(points[k][1])}
		}
		if s := yi.Envelope.Sustain; s != nil {
			env.Flags |= EnvelopeSustain
			env.SustainStart = *s
			env.SustainEnd = *s
		}
		if l := yi.Envelope.Loop; len(l) == 2 {
			env.Flags |= EnvelopeLoop
			env.LoopStart = l[0]
			env.LoopEnd = l[1]
		}
	}

	return ins, nil
}

var newNoteActionNames = map[string]NewNoteAction{
	"":         NewNoteCut,
	"cut":      NewNoteCut,
	"continue": NewNoteContinue,
	"off":      NewNoteOff,
	"fade":     NewNoteFade,
}

var duplicateCheckNames = map[string]DuplicateCheckType{
	"":           DuplicateCheckOff,
	"off":        DuplicateCheckOff,
	"note":       DuplicateCheckNote,
	"sample":     DuplicateCheckSample,
	"instrument": DuplicateCheckInstrument,
}

var duplicateActionNames = map[string]DuplicateCheckAction{
	"":     DuplicateActionCut,
	"cut":  DuplicateActionCut,
	"off":  DuplicateActionOff,
	"fade": DuplicateActionFade,
}

func lookupName[T any](names map[string]T, key string) (T, bool) {
	v, ok := names[strings.ToLower(key)]
	return v, ok
}

// ParseDialect converts a dialect name (as returned by Dialect.String) back.
// An empty string means DialectMOD.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "", "mod":
		return DialectMOD, nil
	case "ft2", "xm":
		return DialectFT2, nil
	case "st3", "s3m":
		return DialectST3, nil
	case "it":
		return DialectIT, nil
	}
	return DialectMOD, fmt.Errorf("unknown dialect %q", s)
}

func parsePeriodType(s string) (PeriodType, error) {
	switch strings.ToLower(s) {
	case "amiga":
		return PeriodAmiga, nil
	case "modrng":
		return PeriodModRng, nil
	case "linear":
		return PeriodLinear, nil
	case "cspeed":
		return PeriodCSpeed, nil
	}
	return PeriodAmiga, fmt.Errorf("unknown period type %q", s)
}

// applyDialectDefaults sets the quirks and pitch model that the dialect's
// native trackers used.
func applyDialectDefaults(m *Module, d Dialect) {
	m.Dialect = d
	switch d {
	case DialectMOD:
		m.Quirks = QuirkProTrack
		m.PeriodType = PeriodModRng
		m.C4Rate = C4PalRate
	case DialectFT2:
		m.Quirks = QuirksFT2 | QuirkFt2Env
		m.PeriodType = PeriodLinear
		m.C4Rate = C4NtscRate
	case DialectST3:
		m.Quirks = QuirksST3
		m.PeriodType = PeriodAmiga
		m.C4Rate = C4NtscRate
	case DialectIT:
		m.Quirks = QuirksIT
		m.PeriodType = PeriodLinear
		m.C4Rate = C4NtscRate
		m.GVolBase = 0x80
		m.GlobalVolume = 0x80
		m.FlowMode = FlowLoopShared
	}
}

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

// ParseNote converts a note name like "C-4", "F#3", "off", "cut" or "fade"
// into an Event.Note value. An empty string or "---" is "no note".
func ParseNote(s string) (uint8, error) {
	switch strings.ToLower(s) {
	case "", "---":
		return 0, nil
	case "off", "===":
		return NoteKeyOff, nil
	case "cut", "^^^":
		return NoteCut, nil
	case "fade":
		return NoteFade, nil
	}
	if len(s) != 3 || s[2] < '0' || s[2] > '9' {
		return 0, fmt.Errorf("bad note name %q", s)
	}
	name := strings.ToUpper(s[:2])
	for i, n := range noteNames {
		if n == name {
			note := (int(s[2]-'0')+1)*12 + i + 1
			if note > MaxNote {
				break
			}
			return uint8(note), nil
		}
	}
	return 0, fmt.Errorf("bad note name %q", s)
}

// NoteName is the inverse of ParseNote for the regular notes.
func NoteName(note uint8) string {
	switch note {
	case 0:
		return "---"
	case NoteKeyOff:
		return "==="
	case NoteCut:
		return "^^^"
	case NoteFade:
		return "fade"
	}
	if note > MaxNote {
		return "???"
	}
	key := int(note) - 1
	return fmt.Sprintf("%s%d", noteNames[key%12], key/12-1)
}
