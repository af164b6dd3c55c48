package modplay

import (
	"fmt"
	"log/slog"

	"github.com/quasilyte/modplay/modfile"
)

// SessionConfig configures the replay session.
//
// All zero values are valid: they select the documented defaults.
//
// Some settings can be changed after the session is started
// via the Session.SetParam() method.
type SessionConfig struct {
	// SampleRate is the output sample rate, in [4000, 49170].
	// If you're using Ebitengine, it's the same value that
	// was used to create an audio context.
	//
	// A zero value will assume a sample rate of 44100.
	SampleRate int

	// Format selects the output PCM layout.
	// A zero value means 16-bit signed stereo.
	Format Format

	// Interpolation selects the resampling method.
	// A zero value means linear interpolation.
	Interpolation Interpolation

	// Amplify is the output amplification factor in [0, 3].
	// Higher values make the output louder, but they can clip.
	//
	// A zero value will use the default factor of 1.
	// Use SetParam(ParamAmplify, 0) to disable the amplification.
	Amplify int

	// Mix is the stereo separation percentage in [-100, 100].
	//
	// A zero value will use the default separation of 70.
	// Use SetParam(ParamMix, 0) to get a mono-like output.
	Mix int

	// Voices limits the number of the mixer voices.
	// Dialects with virtual channels use them for the background notes.
	//
	// A zero value means 128 voices.
	Voices int

	// Mode forces a player dialect.
	// A zero value (ModeAuto) uses the dialect chosen by the loader.
	Mode Mode

	// Flags are the player behavior flags, like FlagVBlank.
	Flags PlayerFlags

	// DisableFilter turns off the resonant low-pass filter.
	// It only makes sense for the dialects that support it.
	DisableFilter bool

	// DisableSurround makes surround channels play as the centered ones.
	DisableSurround bool

	// RandomSeed initializes the generator behind the random volume
	// and pan swing and the random LFO waveform.
	// Sessions with equal seeds render identical audio.
	//
	// A zero value selects a fixed default seed.
	RandomSeed uint32

	// Logger receives load-time and scan-time diagnostics.
	// A nil logger discards them.
	Logger *slog.Logger
}

// Format describes the output PCM layout.
type Format int

const (
	Format8Bit Format = 1 << iota
	FormatUnsigned
	FormatMono
)

func (f Format) numChannels() int {
	if f&FormatMono != 0 {
		return 1
	}
	return 2
}

func (f Format) bytesPerSample() int {
	if f&Format8Bit != 0 {
		return 1
	}
	return 2
}

type Interpolation int

const (
	InterpolationDefault Interpolation = iota
	InterpolationNearest
	InterpolationLinear
	InterpolationSpline
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationNearest:
		return "nearest"
	case InterpolationLinear, InterpolationDefault:
		return "linear"
	case InterpolationSpline:
		return "spline"
	default:
		return "unknown"
	}
}

// ParseInterpolation returns an interpolation by its name, like "spline".
func ParseInterpolation(s string) (Interpolation, error) {
	for _, i := range []Interpolation{InterpolationNearest, InterpolationLinear, InterpolationSpline} {
		if i.String() == s {
			return i, nil
		}
	}
	return InterpolationDefault, fmt.Errorf("unknown interpolation %q", s)
}

// Mode is a player personality that overrides the loader-chosen dialect.
type Mode int

const (
	ModeAuto Mode = iota
	ModeMOD
	ModeNoiseTracker
	ModeProTracker
	ModeS3M
	ModeST3
	ModeST3GUS
	ModeXM
	ModeFT2
	ModeIT
	ModeITSMP
)

var modeNames = [...]string{
	ModeAuto:         "auto",
	ModeMOD:          "mod",
	ModeNoiseTracker: "noisetracker",
	ModeProTracker:   "protracker",
	ModeS3M:          "s3m",
	ModeST3:          "st3",
	ModeST3GUS:       "st3gus",
	ModeXM:           "xm",
	ModeFT2:          "ft2",
	ModeIT:           "it",
	ModeITSMP:        "itsmp",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode returns a mode by its name, like "protracker".
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeAuto, fmt.Errorf("unknown player mode %q", s)
}

type PlayerFlags int

const (
	// FlagVBlank forces the VBlank timing: the speed effect never sets the BPM.
	FlagVBlank PlayerFlags = 1 << iota
)

// Param identifies a runtime parameter for the SetParam/Param methods.
type Param int

const (
	ParamAmplify Param = iota
	ParamMix
	ParamInterpolation
	ParamFilter
	ParamSurround
	ParamVolume // master volume, in [0, 200]
	ParamMode
	ParamFlags
	ParamVoices
	ParamSampleRate
	ParamChannels // output channels, 1 or 2
)

const (
	defaultSampleRate = 44100
	defaultAmplify    = 1
	defaultMix        = 70
	defaultVoices     = 128

	minSampleRate = 4000
	maxSampleRate = 49170
)

func (config *SessionConfig) applyDefaults() {
	if config.SampleRate == 0 {
		config.SampleRate = defaultSampleRate
	}
	if config.Interpolation == InterpolationDefault {
		config.Interpolation = InterpolationLinear
	}
	if config.Amplify == 0 {
		config.Amplify = defaultAmplify
	}
	if config.Mix == 0 {
		config.Mix = defaultMix
	}
	if config.Voices == 0 {
		config.Voices = defaultVoices
	}
}

func (config *SessionConfig) validate() error {
	if config.SampleRate < minSampleRate || config.SampleRate > maxSampleRate {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, config.SampleRate)
	}
	if config.Amplify < 0 || config.Amplify > 3 {
		return fmt.Errorf("%w: amplify=%d", ErrInvalidParam, config.Amplify)
	}
	if config.Mix < -100 || config.Mix > 100 {
		return fmt.Errorf("%w: mix=%d", ErrInvalidParam, config.Mix)
	}
	if config.Interpolation < InterpolationNearest || config.Interpolation > InterpolationSpline {
		return fmt.Errorf("%w: interpolation=%d", ErrInvalidParam, config.Interpolation)
	}
	if config.Voices < 0 {
		return fmt.Errorf("%w: voices=%d", ErrInvalidParam, config.Voices)
	}
	if config.Mode < ModeAuto || config.Mode > ModeITSMP {
		return fmt.Errorf("%w: mode=%d", ErrInvalidParam, config.Mode)
	}
	if config.Format&^(Format8Bit|FormatUnsigned|FormatMono) != 0 {
		return ErrInvalidFormat
	}
	return nil
}

// SetParam changes a runtime parameter.
//
// ParamVoices can only be changed before the session is started.
// All other parameters require a started session.
func (s *Session) SetParam(p Param, v int) error {
	if p == ParamVoices {
		if s.started {
			return ErrAlreadyStarted
		}
		if v < 0 {
			return ErrInvalidParam
		}
		s.config.Voices = v
		return nil
	}
	if !s.started {
		return ErrNotStarted
	}

	switch p {
	case ParamAmplify:
		if v < 0 || v > 3 {
			return ErrInvalidParam
		}
		s.mixer.amplify = v
	case ParamMix:
		if v < -100 || v > 100 {
			return ErrInvalidParam
		}
		s.mixer.mix = v
	case ParamInterpolation:
		interp := Interpolation(v)
		if interp == InterpolationDefault {
			interp = InterpolationLinear
		}
		if interp < InterpolationNearest || interp > InterpolationSpline {
			return ErrInvalidParam
		}
		s.mixer.interp = interp
	case ParamFilter:
		s.mixer.filter = v != 0
	case ParamSurround:
		s.mixer.surround = v != 0
	case ParamVolume:
		if v < 0 || v > 200 {
			return ErrInvalidParam
		}
		s.p.masterVol = v
	case ParamMode:
		mode := Mode(v)
		if mode < ModeAuto || mode > ModeITSMP {
			return ErrInvalidParam
		}
		s.config.Mode = mode
		s.m.applyMode(mode)
		s.dialect = newDialect(s.m)
		return s.rescan()
	case ParamFlags:
		vblank := s.p.flags&FlagVBlank != 0
		s.p.flags = PlayerFlags(v)
		if vblank != (s.p.flags&FlagVBlank != 0) {
			return s.rescan()
		}
	case ParamSampleRate:
		if v < minSampleRate || v > maxSampleRate {
			return ErrInvalidSampleRate
		}
		s.mixer.freq = v
	case ParamChannels:
		switch v {
		case 1:
			s.mixer.format |= FormatMono
		case 2:
			s.mixer.format &^= FormatMono
		default:
			return ErrInvalidParam
		}
	default:
		return ErrInvalidParam
	}
	return nil
}

// Param returns the current value of a runtime parameter.
func (s *Session) Param(p Param) (int, error) {
	if p == ParamVoices {
		return s.config.Voices, nil
	}
	if !s.started {
		return 0, ErrNotStarted
	}

	switch p {
	case ParamAmplify:
		return s.mixer.amplify, nil
	case ParamMix:
		return s.mixer.mix, nil
	case ParamInterpolation:
		return int(s.mixer.interp), nil
	case ParamFilter:
		return boolToInt(s.mixer.filter), nil
	case ParamSurround:
		return boolToInt(s.mixer.surround), nil
	case ParamVolume:
		return s.p.masterVol, nil
	case ParamMode:
		return int(s.config.Mode), nil
	case ParamFlags:
		return int(s.p.flags), nil
	case ParamSampleRate:
		return s.mixer.freq, nil
	case ParamChannels:
		return s.mixer.format.numChannels(), nil
	}
	return 0, ErrInvalidParam
}

// applyMode overrides the loader-chosen quirks with the player personality ones.
func (m *module) applyMode(mode Mode) {
	keep := m.quirks & (modfile.QuirkVsAll | modfile.QuirkArpMem)
	switch mode {
	case ModeAuto:
		m.quirks = m.mod.Quirks
		m.dialect = m.mod.Dialect
		m.periodType = m.mod.PeriodType
		m.c4Rate = m.mod.C4Rate
		m.compareVBlank = m.mod.CompareVBlank
		return
	case ModeMOD:
		m.c4Rate = modfile.C4PalRate
		m.quirks = 0
		m.dialect = modfile.DialectMOD
		m.periodType = modfile.PeriodAmiga
	case ModeNoiseTracker:
		m.c4Rate = modfile.C4PalRate
		m.quirks = modfile.QuirkNoBPM
		m.dialect = modfile.DialectMOD
		m.periodType = modfile.PeriodModRng
	case ModeProTracker:
		m.c4Rate = modfile.C4PalRate
		m.quirks = modfile.QuirkProTrack
		m.dialect = modfile.DialectMOD
		m.periodType = modfile.PeriodModRng
	case ModeS3M:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = modfile.QuirksST3 | keep
		m.dialect = modfile.DialectST3
	case ModeST3:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = modfile.QuirksST3 | modfile.QuirkSt3Bugs | keep
		m.dialect = modfile.DialectST3
	case ModeST3GUS:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = (modfile.QuirksST3 | modfile.QuirkSt3Bugs | keep) &^ modfile.QuirkRstChn
		m.dialect = modfile.DialectST3
	case ModeXM:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = modfile.QuirksFT2
		m.dialect = modfile.DialectFT2
	case ModeFT2:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = modfile.QuirksFT2 | modfile.QuirkFt2Bugs
		m.dialect = modfile.DialectFT2
	case ModeIT:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = modfile.QuirksIT | modfile.QuirkVibHalf | modfile.QuirkVibInv
		m.dialect = modfile.DialectIT
	case ModeITSMP:
		m.c4Rate = modfile.C4NtscRate
		m.quirks = (modfile.QuirksIT | modfile.QuirkVibHalf | modfile.QuirkVibInv) &^
			(modfile.QuirkVirtual | modfile.QuirkRstChn)
		m.dialect = modfile.DialectIT
	}
	m.compareVBlank = false
}
