// Package fx describes the effect codes of the common song model.
//
// Codes 0x00-0x0f match the ProTracker effect numbers, 0x10-0x21 match the
// FastTracker II letters G-X. Everything above is an extension used by
// the other dialects.
package fx

const (
	Arpeggio    = 0x00
	PortaUp     = 0x01
	PortaDown   = 0x02
	TonePorta   = 0x03
	Vibrato     = 0x04
	ToneVSlide  = 0x05 // tone portamento + volume slide
	VibraVSlide = 0x06 // vibrato + volume slide
	Tremolo     = 0x07
	SetPan      = 0x08
	Offset      = 0x09
	VolSlide    = 0x0a
	Jump        = 0x0b
	VolSet      = 0x0c
	Break       = 0x0d
	Extended    = 0x0e
	Speed       = 0x0f

	GlobalVol   = 0x10
	GVolSlide   = 0x11
	KeyOff      = 0x14
	EnvPos      = 0x15
	PanSlide    = 0x19
	MultiRetrig = 0x1b
	Tremor      = 0x1d
	XFPorta     = 0x21 // extra fine portamento, X1y/X2y

	VolSlide2     = 0x22 // volume column slide, no memory
	PanSlideNoMem = 0x23
	Vibrato2      = 0x24 // volume column vibrato depth
	FineVibrato   = 0x25
	S3MSpeed      = 0x26
	S3MBPM        = 0x27
	S3MArpeggio   = 0x28
	ITBPM         = 0x29 // IT tempo with T0x/T1x slides
	ITRowDelay    = 0x2a
	ITPanSlide    = 0x2b
	ITBreak       = 0x2c // break to a row, hexadecimal
	ITInstFunc    = 0x2d // S7x instrument functions
	Panbrello     = 0x2e
	PanbrelloWF   = 0x2f
	HiOffset      = 0x30
	TrkVol        = 0x31
	TrkVSlide     = 0x32
	TrkFVSlide    = 0x33
	FltCutoff     = 0x34
	FltResonance  = 0x35
	Surround      = 0x36
	Reverse       = 0x37
	Macro         = 0x38
	MacroSet      = 0x39
	MacroSmooth   = 0x3a
	FineTune      = 0x3b
	SpeedCP       = 0x3c // speed that also resets the ST2.6 alternation
	LineJump      = 0x3d
	PattDelay     = 0x3e
	Retrig        = 0x3f
	MEDRetrig     = 0x40
	IceSpeed      = 0x41 // ST2.6 split speed

	NSlideUp    = 0x42
	NSlideDown  = 0x43
	NSlide2Up   = 0x44
	NSlide2Down = 0x45
	FNSlideUp   = 0x46
	FNSlideDown = 0x47
	NSlideRUp   = 0x48 // note slide with retrig
	NSlideRDown = 0x49

	FPortaUp    = 0x4a
	FPortaDown  = 0x4b
	FVSlide     = 0x4c
	FVSlideUp   = 0x4d
	FVSlideDown = 0x4e
	VSlideUp    = 0x4f
	VSlideDown  = 0x50
	VSlideUp2   = 0x51
	VSlideDown2 = 0x52
	FVSlideUp2  = 0x53
	FVSlideDn2  = 0x54
	PitchAdd    = 0x55
	PitchSub    = 0x56
	VolAdd      = 0x57
	VolSub      = 0x58

	OktArp3 = 0x59
	OktArp4 = 0x5a
	OktArp5 = 0x5b

	UltTempo  = 0x5c
	UltTPorta = 0x5d

	// Persistent effects: they're applied every tick until canceled.
	PerPortaUp   = 0x5e
	PerPortaDown = 0x5f
	PerTPorta    = 0x60
	PerVibrato   = 0x61
	PerVSldUp    = 0x62
	PerVSldDown  = 0x63
	PerCancel    = 0x64

	maxCode = 0x65
)

// Extended (0x0e) effect sub-commands, stored in the parameter high nibble.
const (
	ExFilter     = 0x0
	ExFPortaUp   = 0x1
	ExFPortaDown = 0x2
	ExGliss      = 0x3
	ExVibratoWF  = 0x4
	ExFineTune   = 0x5
	ExPattLoop   = 0x6
	ExTremoloWF  = 0x7
	ExSetPan     = 0x8
	ExRetrig     = 0x9
	ExFVSlideUp  = 0xa
	ExFVSlideDn  = 0xb
	ExCut        = 0xc
	ExDelay      = 0xd
	ExPattDelay  = 0xe
	ExInvLoop    = 0xf
)

// IsTonePorta reports whether the code is one of the tone portamento effects.
func IsTonePorta(code uint8) bool {
	switch code {
	case TonePorta, ToneVSlide, PerTPorta, UltTPorta:
		return true
	}
	return false
}

// Name returns a short human-readable effect name.
func Name(code uint8) string {
	if int(code) < len(names) && names[code] != "" {
		return names[code]
	}
	return "unknown"
}

var names = [maxCode]string{
	Arpeggio:      "arpeggio",
	PortaUp:       "porta up",
	PortaDown:     "porta down",
	TonePorta:     "tone porta",
	Vibrato:       "vibrato",
	ToneVSlide:    "tone porta+vslide",
	VibraVSlide:   "vibrato+vslide",
	Tremolo:       "tremolo",
	SetPan:        "set pan",
	Offset:        "offset",
	VolSlide:      "volume slide",
	Jump:          "jump",
	VolSet:        "set volume",
	Break:         "break",
	Extended:      "extended",
	Speed:         "speed",
	GlobalVol:     "global volume",
	GVolSlide:     "global volume slide",
	KeyOff:        "key off",
	EnvPos:        "envelope position",
	PanSlide:      "pan slide",
	MultiRetrig:   "multi retrig",
	Tremor:        "tremor",
	XFPorta:       "extra fine porta",
	VolSlide2:     "volume slide (vol column)",
	PanSlideNoMem: "pan slide (vol column)",
	Vibrato2:      "vibrato depth",
	FineVibrato:   "fine vibrato",
	S3MSpeed:      "set speed",
	S3MBPM:        "set tempo",
	S3MArpeggio:   "arpeggio (S3M)",
	ITBPM:         "tempo (IT)",
	ITRowDelay:    "row delay",
	ITPanSlide:    "pan slide (IT)",
	ITBreak:       "break (IT)",
	ITInstFunc:    "instrument function",
	Panbrello:     "panbrello",
	PanbrelloWF:   "panbrello waveform",
	HiOffset:      "high offset",
	TrkVol:        "track volume",
	TrkVSlide:     "track volume slide",
	TrkFVSlide:    "fine track volume slide",
	FltCutoff:     "filter cutoff",
	FltResonance:  "filter resonance",
	Surround:      "surround",
	Reverse:       "reverse",
	Macro:         "macro",
	MacroSet:      "set macro",
	MacroSmooth:   "smooth macro",
	FineTune:      "finetune",
	SpeedCP:       "speed (CP)",
	LineJump:      "line jump",
	PattDelay:     "pattern delay",
	Retrig:        "retrig",
	MEDRetrig:     "retrig (MED)",
	IceSpeed:      "split speed",
	NSlideUp:      "note slide up",
	NSlideDown:    "note slide down",
	NSlide2Up:     "note slide up 2",
	NSlide2Down:   "note slide down 2",
	FNSlideUp:     "fine note slide up",
	FNSlideDown:   "fine note slide down",
	NSlideRUp:     "note slide up+retrig",
	NSlideRDown:   "note slide down+retrig",
	FPortaUp:      "fine porta up",
	FPortaDown:    "fine porta down",
	FVSlide:       "fine volume slide",
	FVSlideUp:     "fine volume slide up",
	FVSlideDown:   "fine volume slide down",
	VSlideUp:      "volume slide up",
	VSlideDown:    "volume slide down",
	VSlideUp2:     "volume slide up 2",
	VSlideDown2:   "volume slide down 2",
	FVSlideUp2:    "fine volume slide up 2",
	FVSlideDn2:    "fine volume slide down 2",
	PitchAdd:      "pitch add",
	PitchSub:      "pitch sub",
	VolAdd:        "volume add",
	VolSub:        "volume sub",
	OktArp3:       "arpeggio 3",
	OktArp4:       "arpeggio 4",
	OktArp5:       "arpeggio 5",
	UltTempo:      "tempo (ULT)",
	UltTPorta:     "tone porta (ULT)",
	PerPortaUp:    "persistent porta up",
	PerPortaDown:  "persistent porta down",
	PerTPorta:     "persistent tone porta",
	PerVibrato:    "persistent vibrato",
	PerVSldUp:     "persistent volume slide up",
	PerVSldDown:   "persistent volume slide down",
	PerCancel:     "cancel persistent effects",
}
