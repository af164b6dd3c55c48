package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// channelFlags are the effects that are active for the current row.
// The same type is used for the persistent effects set.
type channelFlags uint32

const (
	chVolSlide channelFlags = 1 << iota
	chPanSlide
	chTonePorta
	chPitchBend
	chVibrato
	chTremolo
	chFineVols
	chFineBend
	chOffset
	chTrkVSlide
	chTrkFVSlide
	chNewIns
	chNewVol
	chVolSlide2
	chNoteSlide
	chFineNSlide
	chNewNote
	chFineTPorta
	chRetrig
	chPanbrello
	chGVolSlide
	chTempoSlide
	chVEnvPause
	chPEnvPause
	chFEnvPause
	chFineVols2
	chKeyOff
	chTremor
	chMidiMacro
)

// noteFlags describe the note lifecycle.
type noteFlags uint32

const (
	noteFadeout noteFlags = 1 << iota
	noteEnvRelease
	noteEnd
	noteCut
	noteEnvEnd
	noteSampleEnd
	noteSet
	noteSusExit
	noteKeyCut
	noteGlissando
	noteSampleRelease

	noteRelease = noteEnvRelease | noteSampleRelease
)

// channel is a logical channel state.
//
// The first Module.NumChannels channels are the pattern tracks,
// the rest are the background (virtual) channels that hold the past notes.
type channel struct {
	flags     channelFlags
	perFlags  channelFlags
	noteFlags noteFlags

	note     int
	key      int
	period   float64
	perAdj   float64
	finetune int
	ins      int
	oldIns   int
	smp      int

	masterVol int
	delay     int
	keyOff    int
	fadeout   int
	insFade   int
	volume    int
	gvl       int
	rvv       int // random volume variation
	rpv       int // random pan variation

	split uint8
	pair  uint8

	// Envelope indexes.
	vIdx int
	pIdx int
	fIdx int

	keyPorta int

	vibrato struct {
		lfo    lfo
		memory int
	}
	tremolo struct {
		lfo    lfo
		memory int
	}
	panbrello struct {
		lfo    lfo
		memory int
	}
	arpeggio struct {
		val    [16]int8
		size   int
		count  int
		memory int
	}
	insVib struct {
		lfo   lfo
		sweep int
	}
	offset struct {
		val    int
		val2   int // for the ProTracker 9xx bug emulation
		memory int
	}
	retrig struct {
		val   int
		count int
		typ   int
		limit int
	}
	tremor struct {
		up     int
		down   int
		count  int
		memory int
	}
	vol struct {
		slide   int
		fslide  int
		slide2  int
		memory  int
		fslide2 int
		memory2 int
		target  int // persistent volume slide target
	}
	fineVol struct {
		upMemory   int
		downMemory int
	}
	gvol struct {
		slide  int
		fslide int
		memory int
	}
	trackVol struct {
		slide  int
		fslide int
		memory int
	}
	freq struct {
		slide      int
		fslide     float64
		memory     int
		downMemory int
	}
	porta struct {
		target     float64
		dir        int
		slide      int
		memory     int
		noteMemory int
	}
	finePorta struct {
		upMemory   int
		downMemory int
		xfUpMemory int
		xfDnMemory int
	}
	pan struct {
		val      int
		slide    int
		fslide   int
		memory   int
		surround bool
	}
	invLoop struct {
		speed int
		count int
		pos   int
	}
	tempo struct {
		slide int
	}
	filter struct {
		cutoff     int
		resonance  int
		envelope   int
		canDisable bool
	}
	macro struct {
		val      float32
		target   float32
		slide    float32
		active   int
		finalVol int
		notePan  int
	}
	noteSlide struct {
		slide  int
		fslide int
		speed  int
		count  int
	}

	delayedEvent modfile.Event
	delayedIns   int

	infoPeriod    int
	infoPitchbend int
	infoPosition  int
	infoFinalVol  int
	infoFinalPan  int
}

func (xc *channel) set(f channelFlags) { xc.flags |= f }
func (xc *channel) reset(f channelFlags) { xc.flags &^= f }
func (xc *channel) test(f channelFlags) bool { return xc.flags&f != 0 }

func (xc *channel) setPer(f channelFlags) { xc.perFlags |= f }
func (xc *channel) resetPer(f channelFlags) { xc.perFlags &^= f }
func (xc *channel) testPer(f channelFlags) bool { return xc.perFlags&f != 0 }

func (xc *channel) setNote(f noteFlags) { xc.noteFlags |= f }
func (xc *channel) resetNote(f noteFlags) { xc.noteFlags &^= f }
func (xc *channel) testNote(f noteFlags) bool { return xc.noteFlags&f != 0 }

// isValidNote reports whether n is a valid 0-based key.
func isValidNote(n int) bool {
	return uint(n) < modfile.MaxKeys
}

func msn(v int) int { return (v & 0xf0) >> 4 }
func lsn(v int) int { return v & 0x0f }
