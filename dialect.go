package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// eventReader decodes a pattern event into the channel state.
//
// There is one implementation per dialect family. The quirk bits are
// still checked inside every implementation as they select individual
// historical behaviors.
type eventReader interface {
	readEvent(s *Session, e *modfile.Event, chn int)
}

// dialect holds the per-family choices that are made once per session
// (and after every player mode change).
type dialect struct {
	reader   eventReader
	lfo      lfoFlavour
	envelope envelopeFlavour

	// ft2Tremor selects the FT2 tremor counter layout.
	ft2Tremor bool

	// bidirAdjust is the ping-pong loop turn point adjustment, in frames.
	bidirAdjust int
}

func newDialect(m *module) dialect {
	var d dialect

	switch m.dialect {
	case modfile.DialectFT2:
		d.reader = eventReaderFT2{}
		d.lfo = lfoFlavourFT2
		d.ft2Tremor = true
	case modfile.DialectST3:
		d.reader = eventReaderST3{}
		d.lfo = lfoFlavourST3
	case modfile.DialectIT:
		d.reader = eventReaderIT{}
		d.lfo = lfoFlavourIT
		d.bidirAdjust = 1
	default:
		d.reader = eventReaderMOD{}
		d.lfo = lfoFlavourMOD
	}

	switch {
	case m.dialect == modfile.DialectIT:
		d.envelope = envelopeFlavourIT
	case m.hasQuirk(modfile.QuirkFt2Env):
		d.envelope = envelopeFlavourFT2
	default:
		d.envelope = envelopeFlavourDefault
	}

	return d
}
