package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

type envelopeFlavour int

const (
	envelopeFlavourDefault envelopeFlavour = iota
	envelopeFlavourFT2
	envelopeFlavourIT
)

func envelopeLastNode(env *modfile.Envelope) int {
	return env.NumPoints - 1
}

func envelopeEnded(env *modfile.Envelope, x int) bool {
	if !env.Flags.IsOn() || env.NumPoints <= 0 {
		return false
	}
	last := envelopeLastNode(env)
	if x >= int(env.Points[last].X) || last == 0 {
		return !env.Flags.LoopEnabled()
	}
	return false
}

// envelopeFade reports the state of an envelope that is past its last node:
// -1 if it ended at zero, 1 if it ended at non-zero and 0 if it didn't end yet.
func envelopeFade(env *modfile.Envelope, x int) int {
	if !env.Flags.IsOn() || env.NumPoints <= 0 {
		return 0
	}
	last := env.Points[envelopeLastNode(env)]
	if x > int(last.X) {
		if last.Y == 0 {
			return -1
		}
		return 1
	}
	return 0
}

// envelopeValue evaluates the envelope at x.
// def is returned for the disabled envelopes.
func envelopeValue(env *modfile.Envelope, x, def int) int {
	if x < 0 || !env.Flags.IsOn() || env.NumPoints <= 0 {
		return def
	}

	i := envelopeLastNode(env)
	if x >= int(env.Points[i].X) || i == 0 {
		return int(env.Points[i].Y)
	}
	for {
		i--
		if i <= 0 || int(env.Points[i].X) <= x {
			break
		}
	}

	x1 := int(env.Points[i].X)
	y1 := int(env.Points[i].Y)
	x2 := int(env.Points[i+1].X)
	y2 := int(env.Points[i+1].Y)
	if x < x1 || x2 < x1 {
		return y1
	}
	if x2 == x1 {
		return y2
	}
	return (y2-y1)*(x-x1)/(x2-x1) + y1
}

// envelopeSustained reports whether x is frozen at the sustain point
// of an envelope without a loop.
func envelopeSustained(env *modfile.Envelope, x int) bool {
	return env.Flags.IsOn() && env.Flags.SustainEnabled() && !env.Flags.LoopEnabled() &&
		x == int(env.Points[env.SustainStart].X)
}

// updateEnvelope advances the envelope position by one tick.
func updateEnvelope(flavour envelopeFlavour, env *modfile.Envelope, x int, release, keyOff bool) int {
	if x < 0xffff {
		x++
	}
	if x < 0 {
		return -1
	}
	if !env.Flags.IsOn() || env.NumPoints <= 0 {
		return x
	}

	switch flavour {
	case envelopeFlavourIT:
		return updateEnvelopeIT(env, x, release, keyOff)
	case envelopeFlavourFT2:
		return updateEnvelopeFT2(env, x, release)
	default:
		return updateEnvelopeDefault(env, x, release)
	}
}

func updateEnvelopeDefault(env *modfile.Envelope, x int, release bool) int {
	hasLoop := env.Flags.LoopEnabled()
	hasSus := env.Flags.SustainEnabled()
	lps := int(env.Points[env.LoopStart].X)
	lpe := int(env.Points[env.LoopEnd].X)
	sus := int(env.Points[env.SustainStart].X)
	susIsLoopEnd := env.SustainStart == env.LoopEnd

	// FT2 escapes the loop on release when the sustain point
	// is the loop end, IT runs another iteration.
	if hasLoop && hasSus && susIsLoopEnd && !release {
		hasSus = false
	}

	// A position that is already past the sustain point or the loop end
	// never goes back there.
	if hasLoop && x > lpe+1 {
		release = true
	} else if hasSus && x > sus+1 {
		release = true
	}

	if hasSus && !release && x >= sus {
		x = sus
	}
	if hasLoop && x >= lpe {
		if !(release && hasSus && susIsLoopEnd) {
			x = lps
		}
	}
	return x
}

func updateEnvelopeFT2(env *modfile.Envelope, x int, release bool) int {
	hasLoop := env.Flags.LoopEnabled()
	hasSus := env.Flags.SustainEnabled()
	lps := int(env.Points[env.LoopStart].X)
	lpe := int(env.Points[env.LoopEnd].X)
	sus := int(env.Points[env.SustainStart].X)
	susIsLoopEnd := env.SustainStart == env.LoopEnd

	if hasLoop && hasSus && susIsLoopEnd && !release {
		hasSus = false
	}
	if hasSus && x > sus+1 {
		release = true
	}

	if hasSus && !release && x >= sus {
		x = sus
	}
	// The loop end is only checked for an exact hit, so a position
	// set past it plays the envelope tail.
	if hasLoop && x == lpe {
		if !(release && hasSus && susIsLoopEnd) {
			x = lps
		}
	}
	return x
}

func updateEnvelopeIT(env *modfile.Envelope, x int, release, keyOff bool) int {
	hasLoop := env.Flags.LoopEnabled()
	hasSus := env.Flags.SustainEnabled()
	sus := int(env.Points[env.SustainStart].X)
	sue := int(env.Points[env.SustainEnd].X)

	switch {
	case hasSus && keyOff && x == sue+1:
		x = sus
	case hasSus && !release:
		if x == sue+1 {
			x = sus
		}
	case hasLoop:
		if x > int(env.Points[env.LoopEnd].X) {
			x = int(env.Points[env.LoopStart].X)
		}
	}
	return x
}
