package modfile

import (
	"fmt"
	"strings"
)

// Quirk is a set of per-dialect compatibility bits.
//
// Every bit selects one of mutually exclusive historical behaviors,
// so they're checked individually by the replay code.
type Quirk uint32

const (
	QuirkS3MLoop  Quirk = 1 << 0  // S3M loop mode: the loop start is set after the loop end
	QuirkEnvFade  Quirk = 1 << 1  // fade the note when the volume envelope ends
	QuirkProTrack Quirk = 1 << 2  // use ProTracker-specific quirks
	QuirkRtOnce   Quirk = 1 << 3  // retrig only once per row
	QuirkSt3Bugs  Quirk = 1 << 4  // emulate ST3 bugs (shared effect memory)
	QuirkFineFx   Quirk = 1 << 5  // fine effects are encoded in the main parameter
	QuirkVsAll    Quirk = 1 << 6  // volume slides on all frames
	QuirkPbAll    Quirk = 1 << 7  // pitch bending on all frames
	QuirkPerPat   Quirk = 1 << 8  // persistent effects are reset per pattern
	QuirkVolPdn   Quirk = 1 << 9  // set priority to volume slide down
	QuirkUniSld   Quirk = 1 << 10 // unified tone portamento memory with pitch slides
	QuirkItVpor   Quirk = 1 << 11 // disable fine bends in volume column porta
	QuirkFtMod    Quirk = 1 << 12 // flag for multichannel mods
	QuirkInvLoop  Quirk = 1 << 13 // enable invert loop
	QuirkInsVol   Quirk = 1 << 14 // use instrument volume
	QuirkVirtual  Quirk = 1 << 15 // enable virtual channels
	QuirkFilter   Quirk = 1 << 16 // enable filter
	QuirkIgStPor  Quirk = 1 << 17 // ignore stray tone portamento
	QuirkKeyOff   Quirk = 1 << 18 // keyoff doesn't reset fadeout
	QuirkVibHalf  Quirk = 1 << 19 // vibrato is half as deep
	QuirkVibAll   Quirk = 1 << 20 // vibrato in all frames
	QuirkVibInv   Quirk = 1 << 21 // vibrato has inverse waveform
	QuirkPrEnv    Quirk = 1 << 22 // portamento resets envelope and fade
	QuirkItOldFx  Quirk = 1 << 23 // IT old effects mode
	QuirkS3MRtg   Quirk = 1 << 24 // S3M-style retrig when count == 0
	QuirkRtDelay  Quirk = 1 << 25 // delay effect retrigs the instrument
	QuirkFt2Bugs  Quirk = 1 << 26 // emulate FT2 bugs
	QuirkMarker   Quirk = 1 << 27 // 0xfe and 0xff are order list markers
	QuirkNoBPM    Quirk = 1 << 28 // speed effect has no BPM range
	QuirkArpMem   Quirk = 1 << 29 // arpeggio has memory
	QuirkRstChn   Quirk = 1 << 30 // reset channel on sample end
	QuirkFt2Env   Quirk = 1 << 31 // FT2 envelope update order
)

// Quirk presets of the major dialect families.
const (
	QuirksST3 = QuirkS3MLoop | QuirkVolPdn | QuirkFineFx | QuirkS3MRtg | QuirkMarker | QuirkRstChn
	QuirksFT2 = QuirkRtDelay | QuirkFineFx
	QuirksIT  = QuirkS3MLoop | QuirkFineFx | QuirkVibAll | QuirkEnvFade | QuirkItVpor |
		QuirkKeyOff | QuirkVirtual | QuirkFilter | QuirkRstChn | QuirkIgStPor |
		QuirkS3MRtg | QuirkMarker
)

// Has reports whether all bits of q2 are set in q.
func (q Quirk) Has(q2 Quirk) bool {
	return q&q2 == q2
}

var quirkNames = [...]string{
	"s3mloop", "envfade", "protrack", "rtonce", "st3bugs", "finefx", "vsall", "pball",
	"perpat", "volpdn", "unisld", "itvpor", "ftmod", "invloop", "insvol", "virtual",
	"filter", "igstpor", "keyoff", "vibhalf", "viball", "vibinv", "prenv", "itoldfx",
	"s3mrtg", "rtdelay", "ft2bugs", "marker", "nobpm", "arpmem", "rstchn", "ft2env",
}

// ParseQuirk returns a quirk bit by its lowercase name, like "ft2bugs".
func ParseQuirk(name string) (Quirk, error) {
	name = strings.ToLower(name)
	for i, n := range quirkNames {
		if n == name {
			return 1 << i, nil
		}
	}
	return 0, fmt.Errorf("unknown quirk %q", name)
}

// String returns a "+"-separated list of the quirk names.
func (q Quirk) String() string {
	if q == 0 {
		return "none"
	}
	var parts []string
	for i, n := range quirkNames {
		if q&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "+")
}
