package modplay

import (
	"github.com/quasilyte/modplay/modfile"
)

// voiceAction is a state of a voice that holds a past note.
type voiceAction int

const (
	actionCut voiceAction = iota
	actionCont
	actionOff
	actionFade

	actionActive  voiceAction = 0x100
	actionInvalid voiceAction = -1
)

func newNoteAction(nna modfile.NewNoteAction) voiceAction {
	switch nna {
	case modfile.NewNoteContinue:
		return actionCont
	case modfile.NewNoteOff:
		return actionOff
	case modfile.NewNoteFade:
		return actionFade
	default:
		return actionCut
	}
}

func duplicateAction(dca modfile.DuplicateCheckAction) voiceAction {
	switch dca {
	case modfile.DuplicateActionOff:
		return actionOff
	case modfile.DuplicateActionFade:
		return actionFade
	default:
		return actionCut
	}
}

const freeSlot = -1

// virtChannel maps a logical channel to a voice.
type virtChannel struct {
	// voice is an index into the voices arena or freeSlot.
	voice int

	// count is the number of voices rooted at this channel.
	count int
}

// virtualState is the voice pool with the logical channels map.
//
// The first numTracks channels are the pattern tracks;
// the rest hold the notes that were pushed to the background by
// the new note actions.
type virtualState struct {
	numTracks    int
	virtChannels int
	maxVoc       int
	used         int

	voices   []mixerVoice
	channels []virtChannel
}

func (s *Session) virtOn(numTracks int) {
	v := &s.virt
	v.numTracks = numTracks

	num := s.config.Voices
	v.virtChannels = numTracks
	if s.m.hasQuirk(modfile.QuirkVirtual) {
		v.virtChannels += num
	} else if num > v.virtChannels {
		num = v.virtChannels
	}
	v.maxVoc = num

	v.voices = make([]mixerVoice, v.maxVoc)
	v.channels = make([]virtChannel, v.virtChannels)
	v.reset()
}

func (v *virtualState) reset() {
	for i := range v.voices {
		v.voices[i] = mixerVoice{chn: freeSlot, root: freeSlot}
	}
	for i := range v.channels {
		v.channels[i] = virtChannel{voice: freeSlot}
	}
	v.used = 0
}

func (v *virtualState) mapChannel(chn int) int {
	if uint(chn) >= uint(v.virtChannels) {
		return -1
	}
	voc := v.channels[chn].voice
	if uint(voc) >= uint(v.maxVoc) {
		return -1
	}
	return voc
}

func (s *Session) virtGetRoot(chn int) int {
	voc := s.virt.mapChannel(chn)
	if voc < 0 {
		return -1
	}
	return s.virt.voices[voc].root
}

func (s *Session) virtResetVoice(voc int, mute bool) {
	v := &s.virt
	if uint(voc) >= uint(v.maxVoc) {
		return
	}
	vi := &v.voices[voc]
	if mute {
		s.mixerSetVol(voc, 0)
	}
	v.used--
	v.channels[vi.root].count--
	v.channels[vi.chn].voice = freeSlot
	*vi = mixerVoice{chn: freeSlot, root: freeSlot}
}

func (s *Session) virtResetChannel(chn int) {
	voc := s.virt.mapChannel(chn)
	if voc < 0 {
		return
	}
	s.virtResetVoice(voc, true)
}

func (s *Session) virtSetVol(chn, vol int) {
	v := &s.virt
	voc := v.mapChannel(chn)
	if voc < 0 {
		return
	}
	root := v.voices[voc].root
	if root < modfile.MaxChannels && s.p.channelMute[root] {
		vol = 0
	}
	s.mixerSetVol(voc, vol)
	// A silent background voice is never heard again.
	if vol == 0 && chn >= v.numTracks {
		s.virtResetVoice(voc, true)
	}
}

func (s *Session) virtRelease(chn int, rel bool) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.mixerRelease(voc, rel)
	}
}

func (s *Session) virtReverse(chn int, rev bool) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.mixerReverse(voc, rev)
	}
}

func (s *Session) virtSetPan(chn, pan int) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.virt.voices[voc].pan = pan
	}
}

func (s *Session) virtSetNNA(chn int, nna voiceAction) {
	if !s.m.hasQuirk(modfile.QuirkVirtual) {
		return
	}
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.virt.voices[voc].act = nna
	}
}

func (s *Session) virtSetFilter(chn int, f voiceFilter) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.mixerSetFilter(voc, f)
	}
}

func (s *Session) virtGetVoicePos(chn int) float64 {
	voc := s.virt.mapChannel(chn)
	if voc < 0 {
		return -1
	}
	return s.virt.voices[voc].pos
}

func (s *Session) virtSetNote(chn, note int) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.mixerSetNote(voc, note)
	}
}

func (s *Session) virtSetPeriod(chn int, period float64) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.virt.voices[voc].period = period
	}
}

func (s *Session) virtVoicePos(chn int, pos float64) {
	if voc := s.virt.mapChannel(chn); voc >= 0 {
		s.mixerVoicePos(voc, pos, true)
	}
}

// virtSetPatch starts a new note on the channel.
//
// If the channel voice is still needed by its new note action, the voice
// moves to a free background channel and a new voice is allocated.
// The returned value is the channel that holds the old note
// (or chn itself); -1 means that no voice could be allocated.
func (s *Session) virtSetPatch(chn, ins, smp, note, key int, nna voiceAction, dct modfile.DuplicateCheckType, dca voiceAction) int {
	v := &s.virt
	if uint(chn) >= uint(v.virtChannels) {
		return -1
	}
	if ins < 0 {
		smp = -1
	}

	if dct != modfile.DuplicateCheckOff {
		for i := 0; i < v.maxVoc; i++ {
			s.checkDuplicate(i, chn, ins, smp, key, nna, dct, dca)
		}
	}

	voc := v.channels[chn].voice
	if voc > freeSlot {
		if v.voices[voc].act != actionCut {
			vfree := s.allocVoice(chn)
			if vfree < 0 {
				return -1
			}
			bg := v.numTracks
			for bg < v.virtChannels && v.channels[bg].voice > freeSlot {
				bg++
			}
			if bg < v.virtChannels {
				v.voices[voc].chn = bg
				v.channels[bg].voice = voc
				chn = bg
			} else {
				// There is no room for the past note.
				s.mixerSetVol(voc, 0)
				old := &v.voices[voc]
				v.channels[old.root].count--
				v.used--
				*old = mixerVoice{chn: freeSlot, root: freeSlot}
			}
			voc = vfree
		}
	} else {
		voc = s.allocVoice(chn)
		if voc < 0 {
			return -1
		}
	}

	if smp < 0 {
		s.virtResetVoice(voc, true)
		return chn
	}

	s.mixerSetPatch(voc, smp, true)
	s.mixerSetNote(voc, note)
	vi := &v.voices[voc]
	vi.ins = ins
	vi.act = nna
	vi.key = key
	return chn
}

// virtQueuePatch schedules a sample swap that happens
// when the current sample reaches its end.
func (s *Session) virtQueuePatch(chn, ins, smp, note int) int {
	v := &s.virt
	if uint(chn) >= uint(v.virtChannels) {
		return -1
	}
	if ins < 0 {
		smp = -1
	}
	voc := v.channels[chn].voice
	if voc > freeSlot {
		s.mixerQueuePatch(voc, smp)
		if ins >= 0 {
			v.voices[voc].ins = ins
		}
		return chn
	}
	if smp < 0 {
		return -1
	}
	return s.virtSetPatch(chn, ins, smp, note, 0, actionCut, modfile.DuplicateCheckOff, actionCut)
}

// virtPastNote applies the action to all background notes of the channel.
func (s *Session) virtPastNote(chn int, act voiceAction) {
	v := &s.virt
	for c := v.numTracks; c < v.virtChannels; c++ {
		voc := v.mapChannel(c)
		if voc < 0 || v.voices[voc].root != chn {
			continue
		}
		switch act {
		case actionCut:
			s.virtResetVoice(voc, true)
		case actionOff:
			s.p.xc[c].setNote(noteRelease)
		case actionFade:
			s.p.xc[c].setNote(noteFadeout)
		}
	}
}

// virtChannelStatus reports the voice state of the channel.
func (s *Session) virtChannelStatus(chn int) voiceAction {
	v := &s.virt
	voc := v.mapChannel(chn)
	if voc < 0 {
		return actionInvalid
	}
	if chn < v.numTracks {
		return actionActive
	}
	return v.voices[voc].act
}

// freeVoice steals the quietest background voice.
func (s *Session) freeVoice() int {
	v := &s.virt
	num := freeSlot
	vol := maxInt32
	for i := range v.voices {
		vi := &v.voices[i]
		if vi.chn >= v.numTracks && vi.vol < vol {
			num = i
			vol = vi.vol
		}
	}
	if num >= 0 {
		vi := &v.voices[num]
		v.channels[vi.chn].voice = freeSlot
		v.channels[vi.root].count--
		v.used--
	}
	return num
}

func (s *Session) allocVoice(chn int) int {
	v := &s.virt
	i := 0
	for i < v.maxVoc && v.voices[i].chn != freeSlot {
		i++
	}
	if i == v.maxVoc {
		i = s.freeVoice()
	}
	if i >= 0 {
		v.channels[chn].count++
		v.used++
		v.voices[i].chn = chn
		v.voices[i].root = chn
		v.channels[chn].voice = i
	}
	return i
}

func (s *Session) checkDuplicate(i, chn, ins, smp, key int, nna voiceAction, dct modfile.DuplicateCheckType, dca voiceAction) {
	v := &s.virt
	vi := &v.voices[i]
	voc := v.channels[chn].voice

	if vi.root != chn || vi.ins != ins {
		return
	}
	if nna == actionCut {
		s.virtResetVoice(i, true)
		return
	}
	vi.act = nna

	duplicate := dct == modfile.DuplicateCheckInstrument ||
		(dct == modfile.DuplicateCheckSample && vi.smp == smp) ||
		(dct == modfile.DuplicateCheckNote && vi.key == key)
	if !duplicate {
		return
	}
	switch {
	case nna == actionOff && dca == actionFade:
		vi.act = actionOff
	case dca != actionCut:
		if i != voc || vi.act != actionCut {
			vi.act = dca
		}
	default:
		s.virtResetVoice(i, true)
	}
}
