package modfile

import (
	"fmt"
)

const (
	MinBPM = 20
	MaxBPM = 1000
)

// Validate normalizes the module so it's safe to replay.
//
// Structural problems that make replay impossible are reported as errors
// that wrap ErrInvalidModule. Everything else is clamped to a sane value:
// a malformed module should still play.
func Validate(m *Module) error {
	if m.NumChannels <= 0 || m.NumChannels > MaxChannels {
		return fmt.Errorf("%w: bad number of channels (%d)", ErrInvalidModule, m.NumChannels)
	}
	for len(m.Channels) < m.NumChannels {
		i := len(m.Channels)
		m.Channels = append(m.Channels, Channel{Pan: DefaultChannelPan(i, 100), Volume: 0x40})
	}
	for i := range m.Patterns {
		p := &m.Patterns[i]
		if len(p.Tracks) < m.NumChannels {
			return fmt.Errorf("%w: pattern %d has %d tracks, expected %d",
				ErrInvalidModule, i, len(p.Tracks), m.NumChannels)
		}
		for _, t := range p.Tracks {
			if t < 0 || t >= len(m.Tracks) {
				return fmt.Errorf("%w: pattern %d references track %d", ErrInvalidModule, i, t)
			}
		}
		p.Rows = clamp(p.Rows, 0, 256)
	}

	if m.VolBase <= 0 {
		m.VolBase = 0x40
	}
	if m.GVolBase <= 0 {
		m.GVolBase = 0x40
	}
	if m.MixVolBase <= 0 {
		m.MixVolBase = 0x40
	}
	if m.C4Rate <= 0 {
		m.C4Rate = C4PalRate
	}
	if m.TimeFactor <= 0 {
		m.TimeFactor = DefaultTimeFactor
	}
	if m.RefreshRate <= 0 {
		m.RefreshRate = PalRefreshRate
	}

	if len(m.Orders) > MaxOrders {
		m.Orders = m.Orders[:MaxOrders]
	}
	if len(m.Patterns) > 257 {
		m.Patterns = m.Patterns[:257]
	}
	if len(m.Instruments) > 255 {
		m.Instruments = m.Instruments[:255]
	}
	if m.Restart < 0 || m.Restart >= len(m.Orders) {
		m.Restart = 0
	}
	if m.Speed <= 0 || m.Speed > 255 {
		m.Speed = 6
	}
	m.BPM = clamp(m.BPM, MinBPM, MaxBPM)
	m.GlobalVolume = clamp(m.GlobalVolume, 0, m.GVolBase)

	for i := range m.Instruments {
		ins := &m.Instruments[i]
		if !m.Quirks.Has(QuirkInsVol) {
			ins.Volume = m.VolBase
		}
		for j := range ins.Subs {
			sub := &ins.Subs[j]
			if !m.Quirks.Has(QuirkInsVol) {
				sub.GlobalVolume = m.VolBase
			}
			if sub.Sample >= len(m.Samples) {
				sub.Sample = -1
			}
		}
		checkEnvelope(&ins.VolumeEnvelope)
		checkEnvelope(&ins.PanEnvelope)
		checkEnvelope(&ins.PitchEnvelope)
		if ins.VolumeEnvelope.Flags.IsOn() {
			env := &ins.VolumeEnvelope
			for k := 0; k < env.NumPoints; k++ {
				env.Points[k].Y = clamp(env.Points[k].Y, 0, int16(m.VolBase))
			}
		}
	}

	for i := range m.Samples {
		validateSample(m, &m.Samples[i])
	}

	return nil
}

func validateSample(m *Module, s *Sample) {
	if s.Length > len(s.Data) {
		s.Length = len(s.Data)
	}
	if s.Length < 0 {
		s.Length = 0
	}
	if s.C5Speed <= 0 {
		s.C5Speed = float64(m.C4Rate)
	}

	if s.HasLoop() {
		if s.LoopEnd > s.Length {
			s.LoopEnd = s.Length
		}
		if s.LoopStart < 0 || s.LoopStart >= s.LoopEnd {
			s.Flags &^= SampleLoop | SampleLoopBidir | SampleLoopFull | SampleLoopReverse
		}
	}

	if s.SustainStart < 0 {
		s.SustainStart = 0
	}
	if s.SustainEnd > s.Length {
		s.SustainEnd = s.Length
	}
	if s.SustainStart >= s.Length || s.SustainStart >= s.SustainEnd {
		s.SustainStart = 0
		s.SustainEnd = 0
		s.Flags &^= SampleSustainLoop | SampleSustainLoopBidir
	}
}

func checkEnvelope(env *Envelope) {
	if env.NumPoints <= 0 || env.NumPoints > MaxEnvelopePoints {
		env.Flags &^= EnvelopeOn
		env.NumPoints = clamp(env.NumPoints, 0, MaxEnvelopePoints)
	}
	if env.LoopStart < 0 || env.LoopStart >= env.NumPoints || env.LoopEnd < 0 || env.LoopEnd >= env.NumPoints {
		env.Flags &^= EnvelopeLoop
	}
	if env.SustainStart < 0 || env.SustainStart >= env.NumPoints || env.SustainEnd < 0 || env.SustainEnd >= env.NumPoints {
		env.Flags &^= EnvelopeSustain
	}

	// The node indexes are used even when their flags are off.
	env.LoopStart = clamp(env.LoopStart, 0, MaxEnvelopePoints-1)
	env.LoopEnd = clamp(env.LoopEnd, 0, MaxEnvelopePoints-1)
	env.SustainStart = clamp(env.SustainStart, 0, MaxEnvelopePoints-1)
	env.SustainEnd = clamp(env.SustainEnd, 0, MaxEnvelopePoints-1)
}

type numeric interface {
	int | int16
}

func clamp[T numeric](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
