package main

import (
	"log/slog"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/quasilyte/modplay"
)

// playOto plays the stream through the default device without a window.
func playOto(stream *modplay.Stream, sampleRate int, logger *slog.Logger) error {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	ls := &lockedStream{stream: stream}
	player := ctx.NewPlayer(ls)
	defer player.Close()
	player.Play()

	lastPos := -1
	for player.IsPlaying() {
		time.Sleep(100 * time.Millisecond)
		ls.do(func(s *modplay.Session) {
			info := s.FrameInfo()
			if info.Pos != lastPos {
				lastPos = info.Pos
				logger.Info("playing", "pos", info.Pos, "pattern", info.Pattern, "time", info.Time.Truncate(time.Second))
			}
		})
	}
	return player.Err()
}
