package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/quasilyte/modplay"
)

// exportWAV renders the session into a 16-bit WAV file.
// The export stops at the song end, on the first loop or after maxTime.
func exportWAV(session *modplay.Session, path string, maxTime time.Duration, logger *slog.Logger) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	sampleRate, _ := session.Param(modplay.ParamSampleRate)
	numChannels, _ := session.Param(modplay.ParamChannels)
	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)

	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: 16,
	}

	numFrames := 0
	var peak float32
	for {
		err := session.PlayFrame()
		if errors.Is(err, modplay.ErrSongEnd) {
			break
		}
		if err != nil {
			return err
		}
		info := session.FrameInfo()
		if info.LoopCount > 0 || info.Time > maxTime {
			break
		}

		samples := session.Float32Buffer()
		peak = max(peak, peakLevel(samples))
		intBuf.Data = intBuf.Data[:0]
		for _, v := range samples {
			intBuf.Data = append(intBuf.Data, int(v*32767))
		}
		if err := enc.Write(intBuf); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		numFrames++
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", path, err)
	}
	logger.Info("exported", "path", path, "ticks", numFrames, "peak", peak)
	return nil
}
