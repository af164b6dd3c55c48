package main

import (
	"sync"

	"github.com/viterin/vek/vek32"

	"github.com/quasilyte/modplay"
)

// peakLevel returns the peak absolute amplitude of the samples.
func peakLevel(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs(samples))
}

// lockedStream serializes the audio thread reads with the UI controls.
type lockedStream struct {
	mu     sync.Mutex
	stream *modplay.Stream
	peak   float32
}

func (l *lockedStream) Read(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.stream.Read(b)
	if n != 0 {
		l.peak = max(l.peak*0.9, peakLevel(l.stream.Session().Float32Buffer()))
	}
	return n, err
}

// do runs f with the exclusive access to the session.
func (l *lockedStream) do(f func(s *modplay.Session)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f(l.stream.Session())
}
