package modplay

import (
	"errors"
)

var (
	// ErrNotStarted is returned by the methods that require Start() to be called first.
	ErrNotStarted = errors.New("replay session is not started")

	// ErrAlreadyStarted is returned when a load-time parameter is changed after Start().
	ErrAlreadyStarted = errors.New("replay session is already started")

	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrInvalidParam      = errors.New("invalid parameter value")
	ErrInvalidPosition   = errors.New("invalid position")

	// ErrSongEnd is returned by PlayFrame when the module has no more frames to play.
	// Like io.EOF, it's not an error condition.
	ErrSongEnd = errors.New("end of song")

	// ErrForeignSnapshot is returned when a snapshot is restored
	// into a session it was not captured from.
	ErrForeignSnapshot = errors.New("snapshot belongs to another session")

	// ErrNoSequence is reported when the scanner can't find a single playable row.
	ErrNoSequence = errors.New("module has no playable rows")
)
