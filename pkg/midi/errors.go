package midi

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedData is reported when fewer bytes remain than a field, VLQ or payload requires.
	ErrTruncatedData = errors.New("truncated data")
	// ErrInvalidMagic is reported when the header chunk id is not MThd.
	ErrInvalidMagic = errors.New("invalid header chunk id")
	// ErrInvalidUTF8 is reported when a text meta event does not hold valid UTF-8.
	ErrInvalidUTF8 = errors.New("text meta event is not valid utf-8")
	// ErrUnsupportedEvent is reported for a status byte outside the recognized set.
	ErrUnsupportedEvent = errors.New("unsupported event")
	// ErrVLQOverflow is reported when a variable length quantity does not fit its destination.
	ErrVLQOverflow = errors.New("variable length quantity overflow")
)

// headerTrack is the DecodeError.Track value of failures outside any track chunk.
const headerTrack = -1

// DecodeError describes where a parse failed. Err is one of the Err* sentinels.
type DecodeError struct {
	// Track is the zero based MTrk index, or -1 for the header and chunk framing.
	Track int
	// Offset is the absolute byte offset in the file where the failing read started.
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Track == headerTrack {
		return fmt.Sprintf("midi: offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("midi: track %d, offset %d: %v", e.Track, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
