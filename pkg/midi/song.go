package midi

import (
	"io"
	"os"
)

type TimeFormat int

const (
	MetricalTF TimeFormat = iota + 1
	TimeCodeTF
)

// Division is the division field of the MThd chunk.
type Division uint16

// TicksPerQuarterNote returns the division as ticks per quarter note. SMPTE
// divisions are not converted and come back as their raw value.
func (d Division) TicksPerQuarterNote() uint16 {
	return uint16(d)
}

func (d Division) TimeFormat() TimeFormat {
	if d&0x8000 == 0 {
		return MetricalTF
	}
	return TimeCodeTF
}

// Header is the payload of the MThd chunk.
type Header struct {
	Format     uint16
	TrackCount uint16
	Division   Division
}

// Track holds index aligned delta times and events of one MTrk chunk.
type Track struct {
	deltas []uint32
	events []Event
}

func (t *Track) Len() int {
	return len(t.events)
}

// Delta returns the ticks between the previous event on the track and event i.
func (t *Track) Delta(i int) uint32 {
	return t.deltas[i]
}

func (t *Track) Event(i int) Event {
	return t.events[i]
}

// AbsoluteTicks returns the tick each event fires on, counted from the start
// of the track.
func (t *Track) AbsoluteTicks() []uint64 {
	ticks := make([]uint64, len(t.deltas))
	var abs uint64
	for i, d := range t.deltas {
		abs += uint64(d)
		ticks[i] = abs
	}
	return ticks
}

// Name returns the first TrackName on the track.
func (t *Track) Name() (string, bool) {
	for _, e := range t.events {
		if n, ok := e.(TrackName); ok {
			return n.Name, true
		}
	}
	return "", false
}

// Song is a parsed Standard MIDI File. It has no mutating methods and may be
// shared between goroutines.
type Song struct {
	header Header
	tracks []Track
}

func (s *Song) Header() Header {
	return s.header
}

// PPQN returns the pulses per quarter note of the song.
func (s *Song) PPQN() uint16 {
	return s.header.Division.TicksPerQuarterNote()
}

// NumTracks returns the number of MTrk chunks found, which may differ from
// Header().TrackCount.
func (s *Song) NumTracks() int {
	return len(s.tracks)
}

func (s *Song) Track(i int) *Track {
	return &s.tracks[i]
}

// NumEvents returns the event count over all tracks.
func (s *Song) NumEvents() int {
	n := 0
	for i := range s.tracks {
		n += s.tracks[i].Len()
	}
	return n
}

// Load reads and parses the file at path. Errors opening or reading the file
// are returned as is; decode failures are *DecodeError.
func Load(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads r to the end and parses it.
func (d *Decoder) Decode() (*Song, error) {
	data, err := io.ReadAll(d.r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
