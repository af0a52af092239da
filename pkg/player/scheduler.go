package player

import (
	"math"
	"time"

	"github.com/Garik-/midiplay/pkg/midi"
	"go.uber.org/zap"
)

const (
	// defaultTempo is 120 quarter notes per minute, assumed until the first
	// SetTempo is replayed.
	defaultTempo = 500000

	microsecondsPerSecond = 1000000.0

	// dueTolerance absorbs float rounding when a due time is compared with
	// the elapsed time; it scales with due times above one second.
	dueTolerance = 1e-9
)

type trackCursor struct {
	elapsed float64
	next    int
}

// Scheduler replays a Song against caller supplied time steps. It never
// blocks on its own and is not safe for concurrent use; the Song it plays may
// be shared by any number of schedulers.
type Scheduler struct {
	cursors       []trackCursor
	pulseDuration float64
	tempo         uint32
}

func New(song *midi.Song) *Scheduler {
	s := &Scheduler{}
	s.Reset(song)
	return s
}

// Reset rewinds every track to its first event and restores the default tempo.
func (s *Scheduler) Reset(song *midi.Song) {
	n := song.NumTracks()
	if cap(s.cursors) >= n {
		s.cursors = s.cursors[:n]
		for i := range s.cursors {
			s.cursors[i] = trackCursor{}
		}
	} else {
		s.cursors = make([]trackCursor, n)
	}

	s.tempo = defaultTempo
	s.pulseDuration = pulseDuration(defaultTempo, song)
}

// pulseDuration returns seconds per tick. A zero division is timed as one
// tick per quarter note.
func pulseDuration(tempo uint32, song *midi.Song) float64 {
	ppqn := song.PPQN()
	if ppqn == 0 {
		ppqn = 1
	}
	return float64(tempo) / (float64(ppqn) * microsecondsPerSecond)
}

// Update advances every track by dt seconds and fires the events that became
// due, in track order. SetTempo events retime all tracks and are not sent;
// everything else goes to sink. Tracks are advanced one after another, so
// events of different tracks due within the same step are not interleaved by
// time.
func (s *Scheduler) Update(dt float64, song *midi.Song, sink Sink) {
	if !(dt >= 0) {
		schedulerLog.Warn("ignoring step", zap.Float64("dt", dt))
		return
	}

	n := len(s.cursors)
	if song.NumTracks() < n {
		n = song.NumTracks()
	}

	for i := 0; i < n; i++ {
		cur := &s.cursors[i]
		track := song.Track(i)

		cur.elapsed += dt
		for cur.next < track.Len() {
			due := float64(track.Delta(cur.next)) * s.pulseDuration
			if due > cur.elapsed+dueTolerance*math.Max(due, 1) {
				break
			}

			e := track.Event(cur.next)
			cur.elapsed -= due
			cur.next++

			if tempo, ok := e.(midi.SetTempo); ok {
				s.setTempo(tempo, song, i)
				continue
			}
			sink.Send(e)
		}
	}
}

// Advance is Update with a time.Duration step.
func (s *Scheduler) Advance(d time.Duration, song *midi.Song, sink Sink) {
	s.Update(d.Seconds(), song, sink)
}

func (s *Scheduler) setTempo(e midi.SetTempo, song *midi.Song, track int) {
	if e.MicrosecondsPerQuarterNote == 0 {
		schedulerLog.Warn("ignoring zero tempo", zap.Int("track", track))
		return
	}

	s.tempo = e.MicrosecondsPerQuarterNote
	s.pulseDuration = pulseDuration(s.tempo, song)
	schedulerLog.Debug("tempo change",
		zap.Int("track", track),
		zap.Uint32("us_per_quarter", s.tempo),
		zap.Float64("pulse_duration", s.pulseDuration))
}

// PulseDuration returns the current length of one tick in seconds.
func (s *Scheduler) PulseDuration() float64 {
	return s.pulseDuration
}

// Tempo returns the current microseconds per quarter note.
func (s *Scheduler) Tempo() uint32 {
	return s.tempo
}

// Done reports whether every track of song has fired all of its events.
func (s *Scheduler) Done(song *midi.Song) bool {
	for i := range s.cursors {
		if i < song.NumTracks() && s.cursors[i].next < song.Track(i).Len() {
			return false
		}
	}
	return true
}
