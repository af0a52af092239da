package player

import (
	"bytes"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/Garik-/midiplay/pkg/midi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id string, body []byte) []byte {
	b := make([]byte, 8, 8+len(body))
	copy(b, id)
	binary.BigEndian.PutUint32(b[4:], uint32(len(body)))
	return append(b, body...)
}

func parseSong(t *testing.T, ppqn uint16, tracks ...[]byte) *midi.Song {
	t.Helper()

	hdr := []byte{0, 1, byte(len(tracks) >> 8), byte(len(tracks)), byte(ppqn >> 8), byte(ppqn)}
	parts := [][]byte{chunk("MThd", hdr)}
	for _, tr := range tracks {
		parts = append(parts, chunk("MTrk", tr))
	}

	song, err := midi.Parse(bytes.Join(parts, nil))
	require.NoError(t, err)
	return song
}

func vlq(v uint32) []byte {
	out := []byte{byte(v & 0x7f)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7f) | 0x80}, out...)
	}
	return out
}

func noteOn(delta uint32, pitch uint8) []byte {
	return append(vlq(delta), 0x90, pitch, 100)
}

func noteOff(delta uint32, pitch uint8) []byte {
	return append(vlq(delta), 0x80, pitch, 0)
}

func tempo(delta uint32, us uint32) []byte {
	return append(vlq(delta), 0xFF, 0x51, 3, byte(us>>16), byte(us>>8), byte(us))
}

func endOfTrack(delta uint32) []byte {
	return append(vlq(delta), 0xFF, 0x2F, 0)
}

func track(events ...[]byte) []byte {
	return bytes.Join(events, nil)
}

// tempoTrack fires at ticks 0 (tempo), 240, 480, 720 and 720.
func tempoTrack() []byte {
	return track(
		tempo(0, 500000),
		noteOn(240, 60),
		noteOff(240, 60),
		noteOn(240, 62),
		endOfTrack(0),
	)
}

func TestSchedulerDefaultTempo(t *testing.T) {
	song := parseSong(t, 96, track(noteOn(96, 60)))
	s := New(song)

	assert.Equal(t, uint32(500000), s.Tempo())
	assert.InDelta(t, 1.0/192, s.PulseDuration(), 1e-15)

	var q Queue
	s.Update(0.49, song, &q)
	assert.Equal(t, 0, q.Len())

	s.Update(0.02, song, &q)
	assert.Equal(t, []midi.Event{midi.NoteOn{Pitch: 60, Velocity: 100}}, q.Events())
}

func TestSchedulerTempoApplication(t *testing.T) {
	song := parseSong(t, 480, tempoTrack())
	s := New(song)
	pulse := 500000.0 / (480 * 1000000.0)

	var q Queue
	s.Update(480*pulse, song, &q)

	assert.InDelta(t, 0.0010417, s.PulseDuration(), 1e-7)
	assert.Equal(t, pulse, s.PulseDuration())
	assert.Equal(t, []midi.Event{
		midi.NoteOn{Pitch: 60, Velocity: 100},
		midi.NoteOff{Pitch: 60},
	}, q.Drain(), "exactly the events due within 480 ticks, without the tempo event")

	s.Update(240*pulse, song, &q)
	assert.Equal(t, []midi.Event{
		midi.NoteOn{Pitch: 62, Velocity: 100},
		midi.EndOfTrack{},
	}, q.Drain())
	assert.True(t, s.Done(song))
}

func TestSchedulerBoundaryEpsilon(t *testing.T) {
	song := parseSong(t, 480, tempoTrack())
	s := New(song)
	pulse := 500000.0 / (480 * 1000000.0)

	var q Queue
	s.Update(480*pulse-1e-6, song, &q)
	assert.Equal(t, []midi.Event{midi.NoteOn{Pitch: 60, Velocity: 100}}, q.Drain(), "event at tick 480 is not due yet")

	s.Update(2e-6, song, &q)
	assert.Equal(t, []midi.Event{midi.NoteOff{Pitch: 60}}, q.Drain())
	assert.False(t, s.Done(song))
}

// accumulationTrack doubles the tempo at one second.
func accumulationTrack() []byte {
	events := [][]byte{noteOn(0, 40)}
	for i := 0; i < 4; i++ {
		events = append(events, noteOn(240, uint8(41+i)))
	}
	events = append(events, tempo(0, 250000))
	for i := 0; i < 12; i++ {
		events = append(events, noteOff(240, uint8(50+i)))
	}
	events = append(events, endOfTrack(0))
	return track(events...)
}

func TestSchedulerAccumulationDeterminism(t *testing.T) {
	song := parseSong(t, 480, accumulationTrack())
	const dt = 1.0 / 1024

	for _, steps := range []int{1, 300, 1088, 3072} {
		var small, big Queue

		fine := New(song)
		for i := 0; i < steps; i++ {
			fine.Update(dt, song, &small)
		}

		coarse := New(song)
		coarse.Update(float64(steps)*dt, song, &big)

		assert.Equal(t, big.Events(), small.Events(), "%d steps", steps)
		assert.Equal(t, coarse.Tempo(), fine.Tempo(), "%d steps", steps)
	}

	s := New(song)
	var all Queue
	s.Update(3, song, &all)
	assert.Equal(t, 18, all.Len())
	assert.True(t, s.Done(song))
}

func TestSchedulerFiresExactlyTheDueTicks(t *testing.T) {
	for _, ppqn := range []uint16{96, 120, 192, 384, 480, 960} {
		for _, delta := range []uint32{1, 3, 7, 10, 13} {
			for n := 1; n <= 40; n++ {
				events := make([][]byte, n)
				for i := range events {
					events[i] = noteOn(delta, uint8(i))
				}
				song := parseSong(t, ppqn, track(events...))
				due := float64(n*int(delta)) * New(song).PulseDuration()

				var q Queue
				New(song).Update(due, song, &q)
				assert.Equal(t, n, q.Len(), "ppqn=%d delta=%d n=%d", ppqn, delta, n)

				var early Queue
				New(song).Update(due-1e-6, song, &early)
				assert.Equal(t, n-1, early.Len(), "ppqn=%d delta=%d n=%d short by 1µs", ppqn, delta, n)
			}
		}
	}
}

func oneTickTrack(n int) []byte {
	events := make([][]byte, n)
	for i := range events {
		events[i] = noteOn(1, uint8(i%128))
	}
	return track(events...)
}

func TestSchedulerMillisecondSteps(t *testing.T) {
	tests := []struct {
		name  string
		ppqn  uint16
		track []byte
	}{
		{"tempo change", 480, accumulationTrack()},
		{"one tick deltas at 96", 96, oneTickTrack(300)},
		{"one tick deltas at 120", 120, oneTickTrack(300)},
	}

	const dt = 0.001
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song := parseSong(t, tt.ppqn, tt.track)

			for _, steps := range []int{1, 100, 250, 500, 1000, 1250, 1500, 2000, 2500, 3000} {
				var small, product, sum Queue

				fine := New(song)
				total := 0.0
				for i := 0; i < steps; i++ {
					fine.Update(dt, song, &small)
					total += dt
				}

				New(song).Update(float64(steps)*dt, song, &product)
				New(song).Update(total, song, &sum)

				assert.Equal(t, product.Events(), small.Events(), "%d steps", steps)
				assert.Equal(t, sum.Events(), small.Events(), "%d steps against the summed step", steps)
			}
		})
	}
}

func TestSchedulerTempoIsSharedAcrossTracks(t *testing.T) {
	song := parseSong(t, 480,
		track(tempo(0, 250000), endOfTrack(0)),
		track(noteOn(480, 60)),
	)
	s := New(song)

	var q Queue
	s.Update(0.3, song, &q)
	assert.Equal(t, []midi.Event{
		midi.EndOfTrack{},
		midi.NoteOn{Pitch: 60, Velocity: 100},
	}, q.Events())
}

func TestSchedulerTracksAdvanceIndependently(t *testing.T) {
	song := parseSong(t, 96,
		track(noteOn(96, 60), noteOn(96, 61)),
		track(noteOn(48, 70), noteOn(48, 71)),
	)
	s := New(song)

	var q Queue
	s.Update(1.1, song, &q)
	assert.Equal(t, []midi.Event{
		midi.NoteOn{Pitch: 60, Velocity: 100},
		midi.NoteOn{Pitch: 61, Velocity: 100},
		midi.NoteOn{Pitch: 70, Velocity: 100},
		midi.NoteOn{Pitch: 71, Velocity: 100},
	}, q.Events(), "no cross track sort within one step")
}

func TestSchedulerIgnoresZeroTempo(t *testing.T) {
	song := parseSong(t, 96, track(tempo(0, 0), noteOn(96, 60)))
	s := New(song)
	before := s.PulseDuration()

	var q Queue
	s.Update(0.49, song, &q)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, before, s.PulseDuration())
	assert.Equal(t, uint32(500000), s.Tempo())

	s.Update(0.02, song, &q)
	assert.Equal(t, 1, q.Len())
}

func TestSchedulerZeroDivision(t *testing.T) {
	song := parseSong(t, 0, track(noteOn(1, 60)))
	s := New(song)
	assert.Equal(t, 0.5, s.PulseDuration())

	var q Queue
	s.Update(0.5, song, &q)
	assert.Equal(t, 1, q.Len())
}

func TestSchedulerIgnoresNegativeStep(t *testing.T) {
	song := parseSong(t, 96, track(noteOn(0, 60)))
	s := New(song)

	var q Queue
	s.Update(-1, song, &q)
	assert.Equal(t, 0, q.Len())

	s.Update(0, song, &q)
	assert.Equal(t, 1, q.Len(), "delta 0 events fire on a zero step")
}

func TestSchedulerReset(t *testing.T) {
	song := parseSong(t, 480, track(tempo(0, 250000)), track(noteOn(480, 60), endOfTrack(0)))
	s := New(song)

	var first Queue
	s.Update(10, song, &first)
	require.True(t, s.Done(song))
	assert.Equal(t, uint32(250000), s.Tempo())

	s.Reset(song)
	assert.False(t, s.Done(song))
	assert.Equal(t, uint32(500000), s.Tempo())
	assert.Equal(t, 1.0/960, s.PulseDuration())

	var second Queue
	s.Update(10, song, &second)
	assert.Equal(t, first.Events(), second.Events())
}

func TestSchedulerResetToOtherSong(t *testing.T) {
	one := parseSong(t, 96, track(noteOn(0, 60)))
	three := parseSong(t, 96, track(noteOn(0, 60)), track(noteOn(0, 61)), track(noteOn(0, 62)))

	s := New(one)
	s.Reset(three)

	var q Queue
	s.Update(0, three, &q)
	assert.Equal(t, 3, q.Len())

	s.Reset(one)
	s.Update(0, three, &q)
	assert.Equal(t, 4, q.Len(), "cursors follow the song given to Reset")
}

func TestSchedulerAdvance(t *testing.T) {
	song := parseSong(t, 96, track(noteOn(96, 60)))
	s := New(song)

	var q Queue
	s.Advance(300*time.Millisecond, song, &q)
	assert.Equal(t, 0, q.Len())
	s.Advance(300*time.Millisecond, song, &q)
	assert.Equal(t, 1, q.Len())
}

func TestSchedulersShareSong(t *testing.T) {
	song := parseSong(t, 480, accumulationTrack(), tempoTrack())

	const players = 8
	results := make([][]midi.Event, players)

	var wg sync.WaitGroup
	for p := 0; p < players; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()

			s := New(song)
			var q Queue
			for !s.Done(song) {
				s.Update(1.0/1024, song, &q)
			}
			results[p] = q.Events()
		}(p)
	}
	wg.Wait()

	for p := 1; p < players; p++ {
		assert.Equal(t, results[0], results[p])
	}
	assert.Len(t, results[0], 22)
}

func TestSinks(t *testing.T) {
	song := parseSong(t, 96, track(noteOn(0, 60), noteOff(0, 60)))

	var got []midi.Event
	New(song).Update(0, song, SinkFunc(func(e midi.Event) {
		got = append(got, e)
	}))
	assert.Len(t, got, 2)

	ch := make(chan midi.Event, 2)
	New(song).Update(0, song, ChanSink(ch))
	close(ch)
	var fromChan []midi.Event
	for e := range ch {
		fromChan = append(fromChan, e)
	}
	assert.Equal(t, got, fromChan)

	var q Queue
	New(song).Update(0, song, &q)
	assert.Equal(t, got, q.Drain())
	assert.Equal(t, 0, q.Len())
}
