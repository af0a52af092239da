package main

import (
	"context"

	"github.com/Garik-/midiplay/pkg/midi"
	"go.uber.org/zap"
)

const beatsPerBar = 4

type velocityMap map[uint8]bool
type positionMap map[int]velocityMap
type kindMap map[string]positionMap

// note -> kind -> position -> velocity
type noteMap map[uint8]kindMap

func (m noteMap) add(note uint8, kind midi.Kind, position int, velocity uint8) {
	kinds, ok := m[note]
	if !ok {
		kinds = make(kindMap)
		m[note] = kinds
	}
	positions, ok := kinds[kind.String()]
	if !ok {
		positions = make(positionMap)
		kinds[kind.String()] = positions
	}
	velocities, ok := positions[position]
	if !ok {
		velocities = make(velocityMap)
		positions[position] = velocities
	}
	velocities[velocity] = true
}

func (m noteMap) addSong(song *midi.Song) {
	ppqn := song.PPQN()
	for i := 0; i < song.NumTracks(); i++ {
		track := song.Track(i)
		ticks := track.AbsoluteTicks()

		for j := 0; j < track.Len(); j++ {
			position := midi.BeatInBar(ticks[j], ppqn, beatsPerBar)

			switch e := track.Event(j).(type) {
			case midi.NoteOn:
				if e.Velocity == 0 {
					continue
				}
				m.add(e.Pitch, e.Kind(), position, e.Velocity)
			case midi.NoteOff:
				m.add(e.Pitch, e.Kind(), position, e.Velocity)
			case midi.PolyAftertouch:
				m.add(e.Pitch, e.Kind(), position, e.Pressure)
			}
		}
	}
}

// newVelocityMap decodes every path and merges the note statistics. The first
// file that fails to decode aborts the scan.
func newVelocityMap(parent context.Context, paths <-chan string, cntRoutines int) (noteMap, error) {
	log := velocityMapLog.Named("newVelocityMap")
	ctx, cancel := context.WithCancel(parent)
	results, done := decodeWorker(ctx, paths, cntRoutines)

	defer func() {
		log.Debug("cancel")
		cancel()
		<-done // wait decodeWorker closed
	}()

	m := make(noteMap)

	for result := range results {
		if result.err != nil {
			log.Error("decode failed", zap.String("name", result.name), zap.Error(result.err))
			return nil, result.err
		}

		log.Debug("result",
			zap.String("name", result.name),
			zap.Int("tracks", result.song.NumTracks()),
			zap.Int("events", result.song.NumEvents()))

		m.addSong(result.song)
	}

	return m, nil
}
