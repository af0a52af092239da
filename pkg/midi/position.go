package midi

// BeatInBar returns the zero based quarter note an absolute tick falls on,
// counting beatsPerBar quarters per bar.
func BeatInBar(absTicks uint64, ticksPerQuarterNote uint16, beatsPerBar int) int {
	if ticksPerQuarterNote == 0 || beatsPerBar <= 0 {
		return 0
	}
	quarter := absTicks / uint64(ticksPerQuarterNote)
	return int(quarter % uint64(beatsPerBar))
}
