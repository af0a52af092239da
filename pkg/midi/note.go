package midi

import "strconv"

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClass returns the name of a semitone within an octave, 0 being C.
func PitchClass(semitone int) (string, bool) {
	if semitone < 0 || semitone >= len(noteNames) {
		return "", false
	}
	return noteNames[semitone], true
}

// NoteName returns the note name with its octave number; pitch 60 is C5.
func NoteName(pitch uint8) string {
	name, _ := PitchClass(int(pitch % 12))
	return name + strconv.Itoa(int(pitch/12))
}
