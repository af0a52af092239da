package midi

import (
	"fmt"
	"strings"
)

// Kind identifies the concrete type behind an Event.
type Kind int

const (
	KindNoteOff Kind = iota + 1
	KindNoteOn
	KindPolyAftertouch
	KindControllerChange
	KindProgramChange
	KindChannelPressure
	KindPitchBend

	KindSongPosition
	KindSongSelect
	KindTuneRequest
	KindTimingTick
	KindStartSong
	KindContinueSong
	KindStopSong
	KindActiveSensing

	KindText
	KindCopyright
	KindTrackName
	KindInstrumentName
	KindLyrics
	KindMarker
	KindDeviceName
	KindMidiPort
	KindEndOfTrack
	KindSetTempo
	KindSMPTEOffset
	KindTimeSignature
	KindKeySignature
	KindUnknownMeta
)

var kindNames = map[Kind]string{
	KindNoteOff:          "NoteOff",
	KindNoteOn:           "NoteOn",
	KindPolyAftertouch:   "PolyAftertouch",
	KindControllerChange: "ControllerChange",
	KindProgramChange:    "ProgramChange",
	KindChannelPressure:  "ChannelPressure",
	KindPitchBend:        "PitchBend",
	KindSongPosition:     "SongPosition",
	KindSongSelect:       "SongSelect",
	KindTuneRequest:      "TuneRequest",
	KindTimingTick:       "TimingTick",
	KindStartSong:        "StartSong",
	KindContinueSong:     "ContinueSong",
	KindStopSong:         "StopSong",
	KindActiveSensing:    "ActiveSensing",
	KindText:             "Text",
	KindCopyright:        "Copyright",
	KindTrackName:        "TrackName",
	KindInstrumentName:   "InstrumentName",
	KindLyrics:           "Lyrics",
	KindMarker:           "Marker",
	KindDeviceName:       "DeviceName",
	KindMidiPort:         "MidiPort",
	KindEndOfTrack:       "EndOfTrack",
	KindSetTempo:         "SetTempo",
	KindSMPTEOffset:      "SMPTEOffset",
	KindTimeSignature:    "TimeSignature",
	KindKeySignature:     "KeySignature",
	KindUnknownMeta:      "UnknownMeta",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsChannel reports whether k is a channel voice message.
func (k Kind) IsChannel() bool {
	return KindNoteOff <= k && k <= KindPitchBend
}

// IsMeta reports whether k only exists inside a file and never on the wire.
func (k Kind) IsMeta() bool {
	return KindText <= k && k <= KindUnknownMeta
}

// Event is one decoded track event.
type Event interface {
	Kind() Kind
	String() string
}

type NoteOff struct {
	Channel  uint8
	Pitch    uint8
	Velocity uint8
}

func (NoteOff) Kind() Kind { return KindNoteOff }

func (e NoteOff) String() string {
	return fmt.Sprintf("NoteOff ch=%d pitch=%d (%s) vel=%d", e.Channel, e.Pitch, NoteName(e.Pitch), e.Velocity)
}

// NoteOn with Velocity 0 is a note off by convention; it is kept as NoteOn.
type NoteOn struct {
	Channel  uint8
	Pitch    uint8
	Velocity uint8
}

func (NoteOn) Kind() Kind { return KindNoteOn }

func (e NoteOn) String() string {
	return fmt.Sprintf("NoteOn ch=%d pitch=%d (%s) vel=%d", e.Channel, e.Pitch, NoteName(e.Pitch), e.Velocity)
}

type PolyAftertouch struct {
	Channel  uint8
	Pitch    uint8
	Pressure uint8
}

func (PolyAftertouch) Kind() Kind { return KindPolyAftertouch }

func (e PolyAftertouch) String() string {
	return fmt.Sprintf("PolyAftertouch ch=%d pitch=%d pressure=%d", e.Channel, e.Pitch, e.Pressure)
}

type ControllerChange struct {
	Channel    uint8
	Controller uint8
	Value      uint8
}

func (ControllerChange) Kind() Kind { return KindControllerChange }

func (e ControllerChange) String() string {
	return fmt.Sprintf("ControllerChange ch=%d controller=%d value=%d", e.Channel, e.Controller, e.Value)
}

type ProgramChange struct {
	Channel uint8
	Preset  uint8
}

func (ProgramChange) Kind() Kind { return KindProgramChange }

func (e ProgramChange) String() string {
	return fmt.Sprintf("ProgramChange ch=%d preset=%d", e.Channel, e.Preset)
}

type ChannelPressure struct {
	Channel  uint8
	Pressure uint8
}

func (ChannelPressure) Kind() Kind { return KindChannelPressure }

func (e ChannelPressure) String() string {
	return fmt.Sprintf("ChannelPressure ch=%d pressure=%d", e.Channel, e.Pressure)
}

type PitchBend struct {
	Channel uint8
	LSB     uint8
	MSB     uint8
}

func (PitchBend) Kind() Kind { return KindPitchBend }

// Value returns the 14 bit bend amount, 0x2000 being the center.
func (e PitchBend) Value() uint16 {
	return uint16(e.MSB&0x7f)<<7 | uint16(e.LSB&0x7f)
}

func (e PitchBend) String() string {
	return fmt.Sprintf("PitchBend ch=%d value=%d", e.Channel, e.Value())
}

type SongPosition struct {
	LSB uint8
	MSB uint8
}

func (SongPosition) Kind() Kind { return KindSongPosition }

// Beats returns the position in sixteenth notes since the start of the song.
func (e SongPosition) Beats() uint16 {
	return uint16(e.MSB&0x7f)<<7 | uint16(e.LSB&0x7f)
}

func (e SongPosition) String() string {
	return fmt.Sprintf("SongPosition %d", e.Beats())
}

type SongSelect struct {
	Song uint8
}

func (SongSelect) Kind() Kind { return KindSongSelect }

func (e SongSelect) String() string {
	return fmt.Sprintf("SongSelect %d", e.Song)
}

type TuneRequest struct{}

func (TuneRequest) Kind() Kind     { return KindTuneRequest }
func (TuneRequest) String() string { return "TuneRequest" }

type TimingTick struct{}

func (TimingTick) Kind() Kind     { return KindTimingTick }
func (TimingTick) String() string { return "TimingTick" }

type StartSong struct{}

func (StartSong) Kind() Kind     { return KindStartSong }
func (StartSong) String() string { return "StartSong" }

type ContinueSong struct{}

func (ContinueSong) Kind() Kind     { return KindContinueSong }
func (ContinueSong) String() string { return "ContinueSong" }

type StopSong struct{}

func (StopSong) Kind() Kind     { return KindStopSong }
func (StopSong) String() string { return "StopSong" }

type ActiveSensing struct{}

func (ActiveSensing) Kind() Kind     { return KindActiveSensing }
func (ActiveSensing) String() string { return "ActiveSensing" }

type Text struct {
	Text string
}

func (Text) Kind() Kind { return KindText }

func (e Text) String() string { return fmt.Sprintf("Text %q", e.Text) }

type Copyright struct {
	Text string
}

func (Copyright) Kind() Kind { return KindCopyright }

func (e Copyright) String() string { return fmt.Sprintf("Copyright %q", e.Text) }

type TrackName struct {
	Name string
}

func (TrackName) Kind() Kind { return KindTrackName }

func (e TrackName) String() string { return fmt.Sprintf("TrackName %q", e.Name) }

type InstrumentName struct {
	Name string
}

func (InstrumentName) Kind() Kind { return KindInstrumentName }

func (e InstrumentName) String() string { return fmt.Sprintf("InstrumentName %q", e.Name) }

type Lyrics struct {
	Text string
}

func (Lyrics) Kind() Kind { return KindLyrics }

func (e Lyrics) String() string { return fmt.Sprintf("Lyrics %q", e.Text) }

type Marker struct {
	Text string
}

func (Marker) Kind() Kind { return KindMarker }

func (e Marker) String() string { return fmt.Sprintf("Marker %q", e.Text) }

type DeviceName struct {
	Name string
}

func (DeviceName) Kind() Kind { return KindDeviceName }

func (e DeviceName) String() string { return fmt.Sprintf("DeviceName %q", e.Name) }

type MidiPort struct {
	Port uint8
}

func (MidiPort) Kind() Kind { return KindMidiPort }

func (e MidiPort) String() string { return fmt.Sprintf("MidiPort %d", e.Port) }

type EndOfTrack struct{}

func (EndOfTrack) Kind() Kind     { return KindEndOfTrack }
func (EndOfTrack) String() string { return "EndOfTrack" }

type SetTempo struct {
	MicrosecondsPerQuarterNote uint32
}

func (SetTempo) Kind() Kind { return KindSetTempo }

// BPM returns the tempo in quarter notes per minute, 0 for a zero tempo.
func (e SetTempo) BPM() float64 {
	if e.MicrosecondsPerQuarterNote == 0 {
		return 0
	}
	return 60000000 / float64(e.MicrosecondsPerQuarterNote)
}

func (e SetTempo) String() string {
	return fmt.Sprintf("SetTempo %dus/quarter (%.2f bpm)", e.MicrosecondsPerQuarterNote, e.BPM())
}

type SMPTEOffset struct {
	Hours     uint8
	Minutes   uint8
	Seconds   uint8
	Frames    uint8
	FracFrame uint8
}

func (SMPTEOffset) Kind() Kind { return KindSMPTEOffset }

func (e SMPTEOffset) String() string {
	return fmt.Sprintf("SMPTEOffset %02d:%02d:%02d.%02d.%02d", e.Hours, e.Minutes, e.Seconds, e.Frames, e.FracFrame)
}

// TimeSignature holds the raw meta bytes: numerator, denominator as a power
// of two, MIDI clocks per metronome click and 32nd notes per quarter note.
type TimeSignature struct {
	Numerator      uint8
	Denominator    uint8
	ClocksPerClick uint8
	ThirtySeconds  uint8
}

func (TimeSignature) Kind() Kind { return KindTimeSignature }

func (e TimeSignature) String() string {
	return fmt.Sprintf("TimeSignature %d/%d", e.Numerator, 1<<(e.Denominator&0x1f))
}

// KeySignature holds the raw meta bytes: sharps (positive) or flats
// (negative, two's complement) and 1 for minor.
type KeySignature struct {
	SharpsFlats uint8
	Minor       uint8
}

func (KeySignature) Kind() Kind { return KindKeySignature }

func (e KeySignature) String() string {
	mode := "major"
	if e.Minor != 0 {
		mode = "minor"
	}
	return fmt.Sprintf("KeySignature %d %s", int8(e.SharpsFlats), mode)
}

// UnknownMeta keeps a meta event this package does not interpret.
type UnknownMeta struct {
	Type uint8
	Data []byte
}

func (UnknownMeta) Kind() Kind { return KindUnknownMeta }

func (e UnknownMeta) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "UnknownMeta type=%#02x len=%d", e.Type, len(e.Data))
	if len(e.Data) > 0 {
		fmt.Fprintf(&b, " data=% x", e.Data)
	}
	return b.String()
}
