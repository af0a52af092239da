package midi

import (
	"fmt"
	"math"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	headerChunkID = [4]byte{0x4D, 0x54, 0x68, 0x64}
	trackChunkID  = [4]byte{0x4D, 0x54, 0x72, 0x6B}
)

// headerPayloadSize is the part of MThd this package reads. Longer headers
// have the rest skipped.
const headerPayloadSize = 6

const (
	metaText           = 0x01
	metaCopyright      = 0x02
	metaTrackName      = 0x03
	metaInstrumentName = 0x04
	metaLyrics         = 0x05
	metaMarker         = 0x06
	metaDeviceName     = 0x09
	metaMidiPort       = 0x21
	metaEndOfTrack     = 0x2F
	metaSetTempo       = 0x51
	metaSMPTEOffset    = 0x54
	metaTimeSignature  = 0x58
	metaKeySignature   = 0x59
)

// Parse decodes a complete Standard MIDI File. Any failure in the header or
// in any track voids the whole song.
func Parse(data []byte) (*Song, error) {
	log := decoderLog.Named("parse")
	c := newCursor(data)

	header, err := readHeader(c)
	if err != nil {
		return nil, err
	}

	song := &Song{header: header}

	for c.remaining() > 0 {
		start := c.pos
		id, length, err := readChunkHeader(c)
		if err != nil {
			return nil, &DecodeError{Track: headerTrack, Offset: start, Err: err}
		}

		if id != trackChunkID {
			log.Debug("skipping chunk", zap.String("id", printableID(id)), zap.Uint32("length", length), zap.Int("offset", start))
			if err := c.skip(chunkLen(length)); err != nil {
				return nil, &DecodeError{Track: headerTrack, Offset: start, Err: err}
			}
			continue
		}

		index := len(song.tracks)
		body, err := c.readBytes(chunkLen(length))
		if err != nil {
			return nil, &DecodeError{Track: index, Offset: start, Err: err}
		}

		base := c.pos - len(body)
		track, off, err := decodeTrack(body, log.With(zap.Int("track", index)))
		if err != nil {
			return nil, &DecodeError{Track: index, Offset: base + off, Err: err}
		}
		song.tracks = append(song.tracks, track)
	}

	if int(header.TrackCount) != len(song.tracks) {
		log.Warn("track count mismatch", zap.Uint16("declared", header.TrackCount), zap.Int("found", len(song.tracks)))
	}

	return song, nil
}

func readHeader(c *cursor) (Header, error) {
	var h Header

	id, length, err := readChunkHeader(c)
	if err != nil {
		return h, &DecodeError{Track: headerTrack, Offset: c.pos, Err: err}
	}
	if id != headerChunkID {
		return h, &DecodeError{Track: headerTrack, Offset: 0, Err: fmt.Errorf("%w: %q", ErrInvalidMagic, id[:])}
	}

	start := c.pos
	if h.Format, err = c.readU16(); err != nil {
		return h, &DecodeError{Track: headerTrack, Offset: c.pos, Err: err}
	}
	if h.TrackCount, err = c.readU16(); err != nil {
		return h, &DecodeError{Track: headerTrack, Offset: c.pos, Err: err}
	}
	division, err := c.readU16()
	if err != nil {
		return h, &DecodeError{Track: headerTrack, Offset: c.pos, Err: err}
	}
	h.Division = Division(division)

	if length > headerPayloadSize {
		if err := c.skip(chunkLen(length - headerPayloadSize)); err != nil {
			return h, &DecodeError{Track: headerTrack, Offset: start, Err: err}
		}
	}

	return h, nil
}

func readChunkHeader(c *cursor) ([4]byte, uint32, error) {
	start := c.pos
	id, err := c.readID()
	if err != nil {
		return id, 0, err
	}
	length, err := c.readU32()
	if err != nil {
		c.pos = start
		return id, 0, err
	}
	return id, length, nil
}

// chunkLen converts a declared chunk length to int. Lengths that do not fit
// become -1, which every cursor read rejects as truncated.
func chunkLen(length uint32) int {
	if uint64(length) > uint64(math.MaxInt) {
		return -1
	}
	return int(length)
}

func printableID(id [4]byte) string {
	for _, b := range id {
		if b < 0x20 || b > 0x7e {
			return fmt.Sprintf("% x", id[:])
		}
	}
	return string(id[:])
}

// trackDecoder decodes the events of one MTrk chunk. Running status lives
// here and dies with the track.
type trackDecoder struct {
	c             *cursor
	log           *zap.Logger
	runningStatus uint8
}

// decodeTrack decodes body, returning the offset within body of the event that
// failed on error.
func decodeTrack(body []byte, log *zap.Logger) (Track, int, error) {
	td := &trackDecoder{c: newCursor(body), log: log}
	// Guess three bytes per event.
	track := Track{
		deltas: make([]uint32, 0, len(body)/3),
		events: make([]Event, 0, len(body)/3),
	}

	for td.c.remaining() > 0 {
		start := td.c.pos

		delta, err := td.c.readVLQ()
		if err != nil {
			return Track{}, start, err
		}
		if delta > math.MaxUint32 {
			return Track{}, start, fmt.Errorf("%w: delta time %d", ErrVLQOverflow, delta)
		}

		e, err := td.readEvent()
		if err != nil {
			return Track{}, start, err
		}

		track.deltas = append(track.deltas, uint32(delta))
		track.events = append(track.events, e)
	}

	return track, 0, nil
}

func (td *trackDecoder) readEvent() (Event, error) {
	// status byte give us the msg type and channel.
	b, err := td.c.peekU8()
	if err != nil {
		return nil, err
	}
	if b&0x80 != 0 {
		td.runningStatus = b
		td.c.pos++
	}

	status := td.runningStatus
	ch := status & 0x0F

	switch status >> 4 {
	case 0x8:
		pitch, velocity, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return NoteOff{Channel: ch, Pitch: pitch, Velocity: velocity}, nil

	case 0x9:
		pitch, velocity, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return NoteOn{Channel: ch, Pitch: pitch, Velocity: velocity}, nil

	case 0xA:
		pitch, pressure, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return PolyAftertouch{Channel: ch, Pitch: pitch, Pressure: pressure}, nil

	case 0xB:
		controller, value, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return ControllerChange{Channel: ch, Controller: controller, Value: value}, nil

	case 0xC:
		preset, err := td.c.dataByte()
		if err != nil {
			return nil, err
		}
		return ProgramChange{Channel: ch, Preset: preset}, nil

	case 0xD:
		pressure, err := td.c.dataByte()
		if err != nil {
			return nil, err
		}
		return ChannelPressure{Channel: ch, Pressure: pressure}, nil

	case 0xE:
		lsb, msb, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return PitchBend{Channel: ch, LSB: lsb, MSB: msb}, nil

	case 0xF:
		return td.readSystem(status)
	}

	if status == 0 {
		return nil, fmt.Errorf("%w: data byte %#02x without running status", ErrUnsupportedEvent, b)
	}
	return nil, fmt.Errorf("%w: status %#02x", ErrUnsupportedEvent, status)
}

func (td *trackDecoder) dataPair() (uint8, uint8, error) {
	start := td.c.pos
	first, err := td.c.dataByte()
	if err != nil {
		return 0, 0, err
	}
	second, err := td.c.dataByte()
	if err != nil {
		td.c.pos = start
		return 0, 0, err
	}
	return first, second, nil
}

func (td *trackDecoder) readSystem(status uint8) (Event, error) {
	switch status {
	case 0xFF:
		return td.readMeta()
	case 0xF2:
		lsb, msb, err := td.dataPair()
		if err != nil {
			return nil, err
		}
		return SongPosition{LSB: lsb, MSB: msb}, nil
	case 0xF3:
		song, err := td.c.dataByte()
		if err != nil {
			return nil, err
		}
		return SongSelect{Song: song}, nil
	case 0xF6:
		return TuneRequest{}, nil
	case 0xF8:
		return TimingTick{}, nil
	case 0xFA:
		return StartSong{}, nil
	case 0xFB:
		return ContinueSong{}, nil
	case 0xFC:
		return StopSong{}, nil
	case 0xFE:
		return ActiveSensing{}, nil
	}

	return nil, fmt.Errorf("%w: system message %#02x", ErrUnsupportedEvent, status)
}

// readMeta reads a meta event after its 0xFF status. The length is a single
// byte.
func (td *trackDecoder) readMeta() (Event, error) {
	start := td.c.pos
	metaType, err := td.c.readU8()
	if err != nil {
		return nil, err
	}
	length, err := td.c.readU8()
	if err != nil {
		td.c.pos = start
		return nil, err
	}
	data, err := td.c.readBytes(int(length))
	if err != nil {
		td.c.pos = start
		return nil, err
	}

	switch metaType {
	case metaText:
		text, err := metaString(data)
		return Text{Text: text}, err
	case metaCopyright:
		text, err := metaString(data)
		return Copyright{Text: text}, err
	case metaTrackName:
		name, err := metaString(data)
		return TrackName{Name: name}, err
	case metaInstrumentName:
		name, err := metaString(data)
		return InstrumentName{Name: name}, err
	case metaLyrics:
		text, err := metaString(data)
		return Lyrics{Text: text}, err
	case metaMarker:
		text, err := metaString(data)
		return Marker{Text: text}, err
	case metaDeviceName:
		name, err := metaString(data)
		return DeviceName{Name: name}, err

	case metaEndOfTrack:
		return EndOfTrack{}, nil

	case metaMidiPort:
		if err := metaSize(metaType, data, 1); err != nil {
			return nil, err
		}
		return MidiPort{Port: data[0]}, nil

	case metaSetTempo:
		if err := metaSize(metaType, data, 3); err != nil {
			return nil, err
		}
		us := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
		return SetTempo{MicrosecondsPerQuarterNote: us}, nil

	case metaSMPTEOffset:
		if err := metaSize(metaType, data, 5); err != nil {
			return nil, err
		}
		return SMPTEOffset{Hours: data[0], Minutes: data[1], Seconds: data[2], Frames: data[3], FracFrame: data[4]}, nil

	case metaTimeSignature:
		if err := metaSize(metaType, data, 4); err != nil {
			return nil, err
		}
		return TimeSignature{Numerator: data[0], Denominator: data[1], ClocksPerClick: data[2], ThirtySeconds: data[3]}, nil

	case metaKeySignature:
		if err := metaSize(metaType, data, 2); err != nil {
			return nil, err
		}
		return KeySignature{SharpsFlats: data[0], Minor: data[1]}, nil
	}

	td.log.Debug("unknown meta event", zap.Uint8("type", metaType), zap.Int("length", len(data)))
	return UnknownMeta{Type: metaType, Data: append([]byte(nil), data...)}, nil
}

func metaString(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}

func metaSize(metaType uint8, data []byte, want int) error {
	if len(data) < want {
		return fmt.Errorf("%w: meta event %#02x needs %d bytes, has %d", ErrTruncatedData, metaType, want, len(data))
	}
	return nil
}
