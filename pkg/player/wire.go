package player

import (
	"github.com/Garik-/midiplay/pkg/midi"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

// WireMessage returns the MIDI wire bytes of e. Meta events only exist inside
// files and have none.
func WireMessage(e midi.Event) (gomidi.Message, bool) {
	switch m := e.(type) {
	case midi.NoteOn:
		return gomidi.NoteOn(m.Channel, m.Pitch, m.Velocity), true
	case midi.NoteOff:
		return gomidi.NoteOffVelocity(m.Channel, m.Pitch, m.Velocity), true
	case midi.PolyAftertouch:
		return gomidi.PolyAfterTouch(m.Channel, m.Pitch, m.Pressure), true
	case midi.ControllerChange:
		return gomidi.ControlChange(m.Channel, m.Controller, m.Value), true
	case midi.ProgramChange:
		return gomidi.ProgramChange(m.Channel, m.Preset), true
	case midi.ChannelPressure:
		return gomidi.AfterTouch(m.Channel, m.Pressure), true
	case midi.PitchBend:
		return gomidi.Pitchbend(m.Channel, int16(m.Value())-8192), true
	case midi.SongPosition:
		return gomidi.Message{0xF2, m.LSB & 0x7f, m.MSB & 0x7f}, true
	case midi.SongSelect:
		return gomidi.Message{0xF3, m.Song & 0x7f}, true
	case midi.TuneRequest:
		return gomidi.Message{0xF6}, true
	case midi.TimingTick:
		return gomidi.Message{0xF8}, true
	case midi.StartSong:
		return gomidi.Message{0xFA}, true
	case midi.ContinueSong:
		return gomidi.Message{0xFB}, true
	case midi.StopSong:
		return gomidi.Message{0xFC}, true
	case midi.ActiveSensing:
		return gomidi.Message{0xFE}, true
	}
	return nil, false
}

// WireSink forwards events as wire messages to send, which has the signature
// of the function returned by gomidi.SendTo. Meta events are dropped. Send
// errors are logged and the first one is kept.
type WireSink struct {
	send    func(msg gomidi.Message) error
	err     error
	sent    int
	dropped int
}

func NewWireSink(send func(msg gomidi.Message) error) *WireSink {
	return &WireSink{send: send}
}

func (w *WireSink) Send(e midi.Event) {
	msg, ok := WireMessage(e)
	if !ok {
		w.dropped++
		sinkLog.Debug("dropping meta event", zap.Stringer("kind", e.Kind()))
		return
	}

	if err := w.send(msg); err != nil {
		sinkLog.Warn("send failed", zap.Stringer("msg", msg), zap.Error(err))
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.sent++
}

// Err returns the first send error.
func (w *WireSink) Err() error {
	return w.err
}

// Sent returns the number of messages delivered without error.
func (w *WireSink) Sent() int {
	return w.sent
}

// Dropped returns the number of meta events that were not sent.
func (w *WireSink) Dropped() int {
	return w.dropped
}
