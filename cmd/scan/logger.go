package main

import (
	"github.com/Garik-/midiplay/pkg/midi"
	"go.uber.org/zap"
)

var decoderLog = zap.NewNop()
var velocityMapLog = zap.NewNop()

func enableDebugLogging(l *zap.Logger) {
	decoderLog = l
	velocityMapLog = l
	midi.SetLogger(l)
}
