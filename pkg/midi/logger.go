package midi

import "go.uber.org/zap"

var decoderLog = zap.NewNop()

// SetLogger enables decoder diagnostics. A nil logger disables them again.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	decoderLog = l
}
