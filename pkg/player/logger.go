package player

import "go.uber.org/zap"

var schedulerLog = zap.NewNop()
var sinkLog = zap.NewNop()

// SetLogger enables scheduler and sink diagnostics. A nil logger disables them.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	schedulerLog = l.Named("scheduler")
	sinkLog = l.Named("sink")
}
