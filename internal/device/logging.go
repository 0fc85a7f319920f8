package device

import (
	log "github.com/dsoprea/go-logging"
)

// LogSink is the configurable log destination every failure is logged
// through, with operation name and relevant addresses.
type LogSink interface {
	Debugf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// goLoggingSink adapts github.com/dsoprea/go-logging's leveled logger to
// LogSink. Only the leveled-logging surface is used here; this module
// never adopts go-logging's recover()/PanicIf control-flow idiom, which
// would conflict with this package's explicit sentinel-return discipline.
type goLoggingSink struct {
	lg *log.Logger
}

// NewLogSink returns a LogSink named for the calling package, e.g.
// "flashfeature.slottable".
func NewLogSink(name string) LogSink {
	return goLoggingSink{lg: log.NewLogger(name)}
}

func (s goLoggingSink) Debugf(format string, args ...interface{}) {
	_ = s.lg.Debugf(format, args...)
}

func (s goLoggingSink) Warningf(format string, args ...interface{}) {
	_ = s.lg.Warningf(format, args...)
}

func (s goLoggingSink) Errorf(format string, args ...interface{}) {
	_ = s.lg.Errorf(format, args...)
}

// NoopLogSink discards everything; useful for tests that don't want log
// noise but still need to satisfy the LogSink parameter.
type NoopLogSink struct{}

func (NoopLogSink) Debugf(string, ...interface{})   {}
func (NoopLogSink) Warningf(string, ...interface{}) {}
func (NoopLogSink) Errorf(string, ...interface{})   {}
