// Package logx provides the structured logging contract used by the
// dispatcher, the worker pool, and the scheduling adapter. Logging itself
// is an out-of-scope collaborator (spec-wise, diagnostic output is never
// load-bearing for correctness) but a real implementation still needs one,
// so this package pins the interface to a concrete zap-backed adapter
// rather than leaving call sites to fall back on the standard library's
// bare log package.
package logx

import "go.uber.org/zap"

// Logger is the minimal structured-logging contract consumed across this
// module. It matches the shape most of the collaborator code in this
// repo's lineage already expects (Debugf/Infof/Warnf/Errorf), so existing
// call sites need no reshaping to adopt a real backend.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// zapLogger adapts a *zap.SugaredLogger to the Logger contract.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap wraps z as a Logger.
func NewZap(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

// NewProduction builds a production zap.Logger (JSON, info level) and
// wraps it as a Logger. Errors constructing the underlying logger fall
// back to a no-op logger rather than panicking a library caller.
func NewProduction() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		return NewNop()
	}
	return NewZap(z)
}

// NewDevelopment builds a development zap.Logger (console, debug level)
// and wraps it as a Logger.
func NewDevelopment() Logger {
	z, err := zap.NewDevelopment()
	if err != nil {
		return NewNop()
	}
	return NewZap(z)
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// nopLogger discards everything. Used as the default so library code
// never needs a nil check before logging.
type nopLogger struct{}

// NewNop returns a Logger that discards all output.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
