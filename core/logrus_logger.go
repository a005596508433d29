package core

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogrusAdapter exposes a logrus.Logger through the Logger interface the
// runner and the middlewares log against.
//
// logrus's own caller reporting would blame the adapter for every entry, so
// the adapter resolves the real call site itself and injects it while the
// logger's ReportCaller is switched off.
type LogrusAdapter struct {
	*logrus.Logger
	mu sync.Mutex // guards the ReportCaller toggle
}

var _ Logger = (*LogrusAdapter)(nil)

func (l *LogrusAdapter) Criticalf(format string, args ...any) {
	l.logf(logrus.FatalLevel, format, args...)
}

func (l *LogrusAdapter) Errorf(format string, args ...any) {
	l.logf(logrus.ErrorLevel, format, args...)
}

func (l *LogrusAdapter) Warningf(format string, args ...any) {
	l.logf(logrus.WarnLevel, format, args...)
}

func (l *LogrusAdapter) Noticef(format string, args ...any) {
	l.logf(logrus.InfoLevel, format, args...)
}

func (l *LogrusAdapter) Debugf(format string, args ...any) {
	l.logf(logrus.DebugLevel, format, args...)
}

func (l *LogrusAdapter) logf(level logrus.Level, format string, args ...any) {
	// skip callerFrame, logf and the exported wrapper
	frame := callerFrame(3)

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.Logger.ReportCaller
	l.Logger.ReportCaller = false
	defer func() { l.Logger.ReportCaller = prev }()

	entry := logrus.NewEntry(l.Logger)
	entry.Caller = frame
	entry.Logf(level, format, args...)
}

func callerFrame(skip int) *runtime.Frame {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return nil
	}
	return &runtime.Frame{PC: pc, File: file, Line: line, Function: runtime.FuncForPC(pc).Name()}
}
