package logger

import (
	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/models"
)

var _ flatten.Logger = (*MultiLogger)(nil)

// MultiLogger forwards every event to each wrapped logger in order.
// Nil loggers are dropped at construction.
type MultiLogger struct {
	loggers []flatten.Logger
}

// NewMultiLogger creates a MultiLogger over the given loggers.
func NewMultiLogger(loggers ...flatten.Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

// Len returns the number of wrapped loggers.
func (ml *MultiLogger) Len() int {
	return len(ml.loggers)
}

func (ml *MultiLogger) LogPhase(state models.State, detail string) {
	for _, l := range ml.loggers {
		l.LogPhase(state, detail)
	}
}

func (ml *MultiLogger) LogCopy(src, dest string) {
	for _, l := range ml.loggers {
		l.LogCopy(src, dest)
	}
}

func (ml *MultiLogger) LogRename(from, to string) {
	for _, l := range ml.loggers {
		l.LogRename(from, to)
	}
}

func (ml *MultiLogger) LogFailure(failure models.EntryFailure) {
	for _, l := range ml.loggers {
		l.LogFailure(failure)
	}
}

func (ml *MultiLogger) LogSummary(result *models.RunResult) {
	for _, l := range ml.loggers {
		l.LogSummary(result)
	}
}
