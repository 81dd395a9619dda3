package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/models"
)

type countingLogger struct {
	events []string
}

func (c *countingLogger) LogPhase(state models.State, _ string) {
	c.events = append(c.events, "phase:"+string(state))
}
func (c *countingLogger) LogCopy(src, _ string) { c.events = append(c.events, "copy:"+src) }
func (c *countingLogger) LogRename(from, _ string) { c.events = append(c.events, "rename:"+from) }
func (c *countingLogger) LogFailure(f models.EntryFailure) {
	c.events = append(c.events, "failure:"+f.Path)
}
func (c *countingLogger) LogSummary(*models.RunResult) { c.events = append(c.events, "summary") }

func TestMultiLogger_FansOut(t *testing.T) {
	a, b := &countingLogger{}, &countingLogger{}
	ml := NewMultiLogger(a, nil, b)
	assert.Equal(t, 2, ml.Len())

	ml.LogPhase(models.StateCopying, "")
	ml.LogCopy("/x.log", "x.log")
	ml.LogRename("x.log", "x.txt")
	ml.LogFailure(models.EntryFailure{Path: "/y.log"})
	ml.LogSummary(&models.RunResult{})

	want := []string{"phase:COPYING", "copy:/x.log", "rename:x.log", "failure:/y.log", "summary"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestMultiLogger_WithConsoleAndProgress(t *testing.T) {
	console, progress := &bytes.Buffer{}, &bytes.Buffer{}
	var l flatten.Logger = NewMultiLogger(
		NewConsoleLogger(console, "info"),
		NewProgressLogger(progress, false),
		NewNoOpLogger(),
	)

	l.LogPhase(models.StateCopying, "")
	l.LogCopy("/x.log", "x.log")

	assert.Contains(t, console.String(), "COPYING")
	assert.Contains(t, progress.String(), "Copying 1 files")
}

func TestMultiLogger_Empty(t *testing.T) {
	ml := NewMultiLogger()
	assert.Zero(t, ml.Len())
	assert.NotPanics(t, func() { ml.LogSummary(nil) })
}
