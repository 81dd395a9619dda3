package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/models"
)

// ProgressBar represents an ASCII progress bar with color support.
// A total of 0 means the total is not known yet; the bar then renders as a
// plain counter.
type ProgressBar struct {
	current     int
	total       int
	width       int
	enableColor bool
	prefix      string
	mu          sync.RWMutex
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		total:       total,
		width:       width,
		enableColor: enableColor,
	}
}

// Update sets the current progress value
func (pb *ProgressBar) Update(current int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
}

// Increment increments the current progress by 1
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
}

// Reset sets a new total and zeroes the counter.
func (pb *ProgressBar) Reset(total int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = 0
	pb.total = total
}

// Current returns the current progress value
func (pb *ProgressBar) Current() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.current
}

// Total returns the total progress value
func (pb *ProgressBar) Total() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.total
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percentage()
}

func (pb *ProgressBar) percentage() int {
	if pb.total == 0 {
		return 0
	}
	perc := (pb.current * 100) / pb.total
	return max(0, min(perc, 100))
}

// SetPrefix sets a custom prefix for the progress bar
func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.prefix = prefix
}

// Render generates the ASCII progress bar string
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	if pb.total == 0 {
		result := fmt.Sprintf("%s%d files", pb.prefix, pb.current)
		if pb.enableColor {
			result = color.New(color.FgCyan).Sprint(result)
		}
		return result
	}

	perc := pb.percentage()
	filled := max(0, min((perc*pb.width)/100, pb.width))
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled) + "]"
	result := fmt.Sprintf("%s%s %d/%d (%d%%)", pb.prefix, bar, pb.current, pb.total, perc)

	if pb.enableColor {
		if perc < 100 {
			result = color.New(color.FgCyan).Sprint(result)
		} else {
			result = color.New(color.FgGreen).Sprint(result)
		}
	}
	return result
}

var _ flatten.Logger = (*ProgressLogger)(nil)

// ProgressLogger redraws a single status line as the run advances: a file
// counter while copying (the scan is lazy, so no total is known) and a bar
// while renaming (the total is the number of copies).
type ProgressLogger struct {
	writer io.Writer
	bar    *ProgressBar
	copied int
	active bool
	mu     sync.Mutex
}

// NewProgressLogger creates a ProgressLogger writing to w.
func NewProgressLogger(w io.Writer, enableColor bool) *ProgressLogger {
	return &ProgressLogger{
		writer: w,
		bar:    NewProgressBar(0, 30, enableColor),
	}
}

// LogPhase switches the bar between the copy counter and the rename bar.
func (pl *ProgressLogger) LogPhase(state models.State, _ string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	switch state {
	case models.StateCopying:
		pl.bar.Reset(0)
		pl.bar.SetPrefix("Copying ")
		pl.active = true
		pl.draw()
	case models.StateRenaming:
		pl.finishLine()
		pl.bar.Reset(pl.copied)
		pl.bar.SetPrefix("Renaming ")
		pl.active = pl.copied > 0
		if pl.active {
			pl.draw()
		}
	case models.StateDone:
		pl.finishLine()
	}
}

// LogCopy advances the copy counter.
func (pl *ProgressLogger) LogCopy(string, string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.copied++
	pl.bar.Increment()
	pl.draw()
}

// LogRename advances the rename bar.
func (pl *ProgressLogger) LogRename(string, string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.bar.Increment()
	pl.draw()
}

// LogFailure is ignored; failures are reported by the other loggers.
func (pl *ProgressLogger) LogFailure(models.EntryFailure) {}

// LogSummary terminates a pending progress line.
func (pl *ProgressLogger) LogSummary(*models.RunResult) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.finishLine()
}

func (pl *ProgressLogger) draw() {
	if pl.writer == nil || !pl.active {
		return
	}
	fmt.Fprintf(pl.writer, "\r%s", pl.bar.Render())
}

func (pl *ProgressLogger) finishLine() {
	if pl.writer == nil || !pl.active {
		return
	}
	fmt.Fprint(pl.writer, "\n")
	pl.active = false
}
