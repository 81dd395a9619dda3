// Package logger provides logging implementations for flatten runs.
//
// Loggers receive the pipeline's phase, copy, rename, failure and summary
// events. Implementations are thread-safe and write to the console, to a
// per-run log file, or to several destinations at once (MultiLogger).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

var _ flatten.Logger = (*ConsoleLogger)(nil)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// fatih/color already honours NO_COLOR and non-TTY output.
		return !color.NoColor
	}
	return false
}

// IsValidLevel reports whether level names a known log level.
func IsValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if IsValidLevel(normalized) {
		return normalized
	}
	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// LogPhase logs a pipeline state transition at INFO level.
// Format: "[HH:MM:SS] <STATE> <detail>"
func (cl *ConsoleLogger) LogPhase(state models.State, detail string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	name := string(state)
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(name)
		if state == models.StateDone {
			name = color.New(color.Bold, color.FgGreen).Sprint(string(state))
		}
	}
	line := fmt.Sprintf("[%s] %s", timestamp(), name)
	if detail != "" {
		line += " " + detail
	}
	cl.writer.Write([]byte(line + "\n"))
}

// LogCopy logs a phase-1 copy at DEBUG level.
// Format: "[HH:MM:SS] copy <src> -> <dest>"
func (cl *ConsoleLogger) LogCopy(src, dest string) {
	cl.logEvent("debug", "copy", src, dest)
}

// LogRename logs a phase-2 rename at DEBUG level.
// Format: "[HH:MM:SS] rename <from> -> <to>"
func (cl *ConsoleLogger) LogRename(from, to string) {
	cl.logEvent("debug", "rename", from, to)
}

func (cl *ConsoleLogger) logEvent(level, verb, from, to string) {
	if cl.writer == nil || !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	arrow := "->"
	if cl.colorOutput {
		arrow = color.New(color.FgHiBlack).Sprint(arrow)
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] %s %s %s %s\n", timestamp(), verb, from, arrow, to)))
}

// LogFailure logs a recoverable entry failure at WARN level.
func (cl *ConsoleLogger) LogFailure(failure models.EntryFailure) {
	msg := fmt.Sprintf("%s failed", failure.Kind)
	if failure.Path != "" {
		msg += " for " + failure.Path
	}
	if failure.Message != "" {
		msg += ": " + failure.Message
	}
	cl.logWithLevel("WARN", msg)
}

// LogSummary logs the run summary with counters at INFO level, followed by
// the list of per-entry failures.
func (cl *ConsoleLogger) LogSummary(result *models.RunResult) {
	if cl.writer == nil || result == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	scheme := newColorScheme(cl.colorOutput)

	title := "=== Flatten Summary ==="
	if result.DryRun {
		title = "=== Flatten Summary (dry run) ==="
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.header(title))
	fmt.Fprintf(&b, "[%s] %s\n", ts, formatMetric("Run", shortID(result.RunID), scheme))
	fmt.Fprintf(&b, "[%s] %s\n", ts, formatMetric("Extensions", result.From+" -> "+result.To, scheme))
	fmt.Fprintf(&b, "[%s] %s\n", ts, formatMetric("Output", result.Output, scheme))
	fmt.Fprintf(&b, "[%s] %s\n", ts, formatCounters(result, scheme))
	fmt.Fprintf(&b, "[%s] %s\n", ts, formatMetric("Duration", formatDuration(result.Duration), scheme))

	if result.Err != nil {
		fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.fail.Sprintf("Stopped in %s: %v", result.State, result.Err))
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.fail.Sprint("Failures:"))
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "[%s]   - [%s] %s: %s\n", ts, f.Kind, f.Path, f.Message)
		}
	}

	cl.writer.Write([]byte(b.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// shortID returns the first block of a uuid for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// formatDuration renders a duration compactly: 250ms, 12s, 3m5s, 1h2m.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder < time.Second {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, remainder/time.Second)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder < time.Second {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, remainder/time.Second)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

var _ flatten.Logger = (*NoOpLogger)(nil)

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogPhase is a no-op implementation.
func (n *NoOpLogger) LogPhase(state models.State, detail string) {}

// LogCopy is a no-op implementation.
func (n *NoOpLogger) LogCopy(src, dest string) {}

// LogRename is a no-op implementation.
func (n *NoOpLogger) LogRename(from, to string) {}

// LogFailure is a no-op implementation.
func (n *NoOpLogger) LogFailure(failure models.EntryFailure) {}

// LogSummary is a no-op implementation.
func (n *NoOpLogger) LogSummary(result *models.RunResult) {}
