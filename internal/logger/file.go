package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/flatten/internal/flatten"
	"github.com/harrison/flatten/internal/models"
)

var _ flatten.Logger = (*FileLogger)(nil)

// FileLogger logs run events to files in the .flatten/logs/ directory.
// It creates one timestamped log file per run and maintains a latest.log
// symlink pointing to the most recent run. It is thread-safe and supports log
// level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a new FileLogger that writes to .flatten/logs/.
// Uses default log level "info".
func NewFileLogger() (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(filepath.Join(".flatten", "logs"), "info")
}

// NewFileLoggerWithDir creates a new FileLogger with a custom log directory.
// Uses default log level "info".
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Generate timestamped filename: run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== Flatten Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of this run's log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogPhase logs a pipeline state transition at INFO level.
func (fl *FileLogger) LogPhase(state models.State, detail string) {
	if !fl.shouldLog("info") {
		return
	}
	message := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), state)
	if detail != "" {
		message += " " + detail
	}
	fl.writeRunLog(message + "\n")
}

// LogCopy logs a phase-1 copy at DEBUG level.
func (fl *FileLogger) LogCopy(src, dest string) {
	if !fl.shouldLog("debug") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] copy %s -> %s\n", time.Now().Format("15:04:05"), src, dest))
}

// LogRename logs a phase-2 rename at DEBUG level.
func (fl *FileLogger) LogRename(from, to string) {
	if !fl.shouldLog("debug") {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] rename %s -> %s\n", time.Now().Format("15:04:05"), from, to))
}

// LogFailure logs a recoverable entry failure at WARN level.
func (fl *FileLogger) LogFailure(failure models.EntryFailure) {
	fl.logWithLevel("WARN", fmt.Sprintf("%s failed for %s: %s", failure.Kind, failure.Path, failure.Message))
}

// LogSummary logs the run summary with final statistics at INFO level.
func (fl *FileLogger) LogSummary(result *models.RunResult) {
	if result == nil || !fl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if !result.Succeeded() {
		status = "FAILED"
	} else if result.Failed() > 0 {
		status = "PARTIAL"
	}

	var b strings.Builder
	b.WriteString("\n=== Run Summary ===\n")
	fmt.Fprintf(&b, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(&b, "Root: %s\n", result.Root)
	fmt.Fprintf(&b, "Output: %s\n", result.Output)
	fmt.Fprintf(&b, "Extensions: %s -> %s\n", result.From, result.To)
	if result.DryRun {
		b.WriteString("Dry run: true\n")
	}
	fmt.Fprintf(&b, "State: %s\n", result.State)
	fmt.Fprintf(&b, "Scanned: %d\n", result.Scanned)
	fmt.Fprintf(&b, "Copied: %d\n", result.Copied)
	fmt.Fprintf(&b, "Renamed: %d\n", result.Renamed)
	fmt.Fprintf(&b, "Skipped: %d\n", result.Skipped)
	fmt.Fprintf(&b, "Failed: %d\n", result.Failed())
	fmt.Fprintf(&b, "Duration: %.1fs\n", result.Duration.Seconds())
	if result.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", result.Err)
	}
	fmt.Fprintf(&b, "Status: %s\n", status)

	if len(result.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "  - [%s] %s: %s\n", f.Kind, f.Path, f.Message)
		}
	}

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
