package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/flatten/internal/models"
)

// colorScheme defines consistent colors for the summary block.
// Green: success counters
// Red: failures
// Yellow: skipped entries
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
	bold    *color.Color
}

// newColorScheme creates the standard color scheme. With enabled false every
// color prints plain text, regardless of the terminal.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
		bold:    color.New(color.Bold),
	}
	if enabled {
		for _, c := range []*color.Color{s.success, s.fail, s.warn, s.label, s.value, s.bold} {
			c.EnableColor()
		}
	} else {
		for _, c := range []*color.Color{s.success, s.fail, s.warn, s.label, s.value, s.bold} {
			c.DisableColor()
		}
	}
	return s
}

func (s *colorScheme) header(text string) string {
	return s.bold.Sprint(text)
}

// colorLevel colors a level tag for console output.
func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// formatMetric formats a single "label: value" pair.
func formatMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatCounters renders the run counters on one line. Zero failures and
// zero skips are printed uncolored.
// Format: "scanned: N, copied: N, renamed: N, skipped: N, failed: N"
func formatCounters(result *models.RunResult, scheme *colorScheme) string {
	parts := []string{
		formatMetric("scanned", result.Scanned, scheme),
		fmt.Sprintf("%s: %s", scheme.success.Sprint("copied"), scheme.value.Sprintf("%d", result.Copied)),
		fmt.Sprintf("%s: %s", scheme.success.Sprint("renamed"), scheme.value.Sprintf("%d", result.Renamed)),
	}

	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("skipped"), scheme.warn.Sprintf("%d", result.Skipped)))
	} else {
		parts = append(parts, formatMetric("skipped", 0, scheme))
	}

	if failed := result.Failed(); failed > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("failed"), scheme.fail.Sprintf("%d", failed)))
	} else {
		parts = append(parts, formatMetric("failed", 0, scheme))
	}

	return strings.Join(parts, ", ")
}
