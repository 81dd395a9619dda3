package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/flatten/internal/models"
)

// maxListedFiles caps the affected-file list of a warning.
const maxListedFiles = 10

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning, in yellow when out is a terminal.
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		b.WriteString(plural(len(w.Files), "Affected file:", "Affected files:"))
		b.WriteString("\n")

		for i, file := range w.Files {
			if i == maxListedFiles {
				fmt.Fprintf(&b, "      ... and %d more\n", len(w.Files)-maxListedFiles)
				break
			}
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	yellow := color.New(color.FgYellow)
	if ColorEnabled(out) {
		yellow.EnableColor()
	} else {
		yellow.DisableColor()
	}
	fmt.Fprint(out, yellow.Sprint(b.String()))
}

// WarnOutputInsideRoot explains that the output directory lives under the
// scanned root and is excluded from the walk.
func WarnOutputInsideRoot(root, output string) Warning {
	return Warning{
		Title:   "Output directory is inside the scanned root",
		Message: fmt.Sprintf("%s is excluded from the scan of %s", output, root),
	}
}

// WarnEntryFailures summarizes the per-entry failures of a finished run.
func WarnEntryFailures(failures []models.EntryFailure) Warning {
	files := make([]string, 0, len(failures))
	for _, f := range failures {
		files = append(files, fmt.Sprintf("[%s] %s: %s", f.Kind, f.Path, f.Message))
	}
	return Warning{
		Title:      fmt.Sprintf("%d %s could not be processed", len(failures), plural(len(failures), "entry", "entries")),
		Files:      files,
		Suggestion: "Fix the listed paths and run again; completed copies are kept",
	}
}

// WarnPendingFiles reports files in the output directory that still carry
// the source extension after a run.
func WarnPendingFiles(output, from, to string, files []string) Warning {
	return Warning{
		Title:      fmt.Sprintf("Files in %s still end with %s", output, from),
		Files:      files,
		Suggestion: fmt.Sprintf("Run 'flatten rename --from %s --to %s' to rename them", from, to),
	}
}
