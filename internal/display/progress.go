package display

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ProgressIndicator manages multi-step progress display
type ProgressIndicator struct {
	writer  io.Writer
	total   int
	current int
	label   string
	step    *color.Color
	ok      *color.Color
}

// NewProgressIndicator creates a new progress indicator. Color is enabled
// only when w is a terminal.
func NewProgressIndicator(w io.Writer, total int, label string) *ProgressIndicator {
	p := &ProgressIndicator{
		writer: w,
		total:  total,
		label:  label,
		step:   color.New(color.FgCyan),
		ok:     color.New(color.FgGreen),
	}
	if ColorEnabled(w) {
		p.step.EnableColor()
		p.ok.EnableColor()
	} else {
		p.step.DisableColor()
		p.ok.DisableColor()
	}
	return p
}

// Start displays the header message
func (p *ProgressIndicator) Start(root string) {
	fmt.Fprintf(p.writer, "%s in %s:\n", p.label, root)
}

// Step displays progress for current item: [N/Total] path
func (p *ProgressIndicator) Step(path string) {
	p.current++
	fmt.Fprintln(p.writer, p.step.Sprintf("  [%d/%d] %s", p.current, p.total, path))
}

// Complete displays the success line with a green checkmark
func (p *ProgressIndicator) Complete() {
	fmt.Fprintf(p.writer, "%s %d %s\n", p.ok.Sprint("✓"), p.total, plural(p.total, "file", "files"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
