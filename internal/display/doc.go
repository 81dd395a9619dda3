// Package display provides terminal output for flatten commands: step-wise
// progress lines and warning blocks.
//
// # Progress Indicators
//
//	progress := display.NewProgressIndicator(os.Stdout, len(files), "Matching files")
//	progress.Start(root)
//	for _, file := range files {
//	    progress.Step(file)
//	}
//	progress.Complete()
//
// # Warning Messages
//
//	display.WarnEntryFailures(result.Failures).Display(os.Stderr)
//
// Color is used only when the writer is a terminal (mattn/go-isatty) and
// NO_COLOR is unset. Every function takes an io.Writer so output can be
// captured in tests.
package display
