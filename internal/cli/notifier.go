package cli

import (
	"fmt"
	"io"

	"github.com/refswitch/refswitch/internal/switcher"
)

// consoleNotifier prints engine messages and progress to a terminal stream.
type consoleNotifier struct {
	w     io.Writer
	quiet bool
}

func (n consoleNotifier) ShowMessage(text string, severity switcher.Severity) {
	fmt.Fprintf(n.w, "%s: %s\n", severity, text)
}

func (n consoleNotifier) ReportProgress(text string, current, total int) {
	if n.quiet {
		return
	}
	fmt.Fprintf(n.w, "[%d/%d] %s\n", current, total, text)
}
