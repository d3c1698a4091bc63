package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sokinpui/listdiff/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
)

// Output is where messages go. Tests swap it out.
var Output io.Writer = os.Stderr

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(Output, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(Output, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(Output, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(Output, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(Output, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(Output, "  "+format+"\n", a...)
}

// PrintSummary prints the outcome of one reconcile.
func PrintSummary(summary model.Summary) {
	Header("\n--- Update Summary ---")

	if summary.Message != "" {
		Info("%s", summary.Message)
	}
	if summary.Path != "" {
		Path("%s", summary.Path)
	}

	total := summary.Inserted + summary.Deleted + summary.Moved + summary.Replaced
	if total == 0 {
		Info("No rows changed.")
		return
	}

	if summary.Inserted > 0 {
		fmt.Fprintf(Output, "  + %d inserted\n", summary.Inserted)
	}
	if summary.Deleted > 0 {
		fmt.Fprintf(Output, "  - %d deleted\n", summary.Deleted)
	}
	if summary.Moved > 0 {
		fmt.Fprintf(Output, "  ~ %d moved\n", summary.Moved)
	}
	if summary.Replaced > 0 {
		fmt.Fprintf(Output, "  * %d updated\n", summary.Replaced)
	}

	switch {
	case summary.Finished && summary.Saved:
		Success("Applied and saved %d change(s).", total)
	case summary.Finished:
		Success("Applied %d change(s).", total)
	default:
		Error("The view did not accept the changes; it was reloaded in full.")
	}

	if !summary.Saved {
		Warning("\nChanges are not saved. Use -w/--save to persist them.")
		Warning("Undo will not be available for this operation.")
	}
}
