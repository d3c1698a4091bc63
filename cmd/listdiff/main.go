package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokinpui/listdiff/cli"
	"github.com/sokinpui/listdiff/internal/app"
	"github.com/sokinpui/listdiff/internal/logging"
	"github.com/sokinpui/listdiff/internal/tui"
	"github.com/sokinpui/listdiff/internal/ui"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		// pflag already prints the error message.
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{File: cfg.LogFile, Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if cfg.Buffer {
		summary, err := a.Execute()
		if err != nil {
			fail(err)
		}
		ui.PrintSummary(summary)
		return
	}

	plan, err := a.Plan()
	if err != nil {
		fail(err)
	}

	var opts []tea.ProgramOption
	if a.StdinPiped() {
		// The new list came in on stdin; read keys from the terminal.
		opts = append(opts, tea.WithInputTTY())
	}
	model := tui.New(a, plan)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
	if err := model.Err(); err != nil {
		os.Exit(1)
	}
}

func fail(err error) {
	ui.Error("Error: %v", err)
	var detailed *app.DetailedError
	if errors.As(err, &detailed) {
		fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
	}
	os.Exit(1)
}
