package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all the command-line flag values.
type Config struct {
	ListFile    string
	From        string
	Buffer      bool
	Undo        bool
	Redo        bool
	Section     int
	Animation   time.Duration
	NoAnimation bool
	LookupDirs  []string
	LogFile     string
	LogLevel    string
	LogFormat   string
	Save        bool
}

// ParseFlags parses the process arguments.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse defines and parses command-line flags using pflag. Values not given on
// the command line fall back to LISTDIFF_* environment variables, then to a
// .listdiff.yaml in the working directory (or the file named by --config).
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("listdiff", pflag.ContinueOnError)

	fs.StringP("from", "f", "", "Read the new list from this file instead of stdin or the clipboard.")
	fs.BoolP("buffer", "b", false, "Apply the changes to a Neovim buffer instead of the terminal list.")
	fs.BoolP("save", "w", false, "In buffer mode, write the buffer to disk and record the operation for undo.")
	fs.IntP("section", "s", 0, "Section that all calculated addresses belong to.")
	fs.Duration("animation", 400*time.Millisecond, "Duration of the list transition.")
	fs.Bool("no-animation", false, "Complete the list transition immediately.")
	fs.StringSliceP("lookup-dir", "l", []string{}, "Directories to look for the list file in (default: current directory).")
	fs.String("log-file", "", "Write a debug log to this file.")
	fs.String("log-level", "info", "Log level: debug, info, warn or error.")
	fs.String("log-format", "console", "Log encoding: console or json.")
	fs.String("config", "", "Config file (default: ./.listdiff.yaml).")

	// Mutually exclusive history group
	fs.BoolP("undo", "u", false, "Undo the last operation.")
	fs.BoolP("redo", "r", false, "Redo the last undone operation.")

	fs.Usage = func() {
		fmt.Println("Usage: listdiff [flags] <list.md>")
		fmt.Println("\nReconcile a markdown list with a new version read from stdin (pipe) or the clipboard.")
		fmt.Println("\nExample: pbpaste | listdiff todo.md")
		fmt.Println("\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("LISTDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := fs.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".listdiff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		ListFile:    fs.Arg(0),
		From:        v.GetString("from"),
		Buffer:      v.GetBool("buffer"),
		Undo:        v.GetBool("undo"),
		Redo:        v.GetBool("redo"),
		Section:     v.GetInt("section"),
		Animation:   v.GetDuration("animation"),
		NoAnimation: v.GetBool("no-animation"),
		LookupDirs:  v.GetStringSlice("lookup-dir"),
		LogFile:     v.GetString("log-file"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
		Save:        v.GetBool("save"),
	}

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if cfg.Buffer && (cfg.Undo || cfg.Redo) {
		return nil, fmt.Errorf("error: --undo and --redo do not work with --buffer")
	}
	if !cfg.Undo && !cfg.Redo && cfg.ListFile == "" {
		return nil, fmt.Errorf("error: a list file is required")
	}
	if cfg.Section < 0 {
		return nil, fmt.Errorf("error: --section must not be negative, got %d", cfg.Section)
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("error: --log-format must be console or json, got %q", cfg.LogFormat)
	}
	if cfg.NoAnimation {
		cfg.Animation = 0
	}

	return cfg, nil
}
