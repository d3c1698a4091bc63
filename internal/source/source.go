package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
)

// SourceProvider determines and retrieves the new version of the list.
type SourceProvider struct {
	path  string
	stdin *os.File
}

// New creates a new SourceProvider. A non-empty path takes precedence over
// stdin and the clipboard.
func New(path string) *SourceProvider {
	return &SourceProvider{path: path, stdin: os.Stdin}
}

// IsPiped reports whether stdin is a pipe rather than a terminal.
func (sp *SourceProvider) IsPiped() bool {
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// GetContent retrieves content from the file, stdin (if piped) or the
// clipboard. Whitespace-only content is reported as empty.
func (sp *SourceProvider) GetContent() (string, error) {
	var content string

	switch {
	case sp.path != "":
		data, err := os.ReadFile(sp.path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", sp.path, err)
		}
		content = string(data)
	case sp.IsPiped():
		data, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		content = string(data)
	default:
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("failed to read from clipboard: %w", err)
		}
		content = text
	}

	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	return content, nil
}
