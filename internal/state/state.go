package state

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sokinpui/listdiff/internal/fs"
)

const (
	stateDirName  = ".listdiff"
	stateFileName = "state.listdiff"
	SnapshotDir   = "snapshots"
)

// HistoryEntry represents one committed reconcile of a list file.
type HistoryEntry struct {
	Timestamp  int64
	Path       string
	BeforeHash string // SHA256 of the file content before the operation
	AfterHash  string // SHA256 of the file content after the operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file and the snapshots it
// refers to.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git repository, or at
// the working directory outside of one.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(rootDir)
}

// NewAt creates and loads a state manager that keeps its files under rootDir.
func NewAt(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, SnapshotDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Normalize line endings to LF
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	// First block is current index
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}
	m.state.CurrentIndex = index

	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) != 4 {
			return fmt.Errorf("invalid state file: incomplete history record")
		}
		ts, err := strconv.ParseInt(lines[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", lines[0], err)
		}
		m.state.History = append(m.state.History, HistoryEntry{
			Timestamp:  ts,
			Path:       lines[1],
			BeforeHash: lines[2],
			AfterHash:  lines[3],
		})
	}

	if m.state.CurrentIndex >= len(m.state.History) {
		return fmt.Errorf("invalid state file: current index %d beyond %d entries", m.state.CurrentIndex, len(m.state.History))
	}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}
	for _, entry := range m.state.History {
		blocks = append(blocks, strings.Join([]string{
			strconv.FormatInt(entry.Timestamp, 10),
			entry.Path,
			entry.BeforeHash,
			entry.AfterHash,
		}, "\n"))
	}

	content := strings.Join(blocks, "\n\n")
	if err := os.WriteFile(m.statePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Record stores both versions of a list file and appends a history entry,
// dropping any operations that were undone before. A nil version means the
// file did not exist.
func (m *Manager) Record(path string, before, after []byte) error {
	beforeHash, err := m.writeSnapshot(before)
	if err != nil {
		return err
	}
	afterHash, err := m.writeSnapshot(after)
	if err != nil {
		return err
	}

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Path:       path,
		BeforeHash: beforeHash,
		AfterHash:  afterHash,
	})
	m.state.CurrentIndex++
	return m.save()
}

// PeekUndo returns the entry the next undo would revert.
func (m *Manager) PeekUndo() (HistoryEntry, bool) {
	if m.state.CurrentIndex < 0 {
		return HistoryEntry{}, false
	}
	return m.state.History[m.state.CurrentIndex], true
}

// PeekRedo returns the entry the next redo would reapply.
func (m *Manager) PeekRedo() (HistoryEntry, bool) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return HistoryEntry{}, false
	}
	return m.state.History[next], true
}

// MarkUndone moves the history pointer back after a successful undo.
func (m *Manager) MarkUndone() error {
	if m.state.CurrentIndex < 0 {
		return fmt.Errorf("no operation to undo")
	}
	m.state.CurrentIndex--
	return m.save()
}

// MarkRedone moves the history pointer forward after a successful redo.
func (m *Manager) MarkRedone() error {
	if m.state.CurrentIndex+1 >= len(m.state.History) {
		return fmt.Errorf("no operation to redo")
	}
	m.state.CurrentIndex++
	return m.save()
}

// Snapshot returns the content stored under hash. fs.AbsentHash gives nil.
func (m *Manager) Snapshot(hash string) ([]byte, error) {
	if hash == fs.AbsentHash {
		return nil, nil
	}
	data, err := os.ReadFile(m.snapshotPath(hash))
	if err != nil {
		return nil, fmt.Errorf("missing snapshot %s: %w", hash, err)
	}
	return data, nil
}

func (m *Manager) writeSnapshot(data []byte) (string, error) {
	if data == nil {
		return fs.AbsentHash, nil
	}
	hash := fs.HashBytes(data)
	path := m.snapshotPath(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return hash, nil
}

func (m *Manager) snapshotPath(hash string) string {
	return filepath.Join(m.StateDir, SnapshotDir, hash)
}
