package nvim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/neovim/go-client/nvim"
)

// Manager handles the connection and interaction with a Neovim instance.
type Manager struct {
	nvim          *nvim.Nvim
	isSelfStarted bool
	cmd           *exec.Cmd
	socketPath    string
}

// New creates a new Neovim manager, connecting to an existing instance
// or starting a new headless one.
func New() (*Manager, error) {
	// Try to connect to a running instance first.
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		v, err := nvim.Dial(addr)
		if err == nil {
			return &Manager{nvim: v}, nil
		}
	}

	// If that fails, start a temporary headless instance.
	tmpDir, err := os.MkdirTemp("", "listdiff-nvim-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir for nvim: %w", err)
	}
	socketPath := filepath.Join(tmpDir, "nvim.sock")

	cmd := exec.Command("nvim", "--headless", "--clean", "--listen", socketPath)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to start headless nvim: %w. Is 'nvim' in your PATH?", err)
	}

	// Wait for the socket file to appear.
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	v, err := nvim.Dial(socketPath)
	if err != nil {
		cmd.Process.Kill()
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to connect to headless nvim: %w", err)
	}

	m := &Manager{
		nvim:          v,
		isSelfStarted: true,
		cmd:           cmd,
		socketPath:    socketPath,
	}
	if err := m.configureTempInstance(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// configureTempInstance keeps the headless instance from leaving swap files
// behind.
func (m *Manager) configureTempInstance() error {
	b := m.nvim.NewBatch()
	b.Command("set noswapfile")
	b.Command("set nofixendofline")
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to configure headless nvim: %w", err)
	}
	return nil
}

// Close disconnects from Neovim and cleans up if it was self-started.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
	if m.isSelfStarted && m.cmd != nil && m.cmd.Process != nil {
		if err := m.cmd.Process.Kill(); err == nil {
			m.cmd.Wait()
			os.RemoveAll(filepath.Dir(m.socketPath))
		}
	}
}

// Attached reports whether the manager talks to a Neovim the user is
// running. Edits made in a self-started instance are lost on Close unless
// they are saved.
func (m *Manager) Attached() bool {
	return !m.isSelfStarted
}

// OpenBuffer edits path and returns its buffer. A buffer with unsaved changes
// is refused.
func (m *Manager) OpenBuffer(path string) (nvim.Buffer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	var escaped string
	if err := m.nvim.Call("fnameescape", &escaped, absPath); err != nil {
		return 0, fmt.Errorf("failed to escape %s: %w", absPath, err)
	}
	if err := m.nvim.Command("edit " + escaped); err != nil {
		return 0, fmt.Errorf("failed to open %s in nvim: %w", absPath, err)
	}

	buffer, err := m.nvim.CurrentBuffer()
	if err != nil {
		return 0, err
	}
	var modified bool
	if err := m.nvim.BufferOption(buffer, "modified", &modified); err != nil {
		return 0, fmt.Errorf("failed to inspect buffer of %s: %w", absPath, err)
	}
	if modified {
		return 0, fmt.Errorf("%s has unsaved changes in nvim; write or discard them first", absPath)
	}
	return buffer, nil
}

// Save writes buffer to its file.
func (m *Manager) Save(buffer nvim.Buffer) error {
	b := m.nvim.NewBatch()
	b.SetCurrentBuffer(buffer)
	b.Command("write")
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to write buffer: %w", err)
	}
	return nil
}

// Lines returns the connection's buffer line API.
func (m *Manager) Lines() LineAPI {
	return m.nvim
}
