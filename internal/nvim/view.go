package nvim

import (
	"bytes"
	"fmt"

	"github.com/neovim/go-client/nvim"
	"go.uber.org/zap"

	"github.com/sokinpui/listdiff/internal/batch"
	"github.com/sokinpui/listdiff/internal/parser"
	"github.com/sokinpui/listdiff/model"
)

// LineAPI is the part of the Neovim API a BufferView needs.
type LineAPI interface {
	BufferLines(buffer nvim.Buffer, start, end int, strict bool) ([][]byte, error)
	SetBufferLines(buffer nvim.Buffer, start, end int, strict bool, replacement [][]byte) error
}

// BufferView shows a list as the lines of a Neovim buffer, one row per line.
// Buffers have no transitions, so batches complete as soon as they close.
//
// By default the list fills the whole buffer. After At it only owns a window
// of lines and leaves the rest of the buffer alone.
type BufferView struct {
	api     LineAPI
	buffer  nvim.Buffer
	tracker *batch.Tracker
	data    func() []model.Task
	logger  *zap.Logger
	offset  int
	// rows is the height of the window, or -1 while the list fills the
	// buffer and has not been written yet.
	rows int
}

// NewBufferView creates a view of section over buffer. data returns the
// caller's current tasks.
func NewBufferView(api LineAPI, buffer nvim.Buffer, section int, data func() []model.Task, logger *zap.Logger) *BufferView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BufferView{
		api:     api,
		buffer:  buffer,
		tracker: batch.New(section),
		data:    data,
		logger:  logger.With(zap.String("view", "nvim"), zap.Int("buffer", int(buffer))),
		rows:    -1,
	}
}

// At places the list on the rows lines starting at line offset.
func (v *BufferView) At(offset, rows int) *BufferView {
	v.offset, v.rows = offset, rows
	return v
}

// Load replaces the rows of the list with the current tasks.
func (v *BufferView) Load() error {
	return v.write(render(v.data()))
}

func (v *BufferView) PerformBatchUpdates(updates func(), completion func(bool)) {
	count, countErr := v.count()
	id := v.tracker.Begin(count)
	logger := v.logger.With(zap.String("batch_id", id))

	updates()

	tasks := v.data()
	res, err := v.tracker.End(len(tasks))
	finished := true
	switch {
	case countErr != nil:
		logger.Error("failed to read buffer", zap.Error(countErr))
		finished = false
	case err != nil:
		logger.Warn("invalid batch", zap.Error(err))
		finished = false
	default:
		if err := v.write(render(tasks)); err != nil {
			logger.Error("failed to write buffer", zap.Error(err))
			finished = false
		} else {
			logger.Debug("batch applied",
				zap.Int("deleted", res.Deleted),
				zap.Int("inserted", res.Inserted),
				zap.Int("moved", res.Moved))
		}
	}

	v.tracker.Complete()
	if completion != nil {
		completion(finished)
	}
}

func (v *BufferView) DeleteItems(at []model.Address) {
	v.tracker.Delete(at)
}

func (v *BufferView) InsertItems(at []model.Address) {
	v.tracker.Insert(at)
}

func (v *BufferView) MoveItem(from, to model.Address) {
	v.tracker.Move(from, to)
}

func (v *BufferView) ReloadItems(at []model.Address) {
	count, err := v.count()
	if err != nil {
		v.logger.Error("failed to read buffer", zap.Error(err))
		return
	}
	tasks := v.data()
	positions, err := v.tracker.CheckReload(at, min(count, len(tasks)))
	if err != nil {
		v.logger.Warn("invalid reload", zap.Error(err))
		return
	}
	for _, pos := range positions {
		line := [][]byte{[]byte(parser.RenderLine(tasks[pos]))}
		if err := v.api.SetBufferLines(v.buffer, v.offset+pos, v.offset+pos+1, true, line); err != nil {
			v.logger.Error("failed to reload line", zap.Int("position", pos), zap.Error(err))
		}
	}
}

// count returns the number of rows of the list. A buffer always holds at
// least one line, so a single empty line counts as no rows.
func (v *BufferView) count() (int, error) {
	lines, err := v.api.BufferLines(v.buffer, 0, -1, true)
	if err != nil {
		return 0, err
	}
	if v.offset == 0 && placeholder(lines) {
		return 0, nil
	}
	if v.rows < 0 {
		return len(lines), nil
	}
	if v.offset+v.rows > len(lines) {
		return 0, fmt.Errorf("buffer has %d lines, the list needs %d", len(lines), v.offset+v.rows)
	}
	return v.rows, nil
}

// write replaces the rows of the list with lines.
func (v *BufferView) write(lines [][]byte) error {
	current, err := v.api.BufferLines(v.buffer, 0, -1, true)
	if err != nil {
		return err
	}
	start, end := v.offset, v.offset+v.rows
	if v.rows < 0 || (v.offset == 0 && placeholder(current)) {
		start, end = 0, -1
	}
	if err := v.api.SetBufferLines(v.buffer, start, end, true, lines); err != nil {
		return err
	}
	v.rows = len(lines)
	return nil
}

// MatchesContent reports whether buffer lines hold exactly content.
func MatchesContent(lines [][]byte, content []byte) bool {
	want := bytes.Split(content, []byte("\n"))
	if len(content) > 0 && content[len(content)-1] == '\n' {
		want = want[:len(want)-1]
	}
	if len(lines) != len(want) {
		return false
	}
	for i := range want {
		if !bytes.Equal(lines[i], want[i]) {
			return false
		}
	}
	return true
}

func placeholder(lines [][]byte) bool {
	return len(lines) == 1 && len(lines[0]) == 0
}

func render(tasks []model.Task) [][]byte {
	lines := make([][]byte, len(tasks))
	for i, task := range tasks {
		lines[i] = []byte(parser.RenderLine(task))
	}
	return lines
}
