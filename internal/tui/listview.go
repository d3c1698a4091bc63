package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sokinpui/listdiff/internal/batch"
	"github.com/sokinpui/listdiff/internal/parser"
	"github.com/sokinpui/listdiff/model"
)

// row is a list item carrying how it got to its place in the last batch.
type row struct {
	task model.Task
	mark batch.Mark
}

func (r row) Title() string       { return parser.RenderLine(r.task) }
func (r row) FilterValue() string { return r.task.Title }

func (r row) Description() string {
	switch r.mark {
	case batch.MarkInserted:
		return insertedStyle.Render("inserted")
	case batch.MarkMoved:
		return movedStyle.Render("moved")
	case batch.MarkReplaced:
		return replacedStyle.Render("updated")
	default:
		return ""
	}
}

// batchDoneMsg is delivered once the transition of a batch has played.
type batchDoneMsg struct {
	id       string
	finished bool
}

// ListView drives a bubbles list as an index-addressed container.
//
// Operations only touch the list when the batch closes: the rows are then
// re-read from the data source. The completion runs when the matching
// batchDoneMsg reaches HandleDone, after the animation delay.
type ListView struct {
	list       *list.Model
	tracker    *batch.Tracker
	data       func() []model.Task
	animation  time.Duration
	logger     *zap.Logger
	completion func(bool)
	cmds       []tea.Cmd
}

// NewListView creates a view of section over l. data returns the caller's
// current tasks.
func NewListView(l *list.Model, section int, data func() []model.Task, animation time.Duration, logger *zap.Logger) *ListView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListView{
		list:      l,
		tracker:   batch.New(section),
		data:      data,
		animation: animation,
		logger:    logger.With(zap.String("view", "tui")),
	}
}

// Busy reports whether a batch has not completed yet.
func (v *ListView) Busy() bool {
	return v.tracker.State() != batch.StateIdle
}

// Refresh reloads every row from the data source, dropping marks.
func (v *ListView) Refresh() tea.Cmd {
	return v.list.SetItems(rows(v.data(), nil))
}

func (v *ListView) PerformBatchUpdates(updates func(), completion func(bool)) {
	id := v.tracker.Begin(len(v.list.Items()))
	logger := v.logger.With(zap.String("batch_id", id))

	updates()

	tasks := v.data()
	res, err := v.tracker.End(len(tasks))
	finished := err == nil
	if err != nil {
		logger.Warn("invalid batch", zap.Error(err))
	} else {
		v.cmds = append(v.cmds, v.list.SetItems(rows(tasks, res.Marks)))
		logger.Debug("batch applied",
			zap.Int("deleted", res.Deleted),
			zap.Int("inserted", res.Inserted),
			zap.Int("moved", res.Moved))
	}

	v.completion = completion
	msg := batchDoneMsg{id: id, finished: finished}
	if v.animation <= 0 {
		v.cmds = append(v.cmds, func() tea.Msg { return msg })
		return
	}
	v.cmds = append(v.cmds, tea.Tick(v.animation, func(time.Time) tea.Msg { return msg }))
}

func (v *ListView) DeleteItems(at []model.Address) {
	v.tracker.Delete(at)
}

func (v *ListView) InsertItems(at []model.Address) {
	v.tracker.Insert(at)
}

func (v *ListView) MoveItem(from, to model.Address) {
	v.tracker.Move(from, to)
}

func (v *ListView) ReloadItems(at []model.Address) {
	tasks := v.data()
	positions, err := v.tracker.CheckReload(at, min(len(v.list.Items()), len(tasks)))
	if err != nil {
		v.logger.Warn("invalid reload", zap.Error(err))
		return
	}
	for _, pos := range positions {
		v.cmds = append(v.cmds, v.list.SetItem(pos, row{task: tasks[pos], mark: batch.MarkReplaced}))
	}
}

// Flush returns the commands queued by the last operations.
func (v *ListView) Flush() tea.Cmd {
	cmds := v.cmds
	v.cmds = nil
	return tea.Batch(cmds...)
}

// HandleDone completes the batch msg belongs to and clears the marks.
func (v *ListView) HandleDone(msg batchDoneMsg) tea.Cmd {
	if msg.id != v.tracker.ID() || v.tracker.State() != batch.StateClosing {
		v.logger.Debug("stale batch completion", zap.String("batch_id", msg.id))
		return nil
	}
	v.tracker.Complete()

	var cmd tea.Cmd
	if msg.finished {
		cmd = v.list.SetItems(clearMarks(v.list.Items()))
	}

	completion := v.completion
	v.completion = nil
	if completion != nil {
		completion(msg.finished)
	}
	return cmd
}

func rows(tasks []model.Task, marks map[int]batch.Mark) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, task := range tasks {
		items[i] = row{task: task, mark: marks[i]}
	}
	return items
}

func clearMarks(items []list.Item) []list.Item {
	out := make([]list.Item, len(items))
	for i, item := range items {
		if r, ok := item.(row); ok {
			r.mark = batch.MarkNone
			item = r
		}
		out[i] = item
	}
	return out
}
