package nvim_test

import (
	"errors"
	"testing"

	nvimapi "github.com/neovim/go-client/nvim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/listdiff/internal/nvim"
	"github.com/sokinpui/listdiff/listdiff"
	"github.com/sokinpui/listdiff/model"
)

// fakeBuffer mimics Neovim line semantics: a buffer always has at least one
// line and an end of -1 means the last line.
type fakeBuffer struct {
	lines    []string
	writes   int
	failSet  bool
	failRead bool
}

func newFakeBuffer(lines ...string) *fakeBuffer {
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &fakeBuffer{lines: lines}
}

func (f *fakeBuffer) BufferLines(_ nvimapi.Buffer, start, end int, _ bool) ([][]byte, error) {
	if f.failRead {
		return nil, errors.New("read failed")
	}
	if end < 0 {
		end = len(f.lines)
	}
	out := make([][]byte, 0, end-start)
	for _, l := range f.lines[start:end] {
		out = append(out, []byte(l))
	}
	return out, nil
}

func (f *fakeBuffer) SetBufferLines(_ nvimapi.Buffer, start, end int, _ bool, replacement [][]byte) error {
	if f.failSet {
		return errors.New("write failed")
	}
	if end < 0 {
		end = len(f.lines)
	}
	next := append([]string{}, f.lines[:start]...)
	for _, r := range replacement {
		next = append(next, string(r))
	}
	next = append(next, f.lines[end:]...)
	if len(next) == 0 {
		next = []string{""}
	}
	f.lines = next
	f.writes++
	return nil
}

func task(title string, done bool) model.Task {
	return model.Task{Title: title, Checkbox: true, Done: done}
}

func TestBufferView_Reload(t *testing.T) {
	before := []model.Task{task("a", false), task("b", false), task("c", false)}
	after := []model.Task{task("c", false), task("a", true), task("d", false)}
	current := before

	buf := newFakeBuffer()
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil)
	require.NoError(t, view.Load())
	require.Equal(t, []string{"- [ ] a", "- [ ] b", "- [ ] c"}, buf.lines)

	changes := []model.Change[model.Task]{
		model.Delete[model.Task]{Item: before[1], Index: 1},
		model.Move[model.Task]{Item: before[2], FromIndex: 2, ToIndex: 0},
		model.Insert[model.Task]{Item: after[2], Index: 2},
		model.Replace[model.Task]{OldItem: before[0], NewItem: after[1], Index: 1},
	}

	var results []bool
	listdiff.Reload(view, changes, func() { current = after }, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.Equal(t, []bool{true}, results)
	assert.Equal(t, []string{"- [ ] c", "- [x] a", "- [ ] d"}, buf.lines)
	assert.Equal(t, 3, buf.writes, "load, batch, one reloaded line")
}

func TestBufferView_EmptyToEmpty(t *testing.T) {
	var current []model.Task
	buf := newFakeBuffer()
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil)

	var results []bool
	listdiff.Reload[model.Task](view, nil, func() {}, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.Equal(t, []bool{true}, results)
	assert.Equal(t, []string{""}, buf.lines)
}

func TestBufferView_InconsistentBatchFails(t *testing.T) {
	current := []model.Task{task("a", false)}
	buf := newFakeBuffer("- [ ] a")
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil)

	// The data gains a row but no insert is issued.
	var results []bool
	listdiff.Reload[model.Task](view, nil, func() {
		current = []model.Task{task("a", false), task("b", false)}
	}, &listdiff.Config{Completion: func(ok bool) { results = append(results, ok) }})

	assert.Equal(t, []bool{false}, results)
	assert.Equal(t, []string{"- [ ] a"}, buf.lines, "buffer left untouched")

	// The view is usable again afterwards.
	require.NoError(t, view.Load())
	assert.Equal(t, []string{"- [ ] a", "- [ ] b"}, buf.lines)
}

func TestBufferView_WriteFailure(t *testing.T) {
	current := []model.Task{task("a", false)}
	buf := newFakeBuffer("- [ ] a")
	buf.failSet = true
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil)

	var results []bool
	listdiff.Reload(view, []model.Change[model.Task]{
		model.Replace[model.Task]{OldItem: current[0], NewItem: task("a", true), Index: 0},
	}, func() { current = []model.Task{task("a", true)} }, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.Equal(t, []bool{false}, results)
}

func TestBufferView_ReadFailure(t *testing.T) {
	var current []model.Task
	buf := newFakeBuffer()
	buf.failRead = true
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil)

	var results []bool
	updated := false
	listdiff.Reload[model.Task](view, nil, func() { updated = true }, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.True(t, updated)
	assert.Equal(t, []bool{false}, results)
}

func TestBufferView_WindowKeepsOtherLines(t *testing.T) {
	current := []model.Task{task("a", false), task("b", false)}
	buf := newFakeBuffer("# Groceries", "", "- [ ] a", "- [ ] b", "", "Notes")
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil).At(2, 2)

	next := []model.Task{task("b", true), task("c", false)}
	var results []bool
	listdiff.Reload(view, []model.Change[model.Task]{
		model.Delete[model.Task]{Item: current[0], Index: 0},
		model.Insert[model.Task]{Item: next[1], Index: 1},
		model.Replace[model.Task]{OldItem: current[1], NewItem: next[0], Index: 0},
	}, func() { current = next }, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.Equal(t, []bool{true}, results)
	assert.Equal(t, []string{"# Groceries", "", "- [x] b", "- [ ] c", "", "Notes"}, buf.lines)

	// Emptying the list and filling it again stays inside the window.
	listdiff.Reload(view, []model.Change[model.Task]{
		model.Delete[model.Task]{Item: next[0], Index: 0},
		model.Delete[model.Task]{Item: next[1], Index: 1},
	}, func() { current = nil }, nil)
	assert.Equal(t, []string{"# Groceries", "", "", "Notes"}, buf.lines)

	listdiff.Reload(view, []model.Change[model.Task]{
		model.Insert[model.Task]{Item: task("d", false), Index: 0},
	}, func() { current = []model.Task{task("d", false)} }, nil)
	assert.Equal(t, []string{"# Groceries", "", "- [ ] d", "", "Notes"}, buf.lines)
}

func TestBufferView_WindowOutsideBufferFails(t *testing.T) {
	current := []model.Task{task("a", false)}
	buf := newFakeBuffer("# Groceries")
	view := nvim.NewBufferView(buf, 1, 0, func() []model.Task { return current }, nil).At(1, 1)

	var results []bool
	listdiff.Reload[model.Task](view, nil, func() {}, &listdiff.Config{
		Completion: func(ok bool) { results = append(results, ok) },
	})

	assert.Equal(t, []bool{false}, results)
	assert.Equal(t, []string{"# Groceries"}, buf.lines)
}

func TestMatchesContent(t *testing.T) {
	lines := func(ls ...string) [][]byte {
		out := make([][]byte, len(ls))
		for i, l := range ls {
			out[i] = []byte(l)
		}
		return out
	}

	assert.True(t, nvim.MatchesContent(lines("# T", "- a"), []byte("# T\n- a\n")))
	assert.True(t, nvim.MatchesContent(lines("# T", "- a"), []byte("# T\n- a")))
	assert.True(t, nvim.MatchesContent(lines(""), nil))
	assert.True(t, nvim.MatchesContent(lines("", ""), []byte("\n\n")))
	assert.False(t, nvim.MatchesContent(lines("# T", "- b"), []byte("# T\n- a\n")))
	assert.False(t, nvim.MatchesContent(lines("# T"), []byte("# T\n- a\n")))
}
