package differ_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/listdiff/internal/batch"
	"github.com/sokinpui/listdiff/internal/convert"
	"github.com/sokinpui/listdiff/internal/differ"
	"github.com/sokinpui/listdiff/model"
)

func tasks(titles ...string) []model.Task {
	out := make([]model.Task, len(titles))
	for i, title := range titles {
		out[i] = model.Task{Title: title, Checkbox: true}
	}
	return out
}

func TestDiff(t *testing.T) {
	done := model.Task{Title: "a", Checkbox: true, Done: true}

	tests := []struct {
		name   string
		before []model.Task
		after  []model.Task
		want   []model.Change[model.Task]
	}{
		{
			name:   "identical",
			before: tasks("a", "b"),
			after:  tasks("a", "b"),
			want:   nil,
		},
		{
			name:   "delete",
			before: tasks("a", "b", "c"),
			after:  tasks("a", "c"),
			want:   []model.Change[model.Task]{model.Delete[model.Task]{Item: tasks("b")[0], Index: 1}},
		},
		{
			name:   "insert",
			before: tasks("a", "c"),
			after:  tasks("a", "b", "c"),
			want:   []model.Change[model.Task]{model.Insert[model.Task]{Item: tasks("b")[0], Index: 1}},
		},
		{
			name:   "replace",
			before: tasks("a", "b"),
			after:  append([]model.Task{done}, tasks("b")...),
			want: []model.Change[model.Task]{
				model.Replace[model.Task]{OldItem: tasks("a")[0], NewItem: done, Index: 0},
			},
		},
		{
			name:   "move",
			before: tasks("a", "b", "c"),
			after:  tasks("b", "c", "a"),
			want: []model.Change[model.Task]{
				model.Move[model.Task]{Item: tasks("a")[0], FromIndex: 0, ToIndex: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, differ.Diff(tt.before, tt.after))
		})
	}
}

// TestDiff_ConsistentWithContainer feeds the diff through the same checks a
// container performs and rebuilds the new list from the old one.
func TestDiff_ConsistentWithContainer(t *testing.T) {
	cases := [][2][]model.Task{
		{nil, tasks("a", "b")},
		{tasks("a", "b"), nil},
		{tasks("a", "b", "c", "d", "e"), tasks("e", "d", "c", "b", "a")},
		{tasks("a", "b", "c", "d"), tasks("x", "b", "y", "a", "d")},
		{tasks("a", "a", "b"), tasks("b", "a", "a", "a")},
		{tasks("milk", "bread", "eggs", "tea"), tasks("tea", "eggs", "jam", "milk")},
	}

	for _, c := range cases {
		before, after := c[0], c[1]
		groups := convert.Convert(differ.Diff(before, after), 0)

		tr := batch.New(0)
		tr.Begin(len(before))
		if groups.Deletes != nil {
			tr.Delete(groups.Deletes)
		}
		if groups.Inserts != nil {
			tr.Insert(groups.Inserts)
		}
		for _, m := range groups.Moves {
			tr.Move(m.From, m.To)
		}
		_, err := tr.End(len(after))
		require.NoError(t, err)

		assert.Equal(t, ids(after), ids(rebuild(before, after, groups)))
	}
}

// rebuild applies groups to before: inserted and moved rows take their
// destinations, untouched rows fill the remaining slots in order.
func rebuild(before, after []model.Task, groups model.Groups) []model.Task {
	out := make([]model.Task, len(after))
	filled := make([]bool, len(after))
	gone := make(map[int]bool)

	for _, a := range groups.Deletes {
		gone[a.Position] = true
	}
	for _, a := range groups.Inserts {
		out[a.Position] = after[a.Position]
		filled[a.Position] = true
	}
	for _, m := range groups.Moves {
		gone[m.From.Position] = true
		out[m.To.Position] = before[m.From.Position]
		filled[m.To.Position] = true
	}

	slot := 0
	for i, task := range before {
		if gone[i] {
			continue
		}
		for filled[slot] {
			slot++
		}
		out[slot] = task
		filled[slot] = true
	}
	return out
}

func ids(ts []model.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID()
	}
	return out
}

func TestDiff_ManyDistinctTitles(t *testing.T) {
	// More distinct titles than there are runes below the surrogate range.
	titles := make([]string, 60000)
	for i := range titles {
		titles[i] = fmt.Sprintf("t%d", i)
	}
	before := tasks(titles...)
	after := append(tasks(titles[:100]...), tasks(titles[101:]...)...)
	after[len(after)-1].Done = true

	changes := differ.Diff(before, after)

	assert.Equal(t, []model.Change[model.Task]{
		model.Delete[model.Task]{Item: before[100], Index: 100},
		model.Replace[model.Task]{OldItem: before[len(before)-1], NewItem: after[len(after)-1], Index: len(after) - 1},
	}, changes)
}
