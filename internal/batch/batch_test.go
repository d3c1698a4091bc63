package batch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/listdiff/internal/batch"
	"github.com/sokinpui/listdiff/model"
)

func at(positions ...int) []model.Address {
	out := make([]model.Address, len(positions))
	for i, p := range positions {
		out[i] = model.Address{Position: p}
	}
	return out
}

func TestTracker_ValidBatch(t *testing.T) {
	tr := batch.New(0)

	id := tr.Begin(4)
	require.NotEmpty(t, id)
	assert.Equal(t, batch.StateOpen, tr.State())

	tr.Delete(at(3))
	tr.Insert(at(0, 1))
	tr.Move(model.Address{Position: 0}, model.Address{Position: 4})

	res, err := tr.End(5)
	require.NoError(t, err)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Moved)
	assert.Equal(t, map[int]batch.Mark{0: batch.MarkInserted, 1: batch.MarkInserted, 4: batch.MarkMoved}, res.Marks)
	assert.Equal(t, batch.StateClosing, tr.State())

	tr.Complete()
	assert.Equal(t, batch.StateIdle, tr.State())
}

func TestTracker_EmptyBatch(t *testing.T) {
	tr := batch.New(0)
	tr.Begin(2)

	res, err := tr.End(2)
	require.NoError(t, err)
	assert.Empty(t, res.Marks)
}

func TestTracker_Validation(t *testing.T) {
	tests := []struct {
		name     string
		oldCount int
		newCount int
		apply    func(tr *batch.Tracker)
		wantErr  error
	}{
		{
			name:     "count mismatch",
			oldCount: 3,
			newCount: 3,
			apply:    func(tr *batch.Tracker) { tr.Delete(at(0)) },
			wantErr:  batch.CountMismatchError{Before: 3, Deleted: 1, Inserted: 0, After: 3},
		},
		{
			name:     "delete out of range",
			oldCount: 2,
			newCount: 1,
			apply:    func(tr *batch.Tracker) { tr.Delete(at(2)) },
			wantErr:  batch.IndexOutOfRangeError{Op: "delete", Position: 2, Count: 2},
		},
		{
			name:     "insert out of range",
			oldCount: 0,
			newCount: 1,
			apply:    func(tr *batch.Tracker) { tr.Insert(at(1)) },
			wantErr:  batch.IndexOutOfRangeError{Op: "insert", Position: 1, Count: 1},
		},
		{
			name:     "delete and move of the same row",
			oldCount: 3,
			newCount: 2,
			apply: func(tr *batch.Tracker) {
				tr.Delete(at(1))
				tr.Move(model.Address{Position: 1}, model.Address{Position: 0})
			},
			wantErr: batch.DuplicateIndexError{Op: "move", Position: 1},
		},
		{
			name:     "insert over a move destination",
			oldCount: 2,
			newCount: 3,
			apply: func(tr *batch.Tracker) {
				tr.Insert(at(0))
				tr.Move(model.Address{Position: 1}, model.Address{Position: 0})
			},
			wantErr: batch.DuplicateIndexError{Op: "move", Position: 0},
		},
		{
			name:     "wrong section",
			oldCount: 1,
			newCount: 0,
			apply:    func(tr *batch.Tracker) { tr.Delete([]model.Address{{Section: 1, Position: 0}}) },
			wantErr:  batch.SectionMismatchError{Want: 0, Got: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := batch.New(0)
			tr.Begin(tt.oldCount)
			tt.apply(tr)

			_, err := tr.End(tt.newCount)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, batch.StateClosing, tr.State())
		})
	}
}

func TestTracker_ContractViolations(t *testing.T) {
	t.Run("begin while in flight", func(t *testing.T) {
		tr := batch.New(0)
		tr.Begin(0)
		assert.PanicsWithValue(t, batch.ErrBatchInFlight, func() { tr.Begin(0) })

		_, _ = tr.End(0)
		assert.PanicsWithValue(t, batch.ErrBatchInFlight, func() { tr.Begin(0) })
	})

	t.Run("empty address set", func(t *testing.T) {
		tr := batch.New(0)
		tr.Begin(1)
		assert.Panics(t, func() { tr.Delete(nil) })
		assert.Panics(t, func() { tr.Insert([]model.Address{}) })
	})

	t.Run("mutation outside batch", func(t *testing.T) {
		tr := batch.New(0)
		assert.Panics(t, func() { tr.Insert(at(0)) })
	})
}

func TestTracker_CheckReload(t *testing.T) {
	tr := batch.New(2)

	positions, err := tr.CheckReload([]model.Address{{Section: 2, Position: 1}, {Section: 2, Position: 0}}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, positions)

	_, err = tr.CheckReload([]model.Address{{Section: 2, Position: 2}}, 2)
	assert.Equal(t, batch.IndexOutOfRangeError{Op: "reload", Position: 2, Count: 2}, err)

	_, err = tr.CheckReload([]model.Address{{Section: 0, Position: 0}}, 2)
	assert.Equal(t, batch.SectionMismatchError{Want: 2, Got: 0}, err)

	assert.Panics(t, func() { _, _ = tr.CheckReload(nil, 2) })
}
