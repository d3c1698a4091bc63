package batch

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sokinpui/listdiff/model"
)

// State of a Tracker.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateClosing
)

// Mark tells how a row of the new list came to be where it is.
type Mark int

const (
	MarkNone Mark = iota
	MarkInserted
	MarkMoved
	MarkReplaced
)

// Result describes a validated batch.
type Result struct {
	ID       string
	Deleted  int
	Inserted int
	Moved    int
	// Marks is keyed by position in the new list.
	Marks map[int]Mark
}

type move struct {
	from, to int
}

// Tracker records the operations of one batch against a single-section
// container and checks them the way an index-addressed list does when the
// batch closes.
type Tracker struct {
	section  int
	state    State
	id       string
	oldCount int
	deletes  []int
	inserts  []int
	moves    []move
	err      error
}

// New creates a Tracker for a container that shows section.
func New(section int) *Tracker {
	return &Tracker{section: section}
}

// Section returns the section the container shows.
func (t *Tracker) Section() int {
	return t.section
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// ID returns the id of the current or last batch.
func (t *Tracker) ID() string {
	return t.id
}

// Begin opens a batch over a list of oldCount rows and returns its id.
// It panics if the previous batch has not completed.
func (t *Tracker) Begin(oldCount int) string {
	if t.state != StateIdle {
		panic(ErrBatchInFlight)
	}
	t.state = StateOpen
	t.id = uuid.NewString()
	t.oldCount = oldCount
	t.deletes, t.inserts, t.moves, t.err = nil, nil, nil, nil
	return t.id
}

// Delete records deletions at positions of the old list.
func (t *Tracker) Delete(at []model.Address) {
	t.mustBeOpen("delete", len(at))
	t.deletes = append(t.deletes, t.positions(at)...)
}

// Insert records insertions at positions of the new list.
func (t *Tracker) Insert(at []model.Address) {
	t.mustBeOpen("insert", len(at))
	t.inserts = append(t.inserts, t.positions(at)...)
}

// Move records a row moving from a position of the old list to a position of
// the new list.
func (t *Tracker) Move(from, to model.Address) {
	t.mustBeOpen("move", 2)
	p := t.positions([]model.Address{from, to})
	t.moves = append(t.moves, move{from: p[0], to: p[1]})
}

// End closes the batch against a new list of newCount rows. The tracker stays
// in StateClosing until Complete is called, even when validation fails.
func (t *Tracker) End(newCount int) (Result, error) {
	if t.state != StateOpen {
		panic("batch: end without begin")
	}
	t.state = StateClosing

	res := Result{
		ID:       t.id,
		Deleted:  len(t.deletes),
		Inserted: len(t.inserts),
		Moved:    len(t.moves),
		Marks:    make(map[int]Mark, len(t.inserts)+len(t.moves)),
	}
	if t.err != nil {
		return res, t.err
	}

	sources := make(map[int]struct{}, len(t.deletes)+len(t.moves))
	targets := make(map[int]struct{}, len(t.inserts)+len(t.moves))
	claim := func(seen map[int]struct{}, op string, pos, count int) error {
		if pos < 0 || pos >= count {
			return IndexOutOfRangeError{Op: op, Position: pos, Count: count}
		}
		if _, ok := seen[pos]; ok {
			return DuplicateIndexError{Op: op, Position: pos}
		}
		seen[pos] = struct{}{}
		return nil
	}

	for _, pos := range t.deletes {
		if err := claim(sources, "delete", pos, t.oldCount); err != nil {
			return res, err
		}
	}
	for _, pos := range t.inserts {
		if err := claim(targets, "insert", pos, newCount); err != nil {
			return res, err
		}
		res.Marks[pos] = MarkInserted
	}
	for _, m := range t.moves {
		if err := claim(sources, "move", m.from, t.oldCount); err != nil {
			return res, err
		}
		if err := claim(targets, "move", m.to, newCount); err != nil {
			return res, err
		}
		res.Marks[m.to] = MarkMoved
	}

	if newCount != t.oldCount-len(t.deletes)+len(t.inserts) {
		return res, CountMismatchError{
			Before:   t.oldCount,
			Deleted:  len(t.deletes),
			Inserted: len(t.inserts),
			After:    newCount,
		}
	}
	return res, nil
}

// Complete returns the tracker to StateIdle once the container has finished
// its transition.
func (t *Tracker) Complete() {
	if t.state != StateClosing {
		panic("batch: complete without end")
	}
	t.state = StateIdle
}

// CheckReload validates a reload of committed rows outside a batch and
// returns the positions to reload.
func (t *Tracker) CheckReload(at []model.Address, count int) ([]int, error) {
	if len(at) == 0 {
		panic("batch: reload with no addresses")
	}
	if t.state == StateOpen {
		return nil, fmt.Errorf("reload inside batch %s", t.id)
	}
	positions := make([]int, 0, len(at))
	seen := make(map[int]struct{}, len(at))
	for _, a := range at {
		if a.Section != t.section {
			return nil, SectionMismatchError{Want: t.section, Got: a.Section}
		}
		if a.Position < 0 || a.Position >= count {
			return nil, IndexOutOfRangeError{Op: "reload", Position: a.Position, Count: count}
		}
		if _, ok := seen[a.Position]; ok {
			return nil, DuplicateIndexError{Op: "reload", Position: a.Position}
		}
		seen[a.Position] = struct{}{}
		positions = append(positions, a.Position)
	}
	return positions, nil
}

func (t *Tracker) mustBeOpen(op string, n int) {
	if t.state != StateOpen {
		panic(fmt.Sprintf("batch: %s outside batch", op))
	}
	if n == 0 {
		panic(fmt.Sprintf("batch: %s with no addresses", op))
	}
}

// positions strips the section from addresses, remembering the first section
// mismatch so End can report it.
func (t *Tracker) positions(at []model.Address) []int {
	out := make([]int, len(at))
	for i, a := range at {
		if a.Section != t.section && t.err == nil {
			t.err = SectionMismatchError{Want: t.section, Got: a.Section}
		}
		out[i] = a.Position
	}
	return out
}
