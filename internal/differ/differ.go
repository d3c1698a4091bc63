package differ

import (
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sokinpui/listdiff/model"
)

// Diff computes the changes that turn before into after.
//
// Tasks are matched by ID with a diff over one rune per distinct ID. Deletes
// carry positions in before, inserts and replaces positions in after. A task
// deleted in one place and inserted in another is reported as a single move.
func Diff(before, after []model.Task) []model.Change[model.Task] {
	a, b, ok := encode(before, after)
	if !ok {
		return fuseMoves(rewrite(before, after))
	}
	diffs := diffmatchpatch.New().DiffMainRunes(a, b, false)

	var changes []model.Change[model.Task]
	oi, ni := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		for k := 0; k < n; k++ {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				if before[oi] != after[ni] {
					changes = append(changes, model.Replace[model.Task]{OldItem: before[oi], NewItem: after[ni], Index: ni})
				}
				oi++
				ni++
			case diffmatchpatch.DiffDelete:
				changes = append(changes, model.Delete[model.Task]{Item: before[oi], Index: oi})
				oi++
			case diffmatchpatch.DiffInsert:
				changes = append(changes, model.Insert[model.Task]{Item: after[ni], Index: ni})
				ni++
			}
		}
	}

	return fuseMoves(changes)
}

// encode maps every distinct ID to its own rune, skipping the surrogate
// range since those runes do not survive a round trip through a string. It
// fails once the IDs outnumber the runes.
func encode(before, after []model.Task) ([]rune, []rune, bool) {
	ids := make(map[string]rune)
	next := rune(0)
	runes := func(tasks []model.Task) ([]rune, bool) {
		out := make([]rune, len(tasks))
		for i, t := range tasks {
			r, ok := ids[t.ID()]
			if !ok {
				if next == surrogateMin {
					next = surrogateMax + 1
				}
				if next > unicode.MaxRune {
					return nil, false
				}
				r = next
				ids[t.ID()] = r
				next++
			}
			out[i] = r
		}
		return out, true
	}

	a, ok := runes(before)
	if !ok {
		return nil, nil, false
	}
	b, ok := runes(after)
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// rewrite deletes every old task and inserts every new one.
func rewrite(before, after []model.Task) []model.Change[model.Task] {
	changes := make([]model.Change[model.Task], 0, len(before)+len(after))
	for i, t := range before {
		changes = append(changes, model.Delete[model.Task]{Item: t, Index: i})
	}
	for i, t := range after {
		changes = append(changes, model.Insert[model.Task]{Item: t, Index: i})
	}
	return changes
}

// fuseMoves pairs each delete with the first unmatched insert of the same ID
// and replaces the pair by a move in the position of the delete.
func fuseMoves(changes []model.Change[model.Task]) []model.Change[model.Task] {
	inserts := make(map[string][]int)
	for i, c := range changes {
		if ins, ok := c.(model.Insert[model.Task]); ok {
			inserts[ins.Item.ID()] = append(inserts[ins.Item.ID()], i)
		}
	}
	if len(inserts) == 0 {
		return changes
	}

	consumed := make(map[int]bool)
	for i, c := range changes {
		del, ok := c.(model.Delete[model.Task])
		if !ok {
			continue
		}
		candidates := inserts[del.Item.ID()]
		if len(candidates) == 0 {
			continue
		}
		j := candidates[0]
		inserts[del.Item.ID()] = candidates[1:]
		ins := changes[j].(model.Insert[model.Task])
		changes[i] = model.Move[model.Task]{Item: ins.Item, FromIndex: del.Index, ToIndex: ins.Index}
		consumed[j] = true
	}

	out := changes[:0]
	for i, c := range changes {
		if !consumed[i] {
			out = append(out, c)
		}
	}
	return out
}
