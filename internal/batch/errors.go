package batch

import (
	"errors"
	"fmt"
)

// ErrBatchInFlight means a batch was opened while another one was still open
// or waiting for its completion.
var ErrBatchInFlight = errors.New("batch already in flight")

// IndexOutOfRangeError means an address points outside the list it refers to.
type IndexOutOfRangeError struct {
	Op       string
	Position int
	Count    int
}

func (e IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: position %d out of range [0, %d)", e.Op, e.Position, e.Count)
}

// DuplicateIndexError means the same position was used twice by one batch.
type DuplicateIndexError struct {
	Op       string
	Position int
}

func (e DuplicateIndexError) Error() string {
	return fmt.Sprintf("%s: position %d used more than once", e.Op, e.Position)
}

// SectionMismatchError means an address targets a section the container does
// not show.
type SectionMismatchError struct {
	Want int
	Got  int
}

func (e SectionMismatchError) Error() string {
	return fmt.Sprintf("address in section %d, container shows section %d", e.Got, e.Want)
}

// CountMismatchError means the new data does not have the number of rows the
// batch implies.
type CountMismatchError struct {
	Before   int
	Deleted  int
	Inserted int
	After    int
}

func (e CountMismatchError) Error() string {
	return fmt.Sprintf("invalid update: %d rows before, %d deleted, %d inserted, but %d rows after",
		e.Before, e.Deleted, e.Inserted, e.After)
}
