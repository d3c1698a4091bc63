package model

// Change is one structural difference between two versions of an ordered
// collection. Only Insert, Delete, Move and Replace satisfy it.
type Change[T any] interface {
	changedItem() T
}

// Insert places Item at Index of the new collection.
type Insert[T any] struct {
	Item  T
	Index int
}

// Delete removes Item from Index of the old collection.
type Delete[T any] struct {
	Item  T
	Index int
}

// Move relocates Item from FromIndex in the old collection to ToIndex in the
// new one.
type Move[T any] struct {
	Item      T
	FromIndex int
	ToIndex   int
}

// Replace swaps OldItem for NewItem at Index of the new collection.
type Replace[T any] struct {
	OldItem T
	NewItem T
	Index   int
}

func (c Insert[T]) changedItem() T  { return c.Item }
func (c Delete[T]) changedItem() T  { return c.Item }
func (c Move[T]) changedItem() T    { return c.Item }
func (c Replace[T]) changedItem() T { return c.NewItem }

// Address locates a row in an index-addressed container.
type Address struct {
	Section  int
	Position int
}

// AddressMove pairs the source and destination of a moved row.
type AddressMove struct {
	From Address
	To   Address
}

// Groups holds the addresses of a diff, split by operation kind.
// An empty category is nil, never an empty slice.
type Groups struct {
	Deletes  []Address
	Inserts  []Address
	Moves    []AddressMove
	Replaces []Address
}

// Task is one entry of a list document.
type Task struct {
	Title    string
	Checkbox bool
	Done     bool
}

// ID is the identity used to match tasks across versions.
func (t Task) ID() string {
	return t.Title
}

// Summary holds the results of an operation for display.
type Summary struct {
	Path     string
	Inserted int
	Deleted  int
	Moved    int
	Replaced int
	Finished bool
	Saved    bool
	Message  string
}
