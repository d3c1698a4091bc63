package listdiff

import (
	"go.uber.org/zap"

	"github.com/sokinpui/listdiff/internal/convert"
	"github.com/sokinpui/listdiff/model"
)

// Container is an index-addressed list that can apply structural changes.
//
// Index references issued inside PerformBatchUpdates are read against the
// state before the batch; reloads are read against the committed state.
// None of the address sets passed to a Container is ever empty.
type Container interface {
	PerformBatchUpdates(updates func(), completion func(finished bool))
	DeleteItems(at []model.Address)
	InsertItems(at []model.Address)
	MoveItem(from, to model.Address)
	ReloadItems(at []model.Address)
}

// Config for a single Reload call. A nil Config uses section 0, drops the
// completion result and does not log.
type Config struct {
	// Section that every calculated address belongs to.
	Section int
	// Completion receives the batch result once the container has finished
	// its transition.
	Completion func(finished bool)
	Logger     *zap.Logger
}

// Phase of a Reload call, used in log output.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBatchOpen
	PhaseBatchClosing
	PhaseReplayReplaces
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBatchOpen:
		return "batch_open"
	case PhaseBatchClosing:
		return "batch_closing"
	case PhaseReplayReplaces:
		return "replay_replaces"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Reload applies changes to view in one animated batch.
//
// updateData must swap the caller's backing data to the new version. It runs
// inside the batch, before any delete, insert or move is issued. Replaces are
// reloaded after the batch has been scheduled, whether or not it succeeds;
// a false completion means the view may no longer match the data and the
// caller should reload it fully.
func Reload[T any](view Container, changes []model.Change[T], updateData func(), cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	groups := convert.Convert(changes, cfg.Section)
	logger = logger.With(
		zap.Int("section", cfg.Section),
		zap.Int("deletes", len(groups.Deletes)),
		zap.Int("inserts", len(groups.Inserts)),
		zap.Int("moves", len(groups.Moves)),
		zap.Int("replaces", len(groups.Replaces)),
	)

	logger.Debug("reload", zap.Stringer("phase", PhaseIdle))

	// Done is reached once the container has completed the batch and the
	// replace pass has been issued, in whichever order they happen.
	var completed, replayed bool
	done := func() {
		if completed && replayed {
			logger.Debug("reload", zap.Stringer("phase", PhaseDone))
		}
	}

	view.PerformBatchUpdates(func() {
		logger.Debug("reload", zap.Stringer("phase", PhaseBatchOpen))
		updateData()
		insideUpdate(view, groups)
	}, func(finished bool) {
		logger.Debug("reload", zap.Stringer("phase", PhaseBatchClosing), zap.Bool("finished", finished))
		if cfg.Completion != nil {
			cfg.Completion(finished)
		}
		completed = true
		done()
	})

	// Reloads must run outside the batch.
	if outsideUpdate(view, groups) {
		logger.Debug("reload", zap.Stringer("phase", PhaseReplayReplaces))
	}
	replayed = true
	done()
}

func insideUpdate(view Container, groups model.Groups) {
	if len(groups.Deletes) > 0 {
		view.DeleteItems(groups.Deletes)
	}
	if len(groups.Inserts) > 0 {
		view.InsertItems(groups.Inserts)
	}
	for _, move := range groups.Moves {
		view.MoveItem(move.From, move.To)
	}
}

func outsideUpdate(view Container, groups model.Groups) bool {
	if len(groups.Replaces) == 0 {
		return false
	}
	view.ReloadItems(groups.Replaces)
	return true
}
