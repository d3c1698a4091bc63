package app

import (
	"bytes"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/sokinpui/listdiff/cli"
	"github.com/sokinpui/listdiff/internal/convert"
	"github.com/sokinpui/listdiff/internal/differ"
	"github.com/sokinpui/listdiff/internal/fs"
	"github.com/sokinpui/listdiff/internal/nvim"
	"github.com/sokinpui/listdiff/internal/parser"
	"github.com/sokinpui/listdiff/internal/source"
	"github.com/sokinpui/listdiff/internal/state"
	"github.com/sokinpui/listdiff/listdiff"
	"github.com/sokinpui/listdiff/model"
)

// Action is what a Plan does to the history.
type Action string

const (
	ActionApply Action = "apply"
	ActionUndo  Action = "undo"
	ActionRedo  Action = "redo"
)

// Plan is everything needed to reconcile a list file with its new version.
type Plan struct {
	Path          string
	Action        Action
	Before        []model.Task
	After         []model.Task
	BeforeContent []byte
	AfterContent  []byte
	Changes       []model.Change[model.Task]
	// Remove is set when the file did not exist in the version being
	// restored.
	Remove bool
	// Message is set when there is nothing to apply.
	Message string
}

// Empty reports whether the plan has nothing to write.
func (p *Plan) Empty() bool {
	return p.Message != ""
}

// App orchestrates the entire application logic.
type App struct {
	cfg            *cli.Config
	stateManager   *state.Manager
	pathResolver   *fs.PathResolver
	sourceProvider *source.SourceProvider
	logger         *zap.Logger
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config, logger *zap.Logger) (*App, error) {
	stateManager, err := state.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	return newApp(cfg, logger, stateManager)
}

func newApp(cfg *cli.Config, logger *zap.Logger, stateManager *state.Manager) (*App, error) {
	pathResolver, err := fs.NewPathResolver(cfg.LookupDirs)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &App{
		cfg:            cfg,
		stateManager:   stateManager,
		pathResolver:   pathResolver,
		sourceProvider: source.New(cfg.From),
		logger:         logger,
	}, nil
}

// Config returns the configuration the app was created with.
func (a *App) Config() *cli.Config {
	return a.cfg
}

// Logger returns the app's logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// StdinPiped reports whether the new list is being piped in.
func (a *App) StdinPiped() bool {
	return a.cfg.From == "" && a.sourceProvider.IsPiped()
}

// Plan reads the current and the new version of the list and diffs them.
func (a *App) Plan() (*Plan, error) {
	switch {
	case a.cfg.Undo:
		entry, ok := a.stateManager.PeekUndo()
		if !ok {
			return &Plan{Action: ActionUndo, Message: "No operation to undo."}, nil
		}
		return a.historyPlan(ActionUndo, entry.Path, entry.AfterHash, entry.BeforeHash)
	case a.cfg.Redo:
		entry, ok := a.stateManager.PeekRedo()
		if !ok {
			return &Plan{Action: ActionRedo, Message: "No operation to redo."}, nil
		}
		return a.historyPlan(ActionRedo, entry.Path, entry.BeforeHash, entry.AfterHash)
	}

	path := a.pathResolver.Resolve(a.cfg.ListFile)
	content, err := a.sourceProvider.GetContent()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return &Plan{Path: path, Action: ActionApply, Message: "Source is empty. Nothing to process."}, nil
	}

	beforeContent, err := fs.ReadFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}
	before, err := parser.Parse(beforeContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	after, err := parser.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse new list: %w", err)
	}

	return a.newPlan(path, ActionApply, before, after, beforeContent, parser.Render(after)), nil
}

// historyPlan plans a move of path from the snapshot it should be at to
// another snapshot, refusing if the file was changed in the meantime.
func (a *App) historyPlan(action Action, path, expectHash, targetHash string) (*Plan, error) {
	currentHash, err := fs.GetFileSHA256(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	if currentHash != expectHash {
		return nil, fmt.Errorf("cannot %s: %s was changed since the last operation", action, path)
	}

	beforeContent, err := fs.ReadFileIfExists(path)
	if err != nil {
		return nil, err
	}
	afterContent, err := a.stateManager.Snapshot(targetHash)
	if err != nil {
		return nil, err
	}
	remove := targetHash == fs.AbsentHash

	before, err := parser.Parse(beforeContent)
	if err != nil {
		return nil, err
	}
	after, err := parser.Parse(afterContent)
	if err != nil {
		return nil, err
	}
	plan := a.newPlan(path, action, before, after, beforeContent, afterContent)
	if remove && beforeContent != nil {
		plan.Remove = true
		plan.Message = ""
	}
	return plan, nil
}

func (a *App) newPlan(path string, action Action, before, after []model.Task, beforeContent, afterContent []byte) *Plan {
	plan := &Plan{
		Path:          path,
		Action:        action,
		Before:        before,
		After:         after,
		BeforeContent: beforeContent,
		AfterContent:  afterContent,
		Changes:       differ.Diff(before, after),
	}
	if len(plan.Changes) == 0 && bytes.Equal(beforeContent, afterContent) {
		plan.Message = "List is already up to date."
	}
	a.logger.Info("planned",
		zap.String("path", path),
		zap.String("action", string(action)),
		zap.Int("before", len(before)),
		zap.Int("after", len(after)),
		zap.Int("changes", len(plan.Changes)))
	return plan
}

// Summarize counts the changes of a plan by kind.
func Summarize(plan *Plan) model.Summary {
	groups := convert.Convert(plan.Changes, 0)
	return model.Summary{
		Path:     plan.Path,
		Inserted: len(groups.Inserts),
		Deleted:  len(groups.Deletes),
		Moved:    len(groups.Moves),
		Replaced: len(groups.Replaces),
		Message:  plan.Message,
	}
}

// Commit writes the new version of the list and records it in the history.
func (a *App) Commit(plan *Plan) (model.Summary, error) {
	summary := Summarize(plan)
	if plan.Empty() {
		return summary, nil
	}

	after := plan.AfterContent
	if plan.Remove {
		if err := fs.RemoveFile(plan.Path); err != nil {
			return summary, fmt.Errorf("failed to remove %s: %w", plan.Path, err)
		}
		after = nil
	} else {
		if after == nil {
			after = []byte{}
		}
		if err := fs.WriteFile(plan.Path, after); err != nil {
			return summary, fmt.Errorf("failed to write %s: %w", plan.Path, err)
		}
	}
	summary.Saved = true

	message, err := a.record(plan, after)
	if err != nil {
		return summary, err
	}
	summary.Message = message
	a.logger.Info("committed", zap.String("path", plan.Path), zap.String("action", string(plan.Action)))
	return summary, nil
}

// record moves the history along once after is on disk. A nil after means
// the file was removed.
func (a *App) record(plan *Plan, after []byte) (string, error) {
	var err error
	var message string
	switch plan.Action {
	case ActionUndo:
		err = a.stateManager.MarkUndone()
		message = "Undid last operation."
	case ActionRedo:
		err = a.stateManager.MarkRedone()
		message = "Redid last undone operation."
	default:
		err = a.stateManager.Record(plan.Path, plan.BeforeContent, after)
	}
	if err != nil {
		return "", fmt.Errorf("failed to update history: %w", err)
	}
	return message, nil
}

// ApplyInBuffer reconciles the list shown in a Neovim buffer. Lines of the
// file outside the list are left alone. The buffer is written and the
// operation recorded only with --save.
func (a *App) ApplyInBuffer(plan *Plan) (model.Summary, error) {
	summary := Summarize(plan)
	if plan.Action != ActionApply {
		return summary, fmt.Errorf("%s is not available in buffer mode", plan.Action)
	}
	offset, ok := parser.Locate(plan.BeforeContent)
	if !ok {
		return summary, fmt.Errorf("the items of %s are not one block of single-line list items; run without --buffer", plan.Path)
	}

	manager, err := nvim.New()
	if err != nil {
		return summary, err
	}
	defer manager.Close()
	if err := a.checkKept(manager.Attached()); err != nil {
		return summary, err
	}

	buffer, err := manager.OpenBuffer(plan.Path)
	if err != nil {
		return summary, err
	}
	lines, err := manager.Lines().BufferLines(buffer, 0, -1, true)
	if err != nil {
		return summary, fmt.Errorf("failed to read buffer: %w", err)
	}
	if !nvim.MatchesContent(lines, plan.BeforeContent) {
		return summary, fmt.Errorf("the buffer of %s differs from the file on disk; reload it first", plan.Path)
	}

	current := plan.Before
	view := nvim.NewBufferView(manager.Lines(), buffer, a.cfg.Section, func() []model.Task { return current }, a.logger).
		At(offset, len(plan.Before))
	if err := view.Load(); err != nil {
		return summary, fmt.Errorf("failed to load buffer: %w", err)
	}

	listdiff.Reload(view, plan.Changes, func() { current = plan.After }, &listdiff.Config{
		Section:    a.cfg.Section,
		Logger:     a.logger,
		Completion: func(finished bool) { summary.Finished = finished },
	})

	if !summary.Finished {
		// The buffer no longer matches the list; show the new list in full.
		if err := view.Load(); err != nil {
			return summary, fmt.Errorf("failed to reload buffer: %w", err)
		}
	}
	if !a.cfg.Save {
		return summary, nil
	}

	if err := manager.Save(buffer); err != nil {
		return summary, err
	}
	saved, err := fs.ReadFileIfExists(plan.Path)
	if err != nil {
		return summary, fmt.Errorf("failed to read back %s: %w", plan.Path, err)
	}
	summary.Saved = true
	if _, err := a.record(plan, saved); err != nil {
		return summary, err
	}
	a.logger.Info("saved buffer", zap.String("path", plan.Path))
	return summary, nil
}

// checkKept refuses to edit a buffer whose changes would be thrown away.
func (a *App) checkKept(attached bool) error {
	if !attached && !a.cfg.Save {
		return fmt.Errorf("no running Neovim found at $NVIM_LISTEN_ADDRESS; use --save to write the file through a headless instance")
	}
	return nil
}

// Execute runs the non-interactive buffer mode.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	plan, err := a.Plan()
	if err != nil {
		return model.Summary{}, err
	}
	if plan.Empty() {
		return Summarize(plan), nil
	}
	return a.ApplyInBuffer(plan)
}
