package rema

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a position in the release transaction state machine.
type State int

const (
	StateInit State = iota
	StateFilesWritten
	StateCommitted
	StatePushed
	StateReleaseCreated
	StateTagsSynced // terminal success
	StateRollingBack
	StateRolledBack
	StateRollbackFailed
)

var stateNames = map[State]string{
	StateInit:           "init",
	StateFilesWritten:   "files-written",
	StateCommitted:      "committed",
	StatePushed:         "pushed",
	StateReleaseCreated: "release-created",
	StateTagsSynced:     "tags-synced",
	StateRollingBack:    "rolling-back",
	StateRolledBack:     "rolled-back",
	StateRollbackFailed: "rollback-failed",
}

// stepNames describe the forward step that leads into a state.
var stepNames = map[State]string{
	StateFilesWritten:   "manifest write",
	StateCommitted:      "commit",
	StatePushed:         "push",
	StateReleaseCreated: "release creation",
	StateTagsSynced:     "tag sync",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Step names the forward action that leads into s.
func (s State) Step() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return s.String()
}

// Request is the input of one release attempt.
type Request struct {
	Target        ReleaseRecord
	Title         string // commit message and release title; defaults to the tag name
	Notes         string
	GenerateNotes bool
}

// Outcome describes a release attempt, successful or not.
type Outcome struct {
	ID           string
	Tag          string
	State        State
	Trail        []State // every state entered, in order
	Commit       CommitHandle
	UpdatedFiles []string
	Warnings     []string
}

// Coordinator runs the release saga: manifest write, commit, push, release
// creation and tag sync. Each completed step pushes its compensation; a
// failure unwinds them in reverse order.
type Coordinator struct {
	manifests     ManifestStore
	vcs           VCS
	host          ReleaseHost
	l             *zap.Logger
	strictTagSync bool
	newID         func() string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// CoordinatorLogger injects a logger.
func CoordinatorLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if l != nil {
			c.l = l
		}
	}
}

// StrictTagSync makes a failed tag fetch roll back the whole release,
// including the published one. By default the failure is only reported
// as a warning.
func StrictTagSync(strict bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.strictTagSync = strict
	}
}

// CoordinatorIDs overrides how attempt IDs are generated.
func CoordinatorIDs(gen func() string) CoordinatorOption {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// NewCoordinator builds a coordinator over its three collaborators.
func NewCoordinator(manifests ManifestStore, vcs VCS, host ReleaseHost, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		manifests: manifests,
		vcs:       vcs,
		host:      host,
		l:         zap.NewNop(),
		newID:     func() string { return uuid.NewString() },
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

type compensation struct {
	name string
	undo func(context.Context) error
}

// txn is the record of one attempt. It is owned by Run and never shared.
type txn struct {
	out   Outcome
	stack []compensation
	l     *zap.Logger
}

func (t *txn) enter(s State) {
	t.out.State = s
	t.out.Trail = append(t.out.Trail, s)
	t.l.Debug("transaction state", zap.Stringer("state", s))
}

func (t *txn) push(name string, undo func(context.Context) error) {
	t.stack = append(t.stack, compensation{name: name, undo: undo})
}

// Run executes the release described by req. On failure the returned error
// is a *TransactionError and the outcome's state is StateRolledBack or
// StateRollbackFailed.
func (c *Coordinator) Run(ctx context.Context, req Request) (Outcome, error) {
	title := req.Title
	if title == "" {
		title = req.Target.TagName()
	}
	t := &txn{
		out: Outcome{ID: c.newID(), Tag: req.Target.TagName()},
	}
	t.l = c.l.With(zap.String("txn", t.out.ID), zap.String("tag", t.out.Tag))
	t.enter(StateInit)

	// Init -> FilesWritten
	backups, err := c.manifests.Write(req.Target)
	if err != nil {
		return t.out, c.abort(ctx, t, StateFilesWritten, err)
	}
	paths := make([]string, 0, len(backups))
	for _, b := range backups {
		paths = append(paths, b.Path)
	}
	t.out.UpdatedFiles = paths
	t.push("restore manifests", func(context.Context) error {
		return c.manifests.Restore(backups)
	})
	t.enter(StateFilesWritten)

	// FilesWritten -> Committed
	commit, err := c.vcs.Commit(ctx, title, paths)
	if err != nil {
		return t.out, c.abort(ctx, t, StateCommitted, err)
	}
	t.out.Commit = commit
	t.push("reset local branch to parent of "+commit.Revision, func(ctx context.Context) error {
		return c.vcs.RevertLocal(ctx, commit.Revision)
	})
	t.enter(StateCommitted)
	t.l.Info("created release commit", zap.String("revision", commit.Revision))

	// Committed -> Pushed
	if err := c.vcs.Push(ctx); err != nil {
		return t.out, c.abort(ctx, t, StatePushed, err)
	}
	t.push("revert remote commit "+commit.Revision, func(ctx context.Context) error {
		return c.vcs.RevertRemote(ctx, commit.Revision)
	})
	t.enter(StatePushed)
	t.l.Info("pushed release commit")

	// Pushed -> ReleaseCreated
	spec := ReleaseSpec{
		Tag:           req.Target.TagName(),
		Title:         title,
		Notes:         req.Notes,
		Prerelease:    req.Target.Version.IsPrerelease(),
		GenerateNotes: req.GenerateNotes,
		Target:        commit.Revision,
	}
	if err := c.host.CreateRelease(ctx, spec); err != nil {
		return t.out, c.abort(ctx, t, StateReleaseCreated, err)
	}
	t.push("delete release "+spec.Tag, func(ctx context.Context) error {
		return c.host.DeleteRelease(ctx, spec.Tag)
	})
	t.enter(StateReleaseCreated)
	t.l.Info("created release", zap.Bool("prerelease", spec.Prerelease))

	// ReleaseCreated -> TagsSynced
	if err := c.vcs.FetchTags(ctx); err != nil {
		if c.strictTagSync {
			return t.out, c.abort(ctx, t, StateTagsSynced, err)
		}
		msg := fmt.Sprintf("release %s was published but fetching tags failed: %v", spec.Tag, err)
		t.out.Warnings = append(t.out.Warnings, msg)
		t.l.Warn("tag sync failed", zap.Error(err))
	}
	t.enter(StateTagsSynced)
	t.stack = nil
	return t.out, nil
}

// abort unwinds every completed step. Compensations run even when ctx was
// cancelled, and a failing one does not stop the others.
func (c *Coordinator) abort(ctx context.Context, t *txn, step State, cause error) error {
	t.l.Error("release step failed, rolling back", zap.String("step", step.Step()), zap.Error(cause))
	t.enter(StateRollingBack)

	rctx := context.WithoutCancel(ctx)
	var res RollbackResult
	for i := len(t.stack) - 1; i >= 0; i-- {
		comp := t.stack[i]
		res.Attempted = append(res.Attempted, comp.name)
		if err := comp.undo(rctx); err != nil {
			t.l.Error("compensation failed", zap.String("compensation", comp.name), zap.Error(err))
			res.Failures = append(res.Failures, CompensationFailure{Step: comp.name, Err: err})
			continue
		}
		t.l.Info("compensation done", zap.String("compensation", comp.name))
	}
	t.stack = nil

	if res.FullyReverted() {
		t.enter(StateRolledBack)
	} else {
		t.enter(StateRollbackFailed)
	}
	return &TransactionError{Step: step, Err: cause, Rollback: res}
}
