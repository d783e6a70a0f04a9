// Package committer turns the changes registered during one request into a
// single commit of the working tree.
package committer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/core"
)

// DefaultLockTimeout bounds the wait for the commit lock.
const DefaultLockTimeout = 10 * time.Second

// State is the lifecycle position of a Committer.
type State int

const (
	// Idle: nothing registered yet.
	Idle State = iota
	// Accumulating: changes are pending.
	Accumulating
	// Flushed: the pending changes were committed, or there were none.
	Flushed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Flushed:
		return "flushed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result describes the outcome of Commit.
type Result struct {
	// CommitID is empty when nothing was pending.
	CommitID string
	Message  string
	// Files are the working-tree paths recorded by the commit.
	Files []string
	When  time.Time
}

// Empty reports whether Commit had nothing to record.
func (r Result) Empty() bool {
	return r.CommitID == ""
}

type entry struct {
	mutation core.FileMutation
	info     changeinfo.Info
}

// Committer accumulates the changes of one request. RegisterChange and
// ForceChangeInfo are safe from any goroutine; Commit calls are serialized.
type Committer struct {
	fs          core.FileSystem
	vcs         core.Versioner
	logger      *slog.Logger
	lockTimeout time.Duration

	mu          sync.Mutex
	entries     []entry
	headline    changeinfo.Info
	headlineGen int
	state       State
	commits     int
	lastCommit  string
	lastErr     error

	commitMu sync.Mutex
}

// Option configures a Committer.
type Option func(*Committer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Committer) {
		c.logger = logger
	}
}

// WithLockTimeout sets how long Commit waits for the versioner lock.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Committer) {
		c.lockTimeout = d
	}
}

// New creates an Idle committer writing through fs and recording through vcs.
func New(fs core.FileSystem, vcs core.Versioner, opts ...Option) *Committer {
	c := &Committer{
		fs:          fs,
		vcs:         vcs,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterChange appends a mutation and its description. A zero info adds
// no message line.
func (c *Committer) RegisterChange(mutation core.FileMutation, info changeinfo.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{mutation: mutation, info: info})
	c.state = Accumulating
}

// UpdateChangeInfo replaces the description of the earliest pending change
// described by prev. It reports false when no pending change matches, for
// instance because it was already committed.
func (c *Committer) UpdateChangeInfo(prev, next changeinfo.Info) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if !c.entries[i].info.IsZero() && c.entries[i].info.Equal(prev) {
			c.entries[i].info = next
			return true
		}
	}
	return false
}

// ForceChangeInfo sets the headline of the next commit. The last call wins.
// Registered changes are kept and listed in the message body.
func (c *Committer) ForceChangeInfo(info changeinfo.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headline = info
	c.headlineGen++
}

// Status returns the current lifecycle state.
func (c *Committer) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of registered, uncommitted changes.
func (c *Committer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Commit records every pending change as one commit.
//
// With nothing pending it returns an empty Result and no commit is made.
// Otherwise it takes the versioner lock, applies the final state of every
// touched path, stages and commits. On failure the working tree is restored,
// the changes stay pending and the error is returned; nothing is retried.
func (c *Committer) Commit(ctx context.Context) (Result, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	n := len(c.entries)
	if n == 0 {
		c.state = Flushed
		c.mu.Unlock()
		return Result{}, nil
	}
	entries := make([]entry, n)
	copy(entries, c.entries)
	headline := c.headline
	headlineGen := c.headlineGen
	c.mu.Unlock()

	res, err := c.commit(ctx, entries, headline)
	if err != nil {
		c.logger.Error("commit failed", "pending", n, "error", err)
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return Result{}, err
	}

	c.mu.Lock()
	c.entries = append([]entry(nil), c.entries[n:]...)
	if c.headlineGen == headlineGen {
		c.headline = changeinfo.Info{}
	}
	if len(c.entries) == 0 {
		c.state = Flushed
	} else {
		c.state = Accumulating
	}
	c.commits++
	c.lastCommit = res.CommitID
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("committed", "commit", res.CommitID, "files", len(res.Files), "changes", n)
	return res, nil
}

type planned struct {
	path string
	op   core.MutationOp
	data []byte
}

type journalEntry struct {
	path    string
	existed bool
	data    []byte
}

func (c *Committer) commit(ctx context.Context, entries []entry, headline changeinfo.Info) (Result, error) {
	unlock, err := c.vcs.Lock(ctx, c.lockTimeout)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	// Past this point the request can no longer abort.
	ctx = context.WithoutCancel(ctx)

	plan, err := finalPlan(entries)
	if err != nil {
		return Result{}, err
	}

	infos := make([]changeinfo.Info, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}
	message := changeinfo.Message(headline, infos)

	var journal []journalEntry
	var staged []string
	for _, p := range plan {
		prior, err := c.fs.ReadFile(p.path)
		existed := err == nil
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.rollback(ctx, journal)
			return Result{}, fmt.Errorf("read %s: %w", p.path, err)
		}

		if p.op == core.OpDelete && !existed {
			continue
		}
		journal = append(journal, journalEntry{path: p.path, existed: existed, data: prior})

		switch p.op {
		case core.OpWrite:
			err = c.fs.WriteFile(p.path, p.data)
		case core.OpDelete:
			err = c.fs.DeleteFile(p.path)
			if err == nil {
				err = c.removeEmptyParents(p.path)
			}
		}
		if err != nil {
			c.rollback(ctx, journal)
			return Result{}, fmt.Errorf("apply %s: %w", p.path, wrap(err, core.ErrFileSystem))
		}
		staged = append(staged, p.path)
	}

	if err := c.vcs.Stage(ctx, staged...); err != nil {
		c.rollback(ctx, journal)
		return Result{}, wrap(err, core.ErrCommitFailed)
	}

	id, err := c.vcs.Commit(ctx, message)
	if err != nil {
		c.rollback(ctx, journal)
		return Result{}, wrap(err, core.ErrCommitFailed)
	}

	return Result{
		CommitID: id,
		Message:  message,
		Files:    staged,
		When:     time.Now(),
	}, nil
}

// finalPlan renders the last mutation of each path, in order of first registration.
func finalPlan(entries []entry) ([]planned, error) {
	last := make(map[string]core.FileMutation, len(entries))
	var order []string
	for _, e := range entries {
		if _, seen := last[e.mutation.Path]; !seen {
			order = append(order, e.mutation.Path)
		}
		last[e.mutation.Path] = e.mutation
	}

	plan := make([]planned, 0, len(order))
	for _, p := range order {
		m := last[p]
		step := planned{path: p, op: m.Op}
		if m.Op == core.OpWrite {
			if m.Render == nil {
				return nil, fmt.Errorf("%w: no content for %s", core.ErrFileSystem, p)
			}
			data, err := m.Render()
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", p, wrap(err, core.ErrFileSystem))
			}
			step.data = data
		}
		plan = append(plan, step)
	}
	return plan, nil
}

func (c *Committer) removeEmptyParents(p string) error {
	for dir := path.Dir(p); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if err := c.fs.RemoveDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}

// rollback restores the journaled paths and re-stages them so the index
// matches the restored tree. Failures are logged; the original error wins.
func (c *Committer) rollback(ctx context.Context, journal []journalEntry) {
	if len(journal) == 0 {
		return
	}
	paths := make([]string, 0, len(journal))
	for i := len(journal) - 1; i >= 0; i-- {
		j := journal[i]
		var err error
		if j.existed {
			err = c.fs.WriteFile(j.path, j.data)
		} else {
			err = c.fs.DeleteFile(j.path)
			if err == nil {
				err = c.removeEmptyParents(j.path)
			}
		}
		if err != nil {
			c.logger.Error("rollback failed", "path", j.path, "error", err)
			continue
		}
		paths = append(paths, j.path)
	}
	if err := c.vcs.Stage(ctx, paths...); err != nil {
		c.logger.Warn("re-staging restored files failed", "error", err)
	}
}

func wrap(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
