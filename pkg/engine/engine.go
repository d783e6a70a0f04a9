// Package engine ties the identity map, entity storage and committer into a
// request lifecycle.
//
// One Engine serves one working tree. Each host request gets its own Session
// from Begin and must end with exactly one Session.Commit, typically from the
// host's teardown path:
//
//	s, err := eng.Begin(ctx)
//	defer s.Commit(ctx)
//	s.NotifyEntityChanged(ctx, "posts", row)
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"

	"github.com/aretw0/rowgit/pkg/committer"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/identity"
	"github.com/aretw0/rowgit/pkg/storage"
)

// Engine is shared by all requests touching one working tree.
type Engine struct {
	ids         *identity.Map
	fs          core.FileSystem
	vcs         core.Versioner
	schemas     []storage.Schema
	serializer  storage.Serializer
	logger      *slog.Logger
	lockTimeout time.Duration

	mu       sync.Mutex
	active   int
	sessions int
	commits  int
	failures int
	last     string
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSchemas replaces the tracked kinds.
func WithSchemas(schemas ...storage.Schema) Option {
	return func(e *Engine) {
		e.schemas = schemas
	}
}

// WithSerializer sets the entity file format.
func WithSerializer(s storage.Serializer) Option {
	return func(e *Engine) {
		e.serializer = s
	}
}

// WithLockTimeout bounds the wait for the commit lock.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.lockTimeout = d
	}
}

// New creates an engine over an identity map, a working tree and its versioner.
func New(ids *identity.Map, fs core.FileSystem, vcs core.Versioner, opts ...Option) *Engine {
	e := &Engine{
		ids:         ids,
		fs:          fs,
		vcs:         vcs,
		schemas:     storage.DefaultSchemas(),
		serializer:  storage.YAML{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lockTimeout: committer.DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin starts a request.
func (e *Engine) Begin(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	logger := e.logger.With("request", id)

	c := committer.New(e.fs, e.vcs,
		committer.WithLogger(logger),
		committer.WithLockTimeout(e.lockTimeout),
	)
	factory, err := storage.NewFactory(e.schemas, e.ids, e.fs, c,
		storage.WithSerializer(e.serializer),
		storage.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.active++
	e.sessions++
	e.mu.Unlock()

	return &Session{
		id:        id,
		engine:    e,
		factory:   factory,
		committer: c,
		logger:    logger,
	}, nil
}

// Do runs fn as one request. The commit always runs afterwards, even when
// fn fails, since the host already changed its database.
func (e *Engine) Do(ctx context.Context, fn func(ctx context.Context, s *Session) error) (res committer.Result, err error) {
	s, err := e.Begin(ctx)
	if err != nil {
		return committer.Result{}, err
	}
	defer func() {
		var commitErr error
		res, commitErr = s.Commit(ctx)
		err = errors.Join(err, commitErr)
	}()
	return committer.Result{}, fn(ctx, s)
}

// History returns the recorded commits, newest first.
func (e *Engine) History(ctx context.Context) ([]core.Revision, error) {
	return e.vcs.History(ctx)
}

// Identity returns the identity map.
func (e *Engine) Identity() *identity.Map {
	return e.ids
}

// Versioner returns the version-control backend.
func (e *Engine) Versioner() core.Versioner {
	return e.vcs
}

// FileSystem returns the working tree.
func (e *Engine) FileSystem() core.FileSystem {
	return e.fs
}

// Serializer returns the entity file format.
func (e *Engine) Serializer() storage.Serializer {
	return e.serializer
}

// finish marks a session as ended.
func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active--
}

// record counts the outcome of one Commit call.
func (e *Engine) record(res committer.Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err != nil:
		e.failures++
	case !res.Empty():
		e.commits++
		e.last = res.CommitID
	}
}

// EngineState exposes internal state for observability.
type EngineState struct {
	ActiveSessions int    `json:"active_sessions"`
	Sessions       int    `json:"sessions"`
	Commits        int    `json:"commits"`
	Failures       int    `json:"failures"`
	LastCommit     string `json:"last_commit,omitempty"`
	Format         string `json:"format"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineState{
		ActiveSessions: e.active,
		Sessions:       e.sessions,
		Commits:        e.commits,
		Failures:       e.failures,
		LastCommit:     e.last,
		Format:         e.serializer.Ext(),
	}
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
