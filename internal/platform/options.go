package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/storage"
)

const (
	// BackendGoGit versions the tree in-process with go-git.
	BackendGoGit = "gogit"
	// BackendGit shells out to the git binary.
	BackendGit = "git"

	// DefaultSystemDir holds the config, the identity database and lock files.
	DefaultSystemDir = ".rowgit"
)

// options holds the internal configuration of a workspace.
// Zero values mean "not set" so the config file can fill them.
type options struct {
	logger      *slog.Logger
	backend     string
	format      string
	lockTimeout time.Duration
	author      core.Identity
	systemDir   string
	schemas     []storage.Schema
	store       core.IdentityStore
	inMemory    bool
	autoInit    bool
	readOnly    bool
}

// Option defines a functional option for configuring a workspace.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		systemDir: DefaultSystemDir,
	}
}

func parseOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBackend selects the version-control backend by name ("gogit" or "git").
// Defaults to "gogit".
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithInMemory keeps the repository, the working tree and the identity map
// in memory. The path argument is ignored.
func WithInMemory(enabled bool) Option {
	return func(o *options) {
		o.inMemory = enabled
	}
}

// WithFormat selects the entity file format ("yaml" or "json").
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithLockTimeout bounds the wait for the commit lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithAuthor sets the identity recorded on commits.
func WithAuthor(name, email string) Option {
	return func(o *options) {
		o.author = core.Identity{Name: name, Email: email}
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".rowgit".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithSchemas replaces the tracked kinds.
func WithSchemas(schemas ...storage.Schema) Option {
	return func(o *options) {
		o.schemas = schemas
	}
}

// WithIdentityStore injects the identity backing store instead of the
// SQLite database in the system directory.
func WithIdentityStore(store core.IdentityStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAutoInit creates the directory and the repository when missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithReadOnly opens an existing workspace for inspection.
// Nothing is created and every write of the working tree fails with
// core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}
