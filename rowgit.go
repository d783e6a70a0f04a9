package rowgit

import (
	"log/slog"
	"time"

	"github.com/aretw0/rowgit/internal/platform"
	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/engine"
	"github.com/aretw0/rowgit/pkg/storage"
)

// --- Types ---

// Workspace is an engine bound to a directory.
type Workspace = platform.Workspace

// Session is the engine's view of one host request.
type Session = engine.Session

// Row is a database row as reported by the host.
type Row = core.Row

// Fields are the columns of a Row.
type Fields = core.Fields

// Schema describes how rows of one kind map to entity files.
type Schema = storage.Schema

// Config is the persisted workspace configuration.
type Config = platform.Config

// Events accepted by Session.Dispatch.
type (
	Event            = engine.Event
	EntityChanged    = engine.EntityChanged
	RelationsChanged = engine.RelationsChanged
	EntityDeleted    = engine.EntityDeleted
	ActionOccurred   = engine.ActionOccurred
)

// --- Configuration ---

// Option defines a functional option for configuring a workspace.
type Option = platform.Option

// Backend names for WithBackend.
const (
	BackendGoGit = platform.BackendGoGit
	BackendGit   = platform.BackendGit
)

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithBackend selects the version-control backend ("gogit" or "git").
func WithBackend(name string) Option {
	return platform.WithBackend(name)
}

// WithInMemory keeps everything in memory (useful for testing).
func WithInMemory(enabled bool) Option {
	return platform.WithInMemory(enabled)
}

// WithFormat selects the entity file format ("yaml" or "json").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithLockTimeout bounds the wait for the commit lock.
func WithLockTimeout(d time.Duration) Option {
	return platform.WithLockTimeout(d)
}

// WithAuthor sets the identity recorded on commits.
func WithAuthor(name, email string) Option {
	return platform.WithAuthor(name, email)
}

// WithSystemDir sets the hidden directory name (default ".rowgit").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithSchemas replaces the tracked kinds.
func WithSchemas(schemas ...Schema) Option {
	return platform.WithSchemas(schemas...)
}

// WithIdentityStore injects the identity backing store.
func WithIdentityStore(store core.IdentityStore) Option {
	return platform.WithIdentityStore(store)
}

// WithAutoInit creates the directory and the repository when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithReadOnly opens an existing workspace for inspection only.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// --- Factory ---

// Open builds a workspace over path.
func Open(path string, opts ...Option) (*Workspace, error) {
	return platform.Open(path, opts...)
}

// Init creates a workspace at path and persists its configuration.
func Init(path string, opts ...Option) (*Workspace, error) {
	return platform.Init(path, opts...)
}

// DefaultSchemas returns the tables tracked out of the box.
func DefaultSchemas() []Schema {
	return storage.DefaultSchemas()
}

// FindRoot looks upwards from startDir for a workspace root.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir, platform.DefaultSystemDir)
}

// --- Actions ---

func PluginActivated(name string) ActionOccurred {
	return ActionOccurred{Info: changeinfo.PluginActivated(name)}
}

func PluginDeactivated(name string) ActionOccurred {
	return ActionOccurred{Info: changeinfo.PluginDeactivated(name)}
}

func PluginUpdated(name string) ActionOccurred {
	return ActionOccurred{Info: changeinfo.PluginUpdated(name)}
}

// CoreUpdated reports an update of the host application to version.
func CoreUpdated(version string) ActionOccurred {
	return ActionOccurred{Info: changeinfo.CoreUpdated(version)}
}
