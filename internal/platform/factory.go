package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/rowgit/pkg/adapters/fs"
	"github.com/aretw0/rowgit/pkg/adapters/gogit"
	"github.com/aretw0/rowgit/pkg/adapters/sqlite"
	"github.com/aretw0/rowgit/pkg/committer"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/engine"
	"github.com/aretw0/rowgit/pkg/git"
	"github.com/aretw0/rowgit/pkg/identity"
	"github.com/aretw0/rowgit/pkg/storage"
)

// IdentityDBName is the SQLite identity database inside the system directory.
const IdentityDBName = "ids.db"

// Shower reads a file as recorded in a revision.
type Shower interface {
	Show(ctx context.Context, rev, path string) ([]byte, error)
}

// Versioner is a core.Versioner that can also read past revisions.
type Versioner interface {
	core.Versioner
	Shower
}

// Workspace is an engine bound to a directory, with the resources it owns.
type Workspace struct {
	*engine.Engine

	// Root is the working tree; empty for in-memory workspaces.
	Root      string
	SystemDir string
	Config    Config

	vcs     Versioner
	closers []io.Closer
}

// Show returns the content of path at revision rev.
func (w *Workspace) Show(ctx context.Context, rev, path string) ([]byte, error) {
	return w.vcs.Show(ctx, rev, path)
}

// Close releases the identity database.
func (w *Workspace) Close() error {
	var errs []error
	for _, c := range w.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Open builds a workspace over root.
//
//	ws, err := platform.Open("./site", platform.WithAutoInit(true))
func Open(root string, opts ...Option) (*Workspace, error) {
	o := parseOptions(opts)
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.inMemory {
		return openMemory(o)
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(filepath.Join(abs, o.systemDir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	o.merge(cfg)

	if err := prepareDir(abs, o); err != nil {
		return nil, err
	}

	ws := &Workspace{
		Root:      abs,
		SystemDir: filepath.Join(abs, o.systemDir),
		Config:    o.config(),
	}

	vcs, tree, err := openBackend(abs, o)
	if err != nil {
		return nil, err
	}
	ws.vcs = vcs

	store := o.store
	if store == nil {
		if o.readOnly {
			if _, err := os.Stat(filepath.Join(ws.SystemDir, IdentityDBName)); err != nil {
				return nil, fmt.Errorf("no identity database in %s: %w", ws.SystemDir, err)
			}
		} else if err := os.MkdirAll(ws.SystemDir, 0755); err != nil {
			return nil, err
		}
		db, err := sqlite.Open(filepath.Join(ws.SystemDir, IdentityDBName))
		if err != nil {
			return nil, err
		}
		ws.closers = append(ws.closers, db)
		store = db
	}

	if !o.readOnly {
		if err := initIgnore(abs, o, vcs); err != nil {
			ws.Close()
			return nil, err
		}
	}

	eng, err := newEngine(store, tree, vcs, o)
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.Engine = eng
	return ws, nil
}

// Init creates a workspace at root and persists its configuration.
func Init(root string, opts ...Option) (*Workspace, error) {
	ws, err := Open(root, append(opts, WithAutoInit(true), WithReadOnly(false))...)
	if err != nil {
		return nil, err
	}
	if err := SaveConfig(filepath.Join(ws.SystemDir, ConfigFileName), ws.Config); err != nil {
		ws.Close()
		return nil, err
	}
	return ws, nil
}

func openMemory(o *options) (*Workspace, error) {
	o.merge(Config{})
	if o.backend != BackendGoGit {
		return nil, fmt.Errorf("backend %q cannot run in memory", o.backend)
	}
	b, err := gogit.NewMemory(authorOption(o)...)
	if err != nil {
		return nil, err
	}
	store := o.store
	if store == nil {
		store = identity.NewMemoryStore()
	}
	var tree core.FileSystem = fs.New(b.Filesystem())
	if o.readOnly {
		tree = readOnlyFS{tree}
	}
	eng, err := newEngine(store, tree, b, o)
	if err != nil {
		return nil, err
	}
	return &Workspace{Engine: eng, Config: o.config(), vcs: b}, nil
}

func prepareDir(root string, o *options) error {
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err) && o.autoInit && !o.readOnly:
		return os.MkdirAll(root, 0755)
	case os.IsNotExist(err):
		return fmt.Errorf("workspace does not exist: %s", root)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("workspace is not a directory: %s", root)
	}
	return nil
}

func openBackend(root string, o *options) (Versioner, core.FileSystem, error) {
	_, statErr := os.Stat(filepath.Join(root, ".git"))
	hasRepo := statErr == nil
	if !hasRepo && (!o.autoInit || o.readOnly) {
		return nil, nil, fmt.Errorf("not a git repository: %s", root)
	}

	var vcs Versioner
	var tree core.FileSystem
	switch o.backend {
	case BackendGoGit:
		b, err := gogit.Open(root, authorOption(o)...)
		if err != nil {
			return nil, nil, err
		}
		vcs, tree = b, fs.New(b.Filesystem())
	case BackendGit:
		if !git.IsInstalled() {
			return nil, nil, fmt.Errorf("git is not installed")
		}
		c := git.NewClient(root, filepath.Join(o.systemDir, "commit.lock"), o.logger)
		if o.author.Name != "" {
			c.Author = o.author
		}
		if !hasRepo {
			if err := c.Init(context.Background()); err != nil {
				return nil, nil, fmt.Errorf("failed to git init: %w", err)
			}
		}
		osTree, err := fs.NewOS(root)
		if err != nil {
			return nil, nil, err
		}
		vcs, tree = c, osTree
	default:
		return nil, nil, fmt.Errorf("unknown backend: %s", o.backend)
	}

	if o.readOnly {
		tree = readOnlyFS{tree}
	}
	return vcs, tree, nil
}

// initIgnore keeps the system directory out of history. A fresh repository
// records the .gitignore as its first commit.
func initIgnore(root string, o *options, vcs core.Versioner) error {
	modified, err := ensureIgnore(root, o.systemDir)
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if !modified {
		return nil
	}

	ctx := context.Background()
	history, err := vcs.History(ctx)
	if err != nil || len(history) > 0 {
		return err
	}

	timeout := o.lockTimeout
	if timeout == 0 {
		timeout = committer.DefaultLockTimeout
	}
	unlock, err := vcs.Lock(ctx, timeout)
	if err != nil {
		return err
	}
	defer unlock()
	if err := vcs.Stage(ctx, ".gitignore"); err != nil {
		return fmt.Errorf("failed to add .gitignore: %w", err)
	}
	if _, err := vcs.Commit(ctx, fmt.Sprintf("Configure %s ignore", o.systemDir)); err != nil {
		return fmt.Errorf("failed to commit .gitignore: %w", err)
	}
	o.logger.Debug("initialized repository", "root", root)
	return nil
}

func newEngine(store core.IdentityStore, tree core.FileSystem, vcs core.Versioner, o *options) (*engine.Engine, error) {
	serializer, err := storage.SerializerFor(o.format)
	if err != nil {
		return nil, err
	}
	engOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithSerializer(serializer),
	}
	if o.schemas != nil {
		engOpts = append(engOpts, engine.WithSchemas(o.schemas...))
	}
	if o.lockTimeout > 0 {
		engOpts = append(engOpts, engine.WithLockTimeout(o.lockTimeout))
	}
	ids := identity.NewMap(store, identity.WithLogger(o.logger))
	return engine.New(ids, tree, vcs, engOpts...), nil
}

func authorOption(o *options) []gogit.Option {
	if o.author.Name == "" {
		return nil
	}
	return []gogit.Option{gogit.WithAuthor(o.author)}
}
