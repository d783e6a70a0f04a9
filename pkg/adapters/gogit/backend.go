// Package gogit implements core.Versioner with go-git, without requiring a
// git binary. It supports an in-memory repository for tests and embedding,
// and an on-disk repository sharing its working tree with other processes.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/format/index"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/lock"
)

// LockFileName is the commit lock created inside .git for on-disk repositories.
const LockFileName = "rowgit.lock"

type locker interface {
	Acquire(ctx context.Context, timeout time.Duration) (func(), error)
}

// Backend is a go-git repository with its working tree.
type Backend struct {
	repo   *git.Repository
	wt     billy.Filesystem
	author core.Identity
	lock   locker

	// go-git repositories are not safe for concurrent use.
	mu sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithAuthor sets the identity recorded on commits.
func WithAuthor(author core.Identity) Option {
	return func(b *Backend) {
		b.author = author
	}
}

func newBackend(repo *git.Repository, wt billy.Filesystem, l locker, opts ...Option) *Backend {
	b := &Backend{
		repo:   repo,
		wt:     wt,
		author: core.Identity{Name: "rowgit", Email: "rowgit@localhost"},
		lock:   l,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewMemory creates an empty repository whose objects and working tree live in memory.
func NewMemory(opts ...Option) (*Backend, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}
	return newBackend(repo, wt, lock.NewMutex(), opts...), nil
}

// Open opens the repository at baseDir, initializing it when .git is missing.
func Open(baseDir string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	dot, err := wt.Chroot(git.GitDirName)
	if err != nil {
		return nil, err
	}

	// Other processes commit to the same repository between our commits.
	storer := filesystem.NewStorageWithOptions(
		dot,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: false})

	var repo *git.Repository
	if _, statErr := os.Stat(filepath.Join(baseDir, git.GitDirName)); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
		if err != nil {
			return nil, fmt.Errorf("failed to init repository: %w", err)
		}
	} else {
		repo, err = git.Open(storer, wt)
		if err != nil {
			return nil, fmt.Errorf("failed to open repository: %w", err)
		}
	}

	l := lock.NewFile(filepath.Join(baseDir, git.GitDirName, LockFileName))
	return newBackend(repo, wt, l, opts...), nil
}

// Filesystem returns the working tree the repository tracks.
func (b *Backend) Filesystem() billy.Filesystem {
	return b.wt
}

func (b *Backend) Lock(ctx context.Context, timeout time.Duration) (func(), error) {
	return b.lock.Acquire(ctx, timeout)
}

// Stage adds existing paths and removes missing ones from the index.
func (b *Backend) Stage(ctx context.Context, paths ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, err := b.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.Add(p); err != nil {
			// Never-tracked file that is already gone: nothing to stage.
			if errors.Is(err, index.ErrEntryNotFound) {
				continue
			}
			return fmt.Errorf("%w: stage %s: %v", core.ErrCommitFailed, p, err)
		}
	}
	return nil
}

func (b *Backend) Commit(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w, err := b.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}

	hash, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  b.author.Name,
			Email: b.author.Email,
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}
	return hash.String(), nil
}

// History walks the log from HEAD. An unborn repository has no history.
func (b *Backend) History(ctx context.Context) ([]core.Revision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, err
	}

	iter, err := b.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var revs []core.Revision
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		revs = append(revs, core.Revision{
			ID:      c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revs, nil
}

// Show returns the content of path as recorded in revision rev.
func (b *Backend) Show(ctx context.Context, rev, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	commit, err := b.repo.CommitObject(plumbing.NewHash(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: revision %s", core.ErrNotFound, rev)
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", core.ErrNotFound, path, rev)
		}
		return nil, err
	}
	content, err := file.Contents()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

var _ core.Versioner = (*Backend)(nil)
