package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/lock"
)

// DefaultLockPath is the lock file, relative to the working directory.
const DefaultLockPath = ".rowgit/commit.lock"

// Client wraps git command execution with a global file-based lock for process safety.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
	Author  core.Identity

	lock *lock.File
}

// NewClient creates a new git client for the given working directory.
// lockPath is relative to workDir; empty means DefaultLockPath.
func NewClient(workDir, lockPath string, logger *slog.Logger) *Client {
	if lockPath == "" {
		lockPath = DefaultLockPath
	}
	return &Client{
		WorkDir: workDir,
		Logger:  logger,
		Author:  core.Identity{Name: "rowgit", Email: "rowgit@localhost"},
		lock:    lock.NewFile(filepath.Join(workDir, lockPath)),
	}
}

// IsInstalled reports whether a git binary is on PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Lock acquires the file-based lock, waiting at most timeout.
func (c *Client) Lock(ctx context.Context, timeout time.Duration) (func(), error) {
	return c.lock.Acquire(ctx, timeout)
}

// Run executes a raw git command in the working directory.
// NOTE: It does NOT acquire the lock automatically. The caller must manage transaction safety via Client.Lock().
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	out, err := c.run(ctx, args...)
	if err != nil {
		return string(out), err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, out)
	}
	return out, nil
}

// Init initializes a new git repository. git init is safe to re-run.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// IsRepo reports whether WorkDir is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	out, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Stage records additions, modifications and removals of paths.
func (c *Client) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "-A", "--"}, paths...)
	if _, err := c.Run(ctx, args...); err != nil {
		return fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}
	return nil
}

// Commit records the index and returns the new HEAD.
func (c *Client) Commit(ctx context.Context, msg string) (string, error) {
	_, err := c.Run(ctx,
		"-c", "user.name="+c.Author.Name,
		"-c", "user.email="+c.Author.Email,
		"commit", "--allow-empty", "--no-verify", "-q", "-m", msg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}
	head, err := c.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrCommitFailed, err)
	}
	return head, nil
}

// Record separators keep multi-line messages intact in log output.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// History returns the commits reachable from HEAD, newest first.
func (c *Client) History(ctx context.Context) ([]core.Revision, error) {
	if _, err := c.Run(ctx, "rev-parse", "--verify", "-q", "HEAD"); err != nil {
		// Unborn branch.
		return nil, nil
	}

	out, err := c.Run(ctx, "log", "--format=%H"+fieldSep+"%at"+fieldSep+"%B"+recordSep)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

func parseLog(out string) ([]core.Revision, error) {
	var revs []core.Revision
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		parts := strings.SplitN(record, fieldSep, 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected log record %q", record)
		}
		secs, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected commit time %q: %w", parts[1], err)
		}
		revs = append(revs, core.Revision{
			ID:      parts[0],
			Message: strings.TrimRight(parts[2], "\n"),
			When:    time.Unix(secs, 0),
		})
	}
	return revs, nil
}

// Show returns the content of path as recorded in revision rev.
func (c *Client) Show(ctx context.Context, rev, path string) ([]byte, error) {
	out, err := c.run(ctx, "show", rev+":"+filepath.ToSlash(path))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s at %s", core.ErrNotFound, path, rev)
		}
		return nil, err
	}
	return out, nil
}

var _ core.Versioner = (*Client)(nil)
