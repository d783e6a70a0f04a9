package committer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rowgit/pkg/adapters/fs"
	"github.com/aretw0/rowgit/pkg/adapters/gogit"
	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/committer"
	"github.com/aretw0/rowgit/pkg/core"
)

// flakyVersioner fails the next Stage or Commit on demand.
type flakyVersioner struct {
	core.Versioner
	failStage  bool
	failCommit bool
}

func (v *flakyVersioner) Stage(ctx context.Context, paths ...string) error {
	if v.failStage {
		return errors.New("index.lock exists")
	}
	return v.Versioner.Stage(ctx, paths...)
}

func (v *flakyVersioner) Commit(ctx context.Context, msg string) (string, error) {
	if v.failCommit {
		v.failCommit = false
		return "", errors.New("disk full")
	}
	return v.Versioner.Commit(ctx, msg)
}

func setup(t *testing.T) (*gogit.Backend, *fs.FileSystem) {
	t.Helper()
	b, err := gogit.NewMemory()
	require.NoError(t, err)
	return b, fs.New(b.Filesystem())
}

func historyLen(t *testing.T, b *gogit.Backend) int {
	t.Helper()
	h, err := b.History(context.Background())
	require.NoError(t, err)
	return len(h)
}

func TestCommitter_EmptyIsNoop(t *testing.T) {
	b, tree := setup(t)
	c := committer.New(tree, b)
	assert.Equal(t, committer.Idle, c.Status())

	res, err := c.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, committer.Flushed, c.Status())
	assert.Equal(t, 0, historyLen(t, b))

	// A forced headline alone records nothing.
	c.ForceChangeInfo(changeinfo.PluginActivated("hello-dolly"))
	res, err = c.Commit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, 0, historyLen(t, b))
}

func TestCommitter_OneCommitLastWriteWins(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)
	c := committer.New(tree, b)

	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("v1")), changeinfo.EntitySaved("posts", "A", ""))
	c.RegisterChange(core.WriteFile("terms/B.yml", []byte("x")), changeinfo.EntitySaved("terms", "B", ""))
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("v2")), changeinfo.EntitySaved("posts", "A", ""))
	c.RegisterChange(core.DeleteFile("posts/never.yml"), changeinfo.EntityDeleted("posts", "never"))
	assert.Equal(t, committer.Accumulating, c.Status())

	res, err := c.Commit(ctx)
	require.NoError(t, err)
	assert.False(t, res.Empty())
	assert.Equal(t, []string{"posts/A.yml", "terms/B.yml"}, res.Files)
	assert.Equal(t, committer.Flushed, c.Status())
	assert.Equal(t, 0, c.Pending())

	data, err := tree.ReadFile("posts/A.yml")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	history, err := b.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.CommitID, history[0].ID)

	// Every registered change is a message line, repeats included.
	assert.Equal(t, 2, strings.Count(history[0].Message, "Post saved: A\n"))
	assert.Contains(t, history[0].Message, "Term saved: B")
	assert.Contains(t, history[0].Message, "Post deleted: never")

	// Second commit with nothing new is a no-op.
	res, err = c.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, 1, historyLen(t, b))
}

func TestCommitter_LastForcedHeadlineWins(t *testing.T) {
	b, tree := setup(t)
	c := committer.New(tree, b)

	c.RegisterChange(core.WriteFile("options/1.yml", []byte("a")), changeinfo.EntitySaved("options", "1", ""))
	c.ForceChangeInfo(changeinfo.PluginActivated("A"))
	c.RegisterChange(core.WriteFile("options/2.yml", []byte("b")), changeinfo.EntitySaved("options", "2", ""))
	c.ForceChangeInfo(changeinfo.PluginActivated("B"))
	c.RegisterChange(core.WriteFile("options/3.yml", []byte("c")), changeinfo.EntitySaved("options", "3", ""))

	res, err := c.Commit(context.Background())
	require.NoError(t, err)

	headline, _, _ := strings.Cut(res.Message, "\n")
	assert.Equal(t, `Plugin "B" activated`, headline)
	for _, id := range []string{"1", "2", "3"} {
		assert.Contains(t, res.Message, "Option saved: "+id)
	}
	assert.NotContains(t, res.Message, `Plugin "A"`)
	assert.Empty(t, c.State().(committer.CommitterState).Headline, "headline is consumed by the commit")
}

func TestCommitter_FailureRestoresTreeAndKeepsChanges(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)

	// Committed baseline.
	base := committer.New(tree, b)
	base.RegisterChange(core.WriteFile("posts/A.yml", []byte("old")), changeinfo.EntitySaved("posts", "A", ""))
	base.RegisterChange(core.WriteFile("posts/D.yml", []byte("doomed")), changeinfo.EntitySaved("posts", "D", ""))
	_, err := base.Commit(ctx)
	require.NoError(t, err)

	vcs := &flakyVersioner{Versioner: b, failCommit: true}
	c := committer.New(tree, vcs)
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("new")), changeinfo.EntitySaved("posts", "A", ""))
	c.RegisterChange(core.WriteFile("terms/B.yml", []byte("b")), changeinfo.EntitySaved("terms", "B", ""))
	c.RegisterChange(core.DeleteFile("posts/D.yml"), changeinfo.EntityDeleted("posts", "D"))

	_, err = c.Commit(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCommitFailed)

	data, err := tree.ReadFile("posts/A.yml")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	data, err = tree.ReadFile("posts/D.yml")
	require.NoError(t, err)
	assert.Equal(t, "doomed", string(data))
	_, err = tree.ReadFile("terms/B.yml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = tree.Billy().Stat("terms")
	assert.True(t, errors.Is(err, os.ErrNotExist), "created directories are removed again")

	assert.Equal(t, committer.Accumulating, c.Status())
	assert.Equal(t, 3, c.Pending())
	assert.Contains(t, c.State().(committer.CommitterState).LastError, "disk full")
	assert.Equal(t, 1, historyLen(t, b))

	// Escalation is the host's call; retrying by hand succeeds.
	res, err := c.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts/A.yml", "terms/B.yml", "posts/D.yml"}, res.Files)
	assert.Equal(t, 2, historyLen(t, b))

	_, err = tree.ReadFile("posts/D.yml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCommitter_StageFailure(t *testing.T) {
	b, tree := setup(t)
	vcs := &flakyVersioner{Versioner: b, failStage: true}
	c := committer.New(tree, vcs)
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("a")), changeinfo.Info{})

	_, err := c.Commit(context.Background())
	assert.ErrorIs(t, err, core.ErrCommitFailed)

	_, err = tree.ReadFile("posts/A.yml")
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, c.Pending())
}

func TestCommitter_RenderFailure(t *testing.T) {
	b, tree := setup(t)
	c := committer.New(tree, b)
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("a")), changeinfo.Info{})
	c.RegisterChange(core.FileMutation{
		Path: "posts/B.yml",
		Op:   core.OpWrite,
		Render: func() ([]byte, error) {
			return nil, fmt.Errorf("unsupported value")
		},
	}, changeinfo.Info{})

	_, err := c.Commit(context.Background())
	assert.ErrorIs(t, err, core.ErrFileSystem)

	_, err = tree.ReadFile("posts/A.yml")
	assert.True(t, errors.Is(err, os.ErrNotExist), "nothing is written when rendering fails")
	assert.Equal(t, 2, c.Pending())
}

func TestCommitter_LockContention(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)
	c := committer.New(tree, b, committer.WithLockTimeout(20*time.Millisecond))
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("a")), changeinfo.EntitySaved("posts", "A", ""))

	unlock, err := b.Lock(ctx, time.Second)
	require.NoError(t, err)

	_, err = c.Commit(ctx)
	assert.ErrorIs(t, err, core.ErrLockContention)
	assert.Equal(t, 1, c.Pending())
	_, err = tree.ReadFile("posts/A.yml")
	assert.True(t, errors.Is(err, os.ErrNotExist), "nothing is applied without the lock")

	unlock()
	_, err = c.Commit(ctx)
	require.NoError(t, err)
}

func TestCommitter_RegisterAfterFlush(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)
	c := committer.New(tree, b)

	c.RegisterChange(core.WriteFile("a.yml", []byte("a")), changeinfo.Info{})
	_, err := c.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, committer.Flushed, c.Status())

	// A late hook fires after teardown started.
	c.RegisterChange(core.WriteFile("b.yml", []byte("b")), changeinfo.Info{})
	assert.Equal(t, committer.Accumulating, c.Status())

	res, err := c.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.yml"}, res.Files)
	assert.True(t, strings.HasPrefix(res.Message, changeinfo.DefaultHeadline))

	s := c.State().(committer.CommitterState)
	assert.Equal(t, 2, s.Commits)
	assert.Equal(t, res.CommitID, s.LastCommit)
	assert.Equal(t, "committer", c.ComponentType())
}

func TestCommitter_DeleteRemovesEmptyDirectories(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)
	c := committer.New(tree, b)

	c.RegisterChange(core.WriteFile("postmeta/M.yml", []byte("m")), changeinfo.Info{})
	_, err := c.Commit(ctx)
	require.NoError(t, err)

	c.RegisterChange(core.DeleteFile("postmeta/M.yml"), changeinfo.EntityDeleted("postmeta", "M"))
	_, err = c.Commit(ctx)
	require.NoError(t, err)

	_, err = tree.Billy().Stat("postmeta")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCommitter_ConcurrentRegistration(t *testing.T) {
	b, tree := setup(t)
	c := committer.New(tree, b)

	const hooks = 20
	var wg sync.WaitGroup
	for i := 0; i < hooks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := fmt.Sprintf("options/%02d.yml", i)
			c.RegisterChange(core.WriteFile(p, []byte(p)), changeinfo.EntitySaved("options", fmt.Sprint(i), ""))
		}(i)
	}
	wg.Wait()

	res, err := c.Commit(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Files, hooks)
	assert.Equal(t, 1, historyLen(t, b))
}

func TestCommitter_UpdateChangeInfo(t *testing.T) {
	ctx := context.Background()
	b, tree := setup(t)
	c := committer.New(tree, b)

	untitled := changeinfo.EntitySaved("posts", "A", "")
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("a")), untitled)
	c.RegisterChange(core.WriteFile("posts/A.yml", []byte("b")), changeinfo.Info{})

	titled := changeinfo.EntitySaved("posts", "A", "Hello")
	assert.True(t, c.UpdateChangeInfo(untitled, titled))
	assert.False(t, c.UpdateChangeInfo(untitled, titled), "already replaced")

	res, err := c.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Message, `Post saved: "Hello" (A)`), res.Message)

	assert.False(t, c.UpdateChangeInfo(titled, untitled), "committed changes are final")
}
