package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rowgit/pkg/core"
)

func newRepo(t *testing.T) *Client {
	t.Helper()
	if !IsInstalled() {
		t.Skip("git not installed")
	}
	client := NewClient(t.TempDir(), "", nil)
	require.NoError(t, client.Init(context.Background()))
	return client
}

func TestClient_Lock(t *testing.T) {
	tmpDir := t.TempDir()
	client := NewClient(tmpDir, "", nil)
	ctx := context.Background()

	unlock, err := client.Lock(ctx, time.Second)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(tmpDir, DefaultLockPath)
	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		t.Error("Lock file not created")
	}

	// A second client on the same tree gives up after the timeout.
	other := NewClient(tmpDir, "", nil)
	_, err = other.Lock(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, core.ErrLockContention)

	unlock()

	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("Lock file not removed after unlock")
	}
}

func TestClient_Init(t *testing.T) {
	client := newRepo(t)

	if _, err := os.Stat(filepath.Join(client.WorkDir, ".git")); os.IsNotExist(err) {
		t.Error(".git directory not created")
	}
	assert.True(t, client.IsRepo(context.Background()))
}

func TestClient_CommitAndHistory(t *testing.T) {
	client := newRepo(t)
	ctx := context.Background()

	history, err := client.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	path := filepath.Join(client.WorkDir, "posts", "A.yml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("title: one\n"), 0644))

	require.NoError(t, client.Stage(ctx, "posts/A.yml"))
	first, err := client.Commit(ctx, "Post saved\n\nPost saved: A")
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	require.NoError(t, client.Stage(ctx, "posts/A.yml"))
	_, err = client.Commit(ctx, "Post deleted")
	require.NoError(t, err)

	history, err = client.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first, history[1].ID)
	assert.Equal(t, "Post saved\n\nPost saved: A", history[1].Message)
	assert.Equal(t, "Post deleted", history[0].Message)

	data, err := client.Show(ctx, first, "posts/A.yml")
	require.NoError(t, err)
	assert.Equal(t, "title: one\n", string(data))

	_, err = client.Show(ctx, "HEAD", "posts/A.yml")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestParseLog(t *testing.T) {
	out := "abc" + fieldSep + "1700000000" + fieldSep + "Headline\n\nbody\n" + recordSep +
		"\ndef" + fieldSep + "1600000000" + fieldSep + "Initial\n" + recordSep

	revs, err := parseLog(out)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "abc", revs[0].ID)
	assert.Equal(t, "Headline\n\nbody", revs[0].Message)
	assert.Equal(t, int64(1600000000), revs[1].When.Unix())

	_, err = parseLog("garbage")
	assert.Error(t, err)
}
