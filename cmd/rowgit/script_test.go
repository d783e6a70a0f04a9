package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/rowgit"
	"github.com/aretw0/rowgit/pkg/changeinfo"
)

const sampleScript = `
requests:
  - events:
      - action: {type: plugin-activated, subject: akismet}
      - changed: {kind: options, id: 3, fields: {option_name: active_plugins}}
  - events:
      - changed: {kind: terms, id: 4, fields: {name: News}}
      - changed: {kind: posts, id: 1, fields: {post_title: Hello, category: 4}}
      - relations: {kind: posts, id: 1, relations: {post_tag: [4]}}
  - events: []
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScript(t *testing.T) {
	s, err := loadScript(writeScript(t, sampleScript))
	require.NoError(t, err)
	require.Len(t, s.Requests, 3)

	ev, err := s.Requests[0].Events[0].event()
	require.NoError(t, err)
	assert.Equal(t, rowgit.ActionOccurred{Info: changeinfo.PluginActivated("akismet")}, ev)

	ev, err = s.Requests[1].Events[1].event()
	require.NoError(t, err)
	changed, ok := ev.(rowgit.EntityChanged)
	require.True(t, ok)
	assert.Equal(t, "posts", changed.Kind)
	assert.EqualValues(t, 4, changed.Row.Fields["category"])

	ev, err = s.Requests[1].Events[2].event()
	require.NoError(t, err)
	assert.Equal(t, rowgit.RelationsChanged{Kind: "posts", ID: 1, Relations: map[string][]int64{"post_tag": {4}}}, ev)
}

func TestScriptEvent_ExactlyOne(t *testing.T) {
	_, err := scriptEvent{}.event()
	assert.Error(t, err)

	_, err = scriptEvent{
		Changed: &scriptRow{Kind: "posts", ID: 1},
		Deleted: &scriptRow{Kind: "posts", ID: 1},
	}.event()
	assert.Error(t, err)
}

func TestScriptAction_Custom(t *testing.T) {
	info := scriptAction{Type: "theme-switched", Kind: "theme", Subject: "twentytwenty", Description: "Switched theme"}.info()
	assert.Equal(t, "Switched theme", info.Describe())
}

func TestRunScript(t *testing.T) {
	s, err := loadScript(writeScript(t, sampleScript))
	require.NoError(t, err)

	ws, err := rowgit.Open("", rowgit.WithInMemory(true))
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, runScript(context.Background(), ws, "sample", s))

	history, err := ws.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2, "the empty request records nothing")

	assert.True(t, strings.HasPrefix(history[1].Message, `Plugin "akismet" activated`))
	_, infos := changeinfo.ParseTrailers(history[0].Message)
	require.Len(t, infos, 2)
	assert.Equal(t, "terms", infos[0].SubjectKind)
	assert.Equal(t, "posts", infos[1].SubjectKind)
}
