package changeinfo

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

const (
	idA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	idB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	idC = "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	idD = "DDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"
)

func TestMessage_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name     string
		headline Info
		infos    []Info
	}{
		{
			name:  "single_save",
			infos: []Info{EntitySaved("posts", idA, "Hello")},
		},
		{
			name: "audit_trail",
			infos: []Info{
				EntitySaved("posts", idA, "Hello"),
				{},
				EntitySaved("posts", idB, ""),
				EntityDeleted("terms", idC),
			},
		},
		{
			name:     "forced_headline",
			headline: PluginActivated("akismet/akismet.php"),
			infos: []Info{
				EntitySaved("options", idD, ""),
				EntitySaved("options", idD, ""),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(Message(tt.headline, tt.infos)))
		})
	}
}

func TestMessage_NothingDescribed(t *testing.T) {
	got := Message(Info{}, []Info{{}, {}})
	want := DefaultHeadline + "\n\n" + Footer
	if got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestMessage_LastHeadlineIsFirstLine(t *testing.T) {
	msg := Message(CoreUpdated("6.4"), []Info{EntitySaved("posts", idA, "")})

	first, _, _ := strings.Cut(msg, "\n")
	assert.Equal(t, "Core updated to version 6.4", first)
	assert.Contains(t, msg, "Post saved: "+idA)
}

func TestParseTrailers(t *testing.T) {
	msg := Message(PluginUpdated("akismet/akismet.php"), []Info{
		EntitySaved("posts", idA, "Hello"),
		EntityDeleted("terms", idC),
	})

	headline, infos := ParseTrailers(msg)
	assert.Equal(t, PluginUpdated("akismet/akismet.php"), headline)
	assert.Equal(t, []Info{
		EntitySaved("posts", idA, ""),
		EntityDeleted("terms", idC),
	}, infos)

	assert.True(t, IsEngineCommit(msg))
	assert.False(t, IsEngineCommit("Initial commit"))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"zero", Info{}, ""},
		{"saved with title", EntitySaved("posts", "X", "Hello"), `Post saved: "Hello" (X)`},
		{"saved without title", EntitySaved("term_taxonomy", "X", ""), "Term taxonomy saved: X"},
		{"deleted", EntityDeleted("comments", "X"), "Comment deleted: X"},
		{"plugin activated", PluginActivated("hello-dolly"), `Plugin "hello-dolly" activated`},
		{"plugin deactivated", PluginDeactivated("hello-dolly"), `Plugin "hello-dolly" deactivated`},
		{"core", CoreUpdated("6.4.2"), "Core updated to version 6.4.2"},
		{"custom description", Custom("theme-switched", "theme", "twentytwenty", "Theme switched to Twenty Twenty"), "Theme switched to Twenty Twenty"},
		{"custom fallback", Custom("theme-switched", "theme", "twentytwenty", ""), "theme-switched theme twentytwenty"},
		{"meta kind keeps its name", EntitySaved("postmeta", "X", ""), "Postmeta saved: X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew_CopiesExtra(t *testing.T) {
	extra := map[string]string{ExtraTitle: "before"}
	info := New(ActionEntitySaved, "posts", "X", extra)
	extra[ExtraTitle] = "after"

	assert.Equal(t, "before", info.Extra(ExtraTitle))
}
