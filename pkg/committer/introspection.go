package committer

import (
	"github.com/aretw0/introspection"
)

// CommitterState exposes internal state for observability.
type CommitterState struct {
	State      string `json:"state"`
	Pending    int    `json:"pending"`
	Headline   string `json:"headline,omitempty"`
	Commits    int    `json:"commits"`
	LastCommit string `json:"last_commit,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Committer) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := CommitterState{
		State:      c.state.String(),
		Pending:    len(c.entries),
		Headline:   c.headline.Describe(),
		Commits:    c.commits,
		LastCommit: c.lastCommit,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// ComponentType implements introspection.Component.
func (c *Committer) ComponentType() string {
	return "committer"
}

var _ introspection.Introspectable = (*Committer)(nil)
var _ introspection.Component = (*Committer)(nil)
