package engine

import (
	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/core"
)

// Event is a notification from the host. The set is closed.
type Event interface {
	event()
}

// EntityChanged reports a row inserted or updated in the table Kind.
type EntityChanged struct {
	Kind string
	Row  core.Row
}

// RelationsChanged reports new relation sets (taxonomies) of a row.
type RelationsChanged struct {
	Kind      string
	ID        int64
	Relations map[string][]int64
}

// EntityDeleted reports a removed row.
type EntityDeleted struct {
	Kind string
	ID   int64
}

// ActionOccurred reports a host action that explains the request's changes,
// such as a plugin activation. It becomes the commit headline.
type ActionOccurred struct {
	Info changeinfo.Info
}

func (EntityChanged) event()    {}
func (RelationsChanged) event() {}
func (EntityDeleted) event()    {}
func (ActionOccurred) event()   {}
