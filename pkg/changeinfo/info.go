// Package changeinfo describes why a set of working-tree changes happened.
//
// An Info carries no storage logic. It only feeds the commit message the
// Committer renders at the end of a request.
package changeinfo

import (
	"fmt"
	"strings"
)

// Action is the kind of event an Info records.
type Action string

const (
	ActionEntitySaved       Action = "entity-saved"
	ActionEntityDeleted     Action = "entity-deleted"
	ActionPluginActivated   Action = "plugin-activated"
	ActionPluginDeactivated Action = "plugin-deactivated"
	ActionPluginUpdated     Action = "plugin-updated"
	ActionCoreUpdated       Action = "core-updated"
)

// Subject kinds used by the non-entity actions.
const (
	SubjectPlugin = "plugin"
	SubjectCore   = "core"
)

// Extra keys understood by Describe.
const (
	ExtraTitle       = "title"
	ExtraDescription = "description"
)

// Info is an immutable description of one change. The zero value describes
// nothing and produces no message line.
type Info struct {
	Action      Action
	SubjectKind string
	SubjectID   string
	extra       map[string]string
}

// New builds an Info. extra is copied.
func New(action Action, subjectKind, subjectID string, extra map[string]string) Info {
	info := Info{Action: action, SubjectKind: subjectKind, SubjectID: subjectID}
	if len(extra) > 0 {
		info.extra = make(map[string]string, len(extra))
		for k, v := range extra {
			info.extra[k] = v
		}
	}
	return info
}

// EntitySaved records a created or updated entity. title may be empty.
func EntitySaved(kind, stableID, title string) Info {
	var extra map[string]string
	if title != "" {
		extra = map[string]string{ExtraTitle: title}
	}
	return New(ActionEntitySaved, kind, stableID, extra)
}

// EntityDeleted records a removed entity.
func EntityDeleted(kind, stableID string) Info {
	return New(ActionEntityDeleted, kind, stableID, nil)
}

func PluginActivated(name string) Info {
	return New(ActionPluginActivated, SubjectPlugin, name, nil)
}

func PluginDeactivated(name string) Info {
	return New(ActionPluginDeactivated, SubjectPlugin, name, nil)
}

func PluginUpdated(name string) Info {
	return New(ActionPluginUpdated, SubjectPlugin, name, nil)
}

// CoreUpdated records an update of the host application to version.
func CoreUpdated(version string) Info {
	return New(ActionCoreUpdated, SubjectCore, version, nil)
}

// Custom records a host-defined action with a free-form description.
func Custom(action Action, subjectKind, subjectID, description string) Info {
	var extra map[string]string
	if description != "" {
		extra = map[string]string{ExtraDescription: description}
	}
	return New(action, subjectKind, subjectID, extra)
}

// IsZero reports whether info describes nothing.
func (i Info) IsZero() bool {
	return i.Action == "" && i.SubjectKind == "" && i.SubjectID == "" && len(i.extra) == 0
}

// Equal reports whether i and o describe the same change.
func (i Info) Equal(o Info) bool {
	if i.Action != o.Action || i.SubjectKind != o.SubjectKind || i.SubjectID != o.SubjectID || len(i.extra) != len(o.extra) {
		return false
	}
	for k, v := range i.extra {
		if w, ok := o.extra[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Extra returns the value stored under key.
func (i Info) Extra(key string) string {
	return i.extra[key]
}

// Describe renders the single message line for info.
func (i Info) Describe() string {
	if i.IsZero() {
		return ""
	}
	if d := i.extra[ExtraDescription]; d != "" {
		return d
	}

	switch i.Action {
	case ActionEntitySaved:
		if title := i.extra[ExtraTitle]; title != "" {
			return fmt.Sprintf("%s saved: %q (%s)", Noun(i.SubjectKind), title, i.SubjectID)
		}
		return fmt.Sprintf("%s saved: %s", Noun(i.SubjectKind), i.SubjectID)
	case ActionEntityDeleted:
		return fmt.Sprintf("%s deleted: %s", Noun(i.SubjectKind), i.SubjectID)
	case ActionPluginActivated:
		return fmt.Sprintf("Plugin %q activated", i.SubjectID)
	case ActionPluginDeactivated:
		return fmt.Sprintf("Plugin %q deactivated", i.SubjectID)
	case ActionPluginUpdated:
		return fmt.Sprintf("Plugin %q updated", i.SubjectID)
	case ActionCoreUpdated:
		return fmt.Sprintf("Core updated to version %s", i.SubjectID)
	}

	subject := i.SubjectKind
	if i.SubjectID != "" {
		subject += " " + i.SubjectID
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", i.Action, subject))
}

func (i Info) String() string {
	return i.Describe()
}

// Noun turns a kind into a capitalized singular noun: "term_taxonomy" -> "Term taxonomy".
func Noun(kind string) string {
	n := strings.ReplaceAll(kind, "_", " ")
	if strings.HasSuffix(n, "s") && !strings.HasSuffix(n, "ss") {
		n = strings.TrimSuffix(n, "s")
	}
	if n == "" {
		return "Entity"
	}
	return strings.ToUpper(n[:1]) + n[1:]
}
