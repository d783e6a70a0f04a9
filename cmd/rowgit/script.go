package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/rowgit"
	"github.com/aretw0/rowgit/pkg/changeinfo"
)

// script is a recorded sequence of host requests:
//
//	requests:
//	  - events:
//	      - action: {type: plugin-activated, subject: akismet}
//	      - changed: {kind: posts, id: 1, fields: {post_title: Hello, category: 3}}
//	      - relations: {kind: posts, id: 1, relations: {post_tag: [4, 5]}}
//	      - deleted: {kind: comments, id: 9}
type script struct {
	Requests []scriptRequest `yaml:"requests"`
}

type scriptRequest struct {
	Events []scriptEvent `yaml:"events"`
}

// scriptEvent holds exactly one of its fields.
type scriptEvent struct {
	Changed   *scriptRow       `yaml:"changed,omitempty"`
	Relations *scriptRelations `yaml:"relations,omitempty"`
	Deleted   *scriptRow       `yaml:"deleted,omitempty"`
	Action    *scriptAction    `yaml:"action,omitempty"`
}

type scriptRow struct {
	Kind   string         `yaml:"kind"`
	ID     int64          `yaml:"id"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

type scriptRelations struct {
	Kind      string             `yaml:"kind"`
	ID        int64              `yaml:"id"`
	Relations map[string][]int64 `yaml:"relations"`
}

type scriptAction struct {
	Type        string `yaml:"type"`
	Subject     string `yaml:"subject,omitempty"`
	Kind        string `yaml:"kind,omitempty"`
	Description string `yaml:"description,omitempty"`
}

func loadScript(path string) (script, error) {
	var s script
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return s, nil
}

func (e scriptEvent) event() (rowgit.Event, error) {
	var events []rowgit.Event
	if e.Changed != nil {
		events = append(events, rowgit.EntityChanged{
			Kind: e.Changed.Kind,
			Row:  rowgit.Row{ID: e.Changed.ID, Fields: rowgit.Fields(e.Changed.Fields)},
		})
	}
	if e.Relations != nil {
		events = append(events, rowgit.RelationsChanged{
			Kind:      e.Relations.Kind,
			ID:        e.Relations.ID,
			Relations: e.Relations.Relations,
		})
	}
	if e.Deleted != nil {
		events = append(events, rowgit.EntityDeleted{Kind: e.Deleted.Kind, ID: e.Deleted.ID})
	}
	if e.Action != nil {
		events = append(events, rowgit.ActionOccurred{Info: e.Action.info()})
	}
	if len(events) != 1 {
		return nil, fmt.Errorf("event must set exactly one of changed, relations, deleted or action, got %d", len(events))
	}
	return events[0], nil
}

func (a scriptAction) info() changeinfo.Info {
	switch changeinfo.Action(a.Type) {
	case changeinfo.ActionPluginActivated:
		return changeinfo.PluginActivated(a.Subject)
	case changeinfo.ActionPluginDeactivated:
		return changeinfo.PluginDeactivated(a.Subject)
	case changeinfo.ActionPluginUpdated:
		return changeinfo.PluginUpdated(a.Subject)
	case changeinfo.ActionCoreUpdated:
		return changeinfo.CoreUpdated(a.Subject)
	default:
		return changeinfo.Custom(changeinfo.Action(a.Type), a.Kind, a.Subject, a.Description)
	}
}
