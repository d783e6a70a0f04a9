package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/committer"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/storage"
)

// Session is the engine's view of one host request.
type Session struct {
	id        string
	engine    *Engine
	factory   *storage.Factory
	committer *committer.Committer
	logger    *slog.Logger

	finishOnce sync.Once
}

// ID identifies the request in logs.
func (s *Session) ID() string {
	return s.id
}

// Storage returns the storage of kind for this request.
func (s *Session) Storage(kind string) (*storage.Storage, error) {
	st, err := s.factory.GetStorage(kind)
	if err != nil {
		s.logger.Error("unknown kind", "kind", kind)
		return nil, err
	}
	return st, nil
}

// Committer returns the request's committer.
func (s *Session) Committer() *committer.Committer {
	return s.committer
}

// Dispatch routes a host event to the matching storage.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	switch ev := ev.(type) {
	case EntityChanged:
		_, err := s.NotifyEntityChanged(ctx, ev.Kind, ev.Row)
		return err
	case RelationsChanged:
		_, err := s.NotifyRelationsChanged(ctx, ev.Kind, ev.ID, ev.Relations)
		return err
	case EntityDeleted:
		return s.NotifyEntityDeleted(ctx, ev.Kind, ev.ID)
	case ActionOccurred:
		s.NotifyAction(ev.Info)
		return nil
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// NotifyEntityChanged saves a row and returns its stable id.
func (s *Session) NotifyEntityChanged(ctx context.Context, kind string, row core.Row) (string, error) {
	st, err := s.Storage(kind)
	if err != nil {
		return "", err
	}
	id, err := st.Save(ctx, row)
	if err != nil {
		return "", err
	}
	s.logger.Debug("entity changed", "kind", kind, "row", row.ID, "id", id)
	return id, nil
}

// NotifyRelationsChanged replaces relation sets of a row.
func (s *Session) NotifyRelationsChanged(ctx context.Context, kind string, volatileID int64, relations map[string][]int64) (string, error) {
	st, err := s.Storage(kind)
	if err != nil {
		return "", err
	}
	id, err := st.UpdateReferences(ctx, volatileID, relations)
	if err != nil {
		return "", err
	}
	s.logger.Debug("relations changed", "kind", kind, "row", volatileID, "id", id)
	return id, nil
}

// NotifyEntityDeleted deletes the entity of a row. Untracked rows are ignored.
func (s *Session) NotifyEntityDeleted(ctx context.Context, kind string, volatileID int64) error {
	st, err := s.Storage(kind)
	if err != nil {
		return err
	}
	id, ok, err := st.DeleteRow(ctx, volatileID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("ignoring deletion of untracked row", "kind", kind, "row", volatileID)
		return nil
	}
	s.logger.Debug("entity deleted", "kind", kind, "row", volatileID, "id", id)
	return nil
}

// NotifyAction makes info the headline of the request's commit.
func (s *Session) NotifyAction(info changeinfo.Info) {
	s.committer.ForceChangeInfo(info)
	s.logger.Debug("action", "action", info.Action, "subject", info.SubjectID)
}

// Commit ends the request with at most one commit. Late changes registered
// after a first Commit are recorded by calling Commit again.
func (s *Session) Commit(ctx context.Context) (committer.Result, error) {
	res, err := s.committer.Commit(ctx)
	s.engine.record(res, err)
	s.finishOnce.Do(s.engine.finish)
	if err != nil {
		return res, fmt.Errorf("request %s: %w", s.id, err)
	}
	return res, nil
}
