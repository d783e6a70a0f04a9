// Package rowgit versions the content of a relational database as a tree of
// human-readable files in a git repository.
//
// The host application reports row changes as they happen during a request.
// Each row is mapped to a stable id that survives database re-imports, its
// merged state is written as one canonical YAML or JSON file per entity, and
// at the end of the request every change becomes a single commit whose
// message describes what happened:
//
//	ws, err := rowgit.Open("./site", rowgit.WithAutoInit(true))
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
//
//	_, err = ws.Do(ctx, func(ctx context.Context, s *rowgit.Session) error {
//		_, err := s.NotifyEntityChanged(ctx, "posts", row)
//		return err
//	})
//
// Components:
//
//   - pkg/identity: volatile row id to stable id mapping.
//   - pkg/storage: per-kind entity files and their canonical encodings.
//   - pkg/changeinfo: change descriptions and commit messages.
//   - pkg/committer: one atomic commit per request.
//   - pkg/engine: the request lifecycle tying them together.
//
// Versioning runs in-process through go-git by default, or through the git
// binary with WithBackend("git").
package rowgit
