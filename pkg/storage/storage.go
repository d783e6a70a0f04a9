// Package storage maps database rows to canonical entity files.
//
// A Storage serves one kind and lives for one request: it coalesces every
// save of an entity into a single pending change and registers the resulting
// file mutation with the request's committer. Nothing touches the working
// tree until the committer renders the mutations at commit time, and the
// rendering applies the request's changes to the file as it is then.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/rowgit/pkg/changeinfo"
	"github.com/aretw0/rowgit/pkg/core"
	"github.com/aretw0/rowgit/pkg/identity"
)

// Registrar receives the file mutations produced by a Storage.
type Registrar interface {
	RegisterChange(mutation core.FileMutation, info changeinfo.Info)
}

// InfoUpdater is implemented by registrars that can rewrite the description
// of a change still pending.
type InfoUpdater interface {
	UpdateChangeInfo(prev, next changeinfo.Info) bool
}

// Option configures a Storage.
type Option func(*options)

type options struct {
	serializer Serializer
	logger     *slog.Logger
}

// WithSerializer sets the on-disk encoding. YAML is the default.
func WithSerializer(s Serializer) Option {
	return func(o *options) {
		o.serializer = s
	}
}

// WithLogger sets the logger used for non-fatal conditions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Storage persists the entities of one kind.
type Storage struct {
	schema     Schema
	ids        *identity.Map
	fs         core.FileSystem
	registrar  Registrar
	serializer Serializer
	logger     *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingEntity
}

// pendingEntity holds what this request changed, not a snapshot of the file.
type pendingEntity struct {
	fields    core.Fields
	refs      map[string][]core.Reference
	fresh     bool
	deleted   bool
	announced bool
	info      changeinfo.Info
}

func newPending(fresh bool) *pendingEntity {
	return &pendingEntity{
		fields: core.Fields{},
		refs:   make(map[string][]core.Reference),
		fresh:  fresh,
	}
}

// applyTo returns base with the pending changes on top.
func (p *pendingEntity) applyTo(base core.Entity) core.Entity {
	e := cloneEntity(base)
	for k, v := range p.fields {
		e.Fields[k] = v
	}
	if len(p.refs) > 0 {
		kept := e.References[:0:0]
		for _, r := range e.References {
			if _, replaced := p.refs[r.Name]; !replaced {
				kept = append(kept, r)
			}
		}
		for _, set := range p.refs {
			kept = append(kept, set...)
		}
		e.References = core.SortReferences(kept)
	}
	return e
}

// New creates the storage of schema.Kind.
func New(schema Schema, ids *identity.Map, fs core.FileSystem, registrar Registrar, opts ...Option) *Storage {
	o := options{
		serializer: YAML{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Storage{
		schema:     schema,
		ids:        ids,
		fs:         fs,
		registrar:  registrar,
		serializer: o.serializer,
		logger:     o.logger.With("kind", schema.Kind),
		pending:    make(map[string]*pendingEntity),
	}
}

// Kind returns the kind served by the storage.
func (s *Storage) Kind() string {
	return s.schema.Kind
}

// Schema returns the schema of the kind.
func (s *Storage) Schema() Schema {
	return s.schema
}

// Path returns the working-tree path of an entity file.
func (s *Storage) Path(stableID string) string {
	return path.Join(s.schema.Kind, stableID+s.serializer.Ext())
}

// Save merges row into the entity it identifies and schedules the file write.
// Fields absent from row keep their current value. Reference columns are
// resolved to stable ids and replace the previous set of the same name.
func (s *Storage) Save(ctx context.Context, row core.Row) (string, error) {
	if row.ID <= 0 {
		return "", fmt.Errorf("save %s: invalid row id %d", s.schema.Kind, row.ID)
	}
	stableID, err := s.ids.Resolve(ctx, s.schema.Kind, row.ID)
	if err != nil {
		return "", fmt.Errorf("save %s/%d: %w", s.schema.Kind, row.ID, err)
	}

	fields := make(core.Fields, len(row.Fields))
	refs := make(map[string][]core.Reference)
	for name, value := range row.Fields {
		if name == s.schema.IDField {
			continue
		}
		kind, ok := s.schema.referenceKind(name)
		if !ok {
			fields[name] = core.NormalizeValue(value)
			continue
		}
		vids, err := core.VolatileIDs(value)
		if err != nil {
			return "", fmt.Errorf("save %s/%d: reference %s: %w", s.schema.Kind, row.ID, name, err)
		}
		resolved, err := s.resolveAll(ctx, name, kind, vids)
		if err != nil {
			return "", err
		}
		refs[name] = resolved
	}

	return stableID, s.merge(stableID, fields, refs)
}

// UpdateReferences replaces the named relation sets of the entity of
// volatileID. Names not declared in the schema use its RelationKind.
func (s *Storage) UpdateReferences(ctx context.Context, volatileID int64, relations map[string][]int64) (string, error) {
	stableID, err := s.ids.Resolve(ctx, s.schema.Kind, volatileID)
	if err != nil {
		return "", fmt.Errorf("update references %s/%d: %w", s.schema.Kind, volatileID, err)
	}

	refs := make(map[string][]core.Reference, len(relations))
	for name, vids := range relations {
		kind, ok := s.schema.relationKind(name)
		if !ok {
			return "", fmt.Errorf("%w: relation %q of %s", core.ErrUnknownKind, name, s.schema.Kind)
		}
		resolved, err := s.resolveAll(ctx, name, kind, vids)
		if err != nil {
			return "", err
		}
		refs[name] = resolved
	}

	return stableID, s.merge(stableID, nil, refs)
}

func (s *Storage) resolveAll(ctx context.Context, name, kind string, vids []int64) ([]core.Reference, error) {
	refs := make([]core.Reference, 0, len(vids))
	for _, vid := range vids {
		id, err := s.ids.Resolve(ctx, kind, vid)
		if err != nil {
			return nil, fmt.Errorf("resolve %s %s/%d: %w", name, kind, vid, err)
		}
		refs = append(refs, core.Reference{Name: name, Kind: kind, ID: id})
	}
	return refs, nil
}

func (s *Storage) merge(stableID string, fields core.Fields, refs map[string][]core.Reference) error {
	s.mu.Lock()
	p := s.pending[stableID]
	switch {
	case p == nil:
		p = newPending(false)
		s.pending[stableID] = p
	case p.deleted:
		*p = *newPending(true)
	}

	for k, v := range fields {
		p.fields[k] = v
	}
	for name, set := range refs {
		p.refs[name] = set
	}

	var info, prev changeinfo.Info
	_, retitled := fields[s.schema.TitleField]
	switch {
	case !p.announced:
		p.announced = true
		p.info = changeinfo.EntitySaved(s.schema.Kind, stableID, s.pendingTitle(stableID, p))
		info = p.info
	case retitled && s.schema.TitleField != "":
		next := changeinfo.EntitySaved(s.schema.Kind, stableID, s.pendingTitle(stableID, p))
		if !next.Equal(p.info) {
			prev, info = p.info, next
		}
	}
	s.mu.Unlock()

	var mutationInfo changeinfo.Info
	if prev.IsZero() {
		mutationInfo = info
	} else if u, ok := s.registrar.(InfoUpdater); ok && u.UpdateChangeInfo(prev, info) {
		s.mu.Lock()
		if p.info.Equal(prev) {
			p.info = info
		}
		s.mu.Unlock()
	}

	s.registrar.RegisterChange(core.FileMutation{
		Path:   s.Path(stableID),
		Op:     core.OpWrite,
		Render: s.renderer(stableID),
	}, mutationInfo)
	return nil
}

// pendingTitle is the title the entity will have once p is applied.
// The file is consulted only when this request did not set the title.
func (s *Storage) pendingTitle(stableID string, p *pendingEntity) string {
	if s.schema.TitleField == "" {
		return ""
	}
	if _, ok := p.fields[s.schema.TitleField]; ok || p.fresh {
		return s.title(p.fields)
	}
	current, err := s.readFile(stableID)
	if err != nil {
		return ""
	}
	return s.title(current.Fields)
}

func (s *Storage) blank(stableID string) core.Entity {
	return core.Entity{Kind: s.schema.Kind, ID: stableID, Fields: core.Fields{}}
}

func (s *Storage) title(fields core.Fields) string {
	if s.schema.TitleField == "" {
		return ""
	}
	v, ok := fields[s.schema.TitleField]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// renderer encodes the entity as of commit time: the file currently in the
// working tree with this request's changes applied. The committer calls it
// while holding the versioner lock, so changes committed by other requests
// in the meantime are kept.
func (s *Storage) renderer(stableID string) func() ([]byte, error) {
	return func() ([]byte, error) {
		e, err := s.current(stableID)
		if err != nil {
			return nil, err
		}
		return s.serializer.Encode(e)
	}
}

// current returns the pending entity applied to the working tree.
func (s *Storage) current(stableID string) (core.Entity, error) {
	s.mu.Lock()
	p, ok := s.pending[stableID]
	if !ok {
		s.mu.Unlock()
		return core.Entity{}, fmt.Errorf("%w: no pending state for %s/%s", core.ErrNotFound, s.schema.Kind, stableID)
	}
	if p.deleted {
		s.mu.Unlock()
		return core.Entity{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, s.schema.Kind, stableID)
	}
	fresh := p.fresh
	s.mu.Unlock()

	base := s.blank(stableID)
	if !fresh {
		onDisk, err := s.readFile(stableID)
		switch {
		case err == nil:
			base = onDisk
		case !errors.Is(err, core.ErrNotFound):
			return core.Entity{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return p.applyTo(base), nil
}

// Delete removes the entity file and retires its identity mapping.
func (s *Storage) Delete(ctx context.Context, stableID string) error {
	if stableID == "" {
		return fmt.Errorf("delete %s: empty stable id", s.schema.Kind)
	}

	s.mu.Lock()
	p := newPending(true)
	p.deleted = true
	s.pending[stableID] = p
	s.mu.Unlock()

	vid, err := s.ids.ReverseResolve(ctx, s.schema.Kind, stableID)
	switch {
	case errors.Is(err, core.ErrIdentityMiss):
		s.logger.Debug("deleting entity without identity mapping", "id", stableID)
	case err != nil:
		return fmt.Errorf("delete %s/%s: %w", s.schema.Kind, stableID, err)
	default:
		if err := s.ids.Forget(ctx, s.schema.Kind, vid); err != nil {
			return fmt.Errorf("delete %s/%s: %w", s.schema.Kind, stableID, err)
		}
	}

	s.registrar.RegisterChange(core.DeleteFile(s.Path(stableID)), changeinfo.EntityDeleted(s.schema.Kind, stableID))
	return nil
}

// DeleteRow deletes the entity of a row. Rows that were never tracked are ignored.
func (s *Storage) DeleteRow(ctx context.Context, volatileID int64) (string, bool, error) {
	stableID, ok, err := s.ids.Lookup(ctx, s.schema.Kind, volatileID)
	if err != nil || !ok {
		return "", false, err
	}
	return stableID, true, s.Delete(ctx, stableID)
}

// Load returns the current state of an entity: the file in the working tree
// with the pending changes of this request applied.
func (s *Storage) Load(ctx context.Context, stableID string) (core.Entity, error) {
	s.mu.Lock()
	_, ok := s.pending[stableID]
	s.mu.Unlock()
	if ok {
		return s.current(stableID)
	}
	return s.readFile(stableID)
}

func (s *Storage) readFile(stableID string) (core.Entity, error) {
	data, err := s.fs.ReadFile(s.Path(stableID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Entity{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, s.schema.Kind, stableID)
		}
		return core.Entity{}, err
	}
	e, err := s.serializer.Decode(data)
	if err != nil {
		return core.Entity{}, fmt.Errorf("%s: %w", s.Path(stableID), err)
	}
	e.Kind = s.schema.Kind
	e.ID = stableID
	if e.Fields == nil {
		e.Fields = core.Fields{}
	}
	return e, nil
}

// Restore maps a stored entity back to a row with volatile ids.
// References whose target is no longer mapped are skipped.
func (s *Storage) Restore(ctx context.Context, stableID string) (core.Row, error) {
	e, err := s.Load(ctx, stableID)
	if err != nil {
		return core.Row{}, err
	}
	vid, err := s.ids.ReverseResolve(ctx, s.schema.Kind, stableID)
	if err != nil {
		return core.Row{}, err
	}

	fields := e.Fields.Clone()
	grouped := make(map[string][]int64)
	for _, ref := range e.References {
		target, err := s.ids.ReverseResolve(ctx, ref.Kind, ref.ID)
		if errors.Is(err, core.ErrIdentityMiss) {
			s.logger.Debug("skipping dangling reference", "id", stableID, "reference", ref.Name, "target", ref.ID)
			continue
		}
		if err != nil {
			return core.Row{}, err
		}
		grouped[ref.Name] = append(grouped[ref.Name], target)
	}
	for name, vids := range grouped {
		if s.schema.isScalarReference(name) && len(vids) == 1 {
			fields[name] = vids[0]
		} else {
			fields[name] = vids
		}
	}

	return core.Row{ID: vid, Fields: fields}, nil
}

// List returns the stable ids of the kind, including pending saves and
// excluding pending deletions. A non-empty pattern filters ids with
// doublestar glob syntax.
func (s *Storage) List(ctx context.Context, pattern string) ([]string, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}

	names, err := s.fs.ReadDir(s.schema.Kind)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(names))
	ext := s.serializer.Ext()
	for _, name := range names {
		if id, ok := strings.CutSuffix(name, ext); ok {
			set[id] = true
		}
	}

	s.mu.Lock()
	for id, p := range s.pending {
		if p.deleted {
			delete(set, id)
		} else {
			set[id] = true
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(set))
	for id := range set {
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, id); !ok {
				continue
			}
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func cloneEntity(e core.Entity) core.Entity {
	out := e
	out.Fields = e.Fields.Clone()
	if e.References != nil {
		out.References = append([]core.Reference(nil), e.References...)
	}
	return out
}
