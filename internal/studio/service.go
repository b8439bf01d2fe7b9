// Package studio is the editing session for one open project: it owns the
// in-memory snapshot, autosaves edits, tracks the live block catalog and
// answers the queries the editor, the MCP tools and the CLI ask.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/autosave"
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/index"
	"github.com/starford/atelier/internal/migrate"
	"github.com/starford/atelier/internal/normalize"
	"github.com/starford/atelier/internal/project"
	"github.com/starford/atelier/internal/schema"
)

// Publisher receives change notifications for connected editors.
type Publisher interface {
	PublishCatalog(kind string, blockIDs []string, errCount int)
	PublishProjectSaved(projectID, updatedAt string)
}

// Service coordinates the project store, autosaver, catalog state, search
// index and publisher.
//
// Snapshots installed in the service are never mutated afterwards; readers
// get clones and writers install fresh values.
type Service struct {
	dir      string
	store    *project.Store
	migrator *migrate.Engine
	logger   *slog.Logger
	index    index.BlockIndex
	pub      Publisher
	allow    []string
	delay    time.Duration
	saver    *autosave.Debouncer[*project.Snapshot]

	mu      sync.RWMutex
	snap    *project.Snapshot
	catalog catalog.Result
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIndex mirrors catalog changes into a search index.
func WithIndex(idx index.BlockIndex) Option {
	return func(s *Service) { s.index = idx }
}

// WithPublisher forwards catalog and save notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithAllowedDependencies sets the dependency allow-list. Empty allows all.
func WithAllowedDependencies(allow []string) Option {
	return func(s *Service) { s.allow = allow }
}

// WithAutosaveDelay sets the autosave quiet period.
func WithAutosaveDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

// New creates a Service for the project in dir whose current state is snap.
// The catalog starts as the built-in registry until the first HandleCatalog.
func New(dir string, store *project.Store, snap *project.Snapshot, opts ...Option) *Service {
	s := &Service{
		dir:     dir,
		store:   store,
		logger:  slog.Default(),
		delay:   autosave.DefaultDelay,
		snap:    snap,
		catalog: catalog.BuiltinResult(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.migrator = migrate.New(store, migrate.WithLogger(s.logger))
	s.saver = autosave.New(s.save,
		autosave.WithDelay(s.delay),
		autosave.WithErrorHandler(func(err error) {
			s.logger.Error("studio: autosave failed", slog.String("error", err.Error()))
		}))
	return s
}

// Dir returns the project root.
func (s *Service) Dir() string { return s.dir }

// Project returns a copy of the current snapshot.
func (s *Service) Project() (*project.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Update replaces the current snapshot with snap and schedules an autosave.
// Missing instance ids are assigned and every document is validated before
// the snapshot is accepted. The accepted snapshot is returned.
func (s *Service) Update(snap *project.Snapshot) (*project.Snapshot, error) {
	if snap == nil {
		return nil, fmt.Errorf("studio: update: %w: nil snapshot", apperr.ErrInvalid)
	}
	next, err := snap.Clone()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkIdentity(s.snap.Project, next.Project); err != nil {
		return nil, err
	}
	assigned := 0
	for i := range next.Pages {
		assigned += normalize.AssignInstanceIDs(&next.Pages[i], next.Project.Seed)
	}
	if err := project.Validate(next); err != nil {
		return nil, err
	}

	s.snap = next
	s.saver.Schedule(next)
	s.logger.Debug("studio: update scheduled",
		slog.Int("pages", len(next.Pages)),
		slog.Int("assigned_ids", assigned))
	return next.Clone()
}

// checkIdentity rejects edits to the fields fixed at creation. The schema
// version only changes through Migrate.
func checkIdentity(open, next schema.ProjectFile) error {
	if next.ProjectID != open.ProjectID {
		return fmt.Errorf("studio: update: %w: projectId %q does not match open project",
			apperr.ErrInvalid, next.ProjectID)
	}
	if next.SchemaVersion != open.SchemaVersion {
		cmp, err := schema.CompareVersions(next.SchemaVersion, open.SchemaVersion)
		if err == nil && cmp > 0 {
			return fmt.Errorf("studio: update: schemaVersion %s, open %s: %w",
				next.SchemaVersion, open.SchemaVersion, apperr.ErrNewerSchema)
		}
		return fmt.Errorf("studio: update: %w: schemaVersion %q differs from open project %q",
			apperr.ErrInvalid, next.SchemaVersion, open.SchemaVersion)
	}
	if next.Seed != open.Seed {
		return fmt.Errorf("studio: update: %w: seed is fixed at creation", apperr.ErrInvalid)
	}
	if next.CreatedAt != open.CreatedAt {
		return fmt.Errorf("studio: update: %w: createdAt is fixed at creation", apperr.ErrInvalid)
	}
	return nil
}

// Flush saves any pending update now.
func (s *Service) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Pending reports whether an update is waiting to be saved.
func (s *Service) Pending() bool {
	return s.saver.Pending()
}

// save persists one scheduled snapshot. The store stamps updatedAt, so it
// works on a copy and installs the stamped copy if nothing newer arrived.
func (s *Service) save(ctx context.Context, snap *project.Snapshot) error {
	saved, err := snap.Clone()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, s.dir, saved); err != nil {
		return err
	}

	s.mu.Lock()
	if s.snap == snap {
		s.snap = saved
	}
	s.mu.Unlock()

	s.logger.Info("studio: project saved",
		slog.String("project_id", saved.Project.ProjectID),
		slog.String("updated_at", saved.Project.UpdatedAt))
	if s.pub != nil {
		s.pub.PublishProjectSaved(saved.Project.ProjectID, saved.Project.UpdatedAt)
	}
	return nil
}

// PageIR normalizes one page of the current snapshot.
func (s *Service) PageIR(pageID string) (normalize.PageIR, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page, ok := s.snap.Page(pageID)
	if !ok {
		return normalize.PageIR{}, fmt.Errorf("studio: page %q: %w", pageID, apperr.ErrNotFound)
	}
	return normalize.Page(page, s.snap.Content, s.snap.Project.Seed), nil
}

// ThemeIR normalizes the current theme.
func (s *Service) ThemeIR() normalize.ThemeIR {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalize.Theme(s.snap.Theme)
}

// HandleCatalog installs the catalog carried by ev, mirrors it into the
// index and notifies the publisher. It is the catalog watcher callback.
func (s *Service) HandleCatalog(ev catalog.Event) {
	s.mu.Lock()
	s.catalog = ev.Catalog
	s.mu.Unlock()

	for _, me := range ev.Catalog.Errors {
		s.logger.Warn("studio: block manifest rejected",
			slog.String("path", me.BlockPath),
			slog.String("error", me.Message))
	}

	if s.index != nil {
		stats, err := s.index.Sync(ev.Catalog.Manifests)
		if err != nil {
			s.logger.Error("studio: index sync failed", slog.String("error", err.Error()))
		} else {
			s.logger.Debug("studio: index synced",
				slog.Int("upserted", stats.Upserted),
				slog.Int("deleted", stats.Deleted))
		}
	}
	if s.pub != nil {
		s.pub.PublishCatalog(string(ev.Type), ev.Catalog.IDs(), len(ev.Catalog.Errors))
	}
}

// Catalog returns the current merged catalog.
func (s *Service) Catalog() catalog.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Dependencies validates the dependencies of every catalog block.
func (s *Service) Dependencies() []catalog.DependencyIssue {
	return catalog.ValidateDependencies(s.Catalog().Manifests, s.allow)
}

// MissingBlocks lists block ids placed on pages that the catalog lacks.
func (s *Service) MissingBlocks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.MissingBlocks(normalize.ReferencedBlockIDs(s.snap.Pages), s.catalog.Manifests)
}

// SearchBlocks searches the block index. Without an index it falls back to
// a case-insensitive match over the in-memory catalog.
func (s *Service) SearchBlocks(query string, limit int) ([]index.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if s.index != nil {
		return s.index.Search(query, limit)
	}

	q := strings.ToLower(query)
	out := []index.SearchResult{}
	for _, m := range s.Catalog().Manifests {
		hay := strings.ToLower(strings.Join(append([]string{m.BlockID, m.Name, m.Category}, m.Tags...), " "))
		if !strings.Contains(hay, q) {
			continue
		}
		out = append(out, index.SearchResult{BlockID: m.BlockID, Name: m.Name, Category: m.Category, Snippet: index.Snippet(m.Category, m.Tags)})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// BlocksByCategory lists catalog blocks of one category, ordered by id.
func (s *Service) BlocksByCategory(category string) ([]index.BlockRow, error) {
	if s.index != nil {
		return s.index.ByCategory(category)
	}
	out := []index.BlockRow{}
	for _, m := range s.Catalog().Manifests {
		if m.Category == category {
			out = append(out, index.BlockRow{BlockID: m.BlockID, Name: m.Name, Category: m.Category, Tags: m.Tags, Version: m.Version})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlockID < out[j].BlockID })
	return out, nil
}

// Migrate flushes pending edits, migrates the project on disk and reloads
// the snapshot when anything changed.
func (s *Service) Migrate(ctx context.Context) (migrate.Result, error) {
	if err := s.Flush(ctx); err != nil {
		return migrate.Result{}, fmt.Errorf("studio: flush before migrate: %w", err)
	}
	res, err := s.migrator.Run(ctx, s.dir)
	if err != nil {
		return res, err
	}
	if !res.Migrated {
		return res, nil
	}
	snap, err := s.store.Open(ctx, s.dir)
	if err != nil {
		return res, err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return res, nil
}

// Close flushes pending edits and stops the autosaver.
func (s *Service) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.saver.Close()
	return err
}
