package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/ident"
	"github.com/starford/atelier/internal/schema"
	"github.com/starford/atelier/internal/storage"
)

// Store reads and writes project snapshots. It holds no per-project state;
// a single process is assumed to own a project directory at a time.
type Store struct {
	logger  *slog.Logger
	now     func() time.Time
	current string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSupportedVersion overrides the newest schema version the store accepts.
func WithSupportedVersion(v string) Option {
	return func(s *Store) { s.current = v }
}

// NewStore creates a Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:  slog.Default(),
		now:     time.Now,
		current: schema.CurrentVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SupportedVersion returns the newest schema version the store accepts.
func (s *Store) SupportedVersion() string { return s.current }

// CreateInput holds the user-supplied fields of a new project.
type CreateInput struct {
	ProjectName string `json:"projectName"`
	ClientName  string `json:"clientName"`
}

// Validate validates the create input.
func (in *CreateInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.ProjectName, validation.Required),
		validation.Field(&in.ClientName, validation.Required),
	)
}

// Create initialises a new project in dir with the default document set.
func (s *Store) Create(ctx context.Context, dir string, in CreateInput) (*Snapshot, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("project: create: %w: %w", apperr.ErrInvalid, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("project: create dir: %w", err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Read(ProjectFileName); err == nil {
		return nil, fmt.Errorf("project: create %s: %w", fs.Root(), apperr.ErrAlreadyExists)
	}

	seed, err := ident.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("project: seed: %w", err)
	}
	stamp := schema.Timestamp(s.now())

	snap := &Snapshot{
		Project: schema.ProjectFile{
			SchemaVersion: s.current,
			ProjectID:     ident.NewProjectID(),
			ProjectName:   in.ProjectName,
			ClientName:    in.ClientName,
			CreatedAt:     stamp,
			UpdatedAt:     stamp,
			Seed:          seed,
		},
		Site:    schema.SiteFile{Title: in.ProjectName},
		Pages:   []schema.PageManifestFile{schema.NewHomePage()},
		Content: []schema.ContentRecordFile{},
	}
	snap.Site.Navigation = []schema.NavItem{{Label: "Home", PageID: "home"}}

	if err := s.write(ctx, fs, snap); err != nil {
		return nil, err
	}
	s.logger.Info("project: created",
		slog.String("path", fs.Root()),
		slog.String("project_id", snap.Project.ProjectID))
	return snap, nil
}

// Open reads and validates every document of the project in dir. Any
// invalid file aborts the whole open.
func (s *Store) Open(ctx context.Context, dir string) (*Snapshot, error) {
	fs, err := s.openFS(dir)
	if err != nil {
		return nil, err
	}

	proj, err := readDoc(fs, ProjectFileName, schema.ParseProject)
	if err != nil {
		return nil, err
	}
	if err := s.checkVersion(proj.SchemaVersion); err != nil {
		return nil, err
	}

	snap := &Snapshot{Project: proj}
	if snap.Site, err = readDoc(fs, SiteFileName, schema.ParseSite); err != nil {
		return nil, err
	}
	if snap.Theme, err = readDoc(fs, ThemeFileName, schema.ParseTheme); err != nil {
		return nil, err
	}
	if snap.BlocksLock, err = readDoc(fs, LockFileName, schema.ParseBlocksLock); err != nil {
		return nil, err
	}
	if snap.Pages, err = readDir(ctx, fs, PagesDir, schema.ParsePage); err != nil {
		return nil, err
	}
	if snap.Content, err = readDir(ctx, fs, ContentDir, schema.ParseContent); err != nil {
		return nil, err
	}

	s.logger.Debug("project: opened",
		slog.String("path", fs.Root()),
		slog.Int("pages", len(snap.Pages)),
		slog.Int("content", len(snap.Content)))
	return snap, nil
}

// ReadProjectFile reads and validates only project.json.
// Unlike Open it does not create missing layout directories.
func (s *Store) ReadProjectFile(dir string) (schema.ProjectFile, error) {
	fs, err := storage.NewFS(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schema.ProjectFile{}, fmt.Errorf("project: %s: %w", dir, apperr.ErrNotFound)
		}
		return schema.ProjectFile{}, err
	}
	return readDoc(fs, ProjectFileName, schema.ParseProject)
}

// Save validates every document of snap, stamps updatedAt and writes the
// project to dir. A failed save leaves updatedAt as it was.
func (s *Store) Save(ctx context.Context, dir string, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("project: save: %w: nil snapshot", apperr.ErrInvalid)
	}
	fs, err := s.openFS(dir)
	if err != nil {
		return err
	}
	if err := s.checkVersion(snap.Project.SchemaVersion); err != nil {
		return err
	}
	if err := Validate(snap); err != nil {
		return err
	}
	prev := snap.Project.UpdatedAt
	snap.Project.UpdatedAt = schema.Timestamp(s.now())
	if err := s.write(ctx, fs, snap); err != nil {
		snap.Project.UpdatedAt = prev
		return err
	}
	s.logger.Debug("project: saved", slog.String("path", fs.Root()))
	return nil
}

func (s *Store) openFS(dir string) (*storage.FS, error) {
	fs, err := storage.NewFS(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project: %s: %w", dir, apperr.ErrNotFound)
		}
		return nil, err
	}
	if err := ensureLayout(fs); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *Store) checkVersion(v string) error {
	cmp, err := schema.CompareVersions(v, s.current)
	if err != nil {
		return fmt.Errorf("project: %w: %w", apperr.ErrInvalid, err)
	}
	if cmp > 0 {
		return fmt.Errorf("project: schema %s, supported %s: %w", v, s.current, apperr.ErrNewerSchema)
	}
	return nil
}

// write validates every document before touching disk, then writes them.
func (s *Store) write(ctx context.Context, fs storage.Provider, snap *Snapshot) error {
	if err := Validate(snap); err != nil {
		return err
	}
	if err := ensureLayout(fs); err != nil {
		return err
	}

	docs := []struct {
		path string
		v    any
	}{
		{ProjectFileName, snap.Project},
		{SiteFileName, snap.Site},
		{ThemeFileName, snap.Theme},
		{LockFileName, snap.BlocksLock},
	}
	for _, p := range snap.Pages {
		docs = append(docs, struct {
			path string
			v    any
		}{PagePath(p.PageID), p})
	}
	for _, c := range snap.Content {
		docs = append(docs, struct {
			path string
			v    any
		}{ContentPath(c.ID), c})
	}

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeDoc(fs, d.path, d.v); err != nil {
			return err
		}
	}
	return nil
}

// Validate applies defaults to every document of snap in place and checks
// it, including that no two pages or records share a file name.
func Validate(snap *Snapshot) error {
	if err := schema.Check(schema.DocProject, &snap.Project); err != nil {
		return err
	}
	if err := schema.Check(schema.DocSite, &snap.Site); err != nil {
		return err
	}
	if err := schema.Check(schema.DocTheme, &snap.Theme); err != nil {
		return err
	}
	if err := schema.Check(schema.DocLock, &snap.BlocksLock); err != nil {
		return err
	}
	if snap.Pages == nil {
		snap.Pages = []schema.PageManifestFile{}
	}
	if snap.Content == nil {
		snap.Content = []schema.ContentRecordFile{}
	}

	paths := make(map[string]string)
	for i := range snap.Pages {
		if err := schema.Check(schema.DocPage, &snap.Pages[i]); err != nil {
			return fmt.Errorf("project: page %q: %w", snap.Pages[i].PageID, err)
		}
		if err := claimPath(paths, PagePath(snap.Pages[i].PageID), snap.Pages[i].PageID); err != nil {
			return err
		}
	}
	for i := range snap.Content {
		if err := schema.Check(schema.DocContent, &snap.Content[i]); err != nil {
			return fmt.Errorf("project: content %q: %w", snap.Content[i].ID, err)
		}
		if err := claimPath(paths, ContentPath(snap.Content[i].ID), snap.Content[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// claimPath rejects two documents whose sanitized ids map to one file.
func claimPath(paths map[string]string, rel, id string) error {
	if other, ok := paths[rel]; ok {
		return fmt.Errorf("project: %q and %q both map to %s: %w", other, id, rel, apperr.ErrInvalid)
	}
	paths[rel] = id
	return nil
}

func ensureLayout(fs storage.Provider) error {
	for _, d := range Dirs {
		if err := fs.MkdirAll(d); err != nil {
			return err
		}
	}
	return nil
}

func readDoc[T any](fs storage.Provider, rel string, parse func([]byte) (T, error)) (T, error) {
	var zero T
	data, err := fs.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("project: %s: %w", rel, apperr.ErrNotFound)
		}
		return zero, fmt.Errorf("project: %w", err)
	}
	doc, err := parse(data)
	if err != nil {
		return zero, fmt.Errorf("project: %w", schema.WithSource(err, rel))
	}
	return doc, nil
}

func readDir[T any](ctx context.Context, fs storage.Provider, dir string, parse func([]byte) (T, error)) ([]T, error) {
	files, err := fs.List(dir, docExt)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	out := make([]T, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := readDoc(fs, f.Path, parse)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func writeDoc(fs storage.Provider, rel string, v any) error {
	data, err := canonical.Marshal(v)
	if err != nil {
		return fmt.Errorf("project: encode %s: %w", rel, err)
	}
	if err := fs.Write(rel, data); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	return nil
}
