// Package migrate upgrades a project directory to the current schema version.
//
// Migration is not transactional: the tree is copied to backups/ first, then
// the project is round-tripped through the store. A failure during the
// round-trip leaves the backup in place for manual recovery.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/project"
	"github.com/starford/atelier/internal/schema"
	"github.com/starford/atelier/internal/storage"
)

// LogPath is the append-only migration log, relative to the project root.
var LogPath = path.Join(project.ExportsDir, "migrations.log")

const backupSuffix = "-pre-migration"

// Result describes the outcome of Run.
type Result struct {
	Migrated    bool   `json:"migrated"`
	FromVersion string `json:"fromVersion"`
	ToVersion   string `json:"toVersion"`
	BackupPath  string `json:"backupPath,omitempty"`
}

// LogRecord is one entry of the migration log.
type LogRecord struct {
	MigratedAt  string `json:"migratedAt"`
	FromVersion string `json:"fromVersion"`
	ToVersion   string `json:"toVersion"`
	BackupPath  string `json:"backupPath"`
}

// Engine runs migrations through a project.Store.
type Engine struct {
	store  *project.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for backup names and log records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. The target version is the store's supported version.
func New(store *project.Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run migrates the project in dir if it is older than the supported version.
func (e *Engine) Run(ctx context.Context, dir string) (Result, error) {
	target := e.store.SupportedVersion()

	proj, err := e.store.ReadProjectFile(dir)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: %w", err)
	}
	from := proj.SchemaVersion
	res := Result{FromVersion: from, ToVersion: target}

	cmp, err := schema.CompareVersions(from, target)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: %w: %w", apperr.ErrInvalid, err)
	}
	switch {
	case cmp > 0:
		return Result{}, fmt.Errorf("migrate: project %s, supported %s: %w", from, target, apperr.ErrNewerSchema)
	case cmp == 0:
		e.logger.Debug("migrate: up to date", slog.String("version", from))
		return res, nil
	}

	fs, err := storage.NewFS(dir)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: %w", err)
	}
	migratedAt := e.now()
	backup, err := e.backup(fs, migratedAt)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: backup: %w", err)
	}
	e.logger.Info("migrate: backup created", slog.String("path", backup))

	snap, err := e.store.Open(ctx, dir)
	if err != nil {
		return Result{}, fmt.Errorf("migrate: open (backup at %s): %w", backup, err)
	}
	snap.Project.SchemaVersion = target
	if err := e.store.Save(ctx, dir, snap); err != nil {
		return Result{}, fmt.Errorf("migrate: save (backup at %s): %w", backup, err)
	}

	record, err := canonical.Marshal(LogRecord{
		MigratedAt:  schema.Timestamp(migratedAt),
		FromVersion: from,
		ToVersion:   target,
		BackupPath:  backup,
	})
	if err != nil {
		return Result{}, fmt.Errorf("migrate: encode log: %w", err)
	}
	if err := fs.Append(LogPath, record); err != nil {
		return Result{}, fmt.Errorf("migrate: log: %w", err)
	}

	e.logger.Info("migrate: project migrated",
		slog.String("path", fs.Root()),
		slog.String("from", from),
		slog.String("to", target))

	res.Migrated = true
	res.BackupPath = backup
	return res, nil
}

// backup copies every top-level entry except backups/ into a fresh
// timestamped folder and returns its relative path.
func (e *Engine) backup(fs storage.Provider, at time.Time) (string, error) {
	dest := path.Join(project.BackupsDir, BackupName(at))
	if err := fs.MkdirAll(dest); err != nil {
		return "", err
	}
	entries, err := fs.Entries("")
	if err != nil {
		return "", err
	}
	for _, name := range entries {
		if name == project.BackupsDir {
			continue
		}
		if err := fs.CopyTree(name, path.Join(dest, name)); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// BackupName formats t as a filesystem-safe folder name,
// e.g. 20260102T030405123Z-pre-migration.
func BackupName(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	stamp = strings.NewReplacer(":", "", ".", "", "-", "").Replace(stamp)
	return stamp + backupSuffix
}
