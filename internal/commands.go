package internal

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/starford/atelier/internal/canonical"
	"github.com/starford/atelier/internal/catalog"
	"github.com/starford/atelier/internal/mcpserver"
	"github.com/starford/atelier/internal/migrate"
	"github.com/starford/atelier/internal/normalize"
	"github.com/starford/atelier/internal/project"
)

// ProjectSummary is printed by the create and open commands.
type ProjectSummary struct {
	Path          string   `json:"path"`
	ProjectID     string   `json:"projectId"`
	ProjectName   string   `json:"projectName"`
	SchemaVersion string   `json:"schemaVersion"`
	UpdatedAt     string   `json:"updatedAt"`
	Pages         []string `json:"pages"`
	ContentCount  int      `json:"contentCount"`
	MissingBlocks []string `json:"missingBlocks"`
}

// CatalogReport is printed by the catalog command.
type CatalogReport struct {
	Catalog catalog.Result            `json:"catalog"`
	Issues  []catalog.DependencyIssue `json:"issues"`
}

func (a *application) print(v any) error {
	data, err := canonical.Marshal(v)
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}

// projectCatalog scans the project's blocks/ folder once and merges it with
// the built-in registry.
func projectCatalog(dir string) catalog.Result {
	workspace := catalog.Discover(filepath.Join(dir, project.BlocksDir))
	return catalog.Merge(catalog.BuiltinResult(), workspace)
}

func summarize(dir string, snap *project.Snapshot) ProjectSummary {
	pages := make([]string, 0, len(snap.Pages))
	for _, p := range snap.Pages {
		pages = append(pages, p.PageID)
	}
	cat := projectCatalog(dir)
	return ProjectSummary{
		Path:          dir,
		ProjectID:     snap.Project.ProjectID,
		ProjectName:   snap.Project.ProjectName,
		SchemaVersion: snap.Project.SchemaVersion,
		UpdatedAt:     snap.Project.UpdatedAt,
		Pages:         pages,
		ContentCount:  len(snap.Content),
		MissingBlocks: catalog.MissingBlocks(normalize.ReferencedBlockIDs(snap.Pages), cat.Manifests),
	}
}

// RunCreate creates a new project at the configured path.
func RunCreate(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store := project.NewStore(project.WithLogger(logger))
	snap, err := store.Create(ctx, cfg.Project.Path, project.CreateInput{
		ProjectName: cfg.Project.Name,
		ClientName:  cfg.Project.Client,
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return app.print(summarize(cfg.Project.Path, snap))
}

// RunOpen opens (and if needed migrates) the configured project and prints
// a summary.
func RunOpen(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	_, snap, err := openProject(ctx, app.config, logger)
	if err != nil {
		return err
	}
	return app.print(summarize(app.config.Project.Path, snap))
}

// RunMigrate migrates the configured project and prints the result.
func RunMigrate(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	store := project.NewStore(project.WithLogger(logger))
	res, err := migrate.New(store, migrate.WithLogger(logger)).Run(ctx, app.config.Project.Path)
	if err != nil {
		return err
	}
	return app.print(res)
}

// RunCatalog prints the merged catalog of the configured project together
// with its dependency issues.
func RunCatalog(_ context.Context, opts ...Option) error {
	app, _, err := newApplication(opts)
	if err != nil {
		return err
	}
	cat := projectCatalog(app.config.Project.Path)
	return app.print(CatalogReport{
		Catalog: cat,
		Issues:  catalog.ValidateDependencies(cat.Manifests, app.config.Catalog.AllowedDependencies),
	})
}

// RunMCP serves the MCP tools for the configured project over stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	sess, err := startSession(ctx, app.config, logger, false)
	if err != nil {
		return err
	}
	defer sess.close(context.Background(), logger)

	return mcpserver.New(sess.svc, app.version).ServeStdio()
}
