package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/atelier/internal"
	pkgconfig "github.com/starford/atelier/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := cmd.String("project"); p != "" {
		cfg.Project.Path = p
	}
	return cfg, nil
}

// action adapts an internal runner to a cli action. Subcommands that write
// results to stdout log to stderr.
func action(runner func(context.Context, ...internal.Option) error, stdoutResults bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if name := cmd.String("name"); name != "" {
			cfg.Project.Name = name
		}
		if client := cmd.String("client"); client != "" {
			cfg.Project.Client = client
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if stdoutResults {
			opts = append(opts, internal.WithLogOutput(os.Stderr))
		}

		if err := runner(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:   "atelier",
		Usage:  "Local-first site studio: project files, block catalog and normalized page IR",
		Action: action(internal.Run, false),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "Project folder (overrides project.path)",
				Sources: cli.EnvVars("ATELIER_PROJECT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and the catalog event stream",
				Action: action(internal.Run, false),
			},
			{
				Name:  "create",
				Usage: "Create a new project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Project name", Required: true},
					&cli.StringFlag{Name: "client", Usage: "Client name", Required: true},
				},
				Action: action(internal.RunCreate, true),
			},
			{
				Name:   "open",
				Usage:  "Open (and migrate) the project and print a summary",
				Action: action(internal.RunOpen, true),
			},
			{
				Name:   "migrate",
				Usage:  "Migrate the project to the current schema version",
				Action: action(internal.RunMigrate, true),
			},
			{
				Name:   "catalog",
				Usage:  "Print the merged block catalog and dependency issues",
				Action: action(internal.RunCatalog, true),
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: action(internal.RunMCP, true),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
