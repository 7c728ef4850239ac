package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/devspace/internal"
	"github.com/starford/devspace/internal/datastore"
	"github.com/starford/devspace/internal/mcpserver"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP API (default)",
			Action: run,
		},
		{
			Name:   "mcp",
			Usage:  "Serve MCP tools over stdio",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				ctx, cancel := context.WithCancel(ctx)
				done := make(chan error, 1)
				go func() { done <- app.Persister.Run(ctx) }()

				err := mcpserver.New(app.Store, app.Backups).ServeStdio()
				cancel()
				return errors.Join(err, <-done)
			}),
		},
		{
			Name:      "export",
			Usage:     "Write the document as JSON to a file or stdout",
			ArgsUsage: "[file]",
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				if path := cmd.Args().First(); path != "" {
					f, err := os.Create(path)
					if err != nil {
						return err
					}
					return errors.Join(writeExport(f, app.Store), f.Close())
				}
				return writeExport(os.Stdout, app.Store)
			}),
		},
		{
			Name:      "import",
			Usage:     "Replace the document with a JSON export",
			ArgsUsage: "<file|->",
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				data, err := readInput(cmd.Args().First())
				if err != nil {
					return err
				}
				if err := app.Store.ImportData(data); err != nil {
					return err
				}
				return printJSON(infoOf(app))
			}),
		},
		{
			Name:  "backup",
			Usage: "Write a dated backup to the configured target",
			Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
				name, err := app.Backups.Backup(ctx)
				if err != nil {
					return err
				}
				fmt.Println(name)
				return nil
			}),
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List backups",
					Action: withApp(func(ctx context.Context, _ *cli.Command, app *internal.App) error {
						entries, err := app.Backups.List(ctx)
						if err != nil {
							return err
						}
						return printJSON(entries)
					}),
				},
			},
		},
		{
			Name:      "restore",
			Usage:     "Restore a backup by name, or from a local file with --file",
			ArgsUsage: "[name]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Path to a backup file"},
			},
			Action: withApp(func(ctx context.Context, cmd *cli.Command, app *internal.App) error {
				if path := cmd.String("file"); path != "" {
					f, err := os.Open(path)
					if err != nil {
						return err
					}
					defer f.Close()
					return app.Backups.Restore(ctx, f)
				}
				name := cmd.Args().First()
				if name == "" {
					return errors.New("backup name or --file is required")
				}
				return app.Backups.RestoreNamed(ctx, name)
			}),
		},
		{
			Name:  "history",
			Usage: "List recent writes of the document (sqlite driver)",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of entries"},
			},
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				entries, err := app.History(int(cmd.Int("limit")))
				if err != nil {
					return err
				}
				return printJSON(entries)
			}),
		},
		{
			Name:  "validate",
			Usage: "Report broken references",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				report := app.Store.Validate()
				if err := printJSON(report); err != nil {
					return err
				}
				if !report.Valid {
					return cli.Exit("", 2)
				}
				return nil
			}),
		},
		{
			Name:  "fix",
			Usage: "Detach records that reference missing projects",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				return printJSON(app.Store.FixOrphanedRecords())
			}),
		},
		{
			Name:  "stats",
			Usage: "Print dashboard statistics",
			Action: withApp(func(_ context.Context, _ *cli.Command, app *internal.App) error {
				return printJSON(app.Store.Statistics())
			}),
		},
		{
			Name:      "compression",
			Usage:     "Show or set storage compression",
			ArgsUsage: "[on|off|toggle]",
			Action: withApp(func(_ context.Context, cmd *cli.Command, app *internal.App) error {
				switch arg := cmd.Args().First(); arg {
				case "":
				case "on":
					app.Store.SetCompression(true)
				case "off":
					app.Store.SetCompression(false)
				case "toggle":
					app.Store.ToggleCompression()
				default:
					return fmt.Errorf("unknown compression mode %q", arg)
				}
				return printJSON(map[string]bool{"enabled": app.Store.Compression()})
			}),
		},
	}
}

type appAction func(ctx context.Context, cmd *cli.Command, app *internal.App) error

// withApp opens the document for a one-shot command and flushes it afterwards.
// Logs go to stderr so stdout stays machine-readable.
func withApp(fn appAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

		app, err := internal.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		runErr := fn(ctx, cmd, app)
		if closeErr := app.Close(); closeErr != nil {
			return errors.Join(runErr, closeErr)
		}
		// Unwrapped so cli.Exit codes reach the process.
		return runErr
	}
}

// writeExport writes the export file format, which already ends in a newline.
func writeExport(w io.Writer, store *datastore.Store) error {
	data, err := store.ExportJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func readInput(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, errors.New("input file is required (use - for stdin)")
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(path)
	}
}

func infoOf(app *internal.App) any {
	info, err := app.Store.Info()
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return info
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
