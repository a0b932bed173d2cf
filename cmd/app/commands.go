package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/atvirokodosprendimai/mongoschema/internal/app"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
	"github.com/atvirokodosprendimai/mongoschema/internal/core/usecase"
)

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "mongoschema",
		Usage: "Manage schema-validated MongoDB collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   app.DefaultSettingsFile,
				Sources: cli.EnvVars("MONGOSCHEMA_CONFIG"),
				Usage:   "Settings file (JSON or YAML), written with defaults when missing",
			},
			&cli.StringFlag{
				Name:    "mongo-uri",
				Sources: cli.EnvVars("MONGOSCHEMA_MONGO_URI"),
				Usage:   "MongoDB connection string, overrides the settings file",
			},
			&cli.StringFlag{
				Name:    "database",
				Sources: cli.EnvVars("MONGOSCHEMA_DATABASE"),
				Usage:   "Database name, overrides the settings file (default TestDB)",
			},
			&cli.DurationFlag{
				Name:    "connect-timeout",
				Value:   10 * time.Second,
				Sources: cli.EnvVars("MONGOSCHEMA_CONNECT_TIMEOUT"),
				Usage:   "MongoDB connect and server selection timeout",
			},
			&cli.StringFlag{
				Name:    "audit-db",
				Value:   "./mongoschema.sqlite",
				Sources: cli.EnvVars("MONGOSCHEMA_AUDIT_DB"),
				Usage:   "SQLite file holding the schema change audit trail",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("MONGOSCHEMA_WEBHOOK_URL"),
				Usage:   "Schema change webhook target URL",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("MONGOSCHEMA_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for webhook requests",
			},
			&cli.StringSliceFlag{
				Name:    "api-key",
				Sources: cli.EnvVars("MONGOSCHEMA_API_KEY"),
				Usage:   "API key to register at start-up (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Sources: cli.EnvVars("MONGOSCHEMA_DEBUG"),
				Usage:   "Development logging",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Sources: cli.EnvVars("MONGOSCHEMA_DRY_RUN"),
				Usage:   "Use an in-memory engine instead of MongoDB",
			},
		},
		Commands: []*cli.Command{
			seedCommand(),
			ensureCommand(),
			updateValidatorCommand(),
			collectionsCommand(),
			catalogCommand(),
			reportCommand(),
			historyCommand(),
			apikeyCommand(),
			serveCommand(),
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the sample collections with their validators",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "drop", Usage: "Drop the sample collections first"},
			&cli.BoolFlag{Name: "data", Usage: "Insert the sample documents"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				report, err := rt.Seed.Run(ctx, usecase.SeedOptions{
					Drop: cmd.Bool("drop"),
					Data: cmd.Bool("data"),
				})
				if err != nil {
					return err
				}
				outcomes := make([]outcomeView, 0, len(report.Outcomes))
				for _, out := range report.Outcomes {
					outcomes = append(outcomes, toOutcomeView(out))
				}
				return printJSON(cmd, map[string]any{
					"dropped":  report.Dropped,
					"outcomes": outcomes,
					"inserted": report.Inserted,
				})
			})
		},
	}
}

func validatorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "collection", Usage: "Collection name (defaults to the catalog entry's collection)"},
		&cli.StringFlag{Name: "validator", Usage: "Validator document file (.json, .yaml or .yml)"},
		&cli.StringFlag{Name: "from-catalog", Usage: "Catalog validator name, see the catalog command"},
	}
}

func ensureCommand() *cli.Command {
	return &cli.Command{
		Name:  "ensure",
		Usage: "Create a collection with a validator unless it exists",
		Flags: validatorFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			collection, validator, err := validatorInput(cmd)
			if err != nil {
				return err
			}
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				out, err := rt.Schema.EnsureCollection(ctx, collection, validator)
				if err != nil {
					return err
				}
				return printJSON(cmd, toOutcomeView(out))
			})
		},
	}
}

func updateValidatorCommand() *cli.Command {
	flags := append(validatorFlags(), &cli.StringFlag{
		Name:  "level",
		Value: string(domain.ValidationModerate),
		Usage: "Validation level: off, moderate or strict",
	})
	return &cli.Command{
		Name:  "update-validator",
		Usage: "Replace the validator of an existing collection",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			collection, validator, err := validatorInput(cmd)
			if err != nil {
				return err
			}
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				out, err := rt.Schema.UpdateValidator(ctx, collection, validator, domain.ValidationLevel(cmd.String("level")))
				if err != nil {
					return err
				}
				return printJSON(cmd, toOutcomeView(out))
			})
		},
	}
}

func collectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List the database's collections",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				names, err := rt.Schema.Collections(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, names)
			})
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:      "catalog",
		Usage:     "List the built-in validators, or print one",
		ArgsUsage: "[name]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				return printJSON(cmd, usecase.CatalogNames())
			}
			entry, err := usecase.CatalogValidator(name)
			if err != nil {
				return err
			}
			return printJSON(cmd, entry.Validator)
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Run a named aggregation report, or list them without a name",
		ArgsUsage: "[name]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				reports := usecase.SampleReports()
				listing := make([]map[string]string, 0, len(reports))
				for _, r := range reports {
					listing = append(listing, map[string]string{
						"name":        r.Name,
						"collection":  r.Collection,
						"description": r.Description,
					})
				}
				return printJSON(cmd, listing)
			}
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				reports, err := rt.Reports()
				if err != nil {
					return err
				}
				rows, err := reports.Run(ctx, name)
				if err != nil {
					return err
				}
				return printJSON(cmd, rows)
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded schema changes, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Usage: "Only changes of this collection"},
			&cli.Int64Flag{Name: "after", Usage: "Only changes with a smaller id"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of changes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				changes, err := rt.Audit.List(ctx, domain.SchemaChangeFilter{
					Collection: cmd.String("collection"),
					AfterID:    cmd.Int64("after"),
					Limit:      cmd.Int("limit"),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, changes)
			})
		},
	}
}

func apikeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "apikey",
		Usage: "Manage HTTP API keys",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Generate a key and print it once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Value: "default", Usage: "Label stored with the key"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
						token, err := rt.Auth.Issue(ctx, cmd.String("name"))
						if err != nil {
							return err
						}
						_, err = fmt.Fprintln(writer(cmd), token)
						return err
					})
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and deliver schema change events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("MONGOSCHEMA_ADDR"),
				Usage:   "HTTP listen address",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withRuntime(ctx, cmd, func(rt *app.Runtime) error {
				addr := cmd.String("addr")
				server, dispatcher := rt.NewServer(addr)
				defer func() {
					if err := dispatcher.Close(); err != nil {
						rt.Log.Warnw("stop outbox dispatcher", "error", err)
					}
				}()

				errCh := make(chan error, 1)
				go func() {
					rt.Log.Infow("listening", "addr", addr)
					errCh <- server.ListenAndServe()
				}()

				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigCh)

				select {
				case <-ctx.Done():
				case sig := <-sigCh:
					rt.Log.Infow("received signal", "signal", sig.String())
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
}

// withRuntime opens the runtime from the global flags, runs fn and closes it.
func withRuntime(ctx context.Context, cmd *cli.Command, fn func(rt *app.Runtime) error) error {
	log, err := app.NewLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rt, err := app.Open(ctx, app.Config{
		SettingsPath:   cmd.String("config"),
		MongoURI:       cmd.String("mongo-uri"),
		Database:       cmd.String("database"),
		ConnectTimeout: cmd.Duration("connect-timeout"),
		AuditDBPath:    cmd.String("audit-db"),
		WebhookURL:     cmd.String("webhook-url"),
		WebhookSecret:  cmd.String("webhook-secret"),
		APIKeys:        cmd.StringSlice("api-key"),
		Debug:          cmd.Bool("debug"),
		DryRun:         cmd.Bool("dry-run"),
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warnw("close resources", "error", err)
		}
	}()
	return fn(rt)
}

// validatorInput resolves the collection and validator from --from-catalog
// or --validator.
func validatorInput(cmd *cli.Command) (string, domain.Value, error) {
	collection := cmd.String("collection")
	catalogName := cmd.String("from-catalog")
	file := cmd.String("validator")

	switch {
	case catalogName != "" && file != "":
		return "", domain.Value{}, errors.New("use either --validator or --from-catalog")
	case catalogName != "":
		entry, err := usecase.CatalogValidator(catalogName)
		if err != nil {
			return "", domain.Value{}, err
		}
		if collection == "" {
			collection = entry.Collection
		}
		return collection, entry.Validator, nil
	case file != "":
		validator, err := readValidatorFile(file)
		return collection, validator, err
	default:
		return "", domain.Value{}, errors.New("one of --validator or --from-catalog is required")
	}
}

func readValidatorFile(path string) (domain.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Value{}, fmt.Errorf("read validator: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return domain.ParseYAML(raw)
	default:
		return domain.ParseJSON(raw)
	}
}

type outcomeView struct {
	Collection string `json:"collection"`
	Outcome    string `json:"outcome"`
}

func toOutcomeView(out domain.Outcome) outcomeView {
	return outcomeView{Collection: out.Collection, Outcome: out.Kind.String()}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(writer(cmd))
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
