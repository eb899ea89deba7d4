// Package main provides the curricula binary: it reads the SQL scripts a
// generation model writes for a curriculum and turns them into evaluable
// items, flat item lists, stored records and teaching artifacts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brequin/brequin/curriculum/config"
	"github.com/brequin/brequin/curriculum/db"
	"github.com/brequin/brequin/curriculum/generate"
	"github.com/brequin/brequin/curriculum/logger"
	"github.com/brequin/brequin/curriculum/source"
)

const (
	Version = "0.1.0"
	appName = "curricula"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{newGenerator: newClaude}
	if err := rootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	configFile string
	format     string
	user       string
	logLevel   string

	cfg config.Config
	log *logger.Logger

	newGenerator func(cfg config.Config) (generate.Generator, error)
}

func newClaude(cfg config.Config) (generate.Generator, error) {
	return generate.NewClaude(cfg.AIAPIKey, cfg.AIModel, cfg.AIMaxTokens)
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Curriculum script parser",
		Long: `Curricula reads the SQL scripts a generation model writes for a curriculum
(INSERT INTO entidades / relaciones) and turns them into:

- evaluable items: competencies with their reachable evaluation criteria
- flat lists of competencies, criteria and knowledge
- records in the document store
- rubrics, exams and other artifacts built from the evaluable items`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Config file path (YAML)")
	flags.StringVarP(&a.format, "format", "f", "", "Output format (json, yaml)")
	flags.StringVarP(&a.user, "user", "u", "", "Owner of stored records")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		evaluableCmd(a),
		itemsCmd(a),
		importCmd(a),
		generateCmd(a),
		artifactCmd(a),
		scriptsCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

// setup loads the configuration, lets flags override it and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	if a.format != "" {
		cfg.OutputFormat = a.format
	}
	if a.user != "" {
		cfg.User = a.user
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log.With("command", cmd.Name())
	return nil
}

func (a *app) loader(cmd *cobra.Command) *source.Loader {
	loader := source.NewLoader()
	loader.Stdin = cmd.InOrStdin()
	return loader
}

// openStore connects to the configured backend. The caller closes it.
func (a *app) openStore(ctx context.Context) (db.Store, error) {
	if a.cfg.User == "" {
		return nil, fmt.Errorf("no user configured: pass --user or set %s_USER", config.EnvPrefix)
	}

	switch a.cfg.DatabaseDriver {
	case "postgres":
		if a.cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database.url is required for the postgres driver")
		}
		database, err := db.NewDatabase(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		a.log.Debug("Connected to postgres")
		return database, nil
	default:
		database, err := db.NewSQLiteDatabase(a.cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.log.Debug("Opened sqlite database", "path", a.cfg.DatabasePath)
		return database, nil
	}
}
