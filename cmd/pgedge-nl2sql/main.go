/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Command Line
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pgedge-nl2sql/internal/config"
	"pgedge-nl2sql/internal/database"
	"pgedge-nl2sql/internal/executor"
	"pgedge-nl2sql/internal/extract"
	"pgedge-nl2sql/internal/llm"
	"pgedge-nl2sql/internal/logging"
	"pgedge-nl2sql/internal/nl2sql"
	"pgedge-nl2sql/internal/prompt"
	"pgedge-nl2sql/internal/schema"
)

const version = "1.0.0"

var (
	configFile string
	flags      flagValues
)

// flagValues holds the raw persistent flag values before they are mapped
// onto config.CLIFlags
type flagValues struct {
	driver    string
	database  string
	provider  string
	model     string
	baseURL   string
	timeout   time.Duration
	extractor string
	maxRows   int
	examples  string
	metadata  string
	logLevel  string
	noColor   bool
}

var rootCmd = &cobra.Command{
	Use:   "pgedge-nl2sql",
	Short: "pgEdge NL2SQL - Ask questions about a database in Thai or English",
	Long: `pgedge-nl2sql turns natural language questions (Thai or English) into SQL
using a language model, runs the SQL against a SQLite or PostgreSQL database,
asks the model to correct a failing query once, and explains the result.

Running without a subcommand starts the interactive chat.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	pf.StringVar(&flags.driver, "driver", "", "Database driver: sqlite, sqlite3 or pgx (default: sqlite)")
	pf.StringVarP(&flags.database, "database", "d", "", "Database file path, or connection string for pgx")
	pf.StringVar(&flags.provider, "llm-provider", "", "LLM provider: ollama, openai or anthropic (default: ollama)")
	pf.StringVar(&flags.model, "llm-model", "", "LLM model to use")
	pf.StringVar(&flags.baseURL, "llm-url", "", "LLM service base URL")
	pf.DurationVar(&flags.timeout, "llm-timeout", 0, "Bound on each model call (default: 60s)")
	pf.StringVar(&flags.extractor, "extractor", "", "SQL extraction strategy: keyword or fenced")
	pf.IntVar(&flags.maxRows, "max-rows", 0, "Maximum rows returned per query (0 = unlimited)")
	pf.StringVar(&flags.examples, "examples", "", "YAML file with few-shot examples")
	pf.StringVar(&flags.metadata, "metadata", "", "Table metadata file for the prompt command")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(chatCmd, askCmd, schemaCmd, promptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig maps explicitly set flags onto config.CLIFlags and loads the
// configuration, then applies its log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	cfg, err := config.Load(configFile, config.CLIFlags{
		DBDriver:     flags.driver,
		DBDriverSet:  changed("driver"),
		DBPath:       flags.database,
		DBPathSet:    changed("database"),
		Provider:     flags.provider,
		ProviderSet:  changed("llm-provider"),
		Model:        flags.model,
		ModelSet:     changed("llm-model"),
		BaseURL:      flags.baseURL,
		BaseURLSet:   changed("llm-url"),
		Timeout:      flags.timeout,
		TimeoutSet:   changed("llm-timeout"),
		Extractor:    flags.extractor,
		ExtractorSet: changed("extractor"),
		MaxRows:      flags.maxRows,
		MaxRowsSet:   changed("max-rows"),
		Examples:     flags.examples,
		ExamplesSet:  changed("examples"),
		Metadata:     flags.metadata,
		MetadataSet:  changed("metadata"),
		LogLevel:     flags.logLevel,
		LogLevelSet:  changed("log-level"),
		NoColor:      flags.noColor,
		NoColorSet:   changed("no-color"),
	})
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session is an open database with its introspected schema
type session struct {
	db         *sql.DB
	desc       *schema.Description
	schemaText string
}

func (s *session) Close() error {
	return s.db.Close()
}

// openSession opens the configured database, keeps it open, and
// introspects its schema. Failures here are fatal.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	db, err := database.Open(ctx, cfg.DatabaseOpenConfig())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("ไม่พบไฟล์ฐานข้อมูล / database file not found: %s", cfg.Database.Path)
		}
		return nil, err
	}

	var introspector schema.Introspector
	if cfg.Database.Driver == database.DriverPgx {
		introspector = schema.NewPostgresIntrospector(db, cfg.Database.Schema)
	} else {
		introspector, err = schema.For(cfg.Database.Driver, db)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	desc, err := introspector.Introspect(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read database schema: %w", err)
	}

	return &session{db: db, desc: desc, schemaText: prompt.RenderSchema(desc)}, nil
}

// newPipeline wires the model client, executor and extractor for s
func newPipeline(cfg *config.Config, s *session) (*nl2sql.Pipeline, error) {
	gen, err := llm.NewGenerator(cfg.GeneratorConfig())
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	return nl2sql.New(nl2sql.Options{
		Generator:    gen,
		Executor:     executor.New(s.db, cfg.Executor.MaxRows),
		Extractor:    extractor,
		Builder:      prompt.NewBuilder(),
		Schema:       s.schemaText,
		Examples:     cfg.Examples,
		ModelTimeout: cfg.LLM.Timeout,
	})
}
