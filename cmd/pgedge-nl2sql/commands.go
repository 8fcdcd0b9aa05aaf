/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Subcommands
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pgedge-nl2sql/internal/chat"
	"pgedge-nl2sql/internal/config"
	"pgedge-nl2sql/internal/database"
	"pgedge-nl2sql/internal/explain"
	"pgedge-nl2sql/internal/llm"
	"pgedge-nl2sql/internal/prompt"
	"pgedge-nl2sql/internal/tsv"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive question loop (default)",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var askFormat string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema summary sent to the model",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

var (
	promptQuestion string
	promptTable    string
	promptDialect  string
	promptOnly     bool
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Generate SQL for one table described in a metadata file",
	Long: `prompt builds a single-table question prompt from a static metadata file
(table -> columns -> type), prints it, sends it to the model and prints the
generated SQL. No database connection is needed.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or tsv")

	promptCmd.Flags().StringVarP(&promptQuestion, "question", "q", "", "Question to answer (required)")
	promptCmd.Flags().StringVarP(&promptTable, "table", "t", "", "Table from the metadata file (required)")
	promptCmd.Flags().StringVar(&promptDialect, "dialect", "", "SQL dialect, e.g. PostgreSQL or MySQL (required)")
	promptCmd.Flags().BoolVar(&promptOnly, "prompt-only", false, "Print the prompt without calling the model")
	_ = promptCmd.MarkFlagRequired("question")
	_ = promptCmd.MarkFlagRequired("table")
	_ = promptCmd.MarkFlagRequired("dialect")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ui := chat.NewUI(cmd.OutOrStdout(), cfg.UI.NoColor, false)
	if cfg.Database.Path == "" && database.IsFileDriver(cfg.Database.Driver) {
		path, err := ui.PromptForDatabasePath(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("no database selected: %w", err)
		}
		cfg.Database.Path = path
	}

	s, err := openSession(ctx, cfg)
	if err != nil {
		// already shown in the chat UI
		cmd.SilenceErrors = true
		ui.PrintError(err.Error())
		return err
	}
	defer s.Close()

	pipeline, err := newPipeline(cfg, s)
	if err != nil {
		return err
	}

	client, err := chat.NewClient(chat.Options{
		Pipeline:       pipeline,
		Explainer:      explain.New(),
		SchemaText:     s.schemaText,
		Examples:       cfg.Examples,
		HistoryFile:    cfg.UI.HistoryFile,
		NoColor:        cfg.UI.NoColor,
		RenderMarkdown: !cfg.UI.NoColor,
		ShowThinking:   true,
		Out:            cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	return client.Run(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askFormat != "text" && askFormat != "tsv" {
		return fmt.Errorf("invalid format %q (must be text or tsv)", askFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("a database is required (use --database or %s)", config.EnvDBPath)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	pipeline, err := newPipeline(cfg, s)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	result := pipeline.Ask(ctx, question)
	out := cmd.OutOrStdout()

	if !result.Succeeded {
		if result.SQL != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "SQL: %s\n", result.SQL)
		}
		return fmt.Errorf("%s error: %s", result.Kind, result.Error)
	}

	if askFormat == "tsv" {
		return tsv.Write(out, result.Columns, result.Rows)
	}

	fmt.Fprintf(out, "SQL: %s\n\n", result.SQL)
	fmt.Fprint(out, explain.New().Explain(question, result.Columns, result.Rows, result.SQL))
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("a database is required (use --database or %s)", config.EnvDBPath)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprint(cmd.OutOrStdout(), s.schemaText)
	return nil
}

func runPrompt(cmd *cobra.Command, args []string) error {
	for name, value := range map[string]string{
		"question": promptQuestion,
		"table":    promptTable,
		"dialect":  promptDialect,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("--%s must not be empty", name)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.MetadataFile == "" {
		return fmt.Errorf("a metadata file is required (use --metadata or metadata_file)")
	}

	md, err := config.LoadMetadata(cfg.MetadataFile)
	if err != nil {
		return err
	}
	table, ok := md.Table(promptTable)
	if !ok {
		return fmt.Errorf("table %q not found in %s", promptTable, cfg.MetadataFile)
	}

	text, err := prompt.NewBuilder().TableQuestion(promptQuestion, table.Name, table.Columns, promptDialect)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Prompt:")
	fmt.Fprintln(out, text)
	if promptOnly {
		return nil
	}

	gen, err := llm.NewGenerator(cfg.GeneratorConfig())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.LLM.Timeout)
	defer cancelTimeout()

	generated, err := gen.Generate(ctx, text)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Generated SQL:")
	fmt.Fprintln(out, strings.TrimSpace(generated))
	return nil
}
