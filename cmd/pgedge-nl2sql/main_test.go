/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Command Line Tests
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pgedge-nl2sql/internal/config"
	"pgedge-nl2sql/internal/logging"
)

// isolate keeps the host environment and config files out of a command run
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		config.EnvDBDriver, config.EnvDBPath, config.EnvLLMProvider, config.EnvLLMModel,
		config.EnvOllamaURL, config.EnvOpenAIKey, config.EnvAnthropicKey, logging.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
	configFile = ""
	resetFlags(t, rootCmd)
}

// resetFlags restores every flag of cmd and its subcommands to its default
// so values set by an earlier run do not leak into the next one
func resetFlags(t *testing.T, cmd *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Fatalf("resetting --%s: %v", f.Name, err)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SilenceErrors = false
	for _, sub := range cmd.Commands() {
		resetFlags(t, sub)
	}
}

// fakeOllama answers every generate call with sql
func fakeOllama(t *testing.T, sqlText string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": sqlText, "done": true})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chinookLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chinook.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE artists (ArtistId INTEGER PRIMARY KEY, Name NVARCHAR(120));
		INSERT INTO artists (ArtistId, Name) VALUES (1, 'AC/DC'), (2, 'Accept');`)
	require.NoError(t, err)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAskCommand_TSV(t *testing.T) {
	isolate(t)
	dbPath := chinookLite(t)
	srv := fakeOllama(t, "SELECT Name FROM artists ORDER BY ArtistId")

	out, err := execute(t, "ask", "--database", dbPath, "--llm-url", srv.URL, "--format", "tsv", "List", "all", "artists")
	require.NoError(t, err)
	assert.Contains(t, out, "Name\n")
	assert.Contains(t, out, "AC/DC\n")
	assert.Contains(t, out, "Accept")
}

func TestAskCommand_ExtractionMissFails(t *testing.T) {
	isolate(t)
	dbPath := chinookLite(t)
	srv := fakeOllama(t, "No idea, sorry.")

	_, err := execute(t, "ask", "--database", dbPath, "--llm-url", srv.URL, "--format", "text", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not extract SQL")
}

func TestSchemaCommand(t *testing.T) {
	isolate(t)
	dbPath := chinookLite(t)

	out, err := execute(t, "schema", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "- Table: artists")
	assert.Contains(t, out, "    • ArtistId (INTEGER)")
}

func TestSchemaCommand_MissingDatabase(t *testing.T) {
	isolate(t)

	_, err := execute(t, "schema", "--database", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database file not found")
}

func TestChatCommand_PromptedMissingPath(t *testing.T) {
	isolate(t)
	missing := filepath.Join(t.TempDir(), "missing.db")

	out, err := executeWithInput(t, missing+"\n", "chat", "--no-color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database file not found")
	assert.Contains(t, out, "Enter the database file path")
	assert.Contains(t, out, "ไม่พบไฟล์ฐานข้อมูล")
	assert.Contains(t, out, missing)
	assert.True(t, chatCmd.SilenceErrors, "the UI already printed the error")
}

func TestChatCommand_NoPathEntered(t *testing.T) {
	isolate(t)

	_, err := executeWithInput(t, "", "chat", "--no-color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database selected")
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	isolate(t)
	metadata := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(metadata, []byte("orders:\n  columns:\n    order_id: INT\n"), 0o600))

	_, err := execute(t, "prompt", "--metadata", metadata, "--prompt-only", "--llm-url", "http://127.0.0.1:1",
		"--question", "q", "--table", "orders", "--dialect", "MySQL")
	require.NoError(t, err)
	require.True(t, promptOnly)

	isolate(t)
	assert.False(t, promptOnly)
	assert.Empty(t, flags.baseURL)
	assert.False(t, rootCmd.PersistentFlags().Lookup("llm-url").Changed)
	assert.False(t, promptCmd.Flags().Lookup("prompt-only").Changed)
}

func TestPromptCommand(t *testing.T) {
	isolate(t)
	metadata := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(metadata, []byte("orders:\n  columns:\n    order_id: INT\n    amount: DECIMAL\n"), 0o600))
	srv := fakeOllama(t, "SELECT SUM(amount) FROM orders;")

	out, err := execute(t, "prompt", "--metadata", metadata, "--llm-url", srv.URL,
		"--question", "total sales", "--table", "orders", "--dialect", "PostgreSQL")
	require.NoError(t, err)
	assert.Contains(t, out, "Write a SQL statement in PostgreSQL to answer the question 'total sales'")
	assert.Contains(t, out, "using the table orders with columns order_id (INT), amount (DECIMAL).")
	assert.Contains(t, out, "Generated SQL:\nSELECT SUM(amount) FROM orders;")
}

func TestPromptCommand_UnknownTable(t *testing.T) {
	isolate(t)
	metadata := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(metadata, []byte("orders:\n  columns:\n    order_id: INT\n"), 0o600))

	_, err := execute(t, "prompt", "--metadata", metadata, "--prompt-only",
		"--question", "q", "--table", "customers", "--dialect", "MySQL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "customers" not found`)
}

func TestPromptCommand_MissingMetadataFile(t *testing.T) {
	isolate(t)

	_, err := execute(t, "prompt", "--metadata", filepath.Join(t.TempDir(), "nope.yaml"), "--prompt-only",
		"--question", "q", "--table", "orders", "--dialect", "MySQL")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMetadataNotFound)
}
