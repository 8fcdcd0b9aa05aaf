/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Configuration Tests
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgedge-nl2sql/internal/logging"
)

// isolate clears every variable Load reads and points HOME at a temp dir
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDBDriver, EnvDBPath, EnvLLMProvider, EnvLLMModel, EnvOllamaURL,
		EnvOpenAIKey, EnvAnthropicKey, EnvNoColor, logging.EnvLogLevel,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(writeFile(t, "empty.yaml", ""), CLIFlags{})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "gemma3:12b", cfg.LLM.Model)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, DefaultModelTimeout, cfg.LLM.Timeout)
	assert.Equal(t, DefaultConnectTimeout, cfg.Database.ConnectTimeout)
	assert.Equal(t, DefaultConnectTimeout, cfg.DatabaseOpenConfig().ConnectTimeout)
	assert.Equal(t, "keyword", cfg.Extractor)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, DefaultExamples(), cfg.Examples)
	assert.False(t, cfg.UI.NoColor)
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := writeFile(t, "config.yaml", `
database:
  driver: sqlite3
  path: /data/chinook.db
  read_only: true
  connect_timeout: 3s
llm:
  provider: ollama
  model: llama3
  base_url: http://gpu-box:11434
  timeout: 15s
executor:
  max_rows: 200
extractor: fenced
log_level: debug
ui:
  history_file: /tmp/history
`)

	cfg, err := Load(path, CLIFlags{})
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "/data/chinook.db", cfg.Database.Path)
	assert.True(t, cfg.Database.ReadOnly)
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 3*time.Second, cfg.DatabaseOpenConfig().ConnectTimeout)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 200, cfg.Executor.MaxRows)
	assert.Equal(t, "fenced", cfg.Extractor)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/history", cfg.UI.HistoryFile)
}

func TestLoadPriority(t *testing.T) {
	isolate(t)
	path := writeFile(t, "config.yaml", "llm:\n  model: from-file\ndatabase:\n  path: file.db\n")

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv(EnvLLMModel, "from-env")
		t.Setenv(EnvNoColor, "1")

		cfg, err := Load(path, CLIFlags{})
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.LLM.Model)
		assert.Equal(t, "file.db", cfg.Database.Path)
		assert.True(t, cfg.UI.NoColor)
	})

	t.Run("flags beat env", func(t *testing.T) {
		t.Setenv(EnvLLMModel, "from-env")
		t.Setenv(EnvDBPath, "env.db")

		cfg, err := Load(path, CLIFlags{
			Model: "from-flag", ModelSet: true,
			DBPath: "ignored.db", DBPathSet: false,
			MaxRows: 5, MaxRowsSet: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "from-flag", cfg.LLM.Model)
		assert.Equal(t, "env.db", cfg.Database.Path)
		assert.Equal(t, 5, cfg.Executor.MaxRows)
	})

	t.Run("ollama url env is a fallback", func(t *testing.T) {
		t.Setenv(EnvOllamaURL, "http://env-host:11434")

		cfg, err := Load(path, CLIFlags{})
		require.NoError(t, err)
		assert.Equal(t, "http://env-host:11434", cfg.LLM.BaseURL)

		cfg, err = Load(path, CLIFlags{BaseURL: "http://flag-host:11434", BaseURLSet: true})
		require.NoError(t, err)
		assert.Equal(t, "http://flag-host:11434", cfg.LLM.BaseURL)
	})
}

func TestLoadDefaultPathFromHome(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.WriteFile(filepath.Join(home, ".pgedge-nl2sql.yaml"), []byte("extractor: fenced\n"), 0600))

	// run from an empty directory so ./.pgedge-nl2sql.yaml is not found
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load("", CLIFlags{})
	require.NoError(t, err)
	assert.Equal(t, "fenced", cfg.Extractor)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), CLIFlags{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadInvalidYAML(t *testing.T) {
	isolate(t)

	_, err := Load(writeFile(t, "bad.yaml", "llm: [unclosed"), CLIFlags{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "invalid database driver"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }, "invalid llm provider"},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, "OPENAI_API_KEY"},
		{"anthropic without key", func(c *Config) { c.LLM.Provider = "anthropic" }, "ANTHROPIC_API_KEY"},
		{"negative timeout", func(c *Config) { c.LLM.Timeout = -time.Second }, "invalid llm timeout"},
		{"negative connect timeout", func(c *Config) { c.Database.ConnectTimeout = -time.Second }, "connect_timeout"},
		{"negative max rows", func(c *Config) { c.Executor.MaxRows = -1 }, "max_rows"},
		{"bad extractor", func(c *Config) { c.Extractor = "regex" }, "unknown extractor"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateProviderDefaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAnthropicKey, "sk-ant-env")

	cfg := defaultConfig()
	cfg.LLM.Provider = "Anthropic"
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant-env", cfg.LLM.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)

	gen := cfg.GeneratorConfig()
	assert.Equal(t, "anthropic", gen.Provider)
	assert.Equal(t, "sk-ant-env", gen.APIKey)
}

func TestValidateAPIKeyFile(t *testing.T) {
	isolate(t)
	t.Setenv(EnvOpenAIKey, "sk-env")

	cfg := defaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKeyFile = writeFile(t, "key", "  sk-from-file\n")
	require.NoError(t, cfg.Validate())

	// the key file wins over the environment
	assert.Equal(t, "sk-from-file", cfg.LLM.APIKey)
}

func TestLoadExamples(t *testing.T) {
	path := writeFile(t, "examples.yaml", `
- question: How many customers are there?
  sql: SELECT COUNT(*) FROM customers;
- question: ลูกค้ามีกี่คน
  sql: SELECT COUNT(*) FROM customers;
`)

	examples, err := LoadExamples(path)
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "How many customers are there?", examples[0].Question)
	assert.Equal(t, "ลูกค้ามีกี่คน", examples[1].Question)
}

func TestLoadExamplesJSON(t *testing.T) {
	path := writeFile(t, "examples.json", `[{"question": "List all artists.", "sql": "SELECT Name FROM artists;"}]`)

	examples, err := LoadExamples(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT Name FROM artists;", examples[0].SQL)
}

func TestLoadExamplesErrors(t *testing.T) {
	_, err := LoadExamples(writeFile(t, "empty.yaml", "[]"))
	assert.ErrorContains(t, err, "no examples")

	_, err = LoadExamples(writeFile(t, "partial.yaml", "- question: only a question\n"))
	assert.ErrorContains(t, err, "needs both question and sql")

	_, err = LoadExamples(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateLoadsExamplesFile(t *testing.T) {
	isolate(t)

	cfg := defaultConfig()
	cfg.ExamplesFile = writeFile(t, "examples.yaml", "- question: q\n  sql: SELECT 1;\n")
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Examples, 1)
}

func TestDefaultExamplesAreBilingual(t *testing.T) {
	examples := DefaultExamples()
	require.Len(t, examples, 8)
	for _, ex := range examples {
		assert.NotEmpty(t, ex.Question)
		assert.NotEmpty(t, ex.SQL)
	}
	assert.Equal(t, "แสดงรายชื่อศิลปินทั้งหมด", examples[1].Question)
}

func TestLoadMetadata(t *testing.T) {
	path := writeFile(t, "table_metadata.yaml", `
orders:
  columns:
    order_id: INT
    customer_id: INT
    amount: DECIMAL(10,2)
    created_at: TIMESTAMP
customers:
  columns:
    customer_id: INT
    name: VARCHAR
`)

	md, err := LoadMetadata(path)
	require.NoError(t, err)
	require.Len(t, md.Tables, 2)

	orders, ok := md.Table("orders")
	require.True(t, ok)
	// column order follows the file
	names := []string{}
	for _, c := range orders.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"order_id", "customer_id", "amount", "created_at"}, names)
	assert.Equal(t, "DECIMAL(10,2)", orders.Columns[2].Type)

	_, ok = md.Table("invoices")
	assert.False(t, ok)
}

func TestLoadMetadataJSON(t *testing.T) {
	path := writeFile(t, "table_metadata.json", `{"orders": {"columns": {"order_id": "INT", "amount": "DECIMAL"}}}`)

	md, err := LoadMetadata(path)
	require.NoError(t, err)
	orders, ok := md.Table("orders")
	require.True(t, ok)
	assert.Equal(t, "order_id", orders.Columns[0].Name)
	assert.Equal(t, "DECIMAL", orders.Columns[1].Type)
}

func TestLoadMetadataErrors(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "table_metadata.json"))
	assert.True(t, errors.Is(err, ErrMetadataNotFound), "error = %v", err)

	_, err = LoadMetadata(writeFile(t, "list.yaml", "- orders\n"))
	assert.ErrorContains(t, err, "expected a mapping")

	_, err = LoadMetadata(writeFile(t, "nocols.yaml", "orders:\n  fields: {}\n"))
	assert.ErrorContains(t, err, "missing columns")

	_, err = LoadMetadata(writeFile(t, "empty.yaml", ""))
	assert.ErrorContains(t, err, "empty")
}
