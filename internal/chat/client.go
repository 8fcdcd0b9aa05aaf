/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Interactive Chat Loop
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"pgedge-nl2sql/internal/logging"
	"pgedge-nl2sql/internal/nl2sql"
	"pgedge-nl2sql/internal/prompt"
)

// ExitKeywords end the chat loop
var ExitKeywords = []string{"ออก", "exit", "quit"}

// Asker answers one question
type Asker interface {
	Ask(ctx context.Context, question string) nl2sql.Result
}

// Explainer turns a successful result into readable text
type Explainer interface {
	Explain(question string, columns []string, rows [][]any, sql string) string
}

// Options configures a chat Client
type Options struct {
	Pipeline       Asker
	Explainer      Explainer
	SchemaText     string
	Examples       []prompt.Example
	HistoryFile    string
	NoColor        bool
	RenderMarkdown bool
	ShowThinking   bool
	Out            io.Writer
}

// Client is the interactive question loop
type Client struct {
	ui           *UI
	pipeline     Asker
	explainer    Explainer
	schemaText   string
	examples     []prompt.Example
	historyFile  string
	showThinking bool
	showAttempts bool
}

// NewClient creates a chat client
func NewClient(opts Options) (*Client, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("chat: pipeline is required")
	}
	if opts.Explainer == nil {
		return nil, fmt.Errorf("chat: explainer is required")
	}

	return &Client{
		ui:           NewUI(opts.Out, opts.NoColor, opts.RenderMarkdown),
		pipeline:     opts.Pipeline,
		explainer:    opts.Explainer,
		schemaText:   opts.SchemaText,
		examples:     opts.Examples,
		historyFile:  opts.HistoryFile,
		showThinking: opts.ShowThinking,
	}, nil
}

// UI returns the client's terminal UI
func (c *Client) UI() *UI {
	return c.ui
}

// Run prints the banner and schema, then reads questions until an exit
// keyword, EOF, Ctrl+C or ctx cancellation.
func (c *Client) Run(ctx context.Context) error {
	c.ui.PrintWelcome()
	c.ui.PrintSchema(c.schemaText)
	c.ui.PrintSeparator()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.ui.GetPrompt(),
		HistoryFile:       c.historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				c.ui.println()
				c.ui.PrintSystemMessage("Goodbye!")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		if c.HandleLine(ctx, line) {
			return nil
		}
	}
}

// HandleLine processes one line of input and reports whether the loop
// should stop. Errors for a question are printed, never returned.
func (c *Client) HandleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if isExit(line) {
		c.ui.PrintSystemMessage("Goodbye!")
		return true
	}

	if cmd := ParseSlashCommand(line); cmd != nil {
		if !c.HandleSlashCommand(cmd) {
			c.ui.PrintError(fmt.Sprintf("Unknown command: /%s (type /help for commands)", cmd.Command))
		}
		return false
	}

	c.answer(ctx, line)
	return false
}

func (c *Client) answer(ctx context.Context, question string) {
	var result nl2sql.Result
	if c.showThinking {
		done := make(chan struct{})
		stopped := make(chan struct{})
		go func() {
			c.ui.ShowThinking(ctx, done)
			close(stopped)
		}()
		result = c.pipeline.Ask(ctx, question)
		close(done)
		<-stopped
	} else {
		result = c.pipeline.Ask(ctx, question)
	}

	logging.Debug("question answered",
		"succeeded", result.Succeeded,
		"state", result.State.String(),
		"model_calls", result.ModelCalls,
		"executions", result.Executions,
	)

	if c.showAttempts {
		c.printAttempts(result.Attempts)
	}

	if !result.Succeeded {
		if result.SQL != "" {
			c.ui.PrintSQL(result.SQL)
		}
		c.ui.PrintError(result.Error)
		c.ui.PrintSeparator()
		return
	}

	c.ui.PrintSQL(result.SQL)
	c.ui.PrintAnswer(c.explainer.Explain(question, result.Columns, result.Rows, result.SQL))
	c.ui.PrintSeparator()
}

func (c *Client) printAttempts(attempts []nl2sql.Attempt) {
	for i, a := range attempts {
		status := "no SQL found"
		if a.Extracted {
			status = a.SQL
		}
		c.ui.PrintSystemMessage(fmt.Sprintf("attempt %d: %s", i+1, status))
	}
}

func isExit(line string) bool {
	for _, kw := range ExitKeywords {
		if strings.EqualFold(line, kw) {
			return true
		}
	}
	return false
}
