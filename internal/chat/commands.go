/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Slash Commands
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"fmt"
	"strings"
)

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Command string
	Args    []string
}

// ParseSlashCommand parses a slash command from user input.
// It returns nil when the input is not a command.
func ParseSlashCommand(input string) *SlashCommand {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := parseQuotedArgs(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	return &SlashCommand{
		Command: strings.ToLower(parts[0]),
		Args:    parts[1:],
	}
}

// parseQuotedArgs splits a string into arguments, respecting quoted strings
func parseQuotedArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case (r == '"' || r == '\'') && !inQuote:
			inQuote = true
			quoteChar = r
		case r == quoteChar && inQuote:
			inQuote = false
			quoteChar = 0
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && inQuote && i+1 < len(runes):
			next := runes[i+1]
			if next == quoteChar || next == '\\' {
				current.WriteRune(next)
				i++
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// HandleSlashCommand runs a slash command. It returns false when the
// command is unknown so the caller can report it.
func (c *Client) HandleSlashCommand(cmd *SlashCommand) bool {
	switch cmd.Command {
	case "help":
		c.ui.PrintHelp()
	case "schema":
		c.ui.PrintSchema(c.schemaText)
	case "examples":
		c.printExamples()
	case "clear":
		c.ui.ClearScreen()
	case "set":
		c.handleSet(cmd.Args)
	case "show":
		c.handleShow(cmd.Args)
	default:
		return false
	}
	return true
}

func (c *Client) handleSet(args []string) {
	if len(args) < 2 {
		c.ui.PrintError("Usage: /set <markdown|attempts> <on|off>")
		return
	}

	value, ok := parseToggle(args[1])
	if !ok {
		c.ui.PrintError(fmt.Sprintf("Invalid value %q (expected on or off)", args[1]))
		return
	}

	switch strings.ToLower(args[0]) {
	case "markdown":
		c.ui.RenderMarkdown = value
		c.ui.PrintSystemMessage(fmt.Sprintf("Markdown rendering %s", onOff(value)))
	case "attempts":
		c.showAttempts = value
		c.ui.PrintSystemMessage(fmt.Sprintf("Attempt display %s", onOff(value)))
	default:
		c.ui.PrintError(fmt.Sprintf("Unknown setting: %s", args[0]))
	}
}

func (c *Client) handleShow(args []string) {
	if len(args) == 0 || strings.ToLower(args[0]) != "settings" {
		c.ui.PrintError("Usage: /show settings")
		return
	}

	c.ui.PrintSystemMessage("Current settings:")
	c.ui.println(fmt.Sprintf("  markdown: %s", onOff(c.ui.RenderMarkdown)))
	c.ui.println(fmt.Sprintf("  attempts: %s", onOff(c.showAttempts)))
	c.ui.println(fmt.Sprintf("  examples: %d", len(c.examples)))
	if c.historyFile != "" {
		c.ui.println(fmt.Sprintf("  history:  %s", c.historyFile))
	}
}

func (c *Client) printExamples() {
	if len(c.examples) == 0 {
		c.ui.PrintSystemMessage("No examples configured")
		return
	}
	for i, ex := range c.examples {
		c.ui.println(fmt.Sprintf("%d. %s", i+1, ex.Question))
		c.ui.println("   " + ex.SQL)
	}
}

func parseToggle(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, true
	case "off", "false", "no", "0":
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
