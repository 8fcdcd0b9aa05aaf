/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Terminal UI
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
	ColorBold   = "\033[1m"
)

// maxRenderWidth caps markdown rendering so result tables stay readable
const maxRenderWidth = 120

// UI handles terminal output
type UI struct {
	out            io.Writer
	noColor        bool
	RenderMarkdown bool
}

// NewUI creates a UI writing to out; nil means stdout
func NewUI(out io.Writer, noColor bool, renderMarkdown bool) *UI {
	if out == nil {
		out = os.Stdout
	}
	return &UI{out: out, noColor: noColor, RenderMarkdown: renderMarkdown}
}

func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

func (ui *UI) println(a ...any) {
	fmt.Fprintln(ui.out, a...)
}

// PrintWelcome prints the bilingual banner
func (ui *UI) PrintWelcome() {
	banner := `
          _
   ______/ \-.   _           pgEdge NL2SQL Helper
.-/     (    o\_//           ยินดีต้อนรับสู่ NL2SQL Helper!
 |  ___  \_/\---'
 |_||  |_||
`
	ui.println(ui.colorize(ColorCyan, banner))
	ui.println("เครื่องมือนี้ช่วยคุณสร้าง SQL จากคำถามภาษาธรรมชาติ")
	ui.println("Ask questions in Thai or English; no SQL or schema knowledge needed.")
	ui.println(ui.colorize(ColorGray, "Type 'ออก', 'exit' or 'quit' to leave, /help for commands."))
}

// GetPrompt returns the prompt string for readline
func (ui *UI) GetPrompt() string {
	return ui.colorize(ColorGreen+ColorBold, "คำถาม/Question: ")
}

// PrintSchema prints the schema summary shown after connecting
func (ui *UI) PrintSchema(schemaText string) {
	ui.println()
	ui.println(ui.colorize(ColorBold, "นี่คือโครงสร้างของฐานข้อมูลที่เลือก / Database schema:"))
	ui.println(strings.TrimRight(schemaText, "\n"))
}

// PrintSQL prints the generated statement
func (ui *UI) PrintSQL(sql string) {
	ui.println()
	ui.println(ui.colorize(ColorBlue, "SQL ที่สร้างให้คุณ / Generated SQL:"))
	ui.println(ui.colorize(ColorCyan, sql))
}

// PrintAnswer prints an explained result, rendered as markdown when enabled
func (ui *UI) PrintAnswer(text string) {
	ui.println()
	if ui.RenderMarkdown {
		if rendered, err := ui.renderMarkdown(text); err == nil {
			fmt.Fprint(ui.out, rendered)
			return
		}
	}
	fmt.Fprint(ui.out, text)
	if !strings.HasSuffix(text, "\n") {
		ui.println()
	}
}

func (ui *UI) renderMarkdown(text string) (string, error) {
	style := "dark"
	if ui.noColor {
		style = "notty"
	}

	width := ui.getTerminalWidth()
	if width > maxRenderWidth {
		width = maxRenderWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	// keep single line breaks between rows of the explanation
	return r.Render(strings.ReplaceAll(text, "\n", "  \n"))
}

// PrintSystemMessage prints a system message
func (ui *UI) PrintSystemMessage(text string) {
	ui.println(ui.colorize(ColorYellow, "System: ") + text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	ui.println()
	ui.println(ui.colorize(ColorRed, "ข้อผิดพลาด/Error: ") + text)
}

// PrintSeparator prints a separator line
func (ui *UI) PrintSeparator() {
	ui.println(ui.colorize(ColorGray, strings.Repeat("─", 80)))
}

// PrintHelp prints the help message
func (ui *UI) PrintHelp() {
	help := `
Type a question in Thai or English, for example:
  หาศิลปินที่มีเพลงยาวที่สุด
  Find the artist with the longest track.

Commands:
  /help                        Show this help message
  /schema                      Show the database schema
  /examples                    Show the few-shot examples sent to the model
  /clear                       Clear the screen
  /set markdown <on|off>       Enable or disable markdown rendering
  /set attempts <on|off>       Show every model attempt after an answer
  /show settings               Show current settings
  ออก, exit, quit              Exit

History navigation:
  Up/Down   - Navigate through question history
  Ctrl+R    - Reverse search history
`
	ui.println(ui.colorize(ColorCyan, help))
}

// ClearScreen clears the terminal screen
func (ui *UI) ClearScreen() {
	fmt.Fprint(ui.out, "\033[H\033[2J")
}

// getTerminalWidth returns the usable width of stdout, or 80
func (ui *UI) getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 2 {
		return width - 2
	}
	return 80
}

// ShowThinking displays a spinner until done is closed or ctx ends
func (ui *UI) ShowThinking(ctx context.Context, done <-chan struct{}) {
	const label = "กำลังสร้าง SQL / Generating SQL..."
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	blank := "\r" + strings.Repeat(" ", len([]rune(label))+4) + "\r"

	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		fmt.Fprint(ui.out, "\r"+ui.colorize(ColorCyan, frames[i%len(frames)])+" "+ui.colorize(ColorGray, label))
		select {
		case <-done:
			fmt.Fprint(ui.out, blank)
			return
		case <-ctx.Done():
			fmt.Fprint(ui.out, blank)
			return
		case <-ticker.C:
		}
	}
}

// PromptForDatabasePath asks for a database file path on in
func (ui *UI) PromptForDatabasePath(in io.Reader) (string, error) {
	ui.println()
	ui.println("กรุณาระบุไฟล์ฐานข้อมูล (เช่น chinook.db) / Enter the database file path:")
	fmt.Fprint(ui.out, ui.colorize(ColorYellow, "พิมพ์ชื่อไฟล์ฐานข้อมูล: "))

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read database path: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}
