// Package cli renders command results for a terminal.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/feedback"
)

// markdownWidth is the wrap width for rendered answers
const markdownWidth = 80

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	ruleStyle   = lipgloss.NewStyle().Faint(true)

	levelStyles = map[feedback.Level]lipgloss.Style{
		feedback.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		feedback.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		feedback.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		feedback.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// CommandError is returned by commands that failed with a user-visible
// message. Err is the underlying cause.
type CommandError struct {
	Message feedback.Message
	Err     error
}

func (e *CommandError) Error() string { return e.Message.Text }

func (e *CommandError) Unwrap() error { return e.Err }

// Fail converts err from op into a CommandError.
func Fail(op feedback.Operation, err error) error {
	return &CommandError{Message: feedback.FromError(op, err), Err: err}
}

// PrintMessage writes m styled by its level.
func PrintMessage(w io.Writer, m feedback.Message) {
	style, ok := levelStyles[m.Level]
	if !ok {
		style = lipgloss.NewStyle()
	}
	fmt.Fprintln(w, style.Render(m.Text))
}

// PrintError writes err as a user-visible message. Errors that did not come
// from a command are printed with their scrubbed text.
func PrintError(w io.Writer, err error) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		PrintMessage(w, cmdErr.Message)
		return
	}
	PrintMessage(w, feedback.Message{Level: feedback.LevelError, Text: "Error: " + errors.ScrubMessage(err.Error())})
}

// Table renders rows under headers with padded, aligned columns.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var sb strings.Builder
	total := 0
	for i, h := range headers {
		// padding adds two columns per cell
		sb.WriteString(headerStyle.Width(widths[i] + 2).Render(h))
		total += widths[i] + 2
	}
	sb.WriteString("\n")
	sb.WriteString(ruleStyle.Render(strings.Repeat("─", total)))
	sb.WriteString("\n")

	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(cellStyle.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Markdown renders text for the terminal. The raw text is returned when it
// cannot be rendered.
func Markdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(markdownWidth),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}
