package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
)

// renderer writes command output either as a bordered table or as JSON.
type renderer struct {
	w      io.Writer
	format string

	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
}

func newRenderer(w io.Writer, format string, noColor bool) *renderer {
	lg := lipgloss.NewRenderer(w)
	if noColor {
		lg.SetColorProfile(termenv.Ascii)
	}
	return &renderer{
		w:      w,
		format: format,
		header: lg.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1),
		cell:   lg.NewStyle().Padding(0, 1),
		border: lg.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// render writes view as JSON, or rows under headers as a table.
func (r *renderer) render(view any, headers []string, rows [][]string) error {
	if r.format == formatJSON {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(r.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			return r.cell
		})
	_, err := fmt.Fprintln(r.w, t.Render())
	return err
}

// oneLine folds multi-line display strings for table cells.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
