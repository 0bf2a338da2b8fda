package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// styledTable writes an aligned table to w. The first line is the header.
// style picks a per-row style (by data row index) when w is a terminal.
func styledTable(w *os.File, table *bytes.Buffer, style func(row int) *lipgloss.Style) {
	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	tty := isTerminal(w)
	for i, line := range lines {
		if tty {
			switch {
			case i == 0:
				line = headerStyle.Render(line)
			case style != nil:
				if s := style(i - 1); s != nil {
					line = s.Render(line)
				}
			}
		}
		fmt.Fprintln(w, line)
	}
}
