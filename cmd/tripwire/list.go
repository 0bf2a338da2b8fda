package main

import (
	"bytes"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/benaskins/tripwire/internal/state"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recorded canary credentials",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore().Snapshot(cmd.Context())
		if err != nil {
			return err
		}

		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			return printJSON(st)
		}

		if len(st.Credentials) == 0 {
			fmt.Println("No canaries deployed")
			return nil
		}

		now := time.Now()
		var buf bytes.Buffer
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tNAME\tTARGET\tEXPIRES\tPATH")
		for _, c := range st.Credentials {
			b := c.Common()
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				state.DisplayType(c), b.Name, orDash(b.Target), expiry(b.ExpiresAt, now), orDash(b.Path))
		}
		w.Flush()

		styledTable(os.Stdout, &buf, func(row int) *lipgloss.Style {
			if state.NeedsRefresh(st.Credentials[row], now) {
				return &dueStyle
			}
			return nil
		})
		return nil
	},
}

func expiry(t *time.Time, now time.Time) string {
	switch {
	case t == nil:
		return "never"
	case !t.After(now):
		return "expired"
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	listCmd.Flags().Bool("json", false, "print the state document as JSON")
	rootCmd.AddCommand(listCmd)
}
