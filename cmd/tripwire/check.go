package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/tripwire/internal/state"
)

type checkResult struct {
	Path    string         `json:"path"`
	Valid   bool           `json:"valid"`
	Counts  map[string]int `json:"counts,omitempty"`
	Unknown int            `json:"unknown,omitempty"`
	Due     int            `json:"due,omitempty"`
	Error   string         `json:"error,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the state file",
	Long:  "Read the state file under a shared lock and report whether it parses, how many canaries of each type it records and how many are due for reissue.",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	store := openStore()

	result := checkResult{Path: store.Path()}
	st, err := store.Snapshot(cmd.Context())
	if err != nil {
		var corrupt *state.CorruptStateError
		if !errors.As(err, &corrupt) {
			return err
		}
		result.Error = corrupt.Err.Error()
	} else {
		result.Valid = true
		result.Counts = make(map[string]int)
		for _, c := range st.Credentials {
			if _, ok := c.(*state.UnknownCredential); ok {
				result.Unknown++
				continue
			}
			result.Counts[c.Type()]++
		}
		result.Due = len(st.Due(time.Now()))
	}

	if jsonOut {
		if err := printJSON(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Printf("OK    %s\n", result.Path)
		for _, typ := range []string{state.TypeAWS, state.TypeSSH, state.TypeEmail, state.TypeGitlabCookie, state.TypeGitlabUsernamePassword} {
			if n := result.Counts[typ]; n > 0 {
				fmt.Printf("      %-26s %d\n", typ, n)
			}
		}
		if result.Unknown > 0 {
			fmt.Printf("      %-26s %d (kept as-is)\n", "unknown types", result.Unknown)
		}
		if result.Due > 0 {
			fmt.Printf("\n%d canar%s due for reissue\n", result.Due, plural(result.Due, "y", "ies"))
		}
	} else {
		line := "FAIL  " + result.Path
		if isTerminal(os.Stderr) {
			line = errorStyle.Render(line)
		}
		fmt.Fprintln(os.Stderr, line)
		fmt.Fprintf(os.Stderr, "      %v\n", result.Error)
	}

	if !result.Valid {
		return fmt.Errorf("state file %s is corrupt; repair it or move it aside", result.Path)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
