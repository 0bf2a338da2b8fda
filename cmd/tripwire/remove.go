package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/tripwire/internal/state"
)

var removeCmd = &cobra.Command{
	Use:   "remove <type> <name>",
	Short: "Remove a canary from this machine",
	Long: `Undo the local artifact of a recorded canary and delete its record.

AWS canaries are removed from ~/.aws/config and ~/.aws/credentials, SSH
canaries from ~/.ssh/config together with their key files. Other types are
only deleted from the record. The issuing service is not contacted.

Types: aws, ssh, email, gitlab-cookie, gitlab-username-password, or any
type found in the state file. Email canaries are recorded as
"` + state.EmailCanaryName + `".`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, name := args[0], args[1]

		rec, closeAudit := openAudit()
		defer closeAudit()

		if err := newDeployer(rec).Remove(cmd.Context(), typ, name); err != nil {
			return err
		}
		fmt.Printf("Removed %s canary %q\n", typ, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
