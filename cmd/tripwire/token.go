package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/benaskins/tripwire/internal/keychain"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API token used to request canaries",
	Long:  "Manage the API token. On macOS it is kept in the login Keychain, elsewhere in an owner-only credentials file.",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the API token",
	Long:  "Store the API token. If it is omitted, it is read from the terminal without echo, or from stdin when piped.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value string
		if len(args) == 1 {
			value = args[0]
		} else if isTerminal(os.Stdin) {
			fmt.Print("Enter API token: ")
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			fmt.Println()
			value = string(b)
		} else {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			value = string(b)
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return errors.New("token is empty")
		}

		rec, closeAudit := openAudit()
		defer closeAudit()
		if err := tokenStore(rec).Set(keychain.TokenKey, value); err != nil {
			return err
		}
		fmt.Println("API token stored")
		return nil
	},
}

var tokenGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closeAudit := openAudit()
		defer closeAudit()
		val, err := tokenStore(rec).Get(keychain.TokenKey)
		if errors.Is(err, keychain.ErrNotFound) {
			return errors.New("no API token stored; run 'tripwire token set'")
		}
		if err != nil {
			return err
		}
		fmt.Println(val)
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the stored API token",
	Aliases: []string{"rm"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, closeAudit := openAudit()
		defer closeAudit()
		if err := tokenStore(rec).Delete(keychain.TokenKey); err != nil {
			return err
		}
		fmt.Println("API token deleted")
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenGetCmd)
	tokenCmd.AddCommand(tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}
