package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/bottingctl/internal/application"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
		newAccountRemoveCmd(app),
		newAccountRenameCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.service.ListAccounts(cmd.Context())
			if err != nil {
				return err
			}

			for _, account := range accounts {
				credential := "missing"
				if account.Auth.Configured() {
					credential = "stored"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", account.ID, account.DisplayName(), credential)
			}

			return nil
		},
	}
}

func newAccountAddCmd(app *app) *cobra.Command {
	var accountID string
	var name string
	var credential string
	var credentialStdin bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account or replace its credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := domain.ParseAccountID(accountID)
			if err != nil {
				return err
			}

			if credentialStdin {
				if credential != "" {
					return errors.New("use either --credential or --credential-stdin")
				}
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read credential from stdin: %w", err)
				}
				credential = line
			}
			credential = strings.TrimSpace(credential)
			if credential == "" {
				return errors.New("a credential is required: pass --credential or --credential-stdin")
			}

			if err := app.service.AddAccount(cmd.Context(), application.AddAccountCommand{
				ID:         id,
				Name:       name,
				Credential: domain.Credential(credential),
			}); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s saved\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "Account (user) ID")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&credential, "credential", "", "Session credential (visible in shell history; prefer --credential-stdin)")
	cmd.Flags().BoolVar(&credentialStdin, "credential-stdin", false, "Read the credential from the first line of stdin")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountRemoveCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an account and its stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := domain.ParseAccountID(accountID)
			if err != nil {
				return err
			}
			return app.service.RemoveAccount(cmd.Context(), id)
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "Account ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAccountRenameCmd(app *app) *cobra.Command {
	var accountID string
	var name string

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Change an account's display name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := domain.ParseAccountID(accountID)
			if err != nil {
				return err
			}
			return app.service.SetAccountName(cmd.Context(), id, name)
		},
	}

	cmd.Flags().StringVar(&accountID, "id", "", "Account ID")
	cmd.Flags().StringVar(&name, "name", "", "New display name (empty clears it)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
