package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	statusadapter "github.com/bnema/bottingctl/internal/adapters/render/status"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/spf13/cobra"
)

const defaultStaleAfter = 2 * time.Minute

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool
	var staleAfter time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last published session status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := app.snapshots.Load(cmd.Context())
			if err != nil {
				if errors.Is(err, domain.ErrNoSnapshot) {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "No session has been started yet.")
					return err
				}
				return fmt.Errorf("load session status: %w", err)
			}

			return writeSnapshotOutput(cmd, app, snapshot, staleAfter, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().DurationVar(&staleAfter, "stale-after", defaultStaleAfter, "Flag an active snapshot older than this (0 disables)")

	return cmd
}

func writeSnapshotOutput(cmd *cobra.Command, app *app, snapshot domain.SessionSnapshot, staleAfter time.Duration, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	// A stopped session is never stale: it just isn't updated any more.
	if !snapshot.Active {
		staleAfter = 0
	}

	rendered, err := app.statusRenderer(snapshot, statusadapter.RenderOptions{
		Now:        app.now(),
		StaleAfter: staleAfter,
		Names:      accountNames(cmd.Context(), app),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
