package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/bnema/bottingctl/internal/adapters/process"
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/bnema/bottingctl/internal/launch"
	"github.com/spf13/cobra"
)

// dryRunToken stands in for the per-launch correlation token.
const dryRunToken = "dry-run"

func newResolveCmd(app *app) *cobra.Command {
	var placeID int64
	var job string
	var private bool
	var accessCode string
	var accountID string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show where a session would send its clients, without launching",
		RunE: func(cmd *cobra.Command, _ []string) error {
			normalized := launch.ResolveJob(job, private, accessCode)

			// Without an account there is no credential for the share link
			// service, so share links are reported instead of resolved.
			resolver := launch.NewResolver(nil)
			var credential domain.Credential
			if accountID != "" {
				id, err := domain.ParseAccountID(accountID)
				if err != nil {
					return err
				}
				credential, err = app.service.Credential(cmd.Context(), id)
				if err != nil {
					return err
				}
				resolver = app.resolver
			}

			target, err := resolver.ResolvePrivateJoin(cmd.Context(), credential, placeID, normalized)
			if err != nil {
				if errors.Is(err, launch.ErrShareLinkResolverMissing) {
					return fmt.Errorf("%q is a share link: pass --account to resolve it", normalized.Code)
				}
				return err
			}

			placeURL, err := process.PlaceLauncherRequest(app.config.Client.PlaceLauncherURL, target, dryRunToken)
			if err != nil {
				return err
			}

			writeTarget(cmd.OutOrStdout(), target, placeURL)
			return nil
		},
	}

	cmd.Flags().Int64Var(&placeID, "place", 0, "Place ID")
	cmd.Flags().StringVar(&job, "job", "", "Job ID, private server link or share link")
	cmd.Flags().BoolVar(&private, "private", false, "Treat --job as a private server")
	cmd.Flags().StringVar(&accessCode, "access-code", "", "Private server access or link code")
	cmd.Flags().StringVar(&accountID, "account", "", "Account whose credential resolves share links")
	_ = cmd.MarkFlagRequired("place")

	return cmd
}

func writeTarget(w io.Writer, target domain.LaunchTarget, placeURL string) {
	kind := "public"
	switch {
	case target.AccessCode != "":
		kind = "private (access code)"
	case target.LinkCode != "":
		kind = "private (link code)"
	case target.JobID != "":
		kind = "public server"
	}

	_, _ = fmt.Fprintf(w, "place: %d\n", target.PlaceID)
	_, _ = fmt.Fprintf(w, "join: %s\n", kind)
	if target.JobID != "" {
		_, _ = fmt.Fprintf(w, "job: %s\n", target.JobID)
	}
	if target.AccessCode != "" {
		_, _ = fmt.Fprintf(w, "access code: %s\n", target.AccessCode)
	}
	if target.LinkCode != "" {
		_, _ = fmt.Fprintf(w, "link code: %s\n", target.LinkCode)
	}
	_, _ = fmt.Fprintf(w, "place launcher: %s\n", placeURL)
}
