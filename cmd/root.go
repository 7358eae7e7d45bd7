package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "bottingctl",
		Short:         "bottingctl: keep a fleet of game clients launched and relaunched",
		Long:          "bottingctl runs a multi-account session: it launches one game client per account, relaunches them on a schedule, backs off on failures and lets you steer the session from a console.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newResolveCmd(app),
		newRunCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
