package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. open is called once before any
// subcommand runs and the env is closed afterwards.
func newRootCmd(open openFunc) *cobra.Command {
	var (
		configPath string
		e          *env
	)

	rootCmd := &cobra.Command{
		Use:           "dentalctl",
		Short:         "Operate the dental dashboard data store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = open(cmd.Context(), configPath)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e == nil {
				return nil
			}
			return e.Close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	current := func() *env { return e }

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Initialize absent collections with the demo records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, current())
		},
	}

	exportCmd := &cobra.Command{
		Use:       "export <collection>",
		Short:     "Print a collection as indented JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: collectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, current(), args[0])
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset [collection...]",
		Short: "Delete collections so the next start reseeds them (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, current(), args)
		},
	}

	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the persisted login session",
	}
	sessionShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted session and its expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(cmd, current())
		},
	}
	sessionClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted session, logging the user out on next start",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionClear(cmd, current())
		},
	}
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List the demo users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(cmd, current())
		},
	}

	rootCmd.AddCommand(seedCmd, exportCmd, resetCmd, sessionCmd, usersCmd)
	return rootCmd
}
