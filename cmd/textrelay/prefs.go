package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPrefsCmd(configPath *string) *cobra.Command {
	prefs := &cobra.Command{
		Use:   "prefs",
		Short: "Inspect or change stored service preferences",
	}

	prefs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every user's selected service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			s, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close(log)

			all, err := s.prefs.All(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list preferences: %w", err)
			}
			return printPreferences(cmd.OutOrStdout(), all)
		},
	})

	prefs.AddCommand(&cobra.Command{
		Use:   "set <user_id> <service_tag>",
		Short: "Set a user's service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			s, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer s.Close(log)

			if err := s.prefs.Set(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("%w (valid services: %v)", err, cfg.ServiceTags())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
			return nil
		},
	})

	return prefs
}

func printPreferences(w io.Writer, prefs map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER_ID\tSERVICE")
	for _, user := range slices.Sorted(maps.Keys(prefs)) {
		fmt.Fprintf(tw, "%s\t%s\n", user, prefs[user])
	}
	return tw.Flush()
}
