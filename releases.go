package main

import (
	"fmt"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/spf13/cobra"
)

func newReleasesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releases",
		Short: "Commands on the release host's release list",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write the release list to a JSON file",
		Long: `Write the release list to a JSON file. The file can be passed back with
--releases-file to plan releases offline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			releases, err := a.host.ListReleases(cmd.Context())
			if err != nil {
				return err
			}
			a.checkReleaseLimit(len(releases))
			if err := rema.WriteReleasesFile(a.fs, args[0], releases); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Wrote %d releases to %s\n", len(releases), args[0])
			return nil
		},
	})
	return cmd
}
