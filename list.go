package main

import (
	"fmt"
	"strings"

	rema "github.com/bcomnes/rema/pkg"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List packages with their latest version",
		Long:    `List every package known from published releases or local manifests, with its latest version.`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := a.loadWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderPackages(a, ws.latest))
			return nil
		},
	}
}

func renderPackages(a *app, latest map[string]rema.ReleaseRecord) string {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("PACKAGE", "VERSION", "TAG", "MANIFESTS")
	for _, name := range rema.PackageNames(latest) {
		rec := latest[name]
		version := rec.Version.String()
		tag := rec.TagName()
		if rec.LocalOnly {
			version += color.YellowString(" (unreleased)")
			tag = color.HiBlackString("-")
		}
		var paths []string
		for _, p := range rec.Manifest.Paths() {
			paths = append(paths, a.relPath(p))
		}
		manifests := strings.Join(paths, ", ")
		if manifests == "" {
			manifests = color.HiBlackString("-")
		}
		table.AddRow(displayName(name), version, tag, manifests)
	}
	return table.String()
}
