package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in sciforest's version
	VersionMajor = 0
	// VersionMinor is the minor number in sciforest's version
	VersionMinor = 3
	// VersionPatch is the patch number in sciforest's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sciforest",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sciforest v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
