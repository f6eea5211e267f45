// Package main provides the pellet CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pellet",
		Short: "Pellet - incremental class taxonomy for OWL knowledge bases",
		Long: `Pellet classifies the named classes of a knowledge base into a taxonomy
and keeps it up to date as statements are added and removed, reclassifying
only the part of the hierarchy an edit can affect.

Statements are read from a functional-syntax file (--file) or from the
sqlite statement store (--kb). Classified state can be saved as named,
versioned snapshots and restored later without a full classification.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.teardown() },
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.StringP("file", "f", "", "Functional-syntax statements file (used instead of the statement store)")
	pf.String("kb", "", "Statement store path")
	pf.String("data-dir", "", "Snapshot store directory")
	pf.Bool("in-memory", false, "Keep snapshots in memory only")
	pf.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("single-threaded", false, "Run the units of a full classification one after the other")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pellet v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(
		newClassifyCmd(a),
		newRealizeCmd(a),
		newQueryCmd(a),
		newSnapshotCmd(a),
		newKBCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}
