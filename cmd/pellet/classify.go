package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ThomasFarrenkopf/pellet/pkg/taxonomy"
)

func newClassifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [FILE]",
		Short: "Classify the knowledge base and print the class taxonomy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			snapshot, _ := cmd.Flags().GetString("snapshot")
			stats, _ := cmd.Flags().GetBool("stats")

			c, err := a.classify(cmd.Context(), file, snapshot)
			if err != nil {
				return err
			}
			defer c.Dispose()

			out := cmd.OutOrStdout()
			if err := taxonomy.Print(out, c.Taxonomy()); err != nil {
				return err
			}
			if stats {
				fmt.Fprintf(out, "\nclassified: %s\n", a.strategy())
				for _, name := range a.timers.Names() {
					fmt.Fprintf(out, "%-22s %10v  (%d)\n", name, a.timers.Total(name), a.timers.Count(name))
				}
			}
			return nil
		},
	}
	cmd.Flags().String("snapshot", "", "Start from a stored snapshot instead of classifying from scratch")
	cmd.Flags().Bool("stats", false, "Print the strategy used and phase timings")
	return cmd
}

func newRealizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realize [FILE]",
		Short: "Compute the most specific classes of every individual",
		Long: `Realize classifies the knowledge base, finds the direct types of every
individual and prints the taxonomy with the direct instances of each class
in braces.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			snapshot, _ := cmd.Flags().GetString("snapshot")

			c, err := a.classify(cmd.Context(), file, snapshot)
			if err != nil {
				return err
			}
			defer c.Dispose()

			if err := c.Realize(cmd.Context()); err != nil {
				return err
			}
			return taxonomy.Print(cmd.OutOrStdout(), c.Taxonomy())
		},
	}
	cmd.Flags().String("snapshot", "", "Start from a stored snapshot instead of classifying from scratch")
	return cmd
}
